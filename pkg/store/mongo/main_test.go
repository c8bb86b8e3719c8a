package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

// sharedDescriptor is the host:port descriptor of the shared MongoDB
// container, set by TestMain.
var sharedDescriptor string

// TestMain starts one MongoDB container shared by all tests in this
// package. Individual tests isolate themselves with unique database
// names.
func TestMain(m *testing.M) {
	if os.Getenv("TESTCONTAINERS_SKIP") != "" {
		fmt.Fprintln(os.Stderr, "skipping mongo integration tests: TESTCONTAINERS_SKIP set")
		os.Exit(0)
	}

	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start mongodb container: %v\n", err)
		os.Exit(1)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}

	port, err := container.MappedPort(ctx, "27017")
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		fmt.Fprintf(os.Stderr, "failed to get container port: %v\n", err)
		os.Exit(1)
	}

	sharedDescriptor = fmt.Sprintf("%s:%s", host, port.Port())

	exitCode := m.Run()

	if err := testcontainers.TerminateContainer(container); err != nil {
		fmt.Fprintf(os.Stderr, "failed to terminate container: %v\n", err)
	}

	os.Exit(exitCode)
}
