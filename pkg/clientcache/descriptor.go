package clientcache

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDescriptor splits a connection descriptor into its endpoints.
//
// A descriptor is a comma-separated list of "host" or "host:port"
// pieces, for example "db1.example.com:27017,db2.example.com". Only the
// first colon in a piece separates host from port, the port must be a
// decimal integer, and empty pieces are skipped. A piece without a port
// keeps the database client's default.
//
// Parse failures are wrapped in ErrConnect since they surface exactly
// where a connection attempt would.
func ParseDescriptor(descriptor string) ([]string, error) {
	var endpoints []string

	for _, piece := range strings.Split(descriptor, ",") {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}

		host, portStr, hasPort := strings.Cut(piece, ":")
		if host == "" {
			return nil, fmt.Errorf("%w: empty host in descriptor piece %q", ErrConnect, piece)
		}
		if !hasPort {
			endpoints = append(endpoints, host)
			continue
		}

		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid port %q in descriptor piece %q", ErrConnect, portStr, piece)
		}
		if port <= 0 || port > 65535 {
			return nil, fmt.Errorf("%w: port %d out of range in descriptor piece %q", ErrConnect, port, piece)
		}

		endpoints = append(endpoints, fmt.Sprintf("%s:%d", host, port))
	}

	if len(endpoints) == 0 {
		return nil, fmt.Errorf("%w: descriptor %q names no endpoints", ErrConnect, descriptor)
	}

	return endpoints, nil
}
