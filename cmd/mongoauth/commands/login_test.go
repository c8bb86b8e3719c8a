package commands

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPromptCommand(input string) (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	return cmd, &out
}

// The password must go through the masked reader, never through the
// echoing input stream.
func TestCredentialCallbackMasksPassword(t *testing.T) {
	cmd, out := newPromptCommand("berti\n")

	var gotLabel string
	cb := credentialCallback(cmd, func(label string) (string, error) {
		gotLabel = label
		return "fish", nil
	})

	username, password, err := cb("Username: ", "Password: ")
	require.NoError(t, err)

	assert.Equal(t, "berti", username)
	assert.Equal(t, "fish", password)
	assert.Equal(t, "Password", gotLabel)
	assert.Equal(t, "Username: ", out.String())
	assert.NotContains(t, out.String(), "fish")
}

func TestCredentialCallbackPasswordError(t *testing.T) {
	cmd, _ := newPromptCommand("berti\n")

	promptErr := errors.New("prompt aborted")
	cb := credentialCallback(cmd, func(string) (string, error) {
		return "", promptErr
	})

	_, _, err := cb("Username: ", "Password: ")
	assert.ErrorIs(t, err, promptErr)
}

func TestCredentialCallbackUsernameError(t *testing.T) {
	// No trailing newline, so the username read hits EOF.
	cmd, _ := newPromptCommand("")

	cb := credentialCallback(cmd, func(string) (string, error) {
		t.Fatal("password prompt must not run after a failed username read")
		return "", nil
	})

	_, _, err := cb("Username: ", "Password: ")
	assert.Error(t, err)
}
