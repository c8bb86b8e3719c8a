package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/identd/mongoauth/internal/cli/prompt"
	"github.com/identd/mongoauth/pkg/identity"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify credentials against the directory backend",
	Long: `Verify a username and password against the directory backend and
print the resolved principal and roles.

This is a diagnostic command; it performs the same credential handshake
the server runs for API logins.

Example:
  mongoauth login`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}

	st, cleanup, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	scheme, err := identity.SchemeByName(cfg.Database.PasswordScheme)
	if err != nil {
		return err
	}

	auth := identity.NewAuthenticator(st, scheme)
	module := identity.NewLoginModule(auth, terminalCredentials(cmd))

	principal, err := module.Login(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Authenticated as %q\n", principal.Name())
	for _, g := range module.GroupPrincipals() {
		fmt.Fprintf(cmd.OutOrStdout(), "  role: %s\n", g.Name())
	}

	module.Logout()
	return nil
}

// terminalCredentials reads the username from the command's input
// stream and the password through a masked prompt.
func terminalCredentials(cmd *cobra.Command) identity.CredentialCallback {
	return credentialCallback(cmd, prompt.Password)
}

// credentialCallback builds the login callback. readPassword must not
// echo the input.
func credentialCallback(cmd *cobra.Command, readPassword func(label string) (string, error)) identity.CredentialCallback {
	return func(namePrompt, passwordPrompt string) (string, string, error) {
		reader := bufio.NewReader(cmd.InOrStdin())

		fmt.Fprint(cmd.OutOrStdout(), namePrompt)
		username, err := reader.ReadString('\n')
		if err != nil {
			return "", "", err
		}

		password, err := readPassword(strings.TrimSuffix(passwordPrompt, ": "))
		if err != nil {
			return "", "", err
		}

		return strings.TrimRight(username, "\r\n"), password, nil
	}
}
