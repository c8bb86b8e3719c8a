package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/identd/mongoauth/internal/cli/output"
	"github.com/identd/mongoauth/internal/cli/prompt"
	"github.com/identd/mongoauth/pkg/config"
)

var (
	userOutput string
	userForce  bool
	userGroups string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users and roles",
	Long: `Manage users and their roles in the directory backend.

Users live in the configured user collection; roles are group
memberships in the group collection. All subcommands connect directly
to the database using the configured descriptor.

Examples:
  mongoauth user add alice
  mongoauth user add alice --roles admin,ops
  mongoauth user passwd alice
  mongoauth user roles alice
  mongoauth user grant alice admin
  mongoauth user revoke alice admin
  mongoauth user list
  mongoauth user delete alice`,
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add a new user (prompts for password)",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var userDeleteCmd = &cobra.Command{
	Use:     "delete <username>",
	Aliases: []string{"remove"},
	Short:   "Delete a user and scrub its group memberships",
	Args:    cobra.ExactArgs(1),
	RunE:    runUserDelete,
}

var userListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all users",
	Args:    cobra.NoArgs,
	RunE:    runUserList,
}

var userPasswdCmd = &cobra.Command{
	Use:     "passwd <username>",
	Aliases: []string{"password"},
	Short:   "Change a user's password",
	Args:    cobra.ExactArgs(1),
	RunE:    runUserPasswd,
}

var userRolesCmd = &cobra.Command{
	Use:   "roles <username>",
	Short: "List the roles of a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserRoles,
}

var userGrantCmd = &cobra.Command{
	Use:   "grant <username> <role>",
	Short: "Grant a role to a user",
	Args:  cobra.ExactArgs(2),
	RunE:  runUserGrant,
}

var userRevokeCmd = &cobra.Command{
	Use:   "revoke <username> <role>",
	Short: "Revoke a role from a user",
	Args:  cobra.ExactArgs(2),
	RunE:  runUserRevoke,
}

func init() {
	userAddCmd.Flags().StringVar(&userGroups, "roles", "", "Comma-separated list of roles to grant")
	userDeleteCmd.Flags().BoolVarP(&userForce, "force", "f", false, "Delete without confirmation")
	userListCmd.Flags().StringVarP(&userOutput, "output", "o", "table", "Output format (table|json|yaml)")
	userRolesCmd.Flags().StringVarP(&userOutput, "output", "o", "table", "Output format (table|json|yaml)")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userDeleteCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userPasswdCmd)
	userCmd.AddCommand(userRolesCmd)
	userCmd.AddCommand(userGrantCmd)
	userCmd.AddCommand(userRevokeCmd)
}

func loadCLIConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	username := args[0]

	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}

	password, err := prompt.PasswordWithConfirmation("Password", "Confirm password", 1)
	if err != nil {
		return err
	}

	engine, cleanup, err := openEngine(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := engine.AddUser(cmd.Context(), username, password); err != nil {
		return err
	}

	var roles []string
	for _, r := range strings.Split(userGroups, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	for _, role := range roles {
		if err := engine.AddRole(cmd.Context(), username, role); err != nil {
			return err
		}
	}

	if len(roles) > 0 {
		fmt.Printf("User %q created with roles %v\n", username, roles)
	} else {
		fmt.Printf("User %q created\n", username)
	}
	return nil
}

func runUserDelete(cmd *cobra.Command, args []string) error {
	username := args[0]

	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete user %q", username), userForce)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Aborted")
		return nil
	}

	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}

	engine, cleanup, err := openEngine(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := engine.DeleteUser(cmd.Context(), username); err != nil {
		return err
	}

	fmt.Printf("User %q deleted\n", username)
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}

	engine, cleanup, err := openEngine(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	users, err := engine.ListUsers(cmd.Context())
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(userOutput)
	if err != nil {
		return err
	}
	printer := output.NewPrinter(cmd.OutOrStdout(), format, false)

	if format != output.FormatTable {
		return printer.Print(users)
	}

	if len(users) == 0 {
		printer.Println("No users found")
		return nil
	}

	table := output.NewTableData("USERNAME", "ROLES")
	for _, u := range users {
		roles, err := engine.ListRoles(cmd.Context(), u)
		if err != nil {
			return err
		}
		display := strings.Join(roles, ",")
		if display == "" {
			display = "-"
		}
		table.AddRow(u, display)
	}
	return printer.Print(table)
}

func runUserPasswd(cmd *cobra.Command, args []string) error {
	username := args[0]

	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}

	password, err := prompt.PasswordWithConfirmation("New password", "Confirm password", 1)
	if err != nil {
		return err
	}

	engine, cleanup, err := openEngine(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := engine.SetPassword(cmd.Context(), username, password); err != nil {
		return err
	}

	fmt.Printf("Password changed for user %q\n", username)
	return nil
}

func runUserRoles(cmd *cobra.Command, args []string) error {
	username := args[0]

	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}

	engine, cleanup, err := openEngine(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	roles, err := engine.ListRoles(cmd.Context(), username)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(userOutput)
	if err != nil {
		return err
	}
	printer := output.NewPrinter(cmd.OutOrStdout(), format, false)

	if format != output.FormatTable {
		return printer.Print(roles)
	}

	if len(roles) == 0 {
		printer.Printf("User %q has no roles\n", username)
		return nil
	}

	table := output.NewTableData("ROLE")
	for _, r := range roles {
		table.AddRow(r)
	}
	return printer.Print(table)
}

func runUserGrant(cmd *cobra.Command, args []string) error {
	username, role := args[0], args[1]

	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}

	engine, cleanup, err := openEngine(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := engine.AddRole(cmd.Context(), username, role); err != nil {
		return err
	}

	fmt.Printf("Granted role %q to user %q\n", role, username)
	return nil
}

func runUserRevoke(cmd *cobra.Command, args []string) error {
	username, role := args[0], args[1]

	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}

	engine, cleanup, err := openEngine(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := engine.DeleteRole(cmd.Context(), username, role); err != nil {
		return err
	}

	fmt.Printf("Revoked role %q from user %q\n", role, username)
	return nil
}
