package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/frahmantamala/hrm-access/internal/account"
	"github.com/frahmantamala/hrm-access/internal/permission"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userFlags struct {
	username   string
	password   string
	fullName   string
	role       string
	department string
	grant      []string
	revoke     []string
	active     bool
	out        string
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOperator(cmd, func(ctx context.Context, app *App, session *permission.Session) error {
			accounts, err := app.Accounts.List(ctx, session)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSERNAME\tFULL NAME\tROLE\tDEPARTMENT\tACTIVE\tPERMISSIONS")
			for _, a := range accounts {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\t%s\n",
					a.ID, a.Username, a.FullName, a.Role, departmentLabel(a.DepartmentAccess), a.IsActive, joinCapabilities(a.Permissions.Granted()))
			}
			return w.Flush()
		})
	},
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account from a role preset, optionally adjusted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOperator(cmd, func(ctx context.Context, app *App, session *permission.Session) error {
			editor := permission.NewEditor()
			if err := applyEdits(cmd, editor); err != nil {
				return err
			}
			role, perms := editor.Snapshot()
			active := editor.Active()

			acc, err := app.Accounts.Create(ctx, session, account.CreateAccountDTO{
				Username:         userFlags.username,
				Password:         userFlags.password,
				FullName:         userFlags.fullName,
				Role:             string(role),
				Permissions:      &perms,
				DepartmentAccess: departmentFlag(cmd, nil),
				IsActive:         &active,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Created account %q (id %d, role %s)\n", acc.Username, acc.ID, acc.Role)
			return nil
		})
	},
}

var userEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change an account's role, permissions, department or status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withOperator(cmd, func(ctx context.Context, app *App, session *permission.Session) error {
			state, editor, err := app.Accounts.EditState(ctx, session, id)
			if err != nil {
				return err
			}
			if err := applyEdits(cmd, editor); err != nil {
				return err
			}

			fullName := state.Account.FullName
			if cmd.Flags().Changed("full-name") {
				fullName = userFlags.fullName
			}
			acc, err := app.Accounts.SubmitEditor(ctx, session, id, fullName, departmentFlag(cmd, state.Account.DepartmentAccess), editor)
			if err != nil {
				return err
			}
			fmt.Printf("Updated account %q: role %s, active %t\n", acc.Username, acc.Role, acc.IsActive)
			return nil
		})
	},
}

var userResetPasswordCmd = &cobra.Command{
	Use:   "reset-password <id>",
	Short: "Set a new password for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withOperator(cmd, func(ctx context.Context, app *App, session *permission.Session) error {
			if err := app.Accounts.ResetPassword(ctx, session, id, userFlags.password); err != nil {
				return err
			}
			fmt.Println("Password reset")
			return nil
		})
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withOperator(cmd, func(ctx context.Context, app *App, session *permission.Session) error {
			if err := app.Accounts.Delete(ctx, session, id); err != nil {
				return err
			}
			fmt.Printf("Deleted account %d\n", id)
			return nil
		})
	},
}

var userExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the account roster to an xlsx file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOperator(cmd, func(ctx context.Context, app *App, session *permission.Session) error {
			data, err := app.Accounts.Export(ctx, session)
			if err != nil {
				return err
			}
			if err := os.WriteFile(userFlags.out, data, 0o644); err != nil {
				return err
			}
			fmt.Printf("Exported roster to %s\n", userFlags.out)
			return nil
		})
	},
}

func init() {
	addOperatorFlags(userCmd)

	for _, c := range []*cobra.Command{userCreateCmd, userEditCmd} {
		c.Flags().StringVar(&userFlags.fullName, "full-name", "", "display name")
		c.Flags().StringVar(&userFlags.role, "role", "", "role preset: admin, hr_manager, hr_staff or viewer")
		c.Flags().StringVar(&userFlags.department, "department", "", "restrict to one department; empty for all")
		c.Flags().StringSliceVar(&userFlags.grant, "grant", nil, "capabilities to switch on")
		c.Flags().StringSliceVar(&userFlags.revoke, "revoke", nil, "capabilities to switch off")
		c.Flags().BoolVar(&userFlags.active, "active", true, "whether the account can log in")
	}
	userCreateCmd.Flags().StringVar(&userFlags.username, "username", "", "login name")
	userCreateCmd.Flags().StringVar(&userFlags.password, "password", "", "initial password")
	userResetPasswordCmd.Flags().StringVar(&userFlags.password, "password", "", "new password")
	userExportCmd.Flags().StringVarP(&userFlags.out, "out", "o", "users.xlsx", "output file")

	userCmd.AddCommand(userListCmd, userCreateCmd, userEditCmd, userResetPasswordCmd, userDeleteCmd, userExportCmd)
}

// applyEdits replays the role and toggle flags onto editor in the order a
// form would: preset first, then individual switches, then status.
func applyEdits(cmd *cobra.Command, editor *permission.Editor) error {
	if userFlags.role != "" {
		role, err := permission.ParseRole(userFlags.role)
		if err != nil {
			return err
		}
		if err := editor.SelectRole(role); err != nil {
			return err
		}
	}
	for _, name := range userFlags.grant {
		if err := toggle(editor, name, true); err != nil {
			return err
		}
	}
	for _, name := range userFlags.revoke {
		if err := toggle(editor, name, false); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("active") {
		return editor.SetActive(userFlags.active)
	}
	return nil
}

func toggle(editor *permission.Editor, name string, value bool) error {
	c, ok := permission.ParseCapability(strings.TrimSpace(name))
	if !ok {
		return fmt.Errorf("%w: %s", permission.ErrUnknownCapability, name)
	}
	return editor.Toggle(c, value)
}

func departmentFlag(cmd *cobra.Command, current *string) *string {
	if !cmd.Flags().Changed("department") {
		return current
	}
	if userFlags.department == "" {
		return nil
	}
	d := userFlags.department
	return &d
}

func departmentLabel(d *string) string {
	if d == nil || *d == "" {
		return "All"
	}
	return *d
}

func joinCapabilities(caps []permission.Capability) string {
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = string(c)
	}
	return strings.Join(names, ",")
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid account id %q", s)
	}
	return id, nil
}
