package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/hrm-access/internal/account"
	employeeDatamodel "github.com/frahmantamala/hrm-access/internal/core/datamodel/employee"
	"github.com/frahmantamala/hrm-access/internal/permission"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/clause"
)

const (
	defaultAdminUsername = "admin"
	defaultAdminPassword = "admin123"
)

var seedClear bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the default administrator",
	Long: `Create the default administrator when no accounts exist and load sample
employees so the department directory has data during development.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if seedClear {
			if err := app.Gorm.WithContext(ctx).Exec("DELETE FROM employees").Error; err != nil {
				return fmt.Errorf("failed to clear employees: %w", err)
			}
			fmt.Println("Cleared sample employees")
		}

		if err := seedAdmin(ctx, app); err != nil {
			return err
		}
		return seedEmployees(ctx, app)
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedClear, "clear", false, "remove existing employees before seeding")
}

func seedAdmin(ctx context.Context, app *App) error {
	n, err := app.Repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count accounts: %w", err)
	}
	if n > 0 {
		fmt.Printf("%d account(s) present; default admin not created\n", n)
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(defaultAdminPassword), app.Config.Security.BCryptCost)
	if err != nil {
		return err
	}
	admin := &account.Account{
		Username:     defaultAdminUsername,
		PasswordHash: string(hash),
		FullName:     "System Administrator",
		Role:         permission.RoleAdmin,
		Permissions:  permission.Resolve(permission.RoleAdmin),
		IsActive:     true,
	}
	if err := app.Repo.Create(ctx, account.ToDataModel(admin)); err != nil {
		return fmt.Errorf("failed to insert admin: %w", err)
	}
	fmt.Printf("Seeded admin user %q; change the password after first login\n", defaultAdminUsername)
	return nil
}

func seedEmployees(ctx context.Context, app *App) error {
	employees := []employeeDatamodel.Employee{
		{EmployeeID: "EMP-0001", FullName: "Siti Rahma", Department: "Sewing", Position: "Line Leader"},
		{EmployeeID: "EMP-0002", FullName: "Budi Santoso", Department: "Sewing", Position: "Operator"},
		{EmployeeID: "EMP-0003", FullName: "Dewi Lestari", Department: "Cutting", Position: "Cutter"},
		{EmployeeID: "EMP-0004", FullName: "Agus Pratama", Department: "Finishing", Position: "Quality Checker"},
		{EmployeeID: "EMP-0005", FullName: "Rina Wulandari", Department: "Packing", Position: "Packer"},
	}

	result := app.Gorm.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "employee_id"}}, DoNothing: true}).
		Create(&employees)
	if result.Error != nil {
		return fmt.Errorf("failed to insert employees: %w", result.Error)
	}
	fmt.Printf("Seeded %d sample employee(s)\n", result.RowsAffected)
	return nil
}
