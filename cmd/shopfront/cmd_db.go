package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/shopfront/app/services"
	"github.com/shashiranjanraj/shopfront/pkg/app"
	"github.com/shashiranjanraj/shopfront/pkg/database"
	"github.com/shashiranjanraj/shopfront/pkg/migration"
)

// migrationCommand opens the SQL database and hands a runner to fn.
func migrationCommand(use, short string, fn func(r *migration.Runner) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := app.OpenDB()
			if err != nil {
				return err
			}
			defer database.Close(db)
			return fn(migration.New(db))
		},
	}
}

// shopfront migrate
var migrateCmd = migrationCommand("migrate", "Run all pending database migrations", func(r *migration.Runner) error {
	fmt.Println("Running migrations…")
	return r.Run()
})

// shopfront migrate:rollback
var migrateRollbackCmd = migrationCommand("migrate:rollback", "Rollback the last batch of migrations", func(r *migration.Runner) error {
	fmt.Println("Rolling back last batch…")
	return r.Rollback()
})

// shopfront migrate:status
var migrateStatusCmd = migrationCommand("migrate:status", "Show the status of each migration", func(r *migration.Runner) error {
	return r.Status()
})

// shopfront migrate:fresh
var migrateFreshCmd = migrationCommand("migrate:fresh", "Roll back every migration and run them again", func(r *migration.Runner) error {
	fmt.Println("Rebuilding schema…")
	return r.Fresh()
})

// shopfront db:seed
var seedCmd = &cobra.Command{
	Use:     "db:seed",
	Aliases: []string{"seed"},
	Short:   "Load the demo store and catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.Application) error {
			return a.Seed(cmd.Context(), cmd.OutOrStdout())
		})
	},
}

var adminInput services.RegisterStoreInput

// shopfront admin:create
var adminCreateCmd = &cobra.Command{
	Use:   "admin:create",
	Short: "Create a store and its first admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := adminInput
		if in.Password == "" {
			in.Password = os.Getenv("ADMIN_PASSWORD")
		}
		return withApp(cmd.Context(), func(a *app.Application) error {
			return a.CreateAdmin(cmd.Context(), in, cmd.OutOrStdout())
		})
	},
}

func init() {
	f := adminCreateCmd.Flags()
	f.StringVar(&adminInput.StoreName, "store", "", "Store name")
	f.StringVar(&adminInput.Address, "address", "", "Store address")
	f.StringVar(&adminInput.WhatsApp, "whatsapp", "", "Store WhatsApp number")
	f.StringVar(&adminInput.Email, "email", "", "Admin email")
	f.StringVar(&adminInput.FirstName, "first-name", "", "Admin first name")
	f.StringVar(&adminInput.LastName, "last-name", "", "Admin last name")
	f.StringVar(&adminInput.Password, "password", "", "Admin password (or ADMIN_PASSWORD)")
	for _, name := range []string{"store", "address", "email", "first-name", "last-name"} {
		_ = adminCreateCmd.MarkFlagRequired(name)
	}
}
