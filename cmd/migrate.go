package cmd

import (
	"fmt"

	"relsave/core/database"
	"relsave/feature/project"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	migrateSeed       bool
	migrateVerifyOnly bool
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the project tables",
	Long:  `Creates or updates the company, user, project and link tables with their join tables, optionally seeds sample rows, then verifies the columns.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logg := setup()
		defer logg.Sync()

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}

		if !migrateVerifyOnly {
			if err := project.Migrate(cmd.Context(), db, logg); err != nil {
				return err
			}
			if migrateSeed {
				if err := project.Seed(cmd.Context(), db, logg); err != nil {
					return err
				}
			}
		}

		if err := project.Verify(db); err != nil {
			return err
		}
		logg.Info("Schema verified", zap.String("driver", cfg.Database.Driver))
		fmt.Println("Schema OK")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateSeed, "seed", false, "Insert the sample companies, users, projects and links")
	migrateCmd.Flags().BoolVar(&migrateVerifyOnly, "verify-only", false, "Only check the existing schema")
	RootCmd.AddCommand(migrateCmd)
}
