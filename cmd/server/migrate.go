package main

import (
	"errors"

	"github.com/spf13/cobra"

	"phasegate/internal/platform/config"
	"phasegate/internal/platform/logger"
	"phasegate/internal/platform/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Database.URL == "" {
			return errors.New("DATABASE_URL is required to migrate")
		}
		log := logger.New(cfg.LogLevel)

		db, err := postgres.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := postgres.Migrate(cmd.Context(), db); err != nil {
			return err
		}
		log.Info("schema applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
