package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"phasegate/internal/platform/config"
	"phasegate/internal/platform/logger"
	"phasegate/internal/platform/postgres"
	profileservice "phasegate/internal/profile/service"
	profilestore "phasegate/internal/profile/store"
	id "phasegate/pkg/domain"
)

var adminRevoke bool

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Operator commands",
}

var adminGrantCmd = &cobra.Command{
	Use:   "grant <profile-id>",
	Short: "Grant or revoke the admin flag on a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profileID, err := id.ParseProfileID(args[0])
		if err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required to change admin flags")
		}
		log := logger.New(cfg.LogLevel)

		db, err := postgres.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		profiles := profileservice.New(profilestore.NewPostgres(db), profileservice.WithLogger(log))
		if err := profiles.SetAdmin(cmd.Context(), profileID, !adminRevoke); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "profile %s admin=%t\n", profileID, !adminRevoke)
		return nil
	},
}

func init() {
	adminGrantCmd.Flags().BoolVar(&adminRevoke, "revoke", false, "Revoke instead of grant")
	adminCmd.AddCommand(adminGrantCmd)
	rootCmd.AddCommand(adminCmd)
}
