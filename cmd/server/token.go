package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	jwttoken "phasegate/internal/jwt_token"
	"phasegate/internal/platform/config"
	id "phasegate/pkg/domain"
)

var (
	tokenSubject string
	tokenEmail   string
	tokenTTL     time.Duration
)

// tokenCmd mints a bearer token signed with AUTH_JWT_SECRET, standing in for
// the identity provider during local development.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development bearer token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		subject := tokenSubject
		if subject == "" {
			subject = uuid.NewString()
		} else if _, err := id.ParseProfileID(subject); err != nil {
			return err
		}
		svc := jwttoken.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
		token, err := svc.GenerateAccessToken(subject, tokenEmail, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "subject: %s\ntoken: %s\n", subject, token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "Profile id to embed (random when empty)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Email claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "Token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
