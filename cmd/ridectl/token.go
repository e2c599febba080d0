package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"groupride/internal/config"
	"groupride/internal/domain"
	"groupride/internal/middleware"
)

func newTokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.Auth.JWTSecret == "" {
				return errors.New("token: JWT_SECRET is not set")
			}
			if userID == "" {
				return errors.New("token: --user is required")
			}

			r := domain.UserRole(role)
			if r != domain.UserRoleMember && r != domain.UserRoleAdmin {
				return fmt.Errorf("token: unknown role %q", role)
			}

			token, err := middleware.IssueToken(cfg.Auth.JWTSecret, cfg.Auth.Issuer, userID, r, ttl)
			if err != nil {
				return fmt.Errorf("token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "user ID placed in the token subject")
	cmd.Flags().StringVar(&role, "role", string(domain.UserRoleMember), "member or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
