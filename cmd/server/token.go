package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"amicable/internal/identity"
	"amicable/internal/platform/config"
	"amicable/pkg/domain"
)

// tokenCmd signs a development token with the configured key. In production
// the identity service issues tokens.
func tokenCmd() *cobra.Command {
	var (
		userID    int64
		email     string
		isAdmin   bool
		isInsurer bool
		inactive  bool
		ttl       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			if cfg.Environment == "production" {
				return fmt.Errorf("token issuance is disabled in production")
			}
			id := domain.UserID(userID)
			if id.IsNil() {
				return fmt.Errorf("--user-id must be positive")
			}
			if email == "" {
				return fmt.Errorf("--email is required")
			}

			resolver := identity.NewJWTResolver(cfg.Identity.SigningKey, cfg.Identity.Issuer)
			token, err := resolver.IssueToken(domain.Principal{
				UserID:    id,
				Email:     email,
				IsAdmin:   isAdmin,
				IsActive:  !inactive,
				IsInsurer: isInsurer,
			}, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user-id", 0, "numeric user id (token subject)")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "grant the administrator role")
	cmd.Flags().BoolVar(&isInsurer, "insurer", false, "mark the principal as an insurance company")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "issue a token for a deactivated account")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
