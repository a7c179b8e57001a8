package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "github.com/fudign/kfa-sub000/internal/jwt_token"
	"github.com/fudign/kfa-sub000/internal/platform/config"
	"github.com/fudign/kfa-sub000/pkg/domain"
)

// tokenCmd mints an actor token signed with JWT_SIGNING_KEY. It exists for
// local development and smoke tests; production tokens come from the
// identity provider.
func tokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		name   string
		email  string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			parsedRole, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			actor := domain.Actor{Role: parsedRole, Name: name, Email: email}
			if userID == "" {
				actor.UserID = domain.NewUserID()
			} else if actor.UserID, err = domain.ParseUserID(userID); err != nil {
				return err
			}

			tokens := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer)
			token, err := tokens.GenerateActorToken(actor, ttl)
			if err != nil {
				return err
			}
			if cfg.UsesDevSigningKey() {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: signed with the development key")
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (random when empty)")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleMember), "user, member or admin")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
