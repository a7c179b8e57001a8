package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fudign/kfa-sub000/internal/platform/config"
	pgplatform "github.com/fudign/kfa-sub000/internal/platform/postgres"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations to DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := pgplatform.Open(cmd.Context(), cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := pgplatform.Migrate(cmd.Context(), db)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				fmt.Fprintln(out, "schema is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(out, "applied %s\n", name)
			}
			return nil
		},
	}
}
