package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kfactl",
		Short: "Operator tooling for the KFA membership service",
		Long: `kfactl applies database migrations and mints development tokens.
Configuration is read from the same environment variables as the server.`,
		SilenceUsage: true,
	}
	root.AddCommand(migrateCmd())
	root.AddCommand(tokenCmd())
	return root
}
