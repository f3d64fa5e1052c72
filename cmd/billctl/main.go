// Command billctl administers a billdesk database from the shell.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/billdesk/billdesk/internal/config"
	"github.com/billdesk/billdesk/internal/database"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "billctl",
		Short:         "Administer billdesk users, price tiers and schema",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	connect := func(ctx context.Context) (*config.Config, *database.DB, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loading configuration: %w", err)
		}
		db, err := database.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return cfg, db, nil
	}

	root.AddCommand(versionCmd())
	root.AddCommand(migrateCmd(connect))
	root.AddCommand(usersCmd(connect))
	root.AddCommand(tiersCmd(connect))
	root.AddCommand(quoteCmd(connect))

	return root
}

// connectFunc loads configuration and opens the database.
type connectFunc func(ctx context.Context) (*config.Config, *database.DB, error)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the billctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

func migrateCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := db.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			return nil
		},
	}
}
