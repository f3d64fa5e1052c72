package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/billdesk/billdesk/internal/tier"
)

func tiersCmd(connect connectFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tiers",
		Short: "Manage price tiers",
	}
	cmd.AddCommand(tiersImportDefaultsCmd(connect))
	cmd.AddCommand(tiersListCmd(connect))
	return cmd
}

// ownerFlag parses a required --owner user id.
func ownerFlag(cmd *cobra.Command) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString("owner")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--owner must be a user id: %w", err)
	}
	return id, nil
}

func tiersImportDefaultsCmd(connect connectFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-defaults",
		Short: "Seed the standard package table for a user, skipping existing credit amounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := ownerFlag(cmd)
			if err != nil {
				return err
			}

			_, db, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			rows := tier.FromDefaults(owner)
			inserted, err := tier.NewPostgresRepository(db.Pool()).BulkCreate(cmd.Context(), owner, rows)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d tiers, skipped %d\n", inserted, len(rows)-inserted)
			return nil
		},
	}
	cmd.Flags().String("owner", "", "owning user id")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func tiersListCmd(connect connectFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's price tiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := ownerFlag(cmd)
			if err != nil {
				return err
			}

			_, db, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			tiers, err := tier.NewPostgresRepository(db.Pool()).List(cmd.Context(), owner)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CREDITS\tNUMBERS\tUNIT PRICE\tPRICE")
			for _, t := range tiers {
				fmt.Fprintf(tw, "%d\t%d-%d\t%s\t%s\n", t.Credits, t.MinNumbers, t.MaxNumbers, t.UnitPrice.StringFixed(6), t.Price.StringFixed(2))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("owner", "", "owning user id")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
