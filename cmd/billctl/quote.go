package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/billdesk/billdesk/internal/invoice"
	"github.com/billdesk/billdesk/internal/pricing"
	"github.com/billdesk/billdesk/internal/settings"
	"github.com/billdesk/billdesk/internal/tier"
)

func quoteCmd(connect connectFunc) *cobra.Command {
	var credits int64

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a credits amount against a user's tiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := ownerFlag(cmd)
			if err != nil {
				return err
			}
			if credits <= 0 {
				return pricing.ErrInvalidCredits
			}

			_, db, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			pool := db.Pool()
			svc := invoice.NewService(invoice.NewRepository(pool), tier.NewPostgresRepository(pool), settings.NewRepository(pool), nil)
			q, err := svc.Quote(cmd.Context(), owner, credits)
			if errors.Is(err, pricing.ErrNoPricingData) {
				return fmt.Errorf("user %s has no price tiers; run billctl tiers import-defaults", owner)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "credits:    %d\n", credits)
			fmt.Fprintf(out, "price:      %s USDT\n", q.Price.StringFixed(2))
			fmt.Fprintf(out, "unit price: %s\n", q.UnitPrice.StringFixed(6))
			fmt.Fprintf(out, "basis:      %s\n", q.Basis)
			return nil
		},
	}

	cmd.Flags().String("owner", "", "owning user id")
	cmd.Flags().Int64Var(&credits, "credits", 0, "credits amount to price")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("credits")

	return cmd
}
