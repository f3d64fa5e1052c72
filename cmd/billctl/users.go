package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/billdesk/billdesk/internal/api/validation"
	"github.com/billdesk/billdesk/internal/auth"
)

func usersCmd(connect connectFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage operators and their API keys",
	}
	cmd.AddCommand(usersCreateCmd(connect))
	cmd.AddCommand(usersListCmd(connect))
	return cmd
}

func usersCreateCmd(connect connectFunc) *cobra.Command {
	var name, role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an operator and print its API key once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name = strings.TrimSpace(name)
			if errs := validation.ValidateCreateUserRequest(validation.CreateUserRequest{Name: name, Role: role}); len(errs) > 0 {
				return fmt.Errorf("%s: %s", errs[0].Field, errs[0].Message)
			}
			if role == "" {
				role = auth.RoleOperator
			}

			cfg, db, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			svc := auth.NewService(auth.NewRepository(db.Pool()), cfg.BcryptCost)
			u, rawKey, err := svc.CreateUser(cmd.Context(), name, role)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:      %s\n", u.ID)
			fmt.Fprintf(out, "name:    %s\n", u.Name)
			fmt.Fprintf(out, "role:    %s\n", u.Role)
			fmt.Fprintf(out, "api key: %s\n", rawKey)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "operator name")
	cmd.Flags().StringVar(&role, "role", auth.RoleOperator, "role: admin or operator")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func usersListCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List operators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			users, err := auth.NewRepository(db.Pool()).List(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tROLE\tKEY PREFIX\tREVOKED")
			for _, u := range users {
				revoked := "-"
				if u.RevokedAt != nil {
					revoked = u.RevokedAt.UTC().Format("2006-01-02")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Role, u.ApiKeyPrefix, revoked)
			}
			return tw.Flush()
		},
	}
}
