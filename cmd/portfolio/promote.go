package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Leul120/portfolio/internal/config"
	"github.com/Leul120/portfolio/internal/domain"
	"github.com/Leul120/portfolio/internal/repo"
)

func promoteCmd() *cobra.Command {
	var (
		email string
		role  string
	)
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Set the role of an existing principal",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := domain.Role(role)
			if !r.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			cfg := config.Load()
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			if err := store.SetRole(ctx, email, r); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return fmt.Errorf("no principal with email %s", domain.NormalizeEmail(email))
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", domain.NormalizeEmail(email), r)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the principal")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleAdmin), "role to grant (user or admin)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
