package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Probotsvip/PowerfulAPI/internal/store"
)

// keysCmd groups the credential administration commands. These replace the
// original admin panel's key CRUD; they run against the same sqlite database
// the server uses.
func keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}

	var owner string
	var dailyLimit, ttlDays int

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		RunE: func(_ *cobra.Command, _ []string) error {
			if owner == "" {
				return fmt.Errorf("owner is required")
			}
			return withStore(func(ctx context.Context, s *store.CredentialStore) error {
				key, err := s.Create(ctx, owner, dailyLimit, ttlDays)
				if err != nil {
					return err
				}
				fmt.Printf("Created API key for %s: %s\n", owner, key)
				return nil
			})
		},
	}
	createCmd.Flags().StringVar(&owner, "owner", "", "key owner name")
	createCmd.Flags().IntVar(&dailyLimit, "daily-limit", 1000, "requests allowed per day")
	createCmd.Flags().IntVar(&ttlDays, "ttl-days", 30, "days until the key expires")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all API keys",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withStore(func(ctx context.Context, s *store.CredentialStore) error {
				creds, err := s.ListAll(ctx)
				if err != nil {
					return err
				}
				for _, cred := range creds {
					state := "active"
					if !cred.Active {
						state = "inactive"
					}
					fmt.Printf("%s  owner=%s  usage=%d/%d  total=%d  expires=%s  %s\n",
						cred.Key, cred.Owner, cred.RequestsToday, cred.DailyLimit,
						cred.TotalRequests, cred.ExpiresAt.Format("2006-01-02"), state)
				}
				return nil
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s *store.CredentialStore) error {
				if err := s.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("Deleted.")
				return nil
			})
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset-daily",
		Short: "Reset every key's daily counter (run from cron at midnight)",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withStore(func(ctx context.Context, s *store.CredentialStore) error {
				if err := s.ResetDailyCounters(ctx); err != nil {
					return err
				}
				fmt.Println("Daily counters reset.")
				return nil
			})
		},
	}

	cmd.AddCommand(createCmd, listCmd, deleteCmd, resetCmd)
	return cmd
}

func withStore(fn func(context.Context, *store.CredentialStore) error) error {
	s, err := store.Open(config.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	defer func() {
		_ = s.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return fn(ctx, s)
}
