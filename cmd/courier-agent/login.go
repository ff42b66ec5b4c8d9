// README: login command; acquires and persists a user token, then exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"courier/internal/config"
	"courier/internal/modules/api"
)

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in once and persist the access token",
		Long: `login runs the password grant against the dispatch service and
stores the token in the configured secure store. It needs Redis to be
configured for the token to outlive the command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("COURIER_PASSWORD")
			}
			return login(cmd.Context(), email, password)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (or COURIER_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func login(ctx context.Context, email, password string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if cfg.Redis.Addr == "" {
		logger.Warn("no redis configured; the token will not outlive this command")
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	events, err := a.session.Login(ctx, email, password)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if ev.Kind == api.KindFailure {
			return errors.New(api.AlertMessage(ev))
		}
	}
	fmt.Printf("logged in as %s\n", email)
	return nil
}
