package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"spendtrack/internal/outbox"
	"spendtrack/internal/render"
	"spendtrack/internal/settings"
)

var flagSetURL string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current settings and connectivity",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	configCmd.Flags().StringVar(&flagSetURL, "set-url", "", "Store a new API base URL")
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	if flagSetURL != "" {
		s.settings.API.URL = flagSetURL
		if err := settings.Save(s.settings); err != nil {
			return err
		}
		info(render.Success("API URL set to " + flagSetURL))
	}

	fmt.Printf("  Settings file: %s\n\n", settings.Path())

	fmt.Println("  [API]")
	fmt.Printf("    URL:    %s\n", s.settings.API.URL)
	fmt.Printf("    Status: %s\n", apiStatus(cmd.Context(), s))
	if s.settings.API.Email != "" {
		fmt.Printf("    User:   %s\n", s.settings.API.Email)
	}
	fmt.Printf("    Token:  %s\n\n", s.settings.MaskedToken())

	fmt.Println("  [Goal]")
	if goal := s.settings.MonthlyGoal(); goal.IsPositive() {
		fmt.Printf("    Monthly: %s\n\n", render.Money(goal))
	} else {
		fmt.Print("    Monthly: not set\n\n")
	}

	fmt.Println("  [Outbox]")
	fmt.Printf("    Path:    %s\n", s.settings.OutboxPath())
	q, err := outbox.Open(s.settings.OutboxPath(), nil)
	if err != nil {
		fmt.Printf("    Status:  unavailable (%v)\n", err)
		return nil
	}
	defer q.Close()
	pending, err := q.Pending(cmd.Context())
	if err != nil {
		return err
	}
	dead, err := q.Dead(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("    Pending: %d\n", len(pending))
	fmt.Printf("    Rejected: %d\n", len(dead))
	return nil
}

func apiStatus(ctx context.Context, s *session) string {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.api.Health(ctx); err != nil {
		return "unreachable"
	}
	return "ok"
}
