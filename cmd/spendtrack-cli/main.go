// Command spendtrack-cli is the terminal client for the spendtrack API.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"spendtrack/internal/client"
	"spendtrack/internal/settings"
)

var (
	flagAPI   string
	flagQuiet bool
)

var rootCmd = &cobra.Command{
	Use:           "spendtrack-cli",
	Short:         "Track expenses from the terminal",
	Long:          "Record expenses, review monthly summaries and goals, and export reports from a spendtrack server.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAPI, "api", "", "API base URL (overrides the settings file)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress informational output")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// session is the per-invocation state shared by commands.
type session struct {
	settings settings.Settings
	api      *client.Client
}

func openSession() (*session, error) {
	s, err := settings.Load()
	if err != nil {
		return nil, err
	}
	if flagAPI != "" {
		s.API.URL = flagAPI
	}
	return &session{
		settings: s,
		api:      client.New(s.API.URL, client.WithToken(s.API.Token)),
	}, nil
}

// requireLogin fails early instead of letting the server answer 401.
func (s *session) requireLogin() error {
	if s.settings.API.Token == "" {
		return fmt.Errorf("not logged in: run %q first", "spendtrack-cli login")
	}
	return nil
}

// info prints already-rendered output unless --quiet is set.
func info(text string) {
	if !flagQuiet {
		fmt.Print(text)
	}
}

// prompt reads one line from stdin when a flag was left empty.
func prompt(label, current string) (string, error) {
	if current != "" {
		return current, nil
	}
	fmt.Fprintf(os.Stderr, "%s: ", label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}
