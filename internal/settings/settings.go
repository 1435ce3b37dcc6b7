// Package settings holds the terminal client's configuration, stored as
// TOML under the XDG config directory.
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

const DefaultAPIURL = "http://localhost:8081"

type Settings struct {
	API    APIConfig    `toml:"api"`
	Goal   GoalConfig   `toml:"goal"`
	Outbox OutboxConfig `toml:"outbox"`
}

type APIConfig struct {
	URL   string `toml:"url"`
	Token string `toml:"token,omitempty"`
	Email string `toml:"email,omitempty"`
}

// GoalConfig is the monthly spending goal. It never leaves the client
// except as a query parameter on dashboard requests.
type GoalConfig struct {
	Monthly float64 `toml:"monthly"`
}

type OutboxConfig struct {
	Path string `toml:"path,omitempty"`
}

func Default() Settings {
	return Settings{API: APIConfig{URL: DefaultAPIURL}}
}

// Dir returns $XDG_CONFIG_HOME/spendtrack, falling back to ~/.config.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "spendtrack")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "spendtrack")
}

func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

func Load() (Settings, error) {
	return LoadFrom(Path())
}

// LoadFrom reads path, returning defaults when the file does not exist.
func LoadFrom(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("reading settings: %w", err)
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing settings: %w", err)
	}
	if s.API.URL == "" {
		s.API.URL = DefaultAPIURL
	}
	return s, nil
}

func Save(s Settings) error {
	return SaveTo(Path(), s)
}

// SaveTo writes s with owner-only permissions since it holds the token.
func SaveTo(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating settings file: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(s); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing settings: %w", err)
	}
	return f.Close()
}

// MonthlyGoal returns the goal as a decimal; negative values count as unset.
func (s Settings) MonthlyGoal() decimal.Decimal {
	g := decimal.NewFromFloat(s.Goal.Monthly)
	if g.IsNegative() {
		return decimal.Zero
	}
	return g
}

// SetMonthlyGoal stores goal, rejecting negative amounts.
func (s *Settings) SetMonthlyGoal(goal decimal.Decimal) error {
	if goal.IsNegative() {
		return fmt.Errorf("goal must not be negative: %s", goal)
	}
	s.Goal.Monthly = goal.InexactFloat64()
	return nil
}

// OutboxPath is where queued expenses live when not configured explicitly.
func (s Settings) OutboxPath() string {
	if s.Outbox.Path != "" {
		return s.Outbox.Path
	}
	return filepath.Join(Dir(), "outbox.db")
}

// MaskedToken shows only the tail of the stored token.
func (s Settings) MaskedToken() string {
	t := s.API.Token
	switch {
	case t == "":
		return "not logged in"
	case len(t) <= 8:
		return "****"
	default:
		return "****" + t[len(t)-6:]
	}
}
