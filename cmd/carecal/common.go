package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/carecal/internal/config"
	"github.com/zulandar/carecal/internal/db"
	"github.com/zulandar/carecal/internal/logging"
	"gorm.io/gorm"
)

const envUser = "CARECAL_USER"

func addConfigFlag(cmd *cobra.Command, configPath *string) {
	cmd.Flags().StringVarP(configPath, "config", "c", defaultConfigPath, "path to carecal config file")
}

// addUserFlag registers --user, defaulting to $CARECAL_USER.
func addUserFlag(cmd *cobra.Command, user *string) {
	cmd.Flags().StringVar(user, "user", os.Getenv(envUser), "acting user id (default $"+envUser+")")
}

func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s database: %w", cfg.Database.Driver, err)
	}
	return cfg, gormDB, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(cmd.ErrOrStderr(), level), nil
}

// parseWhen accepts an RFC 3339 timestamp, "YYYY-MM-DD HH:MM" or a plain
// date. All are read as UTC.
func parseWhen(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use RFC 3339, YYYY-MM-DD HH:MM or YYYY-MM-DD", s)
}

// parseWindowEnd is parseWhen, except that a plain date means the end of
// that day.
func parseWindowEnd(s string) (time.Time, error) {
	t, err := parseWhen(s)
	if err != nil {
		return t, err
	}
	if len(strings.TrimSpace(s)) == len(time.DateOnly) {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t, nil
}

func formatWhen(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatWhen(*t)
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
