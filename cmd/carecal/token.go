package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/carecal/internal/api"
	"github.com/zulandar/carecal/internal/config"
)

func newTokenCmd() *cobra.Command {
	var (
		configPath string
		user       string
		teams      []string
		ttl        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token",
		Long:  "Signs a bearer token for --user that grants access to the given teams, using api.jwt_secret.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return fmt.Errorf("--user (or $%s) is required", envUser)
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.RequireJWTSecret(); err != nil {
				return err
			}
			tok, err := api.IssueToken(cfg.API.JWTSecret, user, teams, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	addUserFlag(cmd, &user)
	cmd.Flags().StringSliceVar(&teams, "team", nil, "team id (repeatable, required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.MarkFlagRequired("team")
	return cmd
}
