package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/carecal/internal/api"
	"github.com/zulandar/carecal/internal/daemon"
	"github.com/zulandar/carecal/internal/db"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		noCatchUp  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the catch-up daemon",
		Long: `Starts the HTTP API and, unless --no-catchup is given, the periodic
catch-up that materializes every team's care tasks up to the configured
horizon. Stops on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, noCatchUp)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides api.port)")
	cmd.Flags().BoolVar(&noCatchUp, "no-catchup", false, "do not run the periodic catch-up")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int, noCatchUp bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.RequireJWTSecret(); err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	log, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.API.Port
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	daemonErr := make(chan error, 1)
	if !noCatchUp {
		go func() {
			daemonErr <- daemon.Run(ctx, daemon.Opts{
				DB:         gormDB,
				Schedule:   cfg.Materialize.CatchUpCron,
				Horizon:    cfg.Materialize.Horizon,
				RunOnStart: true,
				Logger:     log,
			})
		}()
	} else {
		daemonErr <- nil
	}

	apiErr := api.Start(ctx, api.StartOpts{
		DB:             gormDB,
		Port:           port,
		Secret:         cfg.API.JWTSecret,
		ShiftLookahead: cfg.Materialize.ShiftLookahead,
		Logger:         log,
		Out:            cmd.OutOrStdout(),
	})
	stop()
	if err := errors.Join(apiErr, <-daemonErr); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Carecal stopped.")
	return nil
}
