package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/defistate/defistate-amm-go/cmd/ammsim/config"
	"github.com/defistate/defistate-amm-go/cmd/ammsim/sim"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Deploy a scenario and execute its steps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, configPath, cmd)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "Path to the configuration file.")
	return cmd
}

func run(ctx context.Context, configPath string, cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	// Step results own stdout, so logs go to stderr.
	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return err
	}
	sc, err := config.LoadScenario(cfg.Scenario)
	if err != nil {
		logger.Error("Failed to load scenario", "path", cfg.Scenario, "error", err)
		return err
	}

	registry := prometheus.NewRegistry()
	world, err := sim.NewWorld(cfg, sc, logger, registry)
	if err != nil {
		logger.Error("Failed to deploy scenario", "error", err)
		return err
	}
	defer world.Close()
	if cfg.EventsOutput != "" {
		f, err := os.Create(cfg.EventsOutput)
		if err != nil {
			return fmt.Errorf("failed to create events file: %w", err)
		}
		defer f.Close()
		if err := world.RecordEvents(f); err != nil {
			return err
		}
	}

	failed, err := world.Run(ctx, cmd.OutOrStdout())
	if cfg.MetricsOutput != "" {
		if werr := prometheus.WriteToTextfile(cfg.MetricsOutput, registry); werr != nil {
			logger.Error("Failed to write metrics", "path", cfg.MetricsOutput, "error", werr)
		}
	}
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d steps did not go as expected", failed, len(sc.Steps))
	}
	return nil
}
