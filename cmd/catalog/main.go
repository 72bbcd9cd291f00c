// Command catalog is the offline-first catalogue client. Every write lands in
// a local SQLite store first and is reconciled with the server by sync or by
// the background daemon.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"catalog-sync/internal/config"
	"catalog-sync/internal/connectivity"
	"catalog-sync/internal/localstore"
	"catalog-sync/internal/reconcile"
	"catalog-sync/internal/remote"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app holds the wiring shared by every subcommand.
type app struct {
	cfg     *config.ClientConfig
	logger  zerolog.Logger
	local   *localstore.Store
	monitor *connectivity.Monitor
	engine  *reconcile.Engine
}

var (
	configPath string
	current    *app
)

var rootCmd = &cobra.Command{
	Use:           "catalog",
	Short:         "Offline-first catalogue client",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), configPath)
		if err != nil {
			return err
		}
		current = a
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./catalog.yaml or $HOME/.config/catalog/catalog.yaml)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "catalog", Title: "Catalogue:"},
		&cobra.Group{ID: "sync", Title: "Synchronisation:"},
	)
}

func newApp(ctx context.Context, path string) (*app, error) {
	cfg, err := config.LoadClient(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)

	local, err := localstore.Open(ctx, cfg.DataPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	probe := connectivity.HTTPProbe(&http.Client{}, cfg.Connectivity.ProbeURL)
	monitor := connectivity.NewMonitor(probe, cfg.Connectivity.ProbeInterval, cfg.Connectivity.ProbeTimeout, logger)
	monitor.Check(ctx)

	return &app{
		cfg:     cfg,
		logger:  logger,
		local:   local,
		monitor: monitor,
		engine:  reconcile.New(local, remote.New(cfg.Remote, logger), monitor, logger),
	}, nil
}

func (a *app) close() error {
	if err := a.local.Close(); err != nil {
		return fmt.Errorf("failed to close local store: %w", err)
	}
	return nil
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if current != nil {
		if closeErr := current.close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
