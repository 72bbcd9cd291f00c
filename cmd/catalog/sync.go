package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"catalog-sync/internal/model"
	"catalog-sync/internal/scheduler"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Reconcile the local store with the server once",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := current.engine.SyncData(cmd.Context())
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), report)
		}

		out := cmd.OutOrStdout()
		for _, kind := range model.Kinds {
			k := report.Kinds[kind]
			if k == nil {
				continue
			}
			fmt.Fprintf(out, "%-10s pushed %d (%d failed), deleted %d (%d failed), pulled %d (%d skipped), purged %d",
				kind, k.Pushed, k.PushFailed, k.Deleted, k.DeleteFailed, k.Pulled, k.PullSkipped, k.Purged)
			if k.Superseded > 0 {
				fmt.Fprintf(out, ", %d changed during push", k.Superseded)
			}
			if k.PullFailed {
				fmt.Fprint(out, ", fetch failed")
			}
			fmt.Fprintln(out)
		}
		if n := report.Failures(); n > 0 {
			fmt.Fprintf(out, "%d change(s) left for the next sync\n", n)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show connectivity and pending local changes",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		counts, err := current.local.Counts(cmd.Context())
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"online": current.engine.IsConnected(),
				"remote": current.cfg.Remote.BaseURL,
				"kinds":  counts,
			})
		}

		out := cmd.OutOrStdout()
		state := "offline"
		if current.engine.IsConnected() {
			state = "online"
		}
		fmt.Fprintf(out, "remote:  %s (%s)\n", current.cfg.Remote.BaseURL, state)
		fmt.Fprintf(out, "store:   %s\n", current.local.Path())

		kinds := make([]string, 0, len(counts))
		for kind := range counts {
			kinds = append(kinds, string(kind))
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			s := counts[model.Kind(kind)]
			fmt.Fprintf(out, "%-10s %d active, %d unsynced, %d pending delete\n", kind, s.Active, s.Unsynced, s.PendingDeletes)
		}
		return nil
	},
}

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Probe connectivity and sync in the background until interrupted",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := notifyContext(cmd.Context())
		defer stop()

		sched := scheduler.New(current.engine, current.monitor, current.cfg.Sync, current.logger)

		current.logger.Info().
			Str("remote", current.cfg.Remote.BaseURL).
			Str("store", current.local.Path()).
			Msg("sync daemon started")

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			current.monitor.Run(ctx)
			return nil
		})
		g.Go(func() error {
			return sched.Run(ctx)
		})

		err := g.Wait()
		current.logger.Info().Msg("sync daemon stopped")
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	syncCmd.Flags().Bool("json", false, "print the report as JSON")
	statusCmd.Flags().Bool("json", false, "print JSON")

	rootCmd.AddCommand(syncCmd, statusCmd, daemonCmd)
}
