package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// NewRunCommand syncs periodically until interrupted.
func NewRunCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "sync on every interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx, opts, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr := a.cfg.Agent.MetricsAddr; addr != "" {
				srv := &http.Server{
					Addr:              addr,
					Handler:           promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.log.Error("metrics server", "error", err)
					}
				}()
				defer srv.Shutdown(context.Background())
				a.log.Info("metrics listening", "addr", addr)
			}

			a.log.Info("sync agent started", "interval", a.cfg.Agent.SyncInterval.String(), "local_only", a.svc.LocalOnly())
			return a.svc.Run(ctx)
		},
	}
}

// NewSyncCommand runs a single sync.
func NewSyncCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "push buffered entries once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts, false)
		},
	}
}

// NewResyncCommand forgets what was pushed and pushes everything again.
func NewResyncCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "push every buffered entry again",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts, true)
		},
	}
}

func runOnce(cmd *cobra.Command, opts *Options, manual bool) error {
	ctx := cmd.Context()
	a, err := setup(ctx, opts, true)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	var ok bool
	if manual {
		ok = a.svc.TriggerManualSync(ctx)
	} else {
		ok = a.svc.Sync(ctx)
	}
	st := a.svc.Status(ctx)
	if err := printJSON(cmd.OutOrStdout(), st); err != nil {
		return err
	}
	if !ok && !st.LocalOnly {
		return fmt.Errorf("sync did not complete: %s", st.LastError)
	}
	return nil
}

// NewDeleteCommand removes entries locally and remotely.
func NewDeleteCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID [ID...]",
		Short: "delete entries from the buffer and the remote store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx, opts, true)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireSession(ctx); err != nil {
				return err
			}

			report, err := a.svc.DeleteMany(ctx, args)
			if perr := printJSON(cmd.OutOrStdout(), report); perr != nil {
				return perr
			}
			return err
		},
	}
}

// NewStatusCommand prints the sync state kept in the local store.
func NewStatusCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "show sync status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			st := a.svc.Status(ctx)
			st.LocalOnly = a.cfg.Agent.LocalOnly || a.cfg.PostgresURI == ""
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"status":   st,
				"autoSync": a.svc.AutoSyncEnabled(ctx),
			})
		},
	}
}

// NewAutoSyncCommand switches periodic syncing on or off.
func NewAutoSyncCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:       "autosync on|off",
		Short:     "enable or disable periodic sync",
		Args:      cobra.ExactValidArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.svc.SetAutoSync(ctx, args[0] == "on"); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "auto-sync %s\n", args[0])
			return nil
		},
	}
}
