// Package agent holds the sync agent's commands and their shared setup.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/config"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/database"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/deviceauth"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/localstore"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/logger"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/reconcile"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/services"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/store"
)

type Options struct {
	ConfigPath string
	UserName   string
	LocalOnly  bool
}

func (o *Options) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&o.ConfigPath, "config", "c", "", "path to a TOML config file")
	flagSet.StringVarP(&o.UserName, "user", "u", "", "diary user name (overrides the stored one)")
	flagSet.BoolVar(&o.LocalOnly, "local-only", false, "never contact the remote store")
}

// app is everything a command may need. Only what was asked for is opened.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	local    localstore.Store
	registry *prometheus.Registry
	svc      *reconcile.Service
	auth     *deviceauth.Authenticator
	closers  []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close", "error", err)
		}
	}
}

// setup loads config and opens the local store. With remote set, it also
// attaches the hosted store and the activity publisher unless running
// local-only.
func setup(ctx context.Context, opts *Options, remote bool) (*app, error) {
	_ = godotenv.Load()
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.LocalOnly {
		cfg.Agent.LocalOnly = true
	}
	if opts.UserName != "" {
		cfg.Agent.UserName = opts.UserName
	}

	a := &app{cfg: cfg, log: logger.Setup(cfg.Log)}
	a.local, err = localstore.Open(cfg.Agent, cfg.RedisURI)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.local.Close)

	a.auth = deviceauth.New(a.local, deviceauth.Options{
		MaxAttempts: cfg.Agent.MaxLoginAttempts,
		Lockout:     cfg.Agent.LockoutDuration,
		SessionTTL:  cfg.Agent.SessionTTL,
	})

	a.registry = prometheus.NewRegistry()
	rOpts := reconcile.Options{
		UserName:        cfg.Agent.UserName,
		DeleteChunkSize: cfg.Agent.DeleteChunkSize,
		Interval:        cfg.Agent.SyncInterval,
		Logger:          a.log,
		Metrics:         reconcile.NewMetrics(a.registry),
	}

	var r reconcile.Remote
	if remote && !cfg.Agent.LocalOnly && cfg.PostgresURI != "" {
		db, err := database.NewPostgres(cfg.PostgresURI)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("remote store: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		// an unreachable store is not fatal: every sync reconnects and
		// records the failure
		if err := database.PingPostgres(ctx, db, 1); err != nil {
			a.log.Warn("remote store unreachable, retrying on each sync", "error", err)
		}
		r = store.NewRemote(db)

		if client, err := database.OpenRedis(cfg.RedisURI); err != nil {
			a.log.Warn("activity publisher disabled", "error", err)
		} else {
			a.closers = append(a.closers, client.Close)
			rOpts.Publisher = services.NewRedisPublisher(client)
		}
	}
	a.svc = reconcile.New(a.local, r, rOpts)
	return a, nil
}

// requireSession fails unless the device PIN session is valid.
func (a *app) requireSession(ctx context.Context) error {
	has, err := a.auth.HasPIN(ctx)
	if err != nil {
		return err
	}
	if !has {
		return nil
	}
	if _, err := a.auth.Session(ctx); err != nil {
		return fmt.Errorf("%w (run `syncagent pin login`)", err)
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
