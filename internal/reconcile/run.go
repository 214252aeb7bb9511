package reconcile

import (
	"context"
	"time"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/localstore"
)

// Run syncs once, then on every interval tick until ctx is done. Ticks are
// skipped while a sync is in flight or auto-sync is switched off.
func (s *Service) Run(ctx context.Context) error {
	if s.remote == nil {
		s.log.Info("no remote store configured, running local-only")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	if s.inFlight.Load() {
		s.log.Debug("tick skipped, sync in flight")
		return
	}
	if !s.AutoSyncEnabled(ctx) {
		return
	}
	s.Sync(ctx)
}

// AutoSyncEnabled reads the auto-sync flag. An absent flag means enabled.
func (s *Service) AutoSyncEnabled(ctx context.Context) bool {
	v, ok, err := s.local.Get(ctx, localstore.KeyAutoSync)
	if err != nil {
		s.log.Warn("read auto-sync flag", "error", err)
		return false
	}
	return !ok || v != "false"
}

func (s *Service) SetAutoSync(ctx context.Context, enabled bool) error {
	v := "false"
	if enabled {
		v = "true"
	}
	return s.local.Set(ctx, localstore.KeyAutoSync, v)
}
