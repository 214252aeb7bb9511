// Package reconcile pushes the locally buffered diary entries to the remote
// store and mirrors deletions.
//
// The local buffer is the system of record on the device: nothing here ever
// rolls it back because a remote call failed. Remote failures are captured as
// a stored error string and a false return; the next tick retries.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/localstore"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/store"
)

// DeleteChunkSize bounds the number of ids sent in one remote delete.
const DeleteChunkSize = 100

var errNoUser = errors.New("reconcile: no user name configured")

// Remote is the hosted store as seen by the service.
type Remote interface {
	EnsureUser(ctx context.Context, name string) (string, error)
	UpsertEntries(ctx context.Context, rows []store.EntryRow) error
	DeleteEntries(ctx context.Context, ids []string) (int64, error)
}

// Publisher receives an event after every successful push.
type Publisher interface {
	Publish(ctx context.Context, a models.Activity) error
}

type Options struct {
	// UserName overrides the name kept in the local store.
	UserName        string
	DeleteChunkSize int
	Interval        time.Duration
	Logger          *slog.Logger
	Metrics         *Metrics
	Publisher       Publisher
	Now             func() time.Time
}

// Status is a point-in-time view of the service.
type Status struct {
	InFlight  bool       `json:"inFlight"`
	LocalOnly bool       `json:"localOnly"`
	LastSync  *time.Time `json:"lastSync,omitempty"`
	LastError string     `json:"lastError,omitempty"`
	Processed int        `json:"processed"`
}

type Service struct {
	local  localstore.Store
	remote Remote
	opts   Options
	log    *slog.Logger

	inFlight atomic.Bool

	// bufMu serializes read-modify-write cycles on the local buffer.
	bufMu sync.Mutex

	mu        sync.Mutex
	processed map[string]struct{}
	// renamed holds regenerated ids that could not be written back locally.
	renamed map[string]string
	lastErr string
}

// New builds a service. A nil remote puts it in local-only mode.
func New(local localstore.Store, remote Remote, opts Options) *Service {
	if opts.DeleteChunkSize <= 0 {
		opts.DeleteChunkSize = DeleteChunkSize
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		local:     local,
		remote:    remote,
		opts:      opts,
		log:       opts.Logger.With("component", "reconcile"),
		processed: make(map[string]struct{}),
		renamed:   make(map[string]string),
	}
}

// LocalOnly reports whether no remote store is configured.
func (s *Service) LocalOnly() bool {
	return s.remote == nil
}

// Sync pushes every unprocessed buffered entry in one upsert. It returns
// false when another sync is in flight, in local-only mode, or on failure;
// failures are recorded and readable through Status.
func (s *Service) Sync(ctx context.Context) bool {
	return s.sync(ctx, false)
}

// TriggerManualSync forgets which entries were pushed and syncs everything.
func (s *Service) TriggerManualSync(ctx context.Context) bool {
	return s.sync(ctx, true)
}

func (s *Service) sync(ctx context.Context, reset bool) bool {
	if s.remote == nil {
		s.opts.Metrics.sync(resultSkipped)
		return false
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.log.Debug("sync already in flight")
		s.opts.Metrics.sync(resultSkipped)
		return false
	}
	defer s.inFlight.Store(false)

	if reset {
		s.mu.Lock()
		s.processed = make(map[string]struct{})
		s.mu.Unlock()
	}

	n, err := s.push(ctx)
	if err != nil {
		s.log.Error("sync failed", "error", err)
		s.recordError(ctx, err)
		s.opts.Metrics.sync(resultFailed)
		return false
	}

	s.recordSuccess(ctx)
	s.opts.Metrics.sync(resultOK)
	s.opts.Metrics.upserted(n)
	if n > 0 {
		s.log.Info("sync complete", "upserted", n)
	}
	return true
}

func (s *Service) push(ctx context.Context) (int, error) {
	name, err := s.userName(ctx)
	if err != nil {
		return 0, err
	}

	s.bufMu.Lock()
	entries, err := s.readBuffer(ctx)
	s.bufMu.Unlock()
	if err != nil {
		return 0, err
	}

	userID, err := s.remote.EnsureUser(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("resolve user %q: %w", name, err)
	}

	batch := s.prepare(entries, userID, name)
	if len(batch.rows) == 0 {
		return 0, nil
	}

	if err := s.remote.UpsertEntries(ctx, batch.rows); err != nil {
		return 0, fmt.Errorf("upsert %d entries: %w", len(batch.rows), err)
	}

	s.mu.Lock()
	for _, r := range batch.rows {
		s.processed[r.ID] = struct{}{}
	}
	s.mu.Unlock()

	if len(batch.renamed) > 0 {
		if err := s.rewriteIDs(ctx, batch.renamed); err != nil {
			s.log.Warn("could not store regenerated ids locally", "error", err)
			s.mu.Lock()
			for old, fresh := range batch.renamed {
				s.processed[old] = struct{}{}
				s.renamed[old] = fresh
			}
			s.mu.Unlock()
		} else {
			s.mu.Lock()
			for old := range batch.renamed {
				delete(s.renamed, old)
			}
			s.mu.Unlock()
		}
	}

	if s.opts.Publisher != nil {
		ids := make([]string, 0, len(batch.rows))
		for _, r := range batch.rows {
			ids = append(ids, r.ID)
		}
		err := s.opts.Publisher.Publish(ctx, models.Activity{
			Type:      models.ActivityEntriesSynced,
			Actor:     name,
			EntryIDs:  ids,
			Timestamp: s.opts.Now().UTC(),
		})
		if err != nil {
			s.log.Warn("publish sync event", "error", err)
		}
	}
	return len(batch.rows), nil
}

type batch struct {
	rows    []store.EntryRow
	renamed map[string]string // local id -> regenerated id
}

// prepare turns buffered entries into upsert rows. Entries missing an id,
// date or emotion are dropped, processed ones are skipped, and malformed
// ids get one fresh UUID each, reused across syncs until it is stored locally.
func (s *Service) prepare(entries []models.JournalEntry, userID, userName string) batch {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := batch{renamed: make(map[string]string)}
	index := make(map[string]int)
	for _, e := range entries {
		if e.ID == "" || e.Date == "" || e.Emotion == "" {
			s.log.Debug("dropping incomplete entry", "id", e.ID)
			continue
		}
		if _, done := s.processed[e.ID]; done {
			continue
		}
		if !models.ValidID(e.ID) {
			fresh, ok := b.renamed[e.ID]
			if !ok {
				if fresh, ok = s.renamed[e.ID]; !ok {
					fresh = uuid.NewString()
				}
				b.renamed[e.ID] = fresh
			}
			e.ID = fresh
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = s.opts.Now().UTC()
		}
		e.UserName = userName
		row := store.ToRow(e, userID)
		// one row per id; a second row would hit the same conflict target twice
		if i, dup := index[row.ID]; dup {
			b.rows[i] = row
			continue
		}
		index[row.ID] = len(b.rows)
		b.rows = append(b.rows, row)
	}
	return b
}

// readBuffer decodes the local entry buffer. Missing scores default to 50.
func (s *Service) readBuffer(ctx context.Context) ([]models.JournalEntry, error) {
	var raw []json.RawMessage
	ok, err := localstore.GetJSON(ctx, s.local, localstore.KeyEntries, &raw)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	entries := make([]models.JournalEntry, 0, len(raw))
	for i, r := range raw {
		e := models.JournalEntry{
			SelfEsteemScore:    models.DefaultScore,
			WorthlessnessScore: models.DefaultScore,
		}
		if err := json.Unmarshal(r, &e); err != nil {
			return nil, fmt.Errorf("decode buffered entry %d: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// rewriteIDs replaces regenerated ids in the local buffer.
func (s *Service) rewriteIDs(ctx context.Context, renamed map[string]string) error {
	return s.editBuffer(ctx, func(items []map[string]interface{}) []map[string]interface{} {
		for _, item := range items {
			if old, ok := item["id"].(string); ok {
				if fresh, ok := renamed[old]; ok {
					item["id"] = fresh
				}
			}
		}
		return items
	})
}

// editBuffer rewrites the buffer as generic objects so fields this service
// does not know about survive the round trip.
func (s *Service) editBuffer(ctx context.Context, fn func([]map[string]interface{}) []map[string]interface{}) error {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()

	var items []map[string]interface{}
	ok, err := localstore.GetJSON(ctx, s.local, localstore.KeyEntries, &items)
	if err != nil || !ok {
		return err
	}
	return localstore.SetJSON(ctx, s.local, localstore.KeyEntries, fn(items))
}

func (s *Service) userName(ctx context.Context) (string, error) {
	if s.opts.UserName != "" {
		return s.opts.UserName, nil
	}
	name, ok, err := s.local.Get(ctx, localstore.KeyUserName)
	if err != nil {
		return "", err
	}
	if !ok || name == "" {
		return "", errNoUser
	}
	return name, nil
}

func (s *Service) recordError(ctx context.Context, err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
	if perr := s.local.Set(ctx, localstore.KeyLastSyncError, err.Error()); perr != nil {
		s.log.Warn("persist sync error", "error", perr)
	}
}

func (s *Service) recordSuccess(ctx context.Context) {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
	now := s.opts.Now().UTC().Format(time.RFC3339)
	if err := s.local.Set(ctx, localstore.KeyLastSyncTime, now); err != nil {
		s.log.Warn("persist last sync time", "error", err)
	}
	if err := s.local.Delete(ctx, localstore.KeyLastSyncError); err != nil {
		s.log.Warn("clear sync error", "error", err)
	}
}

func (s *Service) Status(ctx context.Context) Status {
	s.mu.Lock()
	st := Status{
		InFlight:  s.inFlight.Load(),
		LocalOnly: s.remote == nil,
		LastError: s.lastErr,
		Processed: len(s.processed),
	}
	s.mu.Unlock()

	if st.LastError == "" {
		if v, ok, _ := s.local.Get(ctx, localstore.KeyLastSyncError); ok {
			st.LastError = v
		}
	}
	if v, ok, _ := s.local.Get(ctx, localstore.KeyLastSyncTime); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			st.LastSync = &t
		}
	}
	return st
}
