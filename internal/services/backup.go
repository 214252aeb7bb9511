package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

// Archive kinds.
const (
	BackupManual     = "manual"
	BackupScheduled  = "scheduled"
	BackupPreRestore = "pre-restore"
)

var ErrInvalidBackup = errors.New("invalid backup")

// BackupStore is the part of the entry store backups need.
type BackupStore interface {
	Snapshot(ctx context.Context) ([]models.User, []models.JournalEntry, error)
	Restore(ctx context.Context, b models.Backup, replace bool) error
}

type Uploader interface {
	UploadBackup(ctx context.Context, name string, data []byte) (string, error)
}

// ActivityPublisher receives admin-visible events.
type ActivityPublisher interface {
	Publish(ctx context.Context, a models.Activity) error
}

// BackupService produces and restores backup documents. Every document it
// produces is archived in MongoDB and, when configured, uploaded to
// Cloudinary; both are best-effort.
type BackupService struct {
	store    BackupStore
	archive  *mongo.Collection
	uploader Uploader
	feed     ActivityPublisher
	now      func() time.Time
}

func NewBackupService(store BackupStore, db *mongo.Database, uploader Uploader, feed ActivityPublisher) *BackupService {
	s := &BackupService{store: store, uploader: uploader, feed: feed, now: time.Now}
	if db != nil {
		s.archive = db.Collection("backups")
	}
	return s
}

// BackupFileName is the attachment name for a backup taken at t.
func BackupFileName(t time.Time) string {
	return "backup-" + t.UTC().Format("20060102-150405") + ".json"
}

// Create snapshots every user and entry into a backup document.
func (s *BackupService) Create(ctx context.Context, actor, kind string) (models.Backup, []byte, error) {
	users, entries, err := s.store.Snapshot(ctx)
	if err != nil {
		return models.Backup{}, nil, fmt.Errorf("snapshot: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}
	if entries == nil {
		entries = []models.JournalEntry{}
	}
	b := models.Backup{
		Version:    models.BackupVersion,
		CreatedAt:  s.now().UTC(),
		EntryCount: len(entries),
		Users:      users,
		Entries:    entries,
	}
	doc, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return models.Backup{}, nil, err
	}

	s.keep(ctx, actor, kind, b, doc)
	if kind != BackupPreRestore {
		s.publish(ctx, models.Activity{
			Type:    models.ActivityBackupCreated,
			Actor:   actor,
			Message: fmt.Sprintf("%s backup of %d entries", kind, b.EntryCount),
		})
	}
	return b, doc, nil
}

// keep archives and uploads a document, logging failures.
func (s *BackupService) keep(ctx context.Context, actor, kind string, b models.Backup, doc []byte) {
	rec := models.BackupArchive{
		CreatedAt:  b.CreatedAt,
		CreatedBy:  actor,
		Kind:       kind,
		EntryCount: b.EntryCount,
		Document:   doc,
	}
	if s.uploader != nil {
		url, err := s.uploader.UploadBackup(ctx, BackupFileName(b.CreatedAt), doc)
		if err != nil {
			log.Printf("backup: upload failed: %v", err)
		}
		rec.URL = url
	}
	if s.archive != nil {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if _, err := s.archive.InsertOne(ctx, rec); err != nil {
			log.Printf("backup: archive failed: %v", err)
		}
	}
}

// Restore validates the whole document, then writes it in one transaction.
// A validation failure wraps ErrInvalidBackup and nothing is written.
func (s *BackupService) Restore(ctx context.Context, actor string, doc []byte, replace bool) (models.Backup, error) {
	var b models.Backup
	if err := json.Unmarshal(doc, &b); err != nil {
		return b, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if err := ValidateBackup(&b); err != nil {
		return b, err
	}

	// keep what is about to be overwritten
	if _, _, err := s.Create(ctx, actor, BackupPreRestore); err != nil {
		log.Printf("backup: pre-restore snapshot failed: %v", err)
	}

	if err := s.store.Restore(ctx, b, replace); err != nil {
		return b, fmt.Errorf("restore: %w", err)
	}

	ids := make([]string, 0, len(b.Entries))
	for _, e := range b.Entries {
		ids = append(ids, e.ID)
	}
	s.publish(ctx, models.Activity{
		Type:     models.ActivityBackupRestored,
		Actor:    actor,
		EntryIDs: ids,
		Message:  fmt.Sprintf("restored %d entries", len(b.Entries)),
	})
	return b, nil
}

func (s *BackupService) publish(ctx context.Context, a models.Activity) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, a); err != nil {
		log.Printf("backup: publish activity failed: %v", err)
	}
}

// ValidateBackup checks every entry and fills missing user names from the
// users list. The first problem found is returned.
func ValidateBackup(b *models.Backup) error {
	if b.Version != models.BackupVersion {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidBackup, b.Version)
	}
	if b.EntryCount != 0 && b.EntryCount != len(b.Entries) {
		return fmt.Errorf("%w: entryCount %d does not match %d entries", ErrInvalidBackup, b.EntryCount, len(b.Entries))
	}

	names := make(map[string]string, len(b.Users))
	for _, u := range b.Users {
		names[u.ID] = u.Name
	}

	seen := make(map[string]bool, len(b.Entries))
	for i := range b.Entries {
		e := &b.Entries[i]
		fail := func(format string, args ...interface{}) error {
			return fmt.Errorf("%w: entries[%d]: %s", ErrInvalidBackup, i, fmt.Sprintf(format, args...))
		}
		if !models.ValidID(e.ID) {
			return fail("invalid id %q", e.ID)
		}
		if seen[e.ID] {
			return fail("duplicate id %s", e.ID)
		}
		seen[e.ID] = true
		if !models.ValidDate(e.Date) {
			return fail("invalid date %q", e.Date)
		}
		if !e.Emotion.IsValid() {
			return fail("invalid emotion %q", e.Emotion)
		}
		if e.SelfEsteemScore < models.MinScore || e.SelfEsteemScore > models.MaxScore {
			return fail("selfEsteemScore %d out of range", e.SelfEsteemScore)
		}
		if e.WorthlessnessScore < models.MinScore || e.WorthlessnessScore > models.MaxScore {
			return fail("worthlessnessScore %d out of range", e.WorthlessnessScore)
		}
		if e.UrgencyLevel != "" && !e.UrgencyLevel.IsValid() {
			return fail("invalid urgencyLevel %q", e.UrgencyLevel)
		}
		if e.UserName == "" {
			e.UserName = names[e.UserID]
		}
		if e.UserName == "" {
			return fail("no user for entry")
		}
	}
	return nil
}

// ListArchives returns archive metadata, newest first, without documents.
func (s *BackupService) ListArchives(ctx context.Context, limit int64) ([]models.BackupArchive, error) {
	if s.archive == nil {
		return []models.BackupArchive{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetProjection(bson.M{"document": 0})
	cur, err := s.archive.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	archives := []models.BackupArchive{}
	if err := cur.All(ctx, &archives); err != nil {
		return nil, err
	}
	return archives, nil
}

// StartSchedule runs a scheduled backup on the cron spec. The caller stops
// the returned cron on shutdown.
func (s *BackupService) StartSchedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		b, _, err := s.Create(ctx, "scheduler", BackupScheduled)
		if err != nil {
			log.Printf("scheduled backup failed: %v", err)
			return
		}
		log.Printf("✅ Scheduled backup of %d entries", b.EntryCount)
	})
	if err != nil {
		return nil, fmt.Errorf("backup schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
