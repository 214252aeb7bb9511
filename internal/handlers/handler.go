package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/filter"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/services"
	"github.com/AnshRaj112/kanjou-nikki-backend/pkg/utils"
)

// EntryStore is the entry persistence the admin routes use.
type EntryStore interface {
	Search(ctx context.Context, spec filter.Spec, page, limit uint64) ([]models.JournalEntry, int64, error)
	Get(ctx context.Context, id string) (*models.JournalEntry, error)
	Update(ctx context.Context, e models.JournalEntry) error
	Delete(ctx context.Context, id string) error
	DeleteEntries(ctx context.Context, ids []string) (int64, error)
	ListForAuthor(ctx context.Context, userName string) ([]models.JournalEntry, error)
}

type UserStore interface {
	GetByName(ctx context.Context, name string) (*models.User, error)
}

type AdminStore interface {
	GetByLogin(ctx context.Context, login string) (*models.Admin, error)
}

type ConsentStore interface {
	Create(ctx context.Context, c *models.ConsentRecord) error
	List(ctx context.Context, userName string, limit uint64) ([]models.ConsentRecord, error)
}

// Backups produces, restores and lists backup documents.
type Backups interface {
	Create(ctx context.Context, actor, kind string) (models.Backup, []byte, error)
	Restore(ctx context.Context, actor string, doc []byte, replace bool) (models.Backup, error)
	ListArchives(ctx context.Context, limit int64) ([]models.BackupArchive, error)
}

// Activity is the admin event feed.
type Activity interface {
	Publish(ctx context.Context, a models.Activity) error
	Recent(ctx context.Context, before *time.Time, limit int64) ([]models.Activity, bool, error)
}

// Notifier is told when an entry is newly marked high urgency.
type Notifier interface {
	NotifyUrgent(ctx context.Context, e models.JournalEntry, markedBy string) error
}

// Handler carries the collaborators of every HTTP route. Optional ones may
// be nil: the routes that need them degrade or report 503.
type Handler struct {
	Entries  EntryStore
	Users    UserStore
	Admins   AdminStore
	Consents ConsentStore
	Backups  Backups
	Activity Activity
	Hub      *services.ActivityHub
	Sessions *services.AdminSessions
	Keywords *services.KeywordAnalyzer
	Cache    *services.CacheService
	Notifier Notifier
	Cipher   *utils.Cipher

	// Timeout bounds each request's store work. Zero means 10s.
	Timeout time.Duration
	Now     func() time.Time
}

func (h *Handler) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(r.Context(), timeout)
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) publish(ctx context.Context, a models.Activity) {
	if h.Activity == nil {
		return
	}
	if err := h.Activity.Publish(ctx, a); err != nil {
		log.Printf("activity: publish %s failed: %v", a.Type, err)
	}
}

// notifyUrgent runs outside the request; the broker round trip must not
// hold the response.
func (h *Handler) notifyUrgent(ctx context.Context, e models.JournalEntry, markedBy string) {
	if h.Notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := h.Notifier.NotifyUrgent(ctx, e, markedBy); err != nil {
			log.Printf("urgent notification for entry %s failed: %v", e.ID, err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
