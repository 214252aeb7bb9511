package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/handlers"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/middleware"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/services"
)

// SetupRoutes registers every route on r. gatherer may be nil to skip /metrics.
func SetupRoutes(r chi.Router, h *handlers.Handler, rbac *services.RBAC, gatherer prometheus.Gatherer) {
	r.Get("/health", handlers.Health)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// Public routes
	r.Post("/api/consent", h.RecordConsent)
	r.Post("/api/admin/signin", h.AdminSignin)

	// Staff routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AdminAuth(h.Sessions))

		r.Post("/api/admin/signout", h.AdminSignout)
		r.Get("/api/admin/me", h.AdminMe)
		r.Get("/api/admin/options", h.GetFilterOptions)

		r.With(allow(rbac, services.PermEntriesRead)).Get("/api/admin/entries", h.ListEntries)
		r.With(allow(rbac, services.PermEntriesRead)).Get("/api/admin/entries/keywords", h.EntryInsights)
		r.With(allow(rbac, services.PermEntriesRead)).Get("/api/admin/entries/{id}", h.GetEntry)
		r.With(allow(rbac, services.PermEntriesRead)).Get("/api/admin/users/{name}/entries", h.AuthorView)
		r.With(allow(rbac, services.PermEntriesAnnotate)).Put("/api/admin/entries/{id}", h.UpdateEntry)
		r.With(allow(rbac, services.PermEntriesDelete)).Delete("/api/admin/entries/{id}", h.DeleteEntry)
		r.With(allow(rbac, services.PermEntriesDelete), middleware.DestructiveRateLimit).
			Post("/api/admin/entries/bulk-delete", h.BulkDeleteEntries)

		r.With(allow(rbac, services.PermBackupManage)).Get("/api/admin/backup", h.DownloadBackup)
		r.With(allow(rbac, services.PermBackupManage)).Get("/api/admin/backups", h.ListBackups)
		r.With(allow(rbac, services.PermBackupManage), middleware.DestructiveRateLimit).
			Post("/api/admin/restore", h.RestoreBackup)

		r.With(allow(rbac, services.PermConsentsRead)).Get("/api/admin/consents", h.ListConsents)

		r.With(allow(rbac, services.PermActivityRead)).Get("/api/admin/activity", h.ListActivity)
		// WebSocket endpoint for the live admin activity feed
		r.With(allow(rbac, services.PermActivityRead)).Get("/ws/admin/activity", h.ActivityWebSocket)
	})
}

func allow(rbac *services.RBAC, permission string) func(http.Handler) http.Handler {
	return middleware.RequirePermission(rbac, permission)
}
