package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/services"
)

// maxBackupSize bounds a restore upload.
const maxBackupSize = 64 << 20

// DownloadBackup returns every user and entry as a JSON attachment.
func (h *Handler) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	if h.Backups == nil {
		writeError(w, http.StatusServiceUnavailable, "Backups are not available")
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	b, doc, err := h.Backups.Create(ctx, actorName(r), services.BackupManual)
	if err != nil {
		log.Printf("backup: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create backup")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+services.BackupFileName(b.CreatedAt)+`"`)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// RestoreBackup validates the uploaded document as a whole and restores it
// in one transaction. ?mode=replace clears existing entries first.
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	if h.Backups == nil {
		writeError(w, http.StatusServiceUnavailable, "Backups are not available")
		return
	}
	doc, err := io.ReadAll(io.LimitReader(r.Body, maxBackupSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(doc) > maxBackupSize {
		writeError(w, http.StatusRequestEntityTooLarge, "Backup file is too large")
		return
	}
	replace := r.URL.Query().Get("mode") == "replace"

	ctx, cancel := h.ctx(r)
	defer cancel()

	b, err := h.Backups.Restore(ctx, actorName(r), doc, replace)
	if err != nil {
		if errors.Is(err, services.ErrInvalidBackup) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("restore: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to restore backup")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  "Backup restored",
		"entries":  len(b.Entries),
		"users":    len(b.Users),
		"replaced": replace,
	})
}

// ListBackups returns archived backup metadata, newest first.
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	if h.Backups == nil {
		writeError(w, http.StatusServiceUnavailable, "Backups are not available")
		return
	}
	limit := int64(20)
	if v, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	archives, err := h.Backups.ListArchives(ctx, limit)
	if err != nil {
		log.Printf("list backups: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list backups")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"backups": archives,
		"count":   len(archives),
	})
}
