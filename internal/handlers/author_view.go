package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/store"
)

// AuthorView lists a user's entries exactly as the author sees them, so staff
// can check which memos are shared before toggling visibility.
func (h *Handler) AuthorView(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "User name is required")
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	user, err := h.Users.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("author view: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch user")
		return
	}

	entries, err := h.Entries.ListForAuthor(ctx, user.Name)
	if err != nil {
		log.Printf("author view: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch entries")
		return
	}
	if entries == nil {
		entries = []models.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
		"entries": entries,
		"count":   len(entries),
	})
}
