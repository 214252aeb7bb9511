package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/filter"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/services"
)

// insightsScanLimit caps how many filtered entries one insights request reads.
const insightsScanLimit = 2000

// EntryInsights returns the most frequent nouns and the entries flagged for
// self-harm language among the entries matching the filter.
func (h *Handler) EntryInsights(w http.ResponseWriter, r *http.Request) {
	spec, err := filter.ParseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	top := 20
	if v, err := strconv.Atoi(r.URL.Query().Get("top")); err == nil && v > 0 && v <= 100 {
		top = v
	}

	ctx, cancel := h.ctx(r)
	defer cancel()

	entries, total, err := h.Entries.Search(ctx, spec, 1, insightsScanLimit)
	if err != nil {
		log.Printf("entry insights: %v", err)
		if errors.Is(err, filter.ErrRemoteQuery) {
			writeError(w, http.StatusBadGateway, "remote query failed")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to fetch entries")
		return
	}

	keywords := []services.KeywordCount{}
	if h.Keywords != nil {
		keywords = h.Keywords.Top(entries, top)
	}

	emotions := make(map[models.Emotion]int)
	for _, e := range entries {
		emotions[e.Emotion]++
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"scanned":   len(entries),
		"total":     total,
		"keywords":  keywords,
		"emotions":  emotions,
		"riskFlags": services.ScreenEntries(entries),
	})
}
