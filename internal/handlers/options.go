package handlers

import (
	"net/http"
	"time"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/services"
)

const optionsCacheTTL = 24 * time.Hour

type emotionOption struct {
	Value    models.Emotion `json:"value"`
	Positive bool           `json:"positive"`
}

// FilterOptions are the choices offered by the admin filter form.
type FilterOptions struct {
	Emotions  []emotionOption       `json:"emotions"`
	Urgencies []models.UrgencyLevel `json:"urgencies"`
	MinScore  int                   `json:"minScore"`
	MaxScore  int                   `json:"maxScore"`
}

func buildFilterOptions() FilterOptions {
	opts := FilterOptions{
		Urgencies: models.UrgencyLevels(),
		MinScore:  models.MinScore,
		MaxScore:  models.MaxScore,
	}
	for _, e := range models.AllEmotions() {
		opts.Emotions = append(opts.Emotions, emotionOption{Value: e, Positive: e.IsPositive()})
	}
	return opts
}

// GetFilterOptions serves the emotion and urgency lists, cached in Redis.
func (h *Handler) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	key := services.CacheKey("options", "filter")
	var opts FilterOptions
	if ok, err := h.Cache.Get(ctx, key, &opts); err != nil || !ok {
		opts = buildFilterOptions()
		_ = h.Cache.SetWithTTL(ctx, key, opts, optionsCacheTTL)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "options": opts})
}

// Health reports liveness. It never touches the backing stores.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}
