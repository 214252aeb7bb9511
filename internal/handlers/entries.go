package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/filter"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	// BulkDeleteChunkSize bounds the ids sent in one delete statement.
	BulkDeleteChunkSize = 100
	maxMemoLength       = 2000
)

func pagination(r *http.Request) (page, limit uint64) {
	page, limit = 1, defaultPageSize
	if v, err := strconv.ParseUint(r.URL.Query().Get("page"), 10, 64); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.ParseUint(r.URL.Query().Get("limit"), 10, 64); err == nil && v > 0 {
		limit = v
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// ListEntries returns one page of entries matching the filter query parameters.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	spec, err := filter.ParseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, limit := pagination(r)

	ctx, cancel := h.ctx(r)
	defer cancel()

	entries, total, err := h.Entries.Search(ctx, spec, page, limit)
	if err != nil {
		log.Printf("list entries: %v", err)
		if errors.Is(err, filter.ErrRemoteQuery) {
			writeError(w, http.StatusBadGateway, "remote query failed")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to fetch entries")
		return
	}
	if entries == nil {
		entries = []models.JournalEntry{}
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"entries": entries,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := h.ctx(r)
	defer cancel()

	entry, err := h.Entries.Get(ctx, id)
	if err != nil {
		writeStoreError(w, "get entry", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "entry": entry})
}

// UpdateEntryRequest is the body of PUT /api/admin/entries/{id}. Absent
// fields keep their stored value.
type UpdateEntryRequest struct {
	Date               *string              `json:"date"`
	Emotion            *models.Emotion      `json:"emotion"`
	Event              *string              `json:"event"`
	Realization        *string              `json:"realization"`
	SelfEsteemScore    *int                 `json:"selfEsteemScore"`
	WorthlessnessScore *int                 `json:"worthlessnessScore"`
	CounselorMemo      *string              `json:"counselorMemo"`
	IsVisibleToUser    *bool                `json:"isVisibleToUser"`
	AssignedCounselor  *string              `json:"assignedCounselor"`
	UrgencyLevel       *models.UrgencyLevel `json:"urgencyLevel"`
}

func (req UpdateEntryRequest) validate() error {
	if req.Date != nil && !models.ValidDate(*req.Date) {
		return fmt.Errorf("date must be YYYY-MM-DD")
	}
	if req.Emotion != nil && !req.Emotion.IsValid() {
		return fmt.Errorf("unknown emotion %q", *req.Emotion)
	}
	if req.UrgencyLevel != nil && *req.UrgencyLevel != "" && !req.UrgencyLevel.IsValid() {
		return fmt.Errorf("unknown urgency level %q", *req.UrgencyLevel)
	}
	for name, v := range map[string]*int{"selfEsteemScore": req.SelfEsteemScore, "worthlessnessScore": req.WorthlessnessScore} {
		if v != nil && (*v < models.MinScore || *v > models.MaxScore) {
			return fmt.Errorf("%s must be between %d and %d", name, models.MinScore, models.MaxScore)
		}
	}
	if req.CounselorMemo != nil && len([]rune(*req.CounselorMemo)) > maxMemoLength {
		return fmt.Errorf("counselorMemo must be at most %d characters", maxMemoLength)
	}
	return nil
}

func (req UpdateEntryRequest) apply(e *models.JournalEntry) {
	if req.Date != nil {
		e.Date = *req.Date
	}
	if req.Emotion != nil {
		e.Emotion = *req.Emotion
	}
	if req.Event != nil {
		e.Event = *req.Event
	}
	if req.Realization != nil {
		e.Realization = *req.Realization
	}
	if req.SelfEsteemScore != nil {
		e.SelfEsteemScore = *req.SelfEsteemScore
	}
	if req.WorthlessnessScore != nil {
		e.WorthlessnessScore = *req.WorthlessnessScore
	}
	if req.CounselorMemo != nil {
		e.CounselorMemo = *req.CounselorMemo
	}
	if req.IsVisibleToUser != nil {
		e.IsVisibleToUser = *req.IsVisibleToUser
	}
	if req.AssignedCounselor != nil {
		e.AssignedCounselor = strings.TrimSpace(*req.AssignedCounselor)
	}
	if req.UrgencyLevel != nil {
		e.UrgencyLevel = *req.UrgencyLevel
	}
}

// UpdateEntry overwrites an entry in place. There is no version check; the
// last write wins.
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := h.ctx(r)
	defer cancel()

	entry, err := h.Entries.Get(ctx, id)
	if err != nil {
		writeStoreError(w, "update entry", err)
		return
	}
	wasUrgent := entry.UrgencyLevel == models.UrgencyHigh
	req.apply(entry)

	if err := h.Entries.Update(ctx, *entry); err != nil {
		writeStoreError(w, "update entry", err)
		return
	}
	now := h.now().UTC()
	entry.UpdatedAt = &now

	actor := actorName(r)
	if entry.UrgencyLevel == models.UrgencyHigh && !wasUrgent {
		h.notifyUrgent(ctx, *entry, actor)
	}
	h.publish(ctx, models.Activity{
		Type:     models.ActivityEntryUpdated,
		Actor:    actor,
		EntryIDs: []string{entry.ID},
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Entry updated",
		"entry":   entry,
	})
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := h.ctx(r)
	defer cancel()

	if err := h.Entries.Delete(ctx, id); err != nil {
		writeStoreError(w, "delete entry", err)
		return
	}
	h.publish(ctx, models.Activity{
		Type:     models.ActivityEntryDeleted,
		Actor:    actorName(r),
		EntryIDs: []string{id},
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Entry deleted"})
}

type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BulkDeleteResult reports a best-effort bulk delete.
type BulkDeleteResult struct {
	Requested int      `json:"requested"`
	Chunks    int      `json:"chunks"`
	Deleted   int64    `json:"deleted"`
	Failed    []string `json:"failed"`
	Invalid   []string `json:"invalid"`
}

// BulkDeleteEntries deletes in chunks of BulkDeleteChunkSize, one after
// another. A failing chunk does not stop the rest; the response is 207 when
// any chunk failed.
func (h *Handler) BulkDeleteEntries(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	ids := lo.Uniq(lo.Filter(req.IDs, func(id string, _ int) bool { return id != "" }))
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}

	isUUID := func(id string, _ int) bool {
		return models.ValidID(id)
	}
	valid, invalid := lo.Filter(ids, isUUID), lo.Reject(ids, isUUID)
	result := BulkDeleteResult{Requested: len(ids), Failed: []string{}, Invalid: invalid}
	if result.Invalid == nil {
		result.Invalid = []string{}
	}

	ctx, cancel := h.ctx(r)
	defer cancel()

	var errs []error
	for _, chunk := range lo.Chunk(valid, BulkDeleteChunkSize) {
		result.Chunks++
		n, err := h.Entries.DeleteEntries(ctx, chunk)
		if err != nil {
			errs = append(errs, err)
			result.Failed = append(result.Failed, chunk...)
			continue
		}
		result.Deleted += n
	}
	if err := errors.Join(errs...); err != nil {
		log.Printf("bulk delete: %d of %d chunks failed: %v", len(errs), result.Chunks, err)
	}

	deleted := lo.Without(valid, result.Failed...)
	if len(deleted) > 0 {
		h.publish(ctx, models.Activity{
			Type:     models.ActivityEntriesDeleted,
			Actor:    actorName(r),
			EntryIDs: deleted,
			Message:  fmt.Sprintf("deleted %d entries", result.Deleted),
		})
	}

	status := http.StatusOK
	message := "Entries deleted"
	if len(result.Failed) > 0 {
		status = http.StatusMultiStatus
		message = "Some entries could not be deleted"
		if len(result.Failed) == len(valid) {
			status = http.StatusBadGateway
			message = "remote delete failed"
		}
	}
	writeJSON(w, status, map[string]interface{}{
		"success": len(result.Failed) == 0,
		"message": message,
		"result":  result,
	})
}

func writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "Invalid entry id")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Entry not found")
	default:
		log.Printf("%s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "Failed to "+op)
	}
}
