package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

// DeleteReport summarizes a best-effort bulk delete.
type DeleteReport struct {
	Requested int      `json:"requested"`
	Chunks    int      `json:"chunks"`
	Deleted   int64    `json:"deleted"`
	Failed    []string `json:"failed,omitempty"`
}

// Partial reports whether some ids could not be deleted remotely.
func (r DeleteReport) Partial() bool {
	return len(r.Failed) > 0
}

// DeleteOne removes an entry locally and from the remote store.
func (s *Service) DeleteOne(ctx context.Context, id string) error {
	_, err := s.DeleteMany(ctx, []string{id})
	return err
}

// DeleteMany removes entries from the local buffer, then from the remote
// store in sequential chunks. A failing chunk is logged and the remaining
// chunks are still attempted; the joined error lists every failure.
func (s *Service) DeleteMany(ctx context.Context, ids []string) (DeleteReport, error) {
	report := DeleteReport{Requested: len(ids)}
	if len(ids) == 0 {
		return report, nil
	}

	drop := lo.Associate(ids, func(id string) (string, struct{}) { return id, struct{}{} })
	err := s.editBuffer(ctx, func(items []map[string]interface{}) []map[string]interface{} {
		return lo.Reject(items, func(item map[string]interface{}, _ int) bool {
			id, _ := item["id"].(string)
			_, ok := drop[id]
			return ok
		})
	})
	if err != nil {
		return report, fmt.Errorf("remove local entries: %w", err)
	}

	// a local id whose regenerated id was never written back was pushed
	// under the regenerated one
	pushed := make([]string, 0, len(ids))
	s.mu.Lock()
	for _, id := range ids {
		delete(s.processed, id)
		if fresh, ok := s.renamed[id]; ok {
			delete(s.renamed, id)
			delete(s.processed, fresh)
			id = fresh
		}
		pushed = append(pushed, id)
	}
	s.mu.Unlock()

	if s.remote == nil {
		return report, nil
	}

	// ids that are not UUIDs were never pushed under that id
	remoteIDs := lo.Uniq(lo.Filter(pushed, func(id string, _ int) bool {
		return models.ValidID(id)
	}))

	var errs []error
	for i, chunk := range lo.Chunk(remoteIDs, s.opts.DeleteChunkSize) {
		report.Chunks++
		n, err := s.remote.DeleteEntries(ctx, chunk)
		if err != nil {
			s.log.Error("delete chunk failed", "chunk", i, "size", len(chunk), "error", err)
			s.opts.Metrics.deleteChunk(resultFailed)
			report.Failed = append(report.Failed, chunk...)
			errs = append(errs, fmt.Errorf("chunk %d: %w", i, err))
			continue
		}
		s.opts.Metrics.deleteChunk(resultOK)
		report.Deleted += n
	}
	return report, errors.Join(errs...)
}
