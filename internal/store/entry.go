package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/filter"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

var entryColumns = []string{
	"e.id", "e.user_id", "u.name AS user_name", "e.date", "e.emotion", "e.event", "e.realization",
	"e.self_esteem_score", "e.worthlessness_score", "e.created_at", "e.updated_at", "e.synced_at",
	"e.counselor_memo", "e.is_visible_to_user", "e.assigned_counselor", "e.urgency_level",
}

// authorColumns are the columns a diary author owns. Sync upserts overwrite
// only these so counselor annotations survive a resync.
var authorColumns = []string{
	"user_id", "date", "emotion", "event", "realization",
	"self_esteem_score", "worthlessness_score", "updated_at", "synced_at",
}

type EntryStore struct {
	db *sqlx.DB
}

func NewEntryStore(db *sqlx.DB) *EntryStore {
	return &EntryStore{db: db}
}

func (s *EntryStore) selectEntries() sq.SelectBuilder {
	return psql.Select(entryColumns...).
		From(TableEntries + " e").
		Join(TableUsers + " u ON u.id = e.user_id")
}

// Search runs spec against the store. limit <= 0 returns every match.
// Failures wrap filter.ErrRemoteQuery.
func (s *EntryStore) Search(ctx context.Context, spec filter.Spec, page, limit uint64) ([]models.JournalEntry, int64, error) {
	where := filter.Where(spec)

	countSQL, countArgs, err := psql.Select("COUNT(*)").
		From(TableEntries + " e").
		Join(TableUsers + " u ON u.id = e.user_id").
		Where(where).ToSql()
	if err != nil {
		return nil, 0, errorSqlBuild(err)
	}
	var total int64
	if err := s.db.GetContext(ctx, &total, countSQL, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", filter.ErrRemoteQuery, err)
	}

	query := s.selectEntries().Where(where).OrderBy("e.date DESC", "e.created_at DESC")
	if limit > 0 {
		if page == 0 {
			page = 1
		}
		query = query.Limit(limit).Offset((page - 1) * limit)
	}
	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, 0, errorSqlBuild(err)
	}

	var rows []EntryRow
	if err := s.db.SelectContext(ctx, &rows, queryString, args...); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", filter.ErrRemoteQuery, err)
	}
	return FromRows(rows), total, nil
}

func (s *EntryStore) Get(ctx context.Context, id string) (*models.JournalEntry, error) {
	if !models.ValidID(id) {
		return nil, ErrInvalidID
	}
	queryString, args, err := s.selectEntries().Where(sq.Eq{"e.id": id}).ToSql()
	if err != nil {
		return nil, errorSqlBuild(err)
	}
	var row EntryRow
	if err := s.db.GetContext(ctx, &row, queryString, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	e := FromRow(row)
	return &e, nil
}

// ListForAuthor returns a user's entries as the author may see them.
func (s *EntryStore) ListForAuthor(ctx context.Context, userName string) ([]models.JournalEntry, error) {
	queryString, args, err := s.selectEntries().Where(sq.Eq{"u.name": userName}).
		OrderBy("e.date DESC", "e.created_at DESC").ToSql()
	if err != nil {
		return nil, errorSqlBuild(err)
	}
	var rows []EntryRow
	if err := s.db.SelectContext(ctx, &rows, queryString, args...); err != nil {
		return nil, err
	}
	out := make([]models.JournalEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromRow(r).ForAuthor())
	}
	return out, nil
}

// Update overwrites an entry in place. There is no versioning; the last
// writer wins.
func (s *EntryStore) Update(ctx context.Context, e models.JournalEntry) error {
	if !models.ValidID(e.ID) {
		return ErrInvalidID
	}
	queryString, args, err := psql.Update(TableEntries).
		Set("date", e.Date).
		Set("emotion", string(e.Emotion)).
		Set("event", e.Event).
		Set("realization", e.Realization).
		Set("self_esteem_score", models.ClampScore(e.SelfEsteemScore)).
		Set("worthlessness_score", models.ClampScore(e.WorthlessnessScore)).
		Set("counselor_memo", e.CounselorMemo).
		Set("is_visible_to_user", e.IsVisibleToUser).
		Set("assigned_counselor", e.AssignedCounselor).
		Set("urgency_level", string(e.UrgencyLevel)).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": e.ID}).ToSql()
	if err != nil {
		return errorSqlBuild(err)
	}
	res, err := s.db.ExecContext(ctx, queryString, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *EntryStore) Delete(ctx context.Context, id string) error {
	n, err := s.DeleteEntries(ctx, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEntries removes the given rows in one statement and returns how
// many existed. Callers chunk large id lists.
func (s *EntryStore) DeleteEntries(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	for _, id := range ids {
		if !models.ValidID(id) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
	}
	queryString, args, err := psql.Delete(TableEntries).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, errorSqlBuild(err)
	}
	res, err := s.db.ExecContext(ctx, queryString, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpsertEntries writes rows in a single statement keyed by id. On conflict
// the author-owned columns are overwritten.
func (s *EntryStore) UpsertEntries(ctx context.Context, rows []EntryRow) error {
	if len(rows) == 0 {
		return nil
	}
	queryString, args, err := upsertQuery(rows, time.Now().UTC())
	if err != nil {
		return errorSqlBuild(err)
	}
	_, err = s.db.ExecContext(ctx, queryString, args...)
	return err
}

func upsertQuery(rows []EntryRow, now time.Time) (string, []interface{}, error) {
	insert := psql.Insert(TableEntries).Columns(
		"id", "user_id", "date", "emotion", "event", "realization",
		"self_esteem_score", "worthlessness_score", "created_at", "updated_at", "synced_at",
	)
	for _, r := range rows {
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		insert = insert.Values(r.ID, r.UserID, r.Date, r.Emotion, r.Event, r.Realization,
			r.SelfEsteemScore, r.WorthlessnessScore, createdAt, now, now)
	}
	return insert.Suffix(conflictClause("id", authorColumns)).ToSql()
}

func conflictClause(key string, columns []string) string {
	clause := "ON CONFLICT (" + key + ") DO UPDATE SET "
	for i, c := range columns {
		if i > 0 {
			clause += ", "
		}
		clause += c + " = EXCLUDED." + c
	}
	return clause
}

// Snapshot reads every user and entry for a backup document.
func (s *EntryStore) Snapshot(ctx context.Context) ([]models.User, []models.JournalEntry, error) {
	var users []models.User
	if err := s.db.SelectContext(ctx, &users, `SELECT id, name, created_at FROM users ORDER BY created_at`); err != nil {
		return nil, nil, err
	}
	entries, _, err := s.Search(ctx, filter.Spec{}, 0, 0)
	if err != nil {
		return nil, nil, err
	}
	return users, entries, nil
}

// Restore writes a validated backup inside one transaction. When replace is
// set, existing entries are removed first. Any failure rolls everything back.
func (s *EntryStore) Restore(ctx context.Context, b models.Backup, replace bool) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+TableEntries); err != nil {
			return err
		}
	}

	userIDs := make(map[string]string) // name -> id in this database
	for _, e := range b.Entries {
		name := e.UserName
		if _, ok := userIDs[name]; ok {
			continue
		}
		id, err := ensureUser(ctx, tx, name)
		if err != nil {
			return err
		}
		userIDs[name] = id
	}

	for _, e := range b.Entries {
		row := ToRow(e, userIDs[e.UserName])
		if row.CreatedAt.IsZero() {
			row.CreatedAt = time.Now().UTC()
		}
		if row.UpdatedAt.IsZero() {
			row.UpdatedAt = row.CreatedAt
		}
		queryString, args, err := psql.Insert(TableEntries).Columns(
			"id", "user_id", "date", "emotion", "event", "realization",
			"self_esteem_score", "worthlessness_score", "created_at", "updated_at", "synced_at",
			"counselor_memo", "is_visible_to_user", "assigned_counselor", "urgency_level",
		).Values(
			row.ID, row.UserID, row.Date, row.Emotion, row.Event, row.Realization,
			row.SelfEsteemScore, row.WorthlessnessScore, row.CreatedAt, row.UpdatedAt, row.SyncedAt,
			row.CounselorMemo, row.IsVisibleToUser, row.AssignedCounselor, row.UrgencyLevel,
		).Suffix(conflictClause("id", []string{
			"user_id", "date", "emotion", "event", "realization",
			"self_esteem_score", "worthlessness_score", "created_at", "updated_at", "synced_at",
			"counselor_memo", "is_visible_to_user", "assigned_counselor", "urgency_level",
		})).ToSql()
		if err != nil {
			return errorSqlBuild(err)
		}
		if _, err := tx.ExecContext(ctx, queryString, args...); err != nil {
			return fmt.Errorf("restore entry %s: %w", row.ID, err)
		}
	}

	return tx.Commit()
}
