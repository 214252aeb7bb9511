package store

import (
	"database/sql"
	"time"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

// EntryRow is the remote-store shape of a journal entry. ToRow and FromRow
// are the only places the canonical entry meets column names.
type EntryRow struct {
	ID                 string       `db:"id" json:"id"`
	UserID             string       `db:"user_id" json:"user_id"`
	UserName           string       `db:"user_name" json:"user_name,omitempty"`
	Date               string       `db:"date" json:"date"`
	Emotion            string       `db:"emotion" json:"emotion"`
	Event              string       `db:"event" json:"event"`
	Realization        string       `db:"realization" json:"realization"`
	SelfEsteemScore    int          `db:"self_esteem_score" json:"self_esteem_score"`
	WorthlessnessScore int          `db:"worthlessness_score" json:"worthlessness_score"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time    `db:"updated_at" json:"updated_at"`
	SyncedAt           sql.NullTime `db:"synced_at" json:"-"`
	CounselorMemo      string       `db:"counselor_memo" json:"counselor_memo"`
	IsVisibleToUser    bool         `db:"is_visible_to_user" json:"is_visible_to_user"`
	AssignedCounselor  string       `db:"assigned_counselor" json:"assigned_counselor"`
	UrgencyLevel       string       `db:"urgency_level" json:"urgency_level"`
}

// ToRow maps an entry to its row for the given owner.
func ToRow(e models.JournalEntry, userID string) EntryRow {
	row := EntryRow{
		ID:                 e.ID,
		UserID:             userID,
		UserName:           e.UserName,
		Date:               e.Date,
		Emotion:            string(e.Emotion),
		Event:              e.Event,
		Realization:        e.Realization,
		SelfEsteemScore:    models.ClampScore(e.SelfEsteemScore),
		WorthlessnessScore: models.ClampScore(e.WorthlessnessScore),
		CreatedAt:          e.CreatedAt,
		CounselorMemo:      e.CounselorMemo,
		IsVisibleToUser:    e.IsVisibleToUser,
		AssignedCounselor:  e.AssignedCounselor,
		UrgencyLevel:       string(e.UrgencyLevel),
	}
	if e.UpdatedAt != nil {
		row.UpdatedAt = *e.UpdatedAt
	}
	if e.SyncedAt != nil {
		row.SyncedAt = sql.NullTime{Time: *e.SyncedAt, Valid: true}
	}
	return row
}

// FromRow maps a scanned row back to the canonical entry.
func FromRow(r EntryRow) models.JournalEntry {
	e := models.JournalEntry{
		ID:                 r.ID,
		Date:               r.Date,
		Emotion:            models.Emotion(r.Emotion),
		Event:              r.Event,
		Realization:        r.Realization,
		SelfEsteemScore:    r.SelfEsteemScore,
		WorthlessnessScore: r.WorthlessnessScore,
		CreatedAt:          r.CreatedAt,
		UserID:             r.UserID,
		UserName:           r.UserName,
		CounselorMemo:      r.CounselorMemo,
		IsVisibleToUser:    r.IsVisibleToUser,
		AssignedCounselor:  r.AssignedCounselor,
		UrgencyLevel:       models.UrgencyLevel(r.UrgencyLevel),
	}
	if !r.UpdatedAt.IsZero() {
		t := r.UpdatedAt
		e.UpdatedAt = &t
	}
	if r.SyncedAt.Valid {
		t := r.SyncedAt.Time
		e.SyncedAt = &t
	}
	return e
}

// FromRows maps a slice of rows.
func FromRows(rows []EntryRow) []models.JournalEntry {
	out := make([]models.JournalEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromRow(r))
	}
	return out
}
