package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MinScore and MaxScore bound the self-esteem and worthlessness scores.
	MinScore = 0
	MaxScore = 100
	// DefaultScore is used when an entry is recorded without a score.
	DefaultScore = 50

	// DateLayout is the ISO calendar date format used for entry dates.
	DateLayout = "2006-01-02"
)

// JournalEntry is one emotional-diary record.
// Counselor fields are attached by staff and never set by the author.
type JournalEntry struct {
	ID                 string    `json:"id"`
	Date               string    `json:"date"`
	Emotion            Emotion   `json:"emotion"`
	Event              string    `json:"event"`
	Realization        string    `json:"realization"`
	SelfEsteemScore    int       `json:"selfEsteemScore"`
	WorthlessnessScore int       `json:"worthlessnessScore"`
	CreatedAt          time.Time `json:"createdAt"`

	UserID   string `json:"userId,omitempty"`
	UserName string `json:"userName,omitempty"`

	CounselorMemo     string       `json:"counselorMemo,omitempty"`
	IsVisibleToUser   bool         `json:"isVisibleToUser"`
	AssignedCounselor string       `json:"assignedCounselor,omitempty"`
	UrgencyLevel      UrgencyLevel `json:"urgencyLevel,omitempty"`

	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	SyncedAt  *time.Time `json:"syncedAt,omitempty"`
}

// ValidID reports whether id is a UUID in canonical lowercase hyphenated
// form. uuid.Parse also accepts urn:uuid:, braced, unhyphenated and
// uppercase input, which Postgres rejects or stores under a different text.
func ValidID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == id
}

// MemoBlank is the set of characters a memo may consist of and still count
// as absent. The remote filter trims with the same set.
const MemoBlank = " \t\r\n\u3000"

// HasMemo reports whether a counselor memo with non-blank text is attached.
func (e JournalEntry) HasMemo() bool {
	return strings.Trim(e.CounselorMemo, MemoBlank) != ""
}

// ForAuthor returns a copy suitable for the diary author: the memo is
// dropped unless staff made it visible.
func (e JournalEntry) ForAuthor() JournalEntry {
	if !e.IsVisibleToUser {
		e.CounselorMemo = ""
	}
	e.AssignedCounselor = ""
	e.UrgencyLevel = ""
	return e
}

// ClampScore forces a score into the 0-100 domain.
func ClampScore(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// ValidDate reports whether s is an ISO calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
