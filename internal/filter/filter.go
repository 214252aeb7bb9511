// Package filter selects journal entries matching a structured filter,
// either in memory or by translating it into a SQL condition for the remote
// store.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

var (
	// ErrInvalidSpec is returned when a filter carries a value outside its
	// enumerated domain.
	ErrInvalidSpec = errors.New("filter: invalid filter")
	// ErrRemoteQuery wraps failures of the remote query path. Callers decide
	// whether to retry locally; the engine never falls back on its own.
	ErrRemoteQuery = errors.New("filter: remote query failed")
)

// NotesFilter is the tri-state "has counselor memo" predicate.
type NotesFilter string

const (
	NotesAny     NotesFilter = ""
	NotesWith    NotesFilter = "with"
	NotesWithout NotesFilter = "without"
)

// ScoreRange is an inclusive [Min, Max] range. A nil bound is open.
type ScoreRange struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// Between builds a closed range.
func Between(min, max int) ScoreRange {
	return ScoreRange{Min: &min, Max: &max}
}

func (r ScoreRange) IsZero() bool {
	return r.Min == nil && r.Max == nil
}

// Contains reports whether v lies inside the range, bounds included.
func (r ScoreRange) Contains(v int) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// Spec is a structured filter. Every set field is a predicate; predicates
// are combined with AND and an unset field imposes no constraint.
type Spec struct {
	Keyword       string              `json:"keyword,omitempty"`
	Emotion       models.Emotion      `json:"emotion,omitempty"`
	Urgency       models.UrgencyLevel `json:"urgency,omitempty"`
	Counselor     string              `json:"counselor,omitempty"`
	DateFrom      string              `json:"dateFrom,omitempty"`
	DateTo        string              `json:"dateTo,omitempty"`
	UserName      string              `json:"userName,omitempty"`
	HasNotes      NotesFilter         `json:"hasNotes,omitempty"`
	SelfEsteem    ScoreRange          `json:"selfEsteem"`
	Worthlessness ScoreRange          `json:"worthlessness"`
}

// IsZero reports whether the spec imposes no constraint at all.
func (s Spec) IsZero() bool {
	return strings.TrimSpace(s.Keyword) == "" &&
		s.Emotion == "" &&
		s.Urgency == "" &&
		s.Counselor == "" &&
		s.DateFrom == "" &&
		s.DateTo == "" &&
		strings.TrimSpace(s.UserName) == "" &&
		s.HasNotes == NotesAny &&
		s.SelfEsteem.IsZero() &&
		s.Worthlessness.IsZero()
}

// Validate checks enumerated fields.
func (s Spec) Validate() error {
	if s.Emotion != "" && !s.Emotion.IsValid() {
		return fmt.Errorf("%w: unknown emotion %q", ErrInvalidSpec, s.Emotion)
	}
	if s.Urgency != "" && !s.Urgency.IsValid() {
		return fmt.Errorf("%w: unknown urgency %q", ErrInvalidSpec, s.Urgency)
	}
	switch s.HasNotes {
	case NotesAny, NotesWith, NotesWithout:
	default:
		return fmt.Errorf("%w: unknown notes filter %q", ErrInvalidSpec, s.HasNotes)
	}
	if s.DateFrom != "" && !models.ValidDate(s.DateFrom) {
		return fmt.Errorf("%w: date_from must be YYYY-MM-DD", ErrInvalidSpec)
	}
	if s.DateTo != "" && !models.ValidDate(s.DateTo) {
		return fmt.Errorf("%w: date_to must be YYYY-MM-DD", ErrInvalidSpec)
	}
	return nil
}

// Matches evaluates the spec against a single entry.
func (s Spec) Matches(e models.JournalEntry) bool {
	if kw := strings.ToLower(strings.TrimSpace(s.Keyword)); kw != "" {
		if !strings.Contains(strings.ToLower(e.Event), kw) &&
			!strings.Contains(strings.ToLower(e.Realization), kw) &&
			!strings.Contains(strings.ToLower(string(e.Emotion)), kw) {
			return false
		}
	}
	if s.Emotion != "" && e.Emotion != s.Emotion {
		return false
	}
	if s.Urgency != "" && e.UrgencyLevel != s.Urgency {
		return false
	}
	if s.Counselor != "" && e.AssignedCounselor != s.Counselor {
		return false
	}
	// ISO dates compare correctly as strings.
	if s.DateFrom != "" && e.Date < s.DateFrom {
		return false
	}
	if s.DateTo != "" && e.Date > s.DateTo {
		return false
	}
	if name := strings.ToLower(strings.TrimSpace(s.UserName)); name != "" {
		if !strings.Contains(strings.ToLower(e.UserName), name) {
			return false
		}
	}
	switch s.HasNotes {
	case NotesWith:
		if !e.HasMemo() {
			return false
		}
	case NotesWithout:
		if e.HasMemo() {
			return false
		}
	}
	if !s.SelfEsteem.Contains(e.SelfEsteemScore) {
		return false
	}
	if !s.Worthlessness.Contains(e.WorthlessnessScore) {
		return false
	}
	return true
}

// Apply returns the entries matching spec, preserving input order.
func Apply(entries []models.JournalEntry, spec Spec) []models.JournalEntry {
	out := make([]models.JournalEntry, 0, len(entries))
	for _, e := range entries {
		if spec.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}
