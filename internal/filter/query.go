package filter

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

// Column names used by the remote translation. The entry table is aliased
// "e" and the joined users table "u".
const (
	ColEvent         = "e.event"
	ColRealization   = "e.realization"
	ColEmotion       = "e.emotion"
	ColUrgency       = "e.urgency_level"
	ColCounselor     = "e.assigned_counselor"
	ColDate          = "e.date"
	ColMemo          = "e.counselor_memo"
	ColSelfEsteem    = "e.self_esteem_score"
	ColWorthlessness = "e.worthlessness_score"
	ColUserName      = "u.name"
)

// memoBlank mirrors JournalEntry.HasMemo; its argument is models.MemoBlank.
const memoBlank = "COALESCE(BTRIM(" + ColMemo + ", ?), '') = ''"

// Where translates spec into a SQL condition that selects the same rows
// Apply would select from the same data.
func Where(spec Spec) sq.And {
	cond := sq.And{}

	if kw := strings.TrimSpace(spec.Keyword); kw != "" {
		pattern := likePattern(kw)
		cond = append(cond, sq.Or{
			sq.ILike{ColEvent: pattern},
			sq.ILike{ColRealization: pattern},
			sq.ILike{ColEmotion: pattern},
		})
	}
	if spec.Emotion != "" {
		cond = append(cond, sq.Eq{ColEmotion: string(spec.Emotion)})
	}
	if spec.Urgency != "" {
		cond = append(cond, sq.Eq{ColUrgency: string(spec.Urgency)})
	}
	if spec.Counselor != "" {
		cond = append(cond, sq.Eq{ColCounselor: spec.Counselor})
	}
	if spec.DateFrom != "" {
		cond = append(cond, sq.GtOrEq{ColDate: spec.DateFrom})
	}
	if spec.DateTo != "" {
		cond = append(cond, sq.LtOrEq{ColDate: spec.DateTo})
	}
	if name := strings.TrimSpace(spec.UserName); name != "" {
		cond = append(cond, sq.ILike{ColUserName: likePattern(name)})
	}
	switch spec.HasNotes {
	case NotesWith:
		cond = append(cond, sq.Expr("NOT ("+memoBlank+")", models.MemoBlank))
	case NotesWithout:
		cond = append(cond, sq.Expr(memoBlank, models.MemoBlank))
	}
	cond = appendRange(cond, ColSelfEsteem, spec.SelfEsteem)
	cond = appendRange(cond, ColWorthlessness, spec.Worthlessness)
	return cond
}

func appendRange(cond sq.And, col string, r ScoreRange) sq.And {
	if r.Min != nil {
		cond = append(cond, sq.GtOrEq{col: *r.Min})
	}
	if r.Max != nil {
		cond = append(cond, sq.LtOrEq{col: *r.Max})
	}
	return cond
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a substring ILIKE pattern with wildcards in the
// user's input escaped.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
