package filter

import (
	"strings"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

func TestWhereEmptySpec(t *testing.T) {
	sql, args, err := Where(Spec{}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(1=1)", sql)
	assert.Empty(t, args)
}

func TestWhereKeywordEscapesWildcards(t *testing.T) {
	sql, args, err := Where(Spec{Keyword: " 100%_done "}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "((e.event ILIKE ? OR e.realization ILIKE ? OR e.emotion ILIKE ?))", sql)
	assert.Equal(t, []interface{}{`%100\%\_done%`, `%100\%\_done%`, `%100\%\_done%`}, args)
}

func TestWhereFullSpec(t *testing.T) {
	spec := Spec{
		Emotion:       models.EmotionGratitude,
		Urgency:       models.UrgencyHigh,
		Counselor:     "Sato",
		DateFrom:      "2024-01-01",
		DateTo:        "2024-01-31",
		UserName:      "hana",
		SelfEsteem:    Between(60, 100),
		Worthlessness: Between(0, 40),
	}
	query, args, err := sq.Select("e.id").From("diary_entries e").Where(Where(spec)).
		PlaceholderFormat(sq.Dollar).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "e.emotion = $1")
	assert.Contains(t, query, "e.urgency_level = $2")
	assert.Contains(t, query, "e.assigned_counselor = $3")
	assert.Contains(t, query, "e.date >= $4")
	assert.Contains(t, query, "e.date <= $5")
	assert.Contains(t, query, "u.name ILIKE $6")
	assert.Contains(t, query, "e.self_esteem_score >= $7")
	assert.Contains(t, query, "e.self_esteem_score <= $8")
	assert.Contains(t, query, "e.worthlessness_score >= $9")
	assert.Contains(t, query, "e.worthlessness_score <= $10")
	assert.Equal(t, []interface{}{"感謝", "high", "Sato", "2024-01-01", "2024-01-31", "%hana%", 60, 100, 0, 40}, args)
}

func TestWhereNotes(t *testing.T) {
	sql, _, err := Where(Spec{HasNotes: NotesWithout}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "BTRIM(e.counselor_memo")
	assert.NotContains(t, sql, "NOT (")

	sql, _, err = Where(Spec{HasNotes: NotesWith}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "NOT (COALESCE(BTRIM(e.counselor_memo")
}

func TestWhereNotesTrimsLikeApply(t *testing.T) {
	_, args, err := Where(Spec{HasNotes: NotesWithout}).ToSql()
	require.NoError(t, err)
	require.Len(t, args, 1)
	cutset, ok := args[0].(string)
	require.True(t, ok)

	memos := []string{"", " ", "\t\r\n", "　", " 　\n", "\u00a0", "\v", "\f", "\u0085", "\u2003", "note", " 　note　 ", "\u00a0note"}
	for _, memo := range memos {
		e := models.JournalEntry{ID: "1", CounselorMemo: memo}
		// BTRIM removes leading and trailing runs of the cutset, as strings.Trim does
		remoteBlank := strings.Trim(memo, cutset) == ""
		localWithout := len(Apply([]models.JournalEntry{e}, Spec{HasNotes: NotesWithout})) == 1
		localWith := len(Apply([]models.JournalEntry{e}, Spec{HasNotes: NotesWith})) == 1
		assert.Equal(t, remoteBlank, localWithout, "memo %q", memo)
		assert.Equal(t, !remoteBlank, localWith, "memo %q", memo)
	}
}
