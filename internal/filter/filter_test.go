package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

func sampleEntries() []models.JournalEntry {
	return []models.JournalEntry{
		{ID: "1", Date: "2024-01-01", Emotion: models.EmotionWorthlessness, Event: "Meeting went badly", Realization: "I froze", SelfEsteemScore: 30, WorthlessnessScore: 70, UserName: "Hanako", UrgencyLevel: models.UrgencyHigh, AssignedCounselor: "Sato", CounselorMemo: "follow up"},
		{ID: "2", Date: "2024-01-05", Emotion: models.EmotionGratitude, Event: "Friend called", Realization: "People care", SelfEsteemScore: 55, WorthlessnessScore: 45, UserName: "taro"},
		{ID: "3", Date: "2024-02-10", Emotion: models.EmotionGratitude, Event: "Lunch", Realization: "Small joys", SelfEsteemScore: 80, WorthlessnessScore: 20, UserName: "Hanako", CounselorMemo: "　"},
		{ID: "4", Date: "2024-03-01", Emotion: models.EmotionSadness, Event: "rain", Realization: "MEETING tomorrow", SelfEsteemScore: 100, WorthlessnessScore: 0, UserName: "jiro", UrgencyLevel: models.UrgencyLow, AssignedCounselor: "Ito"},
	}
}

func ids(entries []models.JournalEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestApplyEmptySpecReturnsInputInOrder(t *testing.T) {
	entries := sampleEntries()
	var spec Spec
	require.True(t, spec.IsZero())
	assert.Equal(t, entries, Apply(entries, spec))
}

func TestApplyKeywordIsCaseInsensitiveAcrossTextFields(t *testing.T) {
	got := Apply(sampleEntries(), Spec{Keyword: "meeting"})
	assert.Equal(t, []string{"1", "4"}, ids(got))

	got = Apply(sampleEntries(), Spec{Keyword: "感謝"})
	assert.Equal(t, []string{"2", "3"}, ids(got))

	for _, e := range sampleEntries() {
		sub := e.Event[1:3]
		got := Apply([]models.JournalEntry{e}, Spec{Keyword: sub})
		assert.Len(t, got, 1, "substring %q of event %q", sub, e.Event)
	}
}

func TestApplyScoreRangeIsInclusive(t *testing.T) {
	got := Apply(sampleEntries(), Spec{SelfEsteem: Between(55, 80)})
	assert.Equal(t, []string{"2", "3"}, ids(got))

	got = Apply(sampleEntries(), Spec{Worthlessness: Between(0, 20)})
	assert.Equal(t, []string{"3", "4"}, ids(got))

	max := 29
	got = Apply(sampleEntries(), Spec{SelfEsteem: ScoreRange{Max: &max}})
	assert.Empty(t, got)
}

func TestApplyEmotionAndScore(t *testing.T) {
	entries := []models.JournalEntry{
		{ID: "low", Emotion: models.EmotionGratitude, SelfEsteemScore: 55, WorthlessnessScore: 50},
		{ID: "high", Emotion: models.EmotionGratitude, SelfEsteemScore: 80, WorthlessnessScore: 50},
	}
	spec := Spec{
		Emotion:       models.EmotionGratitude,
		SelfEsteem:    Between(60, 100),
		Worthlessness: Between(0, 100),
	}
	assert.Equal(t, []string{"high"}, ids(Apply(entries, spec)))
}

func TestApplyCombinesPredicates(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		want []string
	}{
		{"urgency", Spec{Urgency: models.UrgencyHigh}, []string{"1"}},
		{"counselor", Spec{Counselor: "Ito"}, []string{"4"}},
		{"date range", Spec{DateFrom: "2024-01-05", DateTo: "2024-02-10"}, []string{"2", "3"}},
		{"user substring", Spec{UserName: "hana"}, []string{"1", "3"}},
		{"with notes", Spec{HasNotes: NotesWith}, []string{"1"}},
		{"without notes", Spec{HasNotes: NotesWithout}, []string{"2", "3", "4"}},
		{"and", Spec{UserName: "hanako", Emotion: models.EmotionGratitude}, []string{"3"}},
		{"no match", Spec{UserName: "hanako", Urgency: models.UrgencyLow}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(sampleEntries(), tt.spec)))
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Spec{Emotion: models.EmotionFear, Urgency: models.UrgencyMedium}.Validate())
	assert.ErrorIs(t, Spec{Emotion: "bored"}.Validate(), ErrInvalidSpec)
	assert.ErrorIs(t, Spec{Urgency: "urgent"}.Validate(), ErrInvalidSpec)
	assert.ErrorIs(t, Spec{HasNotes: "maybe"}.Validate(), ErrInvalidSpec)
	assert.ErrorIs(t, Spec{DateFrom: "01/02/2024"}.Validate(), ErrInvalidSpec)
}
