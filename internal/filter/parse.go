package filter

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/gorilla/schema"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

// queryParams is the HTTP query-string shape of a Spec.
type queryParams struct {
	Keyword          string `schema:"keyword"`
	Emotion          string `schema:"emotion"`
	Urgency          string `schema:"urgency"`
	Counselor        string `schema:"counselor"`
	DateFrom         string `schema:"date_from"`
	DateTo           string `schema:"date_to"`
	UserName         string `schema:"user_name"`
	HasNotes         string `schema:"has_notes"`
	SelfEsteemMin    *int   `schema:"self_esteem_min"`
	SelfEsteemMax    *int   `schema:"self_esteem_max"`
	WorthlessnessMin *int   `schema:"worthlessness_min"`
	WorthlessnessMax *int   `schema:"worthlessness_max"`
}

var decoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// ParseQuery builds a Spec from URL query parameters. Dates are accepted in
// any common layout and normalized to YYYY-MM-DD.
func ParseQuery(values url.Values) (Spec, error) {
	var p queryParams
	if err := decoder.Decode(&p, values); err != nil {
		return Spec{}, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	from, err := normalizeDate(p.DateFrom)
	if err != nil {
		return Spec{}, err
	}
	to, err := normalizeDate(p.DateTo)
	if err != nil {
		return Spec{}, err
	}

	spec := Spec{
		Keyword:       strings.TrimSpace(p.Keyword),
		Emotion:       models.Emotion(strings.TrimSpace(p.Emotion)),
		Urgency:       models.UrgencyLevel(strings.ToLower(strings.TrimSpace(p.Urgency))),
		Counselor:     strings.TrimSpace(p.Counselor),
		DateFrom:      from,
		DateTo:        to,
		UserName:      strings.TrimSpace(p.UserName),
		HasNotes:      parseNotes(p.HasNotes),
		SelfEsteem:    ScoreRange{Min: p.SelfEsteemMin, Max: p.SelfEsteemMax},
		Worthlessness: ScoreRange{Min: p.WorthlessnessMin, Max: p.WorthlessnessMax},
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

func parseNotes(v string) NotesFilter {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "any", "all":
		return NotesAny
	case "with", "true", "yes", "1":
		return NotesWith
	case "without", "false", "no", "0":
		return NotesWithout
	}
	return NotesFilter(v)
}

func normalizeDate(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	if models.ValidDate(v) {
		return v, nil
	}
	t, err := dateparse.ParseAny(v)
	if err != nil {
		return "", fmt.Errorf("%w: cannot parse date %q", ErrInvalidSpec, v)
	}
	return t.Format(models.DateLayout), nil
}
