package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

// Self-harm phrases, canonical forms only. Japanese phrases are matched as
// substrings; English single words must match a whole word.
var selfHarmPhrases = []string{
	"死にたい",
	"消えたい",
	"自殺",
	"自傷",
	"リストカット",
	"生きていたくない",
	"生きる意味がない",
	"いなくなりたい",
	"suicide",
	"kill myself",
	"end my life",
	"self harm",
	"cut myself",
	"hurt myself",
	"want to die",
	"better off dead",
	"unalive",
}

var spaceRegex = regexp.MustCompile(`\s+`)

// CleanText normalizes text to canonical form before phrase matching:
// NFKC (full-width to half-width), lower case, common leetspeak undone,
// punctuation turned into spaces, repeated letters collapsed.
func CleanText(text string) string {
	cleaned := strings.ToLower(norm.NFKC.String(text))

	replacer := strings.NewReplacer(
		"@", "a", "4", "a", "3", "e", "!", "i", "1", "i",
		"0", "o", "$", "s", "5", "s", "7", "t", "+", "t",
	)
	cleaned = replacer.Replace(cleaned)

	var builder strings.Builder
	for _, r := range cleaned {
		if unicode.IsLetter(r) || unicode.Is(unicode.Mn, r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	cleaned = collapseRepeats(builder.String())
	return strings.TrimSpace(spaceRegex.ReplaceAllString(cleaned, " "))
}

// collapseRepeats reduces runs of the same Latin letter to one, so
// "diiiie" matches "die". Japanese text is left alone: repeats are
// meaningful there (いなくなりたい).
func collapseRepeats(text string) string {
	var result strings.Builder
	var last rune
	for _, r := range text {
		if r == last && r < unicode.MaxASCII && unicode.IsLetter(r) {
			continue
		}
		result.WriteRune(r)
		last = r
	}
	return result.String()
}

// matchPhrases returns the phrases found in already-cleaned text.
func matchPhrases(cleaned string, phrases []string) []string {
	words := strings.Fields(cleaned)
	var matched []string
	for _, p := range phrases {
		// phrases go through the same collapse as the text: "kill" -> "kil"
		c := collapseRepeats(p)
		if !strings.Contains(cleaned, c) {
			continue
		}
		// "skill" must not match "kill"
		if isASCII(c) && !strings.Contains(c, " ") {
			whole := false
			for _, w := range words {
				if w == c {
					whole = true
					break
				}
			}
			if !whole {
				continue
			}
		}
		matched = append(matched, p)
	}
	return matched
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// ScreenText reports the self-harm phrases present in text.
func ScreenText(text string) []string {
	return matchPhrases(CleanText(text), selfHarmPhrases)
}

// RiskFlag marks an entry whose text needs a counselor's attention.
type RiskFlag struct {
	EntryID  string   `json:"entryId"`
	UserName string   `json:"userName"`
	Date     string   `json:"date"`
	Matches  []string `json:"matches"`
}

// ScreenEntries returns a flag for every entry whose event or realization
// mentions self-harm, in input order.
func ScreenEntries(entries []models.JournalEntry) []RiskFlag {
	flags := []RiskFlag{}
	for _, e := range entries {
		m := ScreenText(e.Event + "\n" + e.Realization)
		if len(m) == 0 {
			continue
		}
		flags = append(flags, RiskFlag{EntryID: e.ID, UserName: e.UserName, Date: e.Date, Matches: m})
	}
	return flags
}
