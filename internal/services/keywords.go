package services

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

// KeywordCount is one noun and how many entries mention it.
type KeywordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// KeywordAnalyzer extracts recurring nouns from diary text.
type KeywordAnalyzer struct {
	t *tokenizer.Tokenizer
}

func NewKeywordAnalyzer() (*KeywordAnalyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &KeywordAnalyzer{t: t}, nil
}

// noun subclasses that carry no topic on their own
var skipNounClasses = map[string]bool{
	"非自立": true,
	"代名詞": true,
	"数":   true,
	"接尾":  true,
	"副詞可能": true,
}

// Nouns returns the distinct content nouns of text, in base form.
func (k *KeywordAnalyzer) Nouns(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, token := range k.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		// IPA features: 0 POS, 1 sub-POS, 6 base form
		features := token.Features()
		if len(features) == 0 || features[0] != "名詞" {
			continue
		}
		if len(features) > 1 && skipNounClasses[features[1]] {
			continue
		}
		word := token.Surface
		if len(features) > 6 && features[6] != "*" {
			word = features[6]
		}
		word = strings.TrimSpace(word)
		if utf8.RuneCountInString(word) < 2 || seen[word] {
			continue
		}
		seen[word] = true
		out = append(out, word)
	}
	return out
}

// Top counts, per entry, the nouns in the event and realization text and
// returns the n most frequent. Ties sort by word.
func (k *KeywordAnalyzer) Top(entries []models.JournalEntry, n int) []KeywordCount {
	counts := make(map[string]int)
	for _, e := range entries {
		for _, w := range k.Nouns(e.Event + "\n" + e.Realization) {
			counts[w]++
		}
	}
	out := make([]KeywordCount, 0, len(counts))
	for w, c := range counts {
		out = append(out, KeywordCount{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
