// Package enrich derives tags and a sentiment label from question text.
package enrich

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

const (
	MaxExtractedTags = 5
	MaxTags          = 10

	positiveThreshold = 0.1
	negativeThreshold = -0.1
)

type Result struct {
	Tags      []string `json:"tags"`
	Sentiment string   `json:"sentiment"`
}

type Enricher interface {
	Enrich(text string) Result
}

// Lexicon is a rule-based enricher: tags come from proper-noun-like and
// technical tokens, sentiment from averaged word polarities.
type Lexicon struct{}

func NewLexicon() *Lexicon {
	return &Lexicon{}
}

func (l *Lexicon) Enrich(text string) Result {
	return Result{
		Tags:      l.Tags(text),
		Sentiment: l.Sentiment(text),
	}
}

// Tags extracts up to MaxExtractedTags candidate tags in order of appearance.
func (l *Lexicon) Tags(text string) []string {
	// A Caser keeps state, so every call gets its own.
	fold := cases.Fold()
	var tags []string
	seen := map[string]bool{}
	sentenceStart := true

	for _, raw := range strings.Fields(text) {
		word := trimToken(raw)
		start := sentenceStart
		sentenceStart = endsSentence(raw)
		if word == "" {
			continue
		}

		tag := fold.String(word)
		if stopWords[tag] || seen[tag] || !isTagCandidate(word, start) {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if len(tags) == MaxExtractedTags {
			break
		}
	}
	return tags
}

// Sentiment classifies text as positive, neutral or negative.
func (l *Lexicon) Sentiment(text string) string {
	var (
		fold    = cases.Fold()
		sum     float64
		matched int
		negate  bool
		boost   = 1.0
	)
	for _, raw := range strings.Fields(text) {
		word := fold.String(trimToken(raw))
		if negations[word] {
			negate = true
			continue
		}
		if m, ok := intensifiers[word]; ok {
			boost = m
			continue
		}
		if p, ok := polarity[word]; ok {
			p *= boost
			if negate {
				p *= -0.5
			}
			sum += clamp(p)
			matched++
		}
		negate = false
		boost = 1.0
	}
	if matched == 0 {
		return models.SentimentNeutral
	}

	score := sum / float64(matched)
	switch {
	case score > positiveThreshold:
		return models.SentimentPositive
	case score < negativeThreshold:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// MergeTags folds, deduplicates and caps user supplied and extracted tags,
// user tags first.
func MergeTags(user, extracted []string) []string {
	fold := cases.Fold()
	merged := []string{}
	seen := map[string]bool{}
	for _, list := range [][]string{user, extracted} {
		for _, t := range list {
			t = fold.String(strings.TrimSpace(t))
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			merged = append(merged, t)
			if len(merged) == MaxTags {
				return merged
			}
		}
	}
	return merged
}

func trimToken(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}

func endsSentence(raw string) bool {
	return strings.HasSuffix(raw, ".") || strings.HasSuffix(raw, "?") || strings.HasSuffix(raw, "!")
}

func isTagCandidate(word string, sentenceStart bool) bool {
	runes := []rune(word)
	if len(runes) < 2 {
		return false
	}
	var letters, digits, upperAfterFirst int
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r):
			letters++
			if i > 0 && unicode.IsUpper(r) {
				upperAfterFirst++
			}
		case unicode.IsDigit(r):
			digits++
		case r == '+' || r == '#' || r == '.':
			return letters > 0 || digits > 0
		}
	}
	if letters == 0 {
		return false
	}
	if digits > 0 || upperAfterFirst > 0 {
		return true
	}
	return !sentenceStart && unicode.IsUpper(runes[0])
}

func clamp(p float64) float64 {
	if p > 1 {
		return 1
	}
	if p < -1 {
		return -1
	}
	return p
}
