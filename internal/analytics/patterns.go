package analytics

import (
	"sort"
	"strings"

	"decidelog/internal/domain"
)

// PatternMatch points at a past failed decision that resembles the one
// being drafted.
type PatternMatch struct {
	MatchedDecisionID string `json:"matched_decision_id"`
	MatchedTitle      string `json:"matched_title"`
	Reason            string `json:"reason"`
	Score             int    `json:"score"`
}

// minOverlap is the smallest token intersection that counts as a match.
const minOverlap = 2

var stopwords = map[string]bool{
	"that": true, "this": true, "with": true, "from": true, "will": true,
	"have": true, "been": true, "were": true, "they": true, "their": true,
	"about": true, "would": true, "should": true, "could": true, "into": true,
	"over": true, "which": true, "when": true, "what": true, "then": true,
	"than": true, "because": true, "after": true, "before": true, "very": true,
}

// tokenize lowercases text and returns the set of words longer than three
// characters that are not stopwords.
func tokenize(text string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if len(w) <= 3 || stopwords[w] {
			continue
		}
		out[w] = true
	}
	return out
}

// MatchFailurePattern compares the draft's title+context word set against
// every past decision that ended FAILED or REVERSED and returns the single
// best overlap of at least minOverlap words, or nil. Ties keep the earlier
// entry in the slice; that order is whatever the cache last produced, which
// is not stable across refetches.
func MatchFailurePattern(title, contextText string, past []domain.Decision) *PatternMatch {
	current := tokenize(title + " " + contextText)
	if len(current) == 0 {
		return nil
	}
	var best *PatternMatch
	for _, d := range past {
		if d.Status != domain.StatusFailed && d.Status != domain.StatusReversed {
			continue
		}
		overlap := 0
		var shared []string
		for w := range tokenize(d.Title + " " + d.Context) {
			if current[w] {
				overlap++
				shared = append(shared, w)
			}
		}
		if overlap < minOverlap {
			continue
		}
		if best == nil || overlap > best.Score {
			sort.Strings(shared)
			best = &PatternMatch{
				MatchedDecisionID: d.ID,
				MatchedTitle:      d.Title,
				Reason:            "shares " + strings.Join(shared, ", ") + " with a decision that did not work out",
				Score:             overlap,
			}
		}
	}
	return best
}
