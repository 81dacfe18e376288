package analytics

import (
	"strings"

	"decidelog/internal/domain"
)

// hedgeWords signal low-confidence language in the decision text.
var hedgeWords = []string{
	"probably", "maybe", "hopefully", "guess", "assume", "think", "might",
	"unsure", "unclear", "risky", "gamble", "uncertain", "possibly",
	"somehow", "perhaps", "likely",
}

const (
	hedgePoints        = 10
	shortTextPoints    = 20
	fewAltsPoints      = 30
	noAssumptionPoints = 25
	shortTextLimit     = 50
)

// RiskScore estimates how risky a decision looks from its text alone.
// Each distinct hedge word adds 10 points regardless of repetition; short
// text, missing alternatives, and missing assumptions add fixed penalties.
// The sum is clamped to [0, 100].
func RiskScore(d domain.Decision) int {
	text := strings.ToLower(d.Decision + " " + d.Context)
	score := 0
	for _, w := range hedgeWords {
		if strings.Contains(text, w) {
			score += hedgePoints
		}
	}
	if len(text) < shortTextLimit {
		score += shortTextPoints
	}
	if len(d.Alternatives) < 2 {
		score += fewAltsPoints
	}
	if len(d.Assumptions) == 0 {
		score += noAssumptionPoints
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// QualityGrade scores completeness: 20 points for each populated section
// (title+decision, context, alternatives, assumptions, success criteria),
// mapped to a letter grade.
func QualityGrade(d domain.Decision) (int, string) {
	score := 0
	if strings.TrimSpace(d.Title) != "" && strings.TrimSpace(d.Decision) != "" {
		score += 20
	}
	if strings.TrimSpace(d.Context) != "" {
		score += 20
	}
	if len(d.Alternatives) > 0 {
		score += 20
	}
	if len(d.Assumptions) > 0 {
		score += 20
	}
	if len(d.SuccessCriteria) > 0 {
		score += 20
	}
	switch {
	case score >= 100:
		return score, "A"
	case score >= 80:
		return score, "B"
	case score >= 60:
		return score, "C"
	case score >= 40:
		return score, "D"
	default:
		return score, "F"
	}
}
