package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decidelog/internal/domain"
)

func monthDecision(d int, cat domain.Category, status domain.Status, risk *int) domain.Decision {
	return domain.Decision{
		WorkspaceID: "ws-1",
		Category:    cat,
		Status:      status,
		MadeOn:      time.Date(2024, 5, d, 10, 0, 0, 0, time.UTC),
		AIRiskScore: risk,
	}
}

func intp(v int) *int { return &v }

func TestReportHistogramSumsToTotal(t *testing.T) {
	decisions := []domain.Decision{
		monthDecision(1, domain.CategoryProduct, domain.StatusActive, nil),
		monthDecision(2, domain.CategoryProduct, domain.StatusSucceeded, nil),
		monthDecision(3, domain.CategoryTech, domain.StatusFailed, nil),
		// Different month, excluded.
		{Category: domain.CategoryHiring, Status: domain.StatusActive, MadeOn: time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)},
	}
	r := Report(decisions, time.May, 2024)
	assert.Equal(t, 3, r.TotalDecisions)
	sum := 0
	for _, n := range r.ByCategory {
		sum += n
	}
	assert.Equal(t, r.TotalDecisions, sum)
	sum = 0
	for _, n := range r.ByStatus {
		sum += n
	}
	assert.Equal(t, r.TotalDecisions, sum)
}

func TestReportAverageExcludesUnscored(t *testing.T) {
	decisions := []domain.Decision{
		monthDecision(1, domain.CategoryProduct, domain.StatusActive, intp(40)),
		monthDecision(2, domain.CategoryProduct, domain.StatusActive, intp(60)),
		monthDecision(3, domain.CategoryProduct, domain.StatusActive, nil),
	}
	r := Report(decisions, time.May, 2024)
	require.NotNil(t, r.AvgRiskScore)
	// Unscored decision is excluded, not treated as zero.
	assert.InDelta(t, 50.0, *r.AvgRiskScore, 0.001)
}

func TestReportNoScoresMeansNoAverage(t *testing.T) {
	r := Report([]domain.Decision{monthDecision(1, domain.CategoryTech, domain.StatusActive, nil)}, time.May, 2024)
	assert.Nil(t, r.AvgRiskScore)
}

func TestReportTopCategoryTieGoesToFirstSeen(t *testing.T) {
	decisions := []domain.Decision{
		monthDecision(1, domain.CategoryTech, domain.StatusActive, nil),
		monthDecision(2, domain.CategoryProduct, domain.StatusActive, nil),
		monthDecision(3, domain.CategoryProduct, domain.StatusActive, nil),
		monthDecision(4, domain.CategoryTech, domain.StatusActive, nil),
	}
	r := Report(decisions, time.May, 2024)
	assert.Equal(t, domain.CategoryTech, r.TopCategory)
}

func TestReportEmptyMonth(t *testing.T) {
	r := Report(nil, time.May, 2024)
	assert.Zero(t, r.TotalDecisions)
	assert.Empty(t, r.ByCategory)
	assert.Equal(t, domain.Category(""), r.TopCategory)
}
