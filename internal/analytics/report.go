package analytics

import (
	"time"

	"decidelog/internal/domain"
)

// MonthlyReport summarizes one calendar month of decisions.
type MonthlyReport struct {
	Month          time.Month              `json:"month"`
	Year           int                     `json:"year"`
	TotalDecisions int                     `json:"total_decisions"`
	ByCategory     map[domain.Category]int `json:"by_category"`
	ByStatus       map[domain.Status]int   `json:"by_status"`
	AvgRiskScore   *float64                `json:"avg_risk_score,omitempty"`
	TopCategory    domain.Category         `json:"top_category,omitempty"`
}

// Report filters decisions to (month, year) by MadeOn and computes the
// category and status histograms plus the mean AI risk score. Decisions
// without a score are excluded from the average, not counted as zero.
// TopCategory is the histogram argmax; ties go to the category seen first.
func Report(decisions []domain.Decision, month time.Month, year int) MonthlyReport {
	r := MonthlyReport{
		Month:      month,
		Year:       year,
		ByCategory: map[domain.Category]int{},
		ByStatus:   map[domain.Status]int{},
	}
	var firstSeen []domain.Category
	var riskSum, riskCount int
	for _, d := range decisions {
		m := d.MadeOn.UTC()
		if m.Month() != month || m.Year() != year {
			continue
		}
		r.TotalDecisions++
		if _, ok := r.ByCategory[d.Category]; !ok {
			firstSeen = append(firstSeen, d.Category)
		}
		r.ByCategory[d.Category]++
		r.ByStatus[d.Status]++
		if d.AIRiskScore != nil {
			riskSum += *d.AIRiskScore
			riskCount++
		}
	}
	if riskCount > 0 {
		avg := float64(riskSum) / float64(riskCount)
		r.AvgRiskScore = &avg
	}
	best := -1
	for _, c := range firstSeen {
		if r.ByCategory[c] > best {
			best = r.ByCategory[c]
			r.TopCategory = c
		}
	}
	return r
}
