// Package analytics derives reports and heuristics from a decision
// collection. Everything here is a pure function over the slice it is
// handed; results are recomputed on demand, never maintained incrementally.
package analytics

import (
	"sort"
	"time"

	"decidelog/internal/domain"
)

// weekStart truncates t to the Monday of its ISO week, at midnight UTC.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}

// Streak counts consecutive ISO weeks (Monday start), ending at or one week
// before the current week, in which at least one decision was made. A gap of
// more than one week between the latest activity and now resets it to zero.
func Streak(decisions []domain.Decision, now time.Time) int {
	seen := map[time.Time]bool{}
	for _, d := range decisions {
		if d.MadeOn.IsZero() {
			continue
		}
		seen[weekStart(d.MadeOn)] = true
	}
	if len(seen) == 0 {
		return 0
	}
	weeks := make([]time.Time, 0, len(seen))
	for w := range seen {
		weeks = append(weeks, w)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].After(weeks[j]) })

	current := weekStart(now)
	latest := weeks[0]
	if current.Sub(latest) > 7*24*time.Hour {
		return 0
	}
	streak := 1
	for i := 1; i < len(weeks); i++ {
		if weeks[i-1].Sub(weeks[i]) != 7*24*time.Hour {
			break
		}
		streak++
	}
	return streak
}
