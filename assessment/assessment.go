// Package assessment computes a student's standing from a set of grade
// items. The engine is deterministic: grades are ordered by date, a
// weighted mean is taken, and a capped progression bonus rewards recent
// improvement. Rendering of the final score is delegated to a pluggable
// GradingSystem.
package assessment

import (
	"sort"
	"time"

	"github.com/matrousse/record-sharing-backend/interfaces"
)

const (
	// recentSplitRatio divides the date-ordered grades into an older and a
	// recent window for the progression bonus.
	recentSplitRatio = 0.67

	// bonusFactor scales the recent-over-older improvement into bonus points.
	bonusFactor = 0.2

	// bonusCap bounds the progression bonus.
	bonusCap = 10.0

	// minGradesForBonus is the smallest sample the bonus is computed on.
	minGradesForBonus = 3

	maxScore = 100.0
)

// Result is the outcome of assessing a grade set under a grading system.
type Result struct {
	Score            float64 `json:"score"`
	ProgressionBonus float64 `json:"progressionBonus"`
	Code             string  `json:"code"`
	Label            string  `json:"label"`
	Color            string  `json:"color"`
	FormattedValue   string  `json:"formattedValue"`
}

// Assess scores the given grades under the given grading system. It
// returns nil when there are no grades; callers surface that as "no
// assessment yet" rather than a zero score.
func Assess(grades []interfaces.GradeItem, system GradingSystem) *Result {
	if len(grades) == 0 {
		return nil
	}

	sorted := make([]interfaces.GradeItem, len(grades))
	copy(sorted, grades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return gradeBefore(sorted[i], sorted[j])
	})

	mean := weightedMean(sorted)
	bonus := progressionBonus(sorted)

	final := mean + bonus
	if final > maxScore {
		final = maxScore
	}

	band := bandFor(system, final)
	return &Result{
		Score:            final,
		ProgressionBonus: bonus,
		Code:             band.Code,
		Label:            band.Label,
		Color:            band.Color,
		FormattedValue:   system.Format(final, band),
	}
}

// weightedMean normalizes each grade to a 0-100 scale and averages by
// weight. Grades with a non-positive base are skipped; a zero total
// weight yields 0.
func weightedMean(grades []interfaces.GradeItem) float64 {
	var sum, totalWeight float64
	for _, g := range grades {
		if g.Base <= 0 {
			continue
		}
		sum += (g.Value / g.Base) * maxScore * g.Weight
		totalWeight += g.Weight
	}
	if totalWeight == 0 {
		return 0
	}
	return sum / totalWeight
}

// progressionBonus rewards improvement of the recent window over the
// older one. Grades must already be date-ordered ascending.
func progressionBonus(sorted []interfaces.GradeItem) float64 {
	if len(sorted) < minGradesForBonus {
		return 0
	}

	split := int(float64(len(sorted)) * recentSplitRatio)
	older := weightedMean(sorted[:split])
	recent := weightedMean(sorted[split:])
	if recent <= older {
		return 0
	}

	bonus := (recent - older) * bonusFactor
	if bonus > bonusCap {
		bonus = bonusCap
	}
	return bonus
}

// gradeBefore orders grades by date ascending, by ID on ties. Dates
// parse as RFC 3339 or plain YYYY-MM-DD; unparseable dates fall back to
// lexicographic order, which matches chronological order for ISO dates.
func gradeBefore(a, b interfaces.GradeItem) bool {
	ta, okA := parseGradeDate(a.Date)
	tb, okB := parseGradeDate(b.Date)
	if okA && okB {
		if !ta.Equal(tb) {
			return ta.Before(tb)
		}
		return a.ID < b.ID
	}
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	return a.ID < b.ID
}

func parseGradeDate(raw string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
