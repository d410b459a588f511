package domain

import (
	"math"
	"sort"
)

// BonusKind tags the journal entry carrying the granted bonus amount.
const BonusKind = "bonus"

// GoalSuccessKind is the journal tag recorded when goal was met.
func GoalSuccessKind(goal string) string { return "bonus_" + goal }

// GoalFailureKind is the journal tag recorded when goal was missed.
func GoalFailureKind(goal string) string { return "bonus_" + goal + "_failed" }

// GoalOutcome records whether one side-goal was met on the bonus day.
type GoalOutcome struct {
	Goal string
	Met  bool
}

// Kind returns the journal tag for the outcome.
func (o GoalOutcome) Kind() string {
	if o.Met {
		return GoalSuccessKind(o.Goal)
	}
	return GoalFailureKind(o.Goal)
}

// BonusStat is the trailing-window success count of one goal. Total is the
// window length, not the number of days with data.
type BonusStat struct {
	Goal    string `json:"goal"`
	Success int    `json:"success"`
	Total   int    `json:"total"`
	Rate    int    `json:"rate_percent"`
}

// SuccessRate returns success/window as a rounded percentage. A
// non-positive window yields 0.
func SuccessRate(success, window int) int {
	if window <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(success) / float64(window)))
}

func goalOutcomes(goals map[string]bool) []GoalOutcome {
	out := make([]GoalOutcome, 0, len(goals))
	for goal, met := range goals {
		out = append(out, GoalOutcome{Goal: goal, Met: met})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Goal < out[j].Goal })
	return out
}
