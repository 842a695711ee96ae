package seed

import (
	"fmt"
	"strings"
)

// verify compares expected totals with the leaderboard. Managers missing
// from the leaderboard count as a mismatch; unexpected extra rows do not.
func verify(expected []Expectation, standings []Standing) error {
	got := make(map[string]int, len(standings))
	for _, s := range standings {
		got[s.ManagerID] = s.Points
	}

	var problems []string
	for _, e := range expected {
		points, ok := got[e.Manager]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("%s missing (want %d)", e.Manager, e.Points))
		case points != e.Points:
			problems = append(problems, fmt.Sprintf("%s has %d (want %d)", e.Manager, points, e.Points))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrMismatch, strings.Join(problems, "; "))
	}
	return nil
}
