// Package elimination propagates an episode's eliminations to the
// competitor store.
package elimination

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/fantabrigade/internal/domain/model"
)

// FlagWriter sets a competitor's elimination flag.
//
// SetEliminated must be a single atomic conditional write (set to true where
// currently false) so concurrent callers never lose an update. changed is
// true only for the call that flipped the flag.
type FlagWriter interface {
	SetEliminated(ctx context.Context, competitorID string, in model.EpisodeKey) (changed bool, err error)
}

// Apply flags every squad member listed as eliminated by the outcome and
// returns the ids whose flag was flipped by this call. Calling it again with
// the same inputs is a no-op. Failures for individual competitors are joined
// and returned after every member has been attempted.
func Apply(ctx context.Context, squad model.Squad, outcome *model.EpisodeOutcome, store FlagWriter) ([]string, error) {
	if outcome == nil || len(outcome.Eliminated) == 0 {
		return nil, nil
	}
	out := make(map[string]struct{}, len(outcome.Eliminated))
	for _, id := range outcome.Eliminated {
		out[id] = struct{}{}
	}

	var (
		flagged []string
		errs    []error
	)
	for _, id := range squad.Members() {
		if _, ok := out[id]; !ok {
			continue
		}
		changed, err := store.SetEliminated(ctx, id, outcome.Key)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: competitor %s: %w", ErrFlagUpdate, id, err))
			continue
		}
		if changed {
			flagged = append(flagged, id)
		}
	}
	return flagged, errors.Join(errs...)
}
