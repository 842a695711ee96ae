package elimination_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okian/fantabrigade/internal/domain/elimination"
	"github.com/okian/fantabrigade/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

type mockFlags struct {
	mu     sync.Mutex
	flags  map[string]bool
	errs   map[string]error
	writes int
}

func newMockFlags(ids ...string) *mockFlags {
	m := &mockFlags{flags: map[string]bool{}, errs: map[string]error{}}
	for _, id := range ids {
		m.flags[id] = false
	}
	return m
}

func (m *mockFlags) SetEliminated(_ context.Context, id string, _ model.EpisodeKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if err, ok := m.errs[id]; ok {
		return false, err
	}
	if m.flags[id] {
		return false, nil
	}
	m.flags[id] = true
	return true, nil
}

func TestApply(t *testing.T) {
	convey.Convey("Given a squad and an outcome eliminating C3 and an outsider", t, func() {
		ctx := context.Background()
		store := newMockFlags("C1", "C2", "C3", "C4", "C9")
		squad := model.Squad{Competitors: []string{"C1", "C2", "C3", "C4"}}
		outcome := &model.EpisodeOutcome{
			Key:        model.EpisodeKey{Edition: 1, Number: 2},
			Eliminated: []string{"C3", "C9"},
		}

		convey.Convey("When applied", func() {
			flagged, err := elimination.Apply(ctx, squad, outcome, store)

			convey.Convey("Then only the squad member is flagged", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(flagged, convey.ShouldResemble, []string{"C3"})
				convey.So(store.flags["C3"], convey.ShouldBeTrue)
				convey.So(store.flags["C9"], convey.ShouldBeFalse)
			})

			convey.Convey("And a second application is a no-op", func() {
				again, err := elimination.Apply(ctx, squad, outcome, store)
				convey.So(err, convey.ShouldBeNil)
				convey.So(again, convey.ShouldBeEmpty)
				convey.So(store.flags["C3"], convey.ShouldBeTrue)
			})
		})

		convey.Convey("When nothing is eliminated", func() {
			flagged, err := elimination.Apply(ctx, squad, &model.EpisodeOutcome{}, store)

			convey.Convey("Then the store is not touched", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(flagged, convey.ShouldBeEmpty)
				convey.So(store.writes, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the store fails for one competitor", func() {
			outcome.Eliminated = []string{"C1", "C3"}
			store.errs["C1"] = errors.New("disk full")
			flagged, err := elimination.Apply(ctx, squad, outcome, store)

			convey.Convey("Then the others are still flagged and the failure is reported", func() {
				convey.So(flagged, convey.ShouldResemble, []string{"C3"})
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, elimination.ErrFlagUpdate), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "C1")
			})
		})

		convey.Convey("When two squads sharing C3 apply concurrently", func() {
			other := model.Squad{Competitors: []string{"C3", "C5"}}
			var wg sync.WaitGroup
			results := make([][]string, 2)
			for i, s := range []model.Squad{squad, other} {
				wg.Add(1)
				go func(i int, s model.Squad) {
					defer wg.Done()
					results[i], _ = elimination.Apply(ctx, s, outcome, store)
				}(i, s)
			}
			wg.Wait()

			convey.Convey("Then the flag flips exactly once", func() {
				convey.So(len(results[0])+len(results[1]), convey.ShouldEqual, 1)
				convey.So(store.flags["C3"], convey.ShouldBeTrue)
			})
		})
	})
}
