package recompute_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/okian/fantabrigade/internal/domain/model"
	"github.com/okian/fantabrigade/internal/domain/recompute"
	"github.com/okian/fantabrigade/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type mockStore struct {
	mu         sync.Mutex
	episodes   map[model.EpisodeKey]*model.EpisodeOutcome
	squads     map[model.EpisodeKey][]model.Squad
	eliminated map[string]bool
	results    map[string]model.ScoringResult
	statusArgs []string
	flagErr    map[string]error
	saveErr    map[string]error
	statusErr  error
}

func newMockStore(competitors ...string) *mockStore {
	m := &mockStore{
		episodes:   map[model.EpisodeKey]*model.EpisodeOutcome{},
		squads:     map[model.EpisodeKey][]model.Squad{},
		eliminated: map[string]bool{},
		results:    map[string]model.ScoringResult{},
		flagErr:    map[string]error{},
		saveErr:    map[string]error{},
	}
	for _, id := range competitors {
		m.eliminated[id] = false
	}
	return m
}

var errNotFound = errors.New("not found")

func (m *mockStore) GetEpisode(_ context.Context, key model.EpisodeKey) (*model.EpisodeOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.episodes[key]
	if !ok {
		return nil, errNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockStore) ListSquads(_ context.Context, key model.EpisodeKey) ([]model.Squad, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Squad(nil), m.squads[key]...), nil
}

func (m *mockStore) EliminationStatus(_ context.Context, ids []string, _ model.EpisodeKey) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	m.statusArgs = append([]string(nil), ids...)
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		if v, ok := m.eliminated[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (m *mockStore) SetEliminated(_ context.Context, id string, _ model.EpisodeKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.flagErr[id]; err != nil {
		return false, err
	}
	if m.eliminated[id] {
		return false, nil
	}
	m.eliminated[id] = true
	return true, nil
}

func (m *mockStore) SaveResult(_ context.Context, squad model.Squad, result model.ScoringResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.saveErr[squad.ID]; err != nil {
		return err
	}
	m.results[squad.ID] = result
	return nil
}

func (m *mockStore) result(id string) (model.ScoringResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[id]
	return r, ok
}

func TestDriver_Recompute(t *testing.T) {
	Convey("Given an episode where C3 is eliminated and two squads deployed", t, func() {
		ctx := context.Background()
		key := model.EpisodeKey{Edition: 9, Number: 4}
		store := newMockStore("C1", "C2", "C3", "C4", "C5", "C6")
		store.episodes[key] = &model.EpisodeOutcome{
			Key:                 key,
			MysteryBoxPodium:    []string{"C1", "C5"},
			InventionTestPodium: []string{"C1"},
			Eliminated:          []string{"C3"},
		}
		store.squads[key] = []model.Squad{
			{ID: "s1", ManagerID: "m1", Episode: key, Competitors: []string{"C1", "C2", "C3", "C4"}},
			{ID: "s2", ManagerID: "m2", Episode: key, Competitors: []string{"C3", "C4", "C5", "C6"}},
		}
		driver := recompute.NewDriver(store, recompute.WithParallelism(2))

		Convey("When the episode is recomputed", func() {
			report, err := driver.Recompute(ctx, key)

			Convey("Then both squads are scored and persisted", func() {
				So(err, ShouldBeNil)
				So(report.OK(), ShouldBeTrue)
				So(report.Squads, ShouldEqual, 2)
				So(report.Persisted, ShouldEqual, 2)

				r1, ok := store.result("s1")
				So(ok, ShouldBeTrue)
				So(r1.TotalPoints, ShouldEqual, 5+10+10+20-15)

				r2, ok := store.result("s2")
				So(ok, ShouldBeTrue)
				So(r2.TotalPoints, ShouldEqual, 5-15)
			})

			Convey("Then C3 is flagged once and reported", func() {
				So(report.Flagged, ShouldResemble, []string{"C3"})
				So(store.eliminated["C3"], ShouldBeTrue)
			})

			Convey("Then the roster was resolved once for every distinct member", func() {
				ids := append([]string(nil), store.statusArgs...)
				sort.Strings(ids)
				So(ids, ShouldResemble, []string{"C1", "C2", "C3", "C4", "C5", "C6"})
			})

			Convey("When it runs again", func() {
				again, err := driver.Recompute(ctx, key)

				Convey("Then results are stable and nothing new is flagged", func() {
					So(err, ShouldBeNil)
					So(again.Flagged, ShouldBeEmpty)
					r1, _ := store.result("s1")
					So(r1.TotalPoints, ShouldEqual, 30)
				})
			})
		})

		Convey("When C2 was eliminated earlier and the episode has an outside challenge", func() {
			store.eliminated["C2"] = true
			o := store.episodes[key]
			o.IsOutside = true
			o.RedBrigade = []string{"C1"}
			o.BlueBrigade = []string{"C5"}
			report, err := driver.Recompute(ctx, key)

			Convey("Then only members still in the show are penalized for sitting out", func() {
				So(err, ShouldBeNil)
				So(report.OK(), ShouldBeTrue)
				r1, _ := store.result("s1")
				var sitOut []string
				for _, e := range r1.Events {
					if e.Kind == model.RuleNotDeployedExternally {
						sitOut = append(sitOut, e.CompetitorID)
					}
				}
				So(sitOut, ShouldResemble, []string{"C3", "C4"})
				So(r1.TotalPoints, ShouldEqual, 45-20+15-15)
			})
		})

		Convey("When flag updates fail for C3", func() {
			store.flagErr["C3"] = errors.New("disk full")
			report, err := driver.Recompute(ctx, key)

			Convey("Then results are still persisted and the failure is reported per squad", func() {
				So(err, ShouldBeNil)
				So(report.Persisted, ShouldEqual, 2)
				So(report.Failures, ShouldHaveLength, 2)
				for _, f := range report.Failures {
					So(f.Stage, ShouldEqual, recompute.StageEliminate)
					So(f.Message, ShouldContainSubstring, "disk full")
				}
				So(report.Flagged, ShouldBeEmpty)
			})
		})

		Convey("When persisting one squad fails", func() {
			store.saveErr["s2"] = errors.New("locked")
			report, err := driver.Recompute(ctx, key)

			Convey("Then the other squad is unaffected", func() {
				So(err, ShouldBeNil)
				So(report.Persisted, ShouldEqual, 1)
				So(report.Failures, ShouldHaveLength, 1)
				So(report.Failures[0].SquadID, ShouldEqual, "s2")
				So(report.Failures[0].Stage, ShouldEqual, recompute.StagePersist)
				So(errors.Unwrap(report.Failures[0]), ShouldNotBeNil)
				So(store.eliminated["C3"], ShouldBeTrue)
			})
		})

		Convey("When the roster cannot be resolved", func() {
			store.statusErr = errors.New("timeout")
			_, err := driver.Recompute(ctx, key)

			Convey("Then the batch fails before any side effect", func() {
				So(errors.Is(err, recompute.ErrLoad), ShouldBeTrue)
				So(store.eliminated["C3"], ShouldBeFalse)
				_, ok := store.result("s1")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := driver.Recompute(cctx, key)

			Convey("Then the batch reports the interruption", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unknown episode", t, func() {
		driver := recompute.NewDriver(newMockStore())
		_, err := driver.Recompute(context.Background(), model.EpisodeKey{Edition: 1, Number: 1})

		Convey("Then loading fails", func() {
			So(errors.Is(err, recompute.ErrLoad), ShouldBeTrue)
			So(errors.Is(err, errNotFound), ShouldBeTrue)
		})
	})

	Convey("Given an episode without squads", t, func() {
		key := model.EpisodeKey{Edition: 1, Number: 1}
		store := newMockStore()
		store.episodes[key] = &model.EpisodeOutcome{Key: key}
		report, err := recompute.NewDriver(store).Recompute(context.Background(), key)

		Convey("Then the report is empty", func() {
			So(err, ShouldBeNil)
			So(report.Squads, ShouldEqual, 0)
			So(report.OK(), ShouldBeTrue)
		})
	})
}
