package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/fantabrigade/internal/adapters/repository"
	"github.com/okian/fantabrigade/internal/domain/model"
	"github.com/okian/fantabrigade/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type factory func(t *testing.T) repository.Store

func memoryFactory(*testing.T) repository.Store {
	return repository.NewMemoryStore()
}

func sqliteFactory(t *testing.T) repository.Store {
	path := filepath.Join(t.TempDir(), "league.db")
	s, err := repository.NewSQLiteStore(context.Background(), path)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	return s
}

func TestMemoryStore(t *testing.T) { runStoreSuite(t, memoryFactory) }
func TestSQLiteStore(t *testing.T) { runStoreSuite(t, sqliteFactory) }

func competitor(name, last string) model.Competitor {
	return model.Competitor{Name: name, LastName: last, EditionNumber: 9}
}

func runStoreSuite(t *testing.T, newStore factory) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		store := newStore(t)
		Reset(func() { _ = store.Close() })

		Convey("When competitors are created", func() {
			anna, err := store.UpsertCompetitor(ctx, competitor("Anna", "Rossi"))
			So(err, ShouldBeNil)
			bruno, err := store.UpsertCompetitor(ctx, competitor("Bruno", "Bianchi"))
			So(err, ShouldBeNil)
			carla, err := store.UpsertCompetitor(ctx, competitor("Carla", "Rossi"))
			So(err, ShouldBeNil)

			Convey("Then they get ids and are listed by last name then name descending", func() {
				So(anna.ID, ShouldNotBeEmpty)
				So(anna.CreatedAt.IsZero(), ShouldBeFalse)
				list, err := store.ListCompetitors(ctx)
				So(err, ShouldBeNil)
				So(list, ShouldHaveLength, 3)
				So([]string{list[0].ID, list[1].ID, list[2].ID}, ShouldResemble, []string{carla.ID, anna.ID, bruno.ID})
			})

			Convey("Then an update keeps the id", func() {
				anna.Description = "pastry chef"
				updated, err := store.UpsertCompetitor(ctx, anna)
				So(err, ShouldBeNil)
				So(updated.ID, ShouldEqual, anna.ID)
				got, err := store.GetCompetitor(ctx, anna.ID)
				So(err, ShouldBeNil)
				So(got.Description, ShouldEqual, "pastry chef")
			})

			Convey("Then deleting removes it and a second delete is not found", func() {
				So(store.DeleteCompetitor(ctx, bruno.ID), ShouldBeNil)
				_, err := store.GetCompetitor(ctx, bruno.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(store.DeleteCompetitor(ctx, bruno.ID), repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("When a competitor is flagged by episode 9/4", func() {
				ep4 := model.EpisodeKey{Edition: 9, Number: 4}
				changed, err := store.SetEliminated(ctx, anna.ID, ep4)
				So(err, ShouldBeNil)
				So(changed, ShouldBeTrue)

				Convey("Then flagging again changes nothing", func() {
					changed, err := store.SetEliminated(ctx, anna.ID, model.EpisodeKey{Edition: 9, Number: 5})
					So(err, ShouldBeNil)
					So(changed, ShouldBeFalse)
					got, _ := store.GetCompetitor(ctx, anna.ID)
					So(*got.EliminatedIn, ShouldResemble, ep4)
				})

				Convey("Then an update keeps the elimination flag", func() {
					anna.Description = "pastry chef"
					anna.Eliminated = false
					anna.EliminatedIn = nil
					updated, err := store.UpsertCompetitor(ctx, anna)
					So(err, ShouldBeNil)
					So(updated.Description, ShouldEqual, "pastry chef")
					So(updated.Eliminated, ShouldBeTrue)
					So(updated.EliminatedIn, ShouldNotBeNil)
					So(*updated.EliminatedIn, ShouldResemble, ep4)

					status, err := store.EliminationStatus(ctx, []string{anna.ID}, model.EpisodeKey{Edition: 9, Number: 5})
					So(err, ShouldBeNil)
					So(status[anna.ID], ShouldBeTrue)
				})

				Convey("Then status depends on the episode asked about", func() {
					ids := []string{anna.ID, bruno.ID, "ghost"}
					asOf4, err := store.EliminationStatus(ctx, ids, ep4)
					So(err, ShouldBeNil)
					So(asOf4, ShouldResemble, map[string]bool{anna.ID: false, bruno.ID: false})

					asOf5, err := store.EliminationStatus(ctx, ids, model.EpisodeKey{Edition: 9, Number: 5})
					So(err, ShouldBeNil)
					So(asOf5[anna.ID], ShouldBeTrue)
				})
			})

			Convey("Then flagging an unknown id is a no-op", func() {
				changed, err := store.SetEliminated(ctx, "ghost", model.EpisodeKey{Edition: 9, Number: 1})
				So(err, ShouldBeNil)
				So(changed, ShouldBeFalse)
			})

			Convey("Then a hand-set elimination applies to every episode", func() {
				bruno.Eliminated = true
				_, err := store.UpsertCompetitor(ctx, bruno)
				So(err, ShouldBeNil)
				status, err := store.EliminationStatus(ctx, []string{bruno.ID}, model.EpisodeKey{Edition: 1, Number: 1})
				So(err, ShouldBeNil)
				So(status[bruno.ID], ShouldBeTrue)
			})
		})

		Convey("Then invalid competitors are rejected", func() {
			_, err := store.UpsertCompetitor(ctx, model.Competitor{LastName: "Rossi", EditionNumber: 1})
			So(errors.Is(err, repository.ErrInvalidCompetitor), ShouldBeTrue)
			_, err = store.UpsertCompetitor(ctx, model.Competitor{Name: "Anna", EditionNumber: 1})
			So(errors.Is(err, repository.ErrInvalidCompetitor), ShouldBeTrue)
			_, err = store.UpsertCompetitor(ctx, model.Competitor{Name: "Anna", LastName: "Rossi"})
			So(errors.Is(err, repository.ErrInvalidCompetitor), ShouldBeTrue)
		})

		Convey("When episodes are created", func() {
			for _, k := range []model.EpisodeKey{{Edition: 9, Number: 1}, {Edition: 10, Number: 1}, {Edition: 9, Number: 2}} {
				_, err := store.UpsertEpisode(ctx, model.EpisodeOutcome{Key: k, Description: "ep"})
				So(err, ShouldBeNil)
			}

			Convey("Then they are listed newest first", func() {
				list, err := store.ListEpisodes(ctx)
				So(err, ShouldBeNil)
				So(list, ShouldHaveLength, 3)
				So(list[0].Key, ShouldResemble, model.EpisodeKey{Edition: 10, Number: 1})
				So(list[1].Key, ShouldResemble, model.EpisodeKey{Edition: 9, Number: 2})
				So(list[2].Key, ShouldResemble, model.EpisodeKey{Edition: 9, Number: 1})
			})

			Convey("When outcome lists are loaded in two partial updates", func() {
				key := model.EpisodeKey{Edition: 9, Number: 1}
				_, err := store.SaveOutcome(ctx, key, model.OutcomePatch{
					MysteryBoxPodium: []string{"c1", "c2"},
					Eliminated:       []string{"c3"},
				})
				So(err, ShouldBeNil)
				wins := true
				_, err = store.SaveOutcome(ctx, key, model.OutcomePatch{
					RedBrigade:     []string{"c1"},
					BlueBrigade:    []string{"c2"},
					RedBrigadeWins: &wins,
				})
				So(err, ShouldBeNil)

				Convey("Then both updates are visible and untouched lists stay unset", func() {
					got, err := store.GetEpisode(ctx, key)
					So(err, ShouldBeNil)
					So(got.MysteryBoxPodium, ShouldResemble, []string{"c1", "c2"})
					So(got.Eliminated, ShouldResemble, []string{"c3"})
					So(got.RedBrigade, ShouldResemble, []string{"c1"})
					So(got.PressureTest, ShouldBeNil)
					So(got.RedBrigadeWins, ShouldNotBeNil)
					So(*got.RedBrigadeWins, ShouldBeTrue)
				})

				Convey("Then updating metadata keeps the lists", func() {
					_, err := store.UpsertEpisode(ctx, model.EpisodeOutcome{Key: key, IsOutside: true, Description: "outside"})
					So(err, ShouldBeNil)
					got, _ := store.GetEpisode(ctx, key)
					So(got.IsOutside, ShouldBeTrue)
					So(got.Description, ShouldEqual, "outside")
					So(got.MysteryBoxPodium, ShouldResemble, []string{"c1", "c2"})
				})
			})

			Convey("Then outcomes for unknown episodes are not found", func() {
				_, err := store.SaveOutcome(ctx, model.EpisodeKey{Edition: 1, Number: 1}, model.OutcomePatch{})
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = store.GetEpisode(ctx, model.EpisodeKey{Edition: 1, Number: 1})
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("Given two episodes with deployed squads", func() {
			ep1 := model.EpisodeKey{Edition: 9, Number: 1}
			ep2 := model.EpisodeKey{Edition: 9, Number: 2}
			for _, k := range []model.EpisodeKey{ep1, ep2} {
				_, err := store.UpsertEpisode(ctx, model.EpisodeOutcome{Key: k})
				So(err, ShouldBeNil)
			}
			deploy := func(manager string, ep model.EpisodeKey, ids ...string) model.Squad {
				sq, err := store.UpsertSquad(ctx, model.Squad{ManagerID: manager, Episode: ep, Competitors: ids})
				So(err, ShouldBeNil)
				return sq
			}
			m1e1 := deploy("m1", ep1, "a", "b", "c", "d")
			m2e1 := deploy("m2", ep1, "a", "e", "f", "g")
			m1e2 := deploy("m1", ep2, "a", "b", "c", "e")

			Convey("Then squads are listed per episode and per manager", func() {
				byEp, err := store.ListSquads(ctx, ep1)
				So(err, ShouldBeNil)
				So(byEp, ShouldHaveLength, 2)
				So(byEp[0].ManagerID, ShouldEqual, "m1")
				So(byEp[1].Competitors, ShouldResemble, []string{"a", "e", "f", "g"})

				mine, err := store.ListSquadsByManager(ctx, model.DefaultLeagueID, "m1")
				So(err, ShouldBeNil)
				So(mine, ShouldHaveLength, 2)
				So(mine[0].Episode, ShouldResemble, ep2)
			})

			Convey("Then redeploying replaces the squad in place", func() {
				again := deploy("m1", ep1, "d", "c", "b", "a")
				So(again.ID, ShouldEqual, m1e1.ID)
				byEp, _ := store.ListSquads(ctx, ep1)
				So(byEp, ShouldHaveLength, 2)
				So(byEp[0].Competitors, ShouldResemble, []string{"d", "c", "b", "a"})
			})

			Convey("Then invalid squads are rejected", func() {
				_, err := store.UpsertSquad(ctx, model.Squad{ManagerID: "m3", Episode: ep1, Competitors: []string{"a", "b", "c"}})
				So(errors.Is(err, repository.ErrInvalidSquad), ShouldBeTrue)
				_, err = store.UpsertSquad(ctx, model.Squad{ManagerID: "m3", Episode: ep1, Competitors: []string{"a", "a", "b", "c"}})
				So(errors.Is(err, repository.ErrInvalidSquad), ShouldBeTrue)
				_, err = store.UpsertSquad(ctx, model.Squad{Episode: ep1, Competitors: []string{"a", "b", "c", "d"}})
				So(errors.Is(err, repository.ErrInvalidSquad), ShouldBeTrue)
				_, err = store.UpsertSquad(ctx, model.Squad{ManagerID: "m3", Episode: model.EpisodeKey{Edition: 9, Number: 7}, Competitors: []string{"a", "b", "c", "d"}})
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = store.UpsertSquad(ctx, model.Squad{LeagueID: "ghost", ManagerID: "m3", Episode: ep1, Competitors: []string{"a", "b", "c", "d"}})
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("When results are saved", func() {
				save := func(sq model.Squad, pts ...int) {
					var events []model.ScoreEvent
					for _, p := range pts {
						events = append(events, model.ScoreEvent{Kind: model.RuleMysteryBoxPodium, CompetitorID: "a", PointDelta: p})
					}
					So(store.SaveResult(ctx, sq, model.NewScoringResult(events)), ShouldBeNil)
				}
				save(m1e1, 5, 10)
				save(m2e1, 20, 10, 5)
				save(m1e2, 20)

				Convey("Then standings sum per manager with ties sharing a rank", func() {
					rows, err := store.Standings(ctx, model.DefaultLeagueID, 0)
					So(err, ShouldBeNil)
					So(rows, ShouldHaveLength, 2)
					So(rows[0].ManagerID, ShouldEqual, "m1")
					So(rows[0].Points, ShouldEqual, 35)
					So(rows[0].Episodes, ShouldEqual, 2)
					So(rows[1].ManagerID, ShouldEqual, "m2")
					So(rows[1].Rank, ShouldEqual, 1)
				})

				Convey("Then standings can be restricted to an edition", func() {
					rows, err := store.Standings(ctx, model.DefaultLeagueID, 10)
					So(err, ShouldBeNil)
					So(rows, ShouldBeEmpty)
				})

				Convey("Then saving again replaces the result", func() {
					save(m1e2, -15)
					rows, _ := store.Standings(ctx, model.DefaultLeagueID, 9)
					So(rows[0].ManagerID, ShouldEqual, "m2")
					So(rows[1].Points, ShouldEqual, 0)
				})

				Convey("Then a manager sees results newest first", func() {
					res, err := store.ListResultsByManager(ctx, model.DefaultLeagueID, "m1")
					So(err, ShouldBeNil)
					So(res, ShouldHaveLength, 2)
					So(res[0].Episode, ShouldResemble, ep2)
					So(res[0].TotalPoints, ShouldEqual, 20)
					So(res[0].Competitors, ShouldResemble, []string{"a", "b", "c", "e"})
					So(res[1].Events, ShouldHaveLength, 2)
				})

				Convey("Then redeploying drops the stale result", func() {
					deploy("m1", ep2, "a", "b", "c", "f")
					res, _ := store.ListResultsByManager(ctx, model.DefaultLeagueID, "m1")
					So(res, ShouldHaveLength, 1)
				})

				Convey("Then a result saved after a racing redeploy lists the scored line-up", func() {
					fresh := deploy("m1", ep2, "a", "b", "c", "f")
					So(fresh.ID, ShouldEqual, m1e2.ID)
					save(m1e2, 20)

					res, err := store.ListResultsByManager(ctx, model.DefaultLeagueID, "m1")
					So(err, ShouldBeNil)
					So(res[0].Episode, ShouldResemble, ep2)
					So(res[0].Competitors, ShouldResemble, []string{"a", "b", "c", "e"})
				})

				Convey("Then a second league keeps its own standings", func() {
					_, err := store.UpsertLeague(ctx, model.League{ID: "zeta", Name: "Zeta", Admins: []string{"m1"}})
					So(err, ShouldBeNil)
					other, err := store.UpsertSquad(ctx, model.Squad{LeagueID: "zeta", ManagerID: "m1", Episode: ep1, Competitors: []string{"d", "e", "f", "g"}})
					So(err, ShouldBeNil)
					So(other.ID, ShouldNotEqual, m1e1.ID)
					save(other, 50)

					byEp, err := store.ListSquads(ctx, ep1)
					So(err, ShouldBeNil)
					So(byEp, ShouldHaveLength, 3)
					So(byEp[2].LeagueID, ShouldEqual, "zeta")

					rows, err := store.Standings(ctx, "zeta", 0)
					So(err, ShouldBeNil)
					So(rows, ShouldHaveLength, 1)
					So(rows[0].Points, ShouldEqual, 50)
					rows, _ = store.Standings(ctx, model.DefaultLeagueID, 0)
					So(rows[0].Points, ShouldEqual, 35)

					res, _ := store.ListResultsByManager(ctx, "zeta", "m1")
					So(res, ShouldHaveLength, 1)
					So(res[0].LeagueID, ShouldEqual, "zeta")
					mine, _ := store.ListSquadsByManager(ctx, "zeta", "m1")
					So(mine, ShouldHaveLength, 1)
				})

				Convey("Then results for unknown squads are rejected", func() {
					err := store.SaveResult(ctx, model.Squad{ID: "ghost", ManagerID: "m9", Episode: ep1}, model.NewScoringResult(nil))
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				})
			})
		})

		Convey("Then the default league exists", func() {
			l, err := store.GetLeague(ctx, model.DefaultLeagueID)
			So(err, ShouldBeNil)
			So(l.Name, ShouldEqual, "Default league")
			So(l.Admins, ShouldBeEmpty)
		})

		Convey("When a league is created", func() {
			l, err := store.UpsertLeague(ctx, model.League{Name: "Kitchen", Admins: []string{"m1"}})
			So(err, ShouldBeNil)
			So(l.ID, ShouldNotBeEmpty)

			Convey("Then leagues are listed by name", func() {
				all, err := store.ListLeagues(ctx)
				So(err, ShouldBeNil)
				So(all, ShouldHaveLength, 2)
				So(all[0].ID, ShouldEqual, model.DefaultLeagueID)
				So(all[1].Admins, ShouldResemble, []string{"m1"})
			})

			Convey("Then an update renames it in place", func() {
				l.Name, l.Admins = "Kitchen II", []string{"m1", "m2"}
				again, err := store.UpsertLeague(ctx, l)
				So(err, ShouldBeNil)
				So(again.ID, ShouldEqual, l.ID)
				got, _ := store.GetLeague(ctx, l.ID)
				So(got.Name, ShouldEqual, "Kitchen II")
				So(got.Admins, ShouldHaveLength, 2)
			})

			Convey("Then rosters are kept per league and manager", func() {
				b, err := store.UpsertBrigade(ctx, model.Brigade{LeagueID: l.ID, ManagerID: "m1", Competitors: []string{"a", "b"}})
				So(err, ShouldBeNil)
				So(b.ID, ShouldNotBeEmpty)
				again, err := store.UpsertBrigade(ctx, model.Brigade{LeagueID: l.ID, ManagerID: "m1", Competitors: []string{"c"}})
				So(err, ShouldBeNil)
				So(again.ID, ShouldEqual, b.ID)
				_, err = store.UpsertBrigade(ctx, model.Brigade{ManagerID: "m1", Competitors: []string{"a"}})
				So(err, ShouldBeNil)

				got, err := store.GetBrigade(ctx, l.ID, "m1")
				So(err, ShouldBeNil)
				So(got.Competitors, ShouldResemble, []string{"c"})
				list, err := store.ListBrigades(ctx, l.ID)
				So(err, ShouldBeNil)
				So(list, ShouldHaveLength, 1)
				list, _ = store.ListBrigades(ctx, "")
				So(list, ShouldHaveLength, 1)
				So(list[0].LeagueID, ShouldEqual, model.DefaultLeagueID)

				_, err = store.GetBrigade(ctx, l.ID, "m2")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Then invalid leagues and rosters are rejected", func() {
				_, err := store.UpsertLeague(ctx, model.League{Name: "No admins"})
				So(errors.Is(err, repository.ErrInvalidLeague), ShouldBeTrue)
				_, err = store.UpsertLeague(ctx, model.League{Admins: []string{"m1"}})
				So(errors.Is(err, repository.ErrInvalidLeague), ShouldBeTrue)
				_, err = store.UpsertBrigade(ctx, model.Brigade{LeagueID: l.ID, ManagerID: "m1"})
				So(errors.Is(err, repository.ErrInvalidBrigade), ShouldBeTrue)
				_, err = store.UpsertBrigade(ctx, model.Brigade{LeagueID: l.ID, ManagerID: "m1", Competitors: []string{"a", "a"}})
				So(errors.Is(err, repository.ErrInvalidBrigade), ShouldBeTrue)
				_, err = store.UpsertBrigade(ctx, model.Brigade{LeagueID: "ghost", ManagerID: "m1", Competitors: []string{"a"}})
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = store.GetLeague(ctx, "ghost")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When many goroutines flag the same competitor", func() {
			c, err := store.UpsertCompetitor(ctx, competitor("Dario", "Verdi"))
			So(err, ShouldBeNil)
			var flipped atomic.Int64
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if changed, err := store.SetEliminated(ctx, c.ID, model.EpisodeKey{Edition: 9, Number: 3}); err == nil && changed {
						flipped.Add(1)
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one of them reports the change", func() {
				So(flipped.Load(), ShouldEqual, 1)
			})
		})
	})
}

func TestOpen(t *testing.T) {
	Convey("Given storage kinds", t, func() {
		ctx := context.Background()

		Convey("Then memory needs no path", func() {
			s, err := repository.Open(ctx, repository.KindMemory, "")
			So(err, ShouldBeNil)
			So(s.Close(), ShouldBeNil)
		})

		Convey("Then sqlite creates the file", func() {
			s, err := repository.Open(ctx, repository.KindSQLite, filepath.Join(t.TempDir(), "x.db"))
			So(err, ShouldBeNil)
			So(s.Close(), ShouldBeNil)
		})

		Convey("Then unknown kinds are rejected", func() {
			_, err := repository.Open(ctx, "postgres", "")
			So(errors.Is(err, repository.ErrUnknownStorage), ShouldBeTrue)
		})
	})
}

func TestCustomOptions(t *testing.T) {
	Convey("Given a store with a fixed clock and id generator", t, func() {
		fixed := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
		n := 0
		store := repository.NewMemoryStore(
			repository.WithClock(func() time.Time { return fixed }),
			repository.WithIDGenerator(func() (string, error) { n++; return "id-" + string(rune('0'+n)), nil }),
			repository.WithLogger(logger.Get()),
		)

		c, err := store.UpsertCompetitor(context.Background(), competitor("Elia", "Neri"))
		So(err, ShouldBeNil)
		So(c.ID, ShouldEqual, "id-1")
		So(c.CreatedAt, ShouldEqual, fixed)

		Convey("Then a failing generator surfaces the error", func() {
			broken := repository.NewMemoryStore(repository.WithIDGenerator(func() (string, error) { return "", errors.New("entropy") }))
			_, err := broken.UpsertCompetitor(context.Background(), competitor("Elia", "Neri"))
			So(err, ShouldNotBeNil)
		})
	})
}
