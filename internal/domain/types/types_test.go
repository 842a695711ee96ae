package types_test

import (
	"testing"

	"github.com/okian/fantabrigade/internal/domain/model"
	types "github.com/okian/fantabrigade/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRankStandings(t *testing.T) {
	Convey("Given unsorted standings with a tie", t, func() {
		rows := []types.Standing{
			{ManagerID: "m3", Points: 10},
			{ManagerID: "m2", Points: 45},
			{ManagerID: "m1", Points: 45},
			{ManagerID: "m4", Points: -5},
		}

		Convey("When ranked", func() {
			ranked := types.RankStandings(rows)

			Convey("Then points order first and manager id breaks ties", func() {
				ids := []string{}
				for _, r := range ranked {
					ids = append(ids, r.ManagerID)
				}
				So(ids, ShouldResemble, []string{"m1", "m2", "m3", "m4"})
			})

			Convey("Then tied managers share a rank and the next one skips", func() {
				So(ranked[0].Rank, ShouldEqual, 1)
				So(ranked[1].Rank, ShouldEqual, 1)
				So(ranked[2].Rank, ShouldEqual, 3)
				So(ranked[3].Rank, ShouldEqual, 4)
			})
		})
	})

	Convey("Given no standings", t, func() {
		So(types.RankStandings(nil), ShouldBeEmpty)
	})
}

func TestNewManagerResults(t *testing.T) {
	Convey("Given a manager's episode results", t, func() {
		res := types.NewManagerResults("m1", []types.EpisodeResult{
			{TotalPoints: 45},
			{TotalPoints: -5},
		})

		Convey("Then the total sums every episode", func() {
			So(res.ManagerID, ShouldEqual, "m1")
			So(res.TotalPoints, ShouldEqual, 40)
			So(res.Episodes, ShouldHaveLength, 2)
		})
	})

	Convey("Given no results", t, func() {
		res := types.NewManagerResults("m2", nil)
		So(res.Episodes, ShouldNotBeNil)
		So(res.TotalPoints, ShouldEqual, 0)
	})
}

func TestNewBrigadeView(t *testing.T) {
	Convey("Given a roster with one competitor deleted since", t, func() {
		b := model.Brigade{LeagueID: "l1", ManagerID: "m1", Competitors: []string{"c2", "gone", "c1"}}
		competitors := map[string]model.Competitor{
			"c1": {ID: "c1", Name: "Anna"},
			"c2": {ID: "c2", Name: "Bruno"},
		}
		results := []types.EpisodeResult{{TotalPoints: 30}, {TotalPoints: -15}}

		Convey("When the view is built", func() {
			v := types.NewBrigadeView(b, competitors, results)

			Convey("Then resolvable competitors keep roster order", func() {
				So(v.Roster, ShouldHaveLength, 2)
				So(v.Roster[0].Name, ShouldEqual, "Bruno")
				So(v.Roster[1].Name, ShouldEqual, "Anna")
			})

			Convey("Then results are totalled", func() {
				So(v.TotalPoints, ShouldEqual, 15)
				So(v.Results, ShouldHaveLength, 2)
				So(v.ManagerID, ShouldEqual, "m1")
			})
		})

		Convey("When the manager has no results yet", func() {
			v := types.NewBrigadeView(b, competitors, nil)
			So(v.Results, ShouldNotBeNil)
			So(v.TotalPoints, ShouldEqual, 0)
		})
	})
}
