// Package types contains the read models served by the API.
package types

import (
	"sort"
	"time"

	"github.com/okian/fantabrigade/internal/domain/model"
)

// ScheduleStatus tells what happened to a recompute request.
type ScheduleStatus string

// Schedule outcomes.
const (
	Scheduled ScheduleStatus = "scheduled"
	Coalesced ScheduleStatus = "coalesced"
)

// Standing is one manager's row on the leaderboard.
type Standing struct {
	Rank      int    `json:"rank"`
	ManagerID string `json:"managerId"`
	Points    int    `json:"points"`
	Episodes  int    `json:"episodes"`
}

// EpisodeResult is a persisted squad result as returned to its manager.
type EpisodeResult struct {
	SquadID     string             `json:"squadId"`
	LeagueID    string             `json:"leagueId"`
	ManagerID   string             `json:"managerId"`
	Episode     model.EpisodeKey   `json:"episode"`
	Competitors []string           `json:"participants"`
	TotalPoints int                `json:"totalPoints"`
	Events      []model.ScoreEvent `json:"events"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// ManagerResults is a manager's scored history with the running total.
type ManagerResults struct {
	ManagerID   string          `json:"managerId"`
	TotalPoints int             `json:"totalPoints"`
	Episodes    []EpisodeResult `json:"episodes"`
}

// NewManagerResults totals results for managerID.
func NewManagerResults(managerID string, results []EpisodeResult) ManagerResults {
	out := ManagerResults{ManagerID: managerID, Episodes: results}
	if out.Episodes == nil {
		out.Episodes = []EpisodeResult{}
	}
	for _, r := range out.Episodes {
		out.TotalPoints += r.TotalPoints
	}
	return out
}

// BrigadeView is a manager's roster in a league with the competitors
// resolved and the manager's scored history in that league.
type BrigadeView struct {
	model.Brigade
	Roster      []model.Competitor `json:"roster"`
	Results     []EpisodeResult    `json:"results"`
	TotalPoints int                `json:"totalPoints"`
}

// NewBrigadeView assembles the view. Roster ids that do not resolve in
// competitors are left out.
func NewBrigadeView(b model.Brigade, competitors map[string]model.Competitor, results []EpisodeResult) BrigadeView {
	v := BrigadeView{Brigade: b, Roster: []model.Competitor{}}
	for _, id := range b.Competitors {
		if c, ok := competitors[id]; ok {
			v.Roster = append(v.Roster, c)
		}
	}
	totals := NewManagerResults(b.ManagerID, results)
	v.Results, v.TotalPoints = totals.Episodes, totals.TotalPoints
	return v
}

// RankStandings orders rows by points descending, then manager id, and
// assigns competition ranks: tied managers share a rank and the next rank
// skips accordingly (1, 1, 3).
func RankStandings(rows []Standing) []Standing {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].ManagerID < rows[j].ManagerID
	})
	for i := range rows {
		if i > 0 && rows[i].Points == rows[i-1].Points {
			rows[i].Rank = rows[i-1].Rank
			continue
		}
		rows[i].Rank = i + 1
	}
	return rows
}
