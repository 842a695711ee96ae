package model

import "time"

// DefaultLeagueID names the league squads join when none is given.
const DefaultLeagueID = "default"

// League is a group of managers competing on their own leaderboard.
// Admins are recorded for the identity layer in front of the API.
type League struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Admins    []string  `json:"admins"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LeagueOrDefault maps an empty league id to DefaultLeagueID.
func LeagueOrDefault(id string) string {
	if id == "" {
		return DefaultLeagueID
	}
	return id
}

// Brigade is a manager's season roster within a league: the competitors the
// manager follows, independent of any single episode's deployment.
type Brigade struct {
	ID          string    `json:"id"`
	LeagueID    string    `json:"leagueId"`
	ManagerID   string    `json:"managerId"`
	Competitors []string  `json:"participants"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
