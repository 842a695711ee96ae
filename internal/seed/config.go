// Package seed loads a league fixture into a running server through its
// HTTP API and checks the resulting leaderboard.
package seed

import "time"

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL string        // Base URL of the service
	Timeout time.Duration // HTTP request timeout
	Workers int           // Concurrent requests while creating competitors
	Verify  bool          // Compare the leaderboard with the fixture's expectations
}

// Summary holds run statistics.
type Summary struct {
	League      string
	Brigades    int
	Competitors int
	Episodes    int
	Deployments int
	Recomputes  int
	Flagged     []string
	Standings   []Standing
	StartTime   time.Time
	Duration    time.Duration
}

// Standing mirrors a leaderboard row.
type Standing struct {
	Rank      int    `json:"rank"`
	ManagerID string `json:"managerId"`
	Points    int    `json:"points"`
	Episodes  int    `json:"episodes"`
}
