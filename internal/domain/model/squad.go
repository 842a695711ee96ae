package model

import "time"

// SquadSize is the number of competitors a manager deploys per episode.
const SquadSize = 4

// Squad is a manager's deployment for one episode within a league.
type Squad struct {
	ID          string     `json:"id"`
	LeagueID    string     `json:"leagueId"`
	ManagerID   string     `json:"managerId"`
	Episode     EpisodeKey `json:"episode"`
	Competitors []string   `json:"participants"`
	UpdatedAt   time.Time  `json:"date"`
}

// Members returns the squad's competitor ids without duplicates, keeping
// their deployment order.
func (s Squad) Members() []string {
	seen := make(map[string]struct{}, len(s.Competitors))
	out := make([]string, 0, len(s.Competitors))
	for _, id := range s.Competitors {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// RecomputeJob asks the workers to rescore every squad of an episode.
type RecomputeJob struct {
	Episode     EpisodeKey
	RequestedAt time.Time
}

// DedupeKey identifies pending jobs that can be coalesced.
func (j RecomputeJob) DedupeKey() string {
	return "recompute:" + j.Episode.String()
}
