// Package model contains domain models passed between layers.
package model

import "time"

// Competitor is a contestant of one edition of the show.
// Eliminated is monotonic: once true it is never reset by scoring.
type Competitor struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	LastName      string      `json:"lastName"`
	EditionNumber int         `json:"editionNumber"`
	Description   string      `json:"description,omitempty"`
	ImageName     string      `json:"imgName,omitempty"`
	Eliminated    bool        `json:"eliminated"`
	EliminatedIn  *EpisodeKey `json:"eliminatedIn,omitempty"` // episode that flipped the flag, nil for admin edits
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// EliminatedBefore reports whether the competitor was already out when the
// given episode aired.
func (c Competitor) EliminatedBefore(key EpisodeKey) bool {
	if !c.Eliminated {
		return false
	}
	if c.EliminatedIn == nil {
		return true
	}
	return c.EliminatedIn.Before(key)
}
