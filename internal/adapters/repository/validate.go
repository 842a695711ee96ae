package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/fantabrigade/internal/domain/model"
	"github.com/okian/fantabrigade/pkg/metrics"
)

const defaultLeagueName = "Default league"

func validateCompetitor(c model.Competitor) error {
	switch {
	case strings.TrimSpace(c.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidCompetitor)
	case strings.TrimSpace(c.LastName) == "":
		return fmt.Errorf("%w: last name is required", ErrInvalidCompetitor)
	case c.EditionNumber <= 0:
		return fmt.Errorf("%w: edition number is required", ErrInvalidCompetitor)
	}
	return nil
}

func validateEpisodeKey(key model.EpisodeKey) error {
	if key.Edition <= 0 || key.Number <= 0 {
		return fmt.Errorf("%w: edition and number must be positive", ErrInvalidEpisode)
	}
	return nil
}

func validateSquad(s model.Squad) error {
	if strings.TrimSpace(s.ManagerID) == "" {
		return fmt.Errorf("%w: manager id is required", ErrInvalidSquad)
	}
	if len(s.Competitors) != model.SquadSize || len(s.Members()) != model.SquadSize {
		return fmt.Errorf("%w: exactly %d distinct participants are required", ErrInvalidSquad, model.SquadSize)
	}
	for _, id := range s.Competitors {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: empty participant id", ErrInvalidSquad)
		}
	}
	return validateEpisodeKey(s.Episode)
}

func validateLeague(l model.League) error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLeague)
	}
	if len(l.Admins) == 0 {
		return fmt.Errorf("%w: at least one admin is required", ErrInvalidLeague)
	}
	for _, id := range l.Admins {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: empty admin id", ErrInvalidLeague)
		}
	}
	return nil
}

func validateBrigade(b model.Brigade) error {
	if strings.TrimSpace(b.ManagerID) == "" {
		return fmt.Errorf("%w: manager id is required", ErrInvalidBrigade)
	}
	if len(b.Competitors) == 0 {
		return fmt.Errorf("%w: participants are required", ErrInvalidBrigade)
	}
	seen := make(map[string]struct{}, len(b.Competitors))
	for _, id := range b.Competitors {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: empty participant id", ErrInvalidBrigade)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: participant %s listed twice", ErrInvalidBrigade, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// observe records a store call; use as defer observe("op", time.Now(), &err).
func observe(op string, start time.Time, err *error) {
	metrics.RecordStoreOperation(op, float64(time.Since(start).Microseconds())/1000, *err)
}

func eliminatedIn(c model.Competitor) *model.EpisodeKey {
	if !c.Eliminated {
		return nil
	}
	return c.EliminatedIn
}
