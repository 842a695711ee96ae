package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidCompetitor = errors.New("invalid competitor")
	ErrInvalidEpisode    = errors.New("invalid episode")
	ErrInvalidSquad      = errors.New("invalid squad")
	ErrInvalidLeague     = errors.New("invalid league")
	ErrInvalidBrigade    = errors.New("invalid brigade")
	ErrUnknownStorage    = errors.New("unknown storage kind")
)
