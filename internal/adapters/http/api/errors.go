package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// Error codes returned in the code field of error bodies.
const (
	CodeGeneric               = "FME00000"
	CodeNotFound              = "FME00001"
	CodeNameRequired          = "FME00002"
	CodeLastNameRequired      = "FME00003"
	CodeEditionNumberRequired = "FME00004"
	CodeNumberRequired        = "FME00005"
	CodeParticipantsRequired  = "FME00006"
	CodeParticipantsNumber    = "FME00007"
	CodeAdminsRequired        = "FME00008"
	CodeEpisodeIDRequired     = "FME10001"
	CodeIsOutsideRequired     = "FME10002"
	CodeManagerIDRequired     = "FME50001"
	MessageDeleted            = "FMI00000"
)

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

func badRequest(op, msg string) error {
	return fmt.Errorf("%s: %w: %s", op, ErrBadRequest, msg)
}
