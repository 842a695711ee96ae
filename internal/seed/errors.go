package seed

import (
	"errors"
	"fmt"
)

// Sentinel kinds for seeding errors.
var (
	ErrFixture  = errors.New("invalid fixture")
	ErrMismatch = errors.New("leaderboard mismatch")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.Status, e.Code, e.Message)
}
