package elimination

import "errors"

// Sentinel kinds for elimination errors.
var (
	ErrFlagUpdate = errors.New("elimination flag update failed")
)
