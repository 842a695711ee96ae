package recompute

import "errors"

// Sentinel kinds for recompute errors.
var (
	ErrLoad         = errors.New("recompute load failed")
	ErrBackpressure = errors.New("recompute queue saturated")
)
