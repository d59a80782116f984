package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyYear is returned when a year's fused series holds no days.
	ErrEmptyYear = errors.New("year has no fused observations")

	// ErrNoYears is returned when every requested year was skipped.
	ErrNoYears = errors.New("no year produced a summary")

	// ErrYearOrder is returned when summaries are folded out of ascending year order.
	ErrYearOrder = errors.New("years must be accumulated in ascending order")
)

// GridMismatchError reports rasters with incompatible geometry.
type GridMismatchError struct {
	Op   string
	Want Grid
	Got  Grid
}

func (e *GridMismatchError) Error() string {
	return fmt.Sprintf("%s: grid mismatch: want %s, got %s", e.Op, e.Want, e.Got)
}

// IsGridMismatch reports whether err wraps a *GridMismatchError.
func IsGridMismatch(err error) bool {
	var gm *GridMismatchError
	return errors.As(err, &gm)
}
