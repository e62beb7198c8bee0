package recur

import (
	"errors"
	"time"
)

// Budget bounds one Expand or NextOccurrence call. Zero fields take the
// value from DefaultBudget.
type Budget struct {
	// MaxCycles caps the number of cycles evaluated.
	MaxCycles int
	// MaxEmptyCycles caps consecutive cycles that yield no candidate.
	MaxEmptyCycles int
	// Deadline caps wall-clock time spent in the call.
	Deadline time.Duration
}

// DefaultBudget is generous enough for any satisfiable rule over a
// multi-century window while still stopping rules that can never match.
var DefaultBudget = Budget{
	MaxCycles:      5_000_000,
	MaxEmptyCycles: 10_000,
	Deadline:       5 * time.Second,
}

func (b Budget) withDefaults() Budget {
	if b.MaxCycles <= 0 {
		b.MaxCycles = DefaultBudget.MaxCycles
	}
	if b.MaxEmptyCycles <= 0 {
		b.MaxEmptyCycles = DefaultBudget.MaxEmptyCycles
	}
	if b.Deadline <= 0 {
		b.Deadline = DefaultBudget.Deadline
	}
	return b
}

var (
	errCycleBudget = errors.New("cycle budget exhausted")
	errEmptyBudget = errors.New("no candidate within empty-cycle budget")
)

// maxYear stops expansion where DATE text can no longer be written.
const maxYear = 9999
