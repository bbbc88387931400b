package repository

import "errors"

var (
	// ErrConflict means an optimistic conditional update found the row in
	// a different state than expected. The caller discards the attempt;
	// the record is picked up again on the next run.
	ErrConflict = errors.New("conditional update conflict")

	// ErrRunActive means another job already holds the run lease for the
	// tenant.
	ErrRunActive = errors.New("a reconciliation run is already active for this tenant")
)
