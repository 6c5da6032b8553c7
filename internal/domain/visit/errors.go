package visit

import "errors"

var (
	ErrVisitNotFound      = errors.New("visit not found")
	ErrActiveVisitExists  = errors.New("patient already has an active visit")
	ErrVisitNotActive     = errors.New("visit is not active")
	ErrVisitHasEncounters = errors.New("cannot delete visit with linked encounters")

	// ErrNoActiveVisit is a hard error: clinical records that generate
	// encounters require an active visit for the patient.
	ErrNoActiveVisit = errors.New("no active visit found for the patient")

	ErrInvalidVisitType = errors.New("invalid visit type")
)
