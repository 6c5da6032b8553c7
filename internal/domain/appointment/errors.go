package appointment

import "errors"

var (
	ErrAppointmentNotFound = errors.New("appointment not found")

	// Validation
	ErrMissingProvider = errors.New("a provider must be assigned before scheduling")

	// State machine
	ErrNotDraft            = errors.New("only draft appointments can be confirmed")
	ErrInvalidTransition   = errors.New("invalid appointment state transition")
	ErrTerminalState       = errors.New("completed appointments cannot be cancelled")
	ErrActiveVisitConflict = errors.New("patient already has an active visit")

	// Reschedule
	ErrAppointmentRequired = errors.New("an appointment must be selected to reschedule")
	ErrSlotAlreadyBooked   = errors.New("the new time slot is already booked")

	// ErrStale signals a lost compare-and-set race on a concurrent
	// transition of the same appointment.
	ErrStale = errors.New("appointment was modified concurrently")
)
