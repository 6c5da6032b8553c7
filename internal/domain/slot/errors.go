package slot

import "errors"

var (
	ErrSlotNotFound = errors.New("slot not found")

	// ErrSlotUnavailable is the routine contention outcome: the slot was
	// booked, archived or claimed by a concurrent request.
	ErrSlotUnavailable = errors.New("slot not available")
)
