package slotblock

import "errors"

var (
	ErrBlockNotFound      = errors.New("slot block not found")
	ErrPastDate           = errors.New("block date must be today or a future date")
	ErrInvalidInterval    = errors.New("block start must be before block end")
	ErrBlockOverlap       = errors.New("block overlaps another non-draft block for the same provider")
	ErrServiceNotOffered  = errors.New("provider does not offer this service")
	ErrInvalidDuration    = errors.New("slot duration must be between 5 and 240 minutes")
	ErrLinkedAppointments = errors.New("block has slots referenced by appointments")
	ErrBookedChildren     = errors.New("block has booked slots and cannot be deleted")
)
