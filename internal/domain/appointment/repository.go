package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Update persists the full row unconditionally. Use TransitionFrom for
	// anything racing with another transition.
	Update(ctx context.Context, a *Appointment) error

	// TransitionFrom persists a's current fields with a compare-and-set on
	// the previous (state, status) pair, serializing concurrent transitions
	// per appointment. Returns ErrStale when the guard no longer matches.
	TransitionFrom(ctx context.Context, a *Appointment, prevState State, prevStatus Status) error

	// ListConfirmedByPatient returns the patient's confirmed appointments,
	// newest start first.
	ListConfirmedByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error)

	// AnyForBlock reports whether any appointment references a slot
	// belonging to the block. Guards block post/reset.
	AnyForBlock(ctx context.Context, blockID uuid.UUID) (bool, error)

	// FindOverdueScheduled returns scheduled appointments whose start time
	// is strictly before now. Reaper input.
	FindOverdueScheduled(ctx context.Context, now time.Time) ([]*Appointment, error)
}
