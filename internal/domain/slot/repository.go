package slot

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, s *Slot) error
	GetByID(ctx context.Context, id uuid.UUID) (*Slot, error)

	// Claim atomically flips is_booked from false to true, but only while
	// the slot is active. Exactly one of any set of concurrent claims on a
	// slot succeeds; the rest get ErrSlotUnavailable. This is the single
	// serialization point preventing double booking.
	Claim(ctx context.Context, id uuid.UUID) (*Slot, error)

	// Release clears is_booked. Used on cancellation and on the old slot
	// of a reschedule.
	Release(ctx context.Context, id uuid.UUID) error

	ListByBlock(ctx context.Context, blockID uuid.UUID) ([]*Slot, error)

	// HasOverlapInBlock reports whether a generated slot in the block
	// intersects [start, end). Drives idempotent granular expansion.
	HasOverlapInBlock(ctx context.Context, blockID uuid.UUID, start, end time.Time) (bool, error)

	// AnyBooked reports whether the block has at least one booked slot.
	AnyBooked(ctx context.Context, blockID uuid.UUID) (bool, error)

	// DeleteUnbooked removes the block's unbooked slots (post/reset/cleanup).
	DeleteUnbooked(ctx context.Context, blockID uuid.UUID) error

	// ListAvailable returns unbooked active slots for a provider/service,
	// ordered by start time.
	ListAvailable(ctx context.Context, providerID, serviceID uuid.UUID) ([]*Slot, error)

	// HasAvailable reports whether the provider has any unbooked active slot.
	HasAvailable(ctx context.Context, providerID uuid.UUID) (bool, error)

	// ArchiveExpired deactivates every active slot whose window ended
	// before cutoff, regardless of booking status. Returns rows affected.
	ArchiveExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
