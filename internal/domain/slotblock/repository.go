package slotblock

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, b *SlotBlock) error
	GetByID(ctx context.Context, id uuid.UUID) (*SlotBlock, error)

	// UpdateStatus persists the block's status.
	UpdateStatus(ctx context.Context, b *SlotBlock) error

	// HasOverlap checks whether another non-draft block for the provider
	// intersects [start, end).
	HasOverlap(ctx context.Context, providerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)

	Delete(ctx context.Context, id uuid.UUID) error
}
