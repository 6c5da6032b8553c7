package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/curaflow/curaflow/internal/domain/slot"
)

type SlotRepository struct {
	db *gorm.DB
}

func NewSlotRepository(db *gorm.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

func (r *SlotRepository) Create(ctx context.Context, s *slot.Slot) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("creating slot: %w", err)
	}
	return nil
}

func (r *SlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*slot.Slot, error) {
	var s slot.Slot
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, slot.ErrSlotNotFound
		}
		return nil, fmt.Errorf("fetching slot: %w", err)
	}
	return &s, nil
}

// Claim is the double-booking guard: the guarded UPDATE flips is_booked
// only when the slot is still free and active, and RowsAffected tells us
// whether this caller won.
func (r *SlotRepository) Claim(ctx context.Context, id uuid.UUID) (*slot.Slot, error) {
	res := r.db.WithContext(ctx).
		Model(&slot.Slot{}).
		Where("id = ? AND is_booked = false AND active = true", id).
		Update("is_booked", true)
	if res.Error != nil {
		return nil, fmt.Errorf("claiming slot: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Distinguish a lost race from a dangling reference.
		var exists int64
		if err := r.db.WithContext(ctx).Model(&slot.Slot{}).Where("id = ?", id).Count(&exists).Error; err != nil {
			return nil, fmt.Errorf("claiming slot: %w", err)
		}
		if exists == 0 {
			return nil, slot.ErrSlotNotFound
		}
		return nil, slot.ErrSlotUnavailable
	}
	return r.GetByID(ctx, id)
}

func (r *SlotRepository) Release(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&slot.Slot{}).
		Where("id = ? AND is_booked = true", id).
		Update("is_booked", false)
	if res.Error != nil {
		return fmt.Errorf("releasing slot: %w", res.Error)
	}
	// Already-free slots are fine; release is idempotent.
	return nil
}

func (r *SlotRepository) ListByBlock(ctx context.Context, blockID uuid.UUID) ([]*slot.Slot, error) {
	var slots []*slot.Slot
	err := r.db.WithContext(ctx).
		Where("block_id = ?", blockID).
		Order("start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, fmt.Errorf("listing block slots: %w", err)
	}
	return slots, nil
}

func (r *SlotRepository) HasOverlapInBlock(ctx context.Context, blockID uuid.UUID, start, end time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&slot.Slot{}).
		Where("block_id = ? AND start_time < ? AND end_time > ?", blockID, end, start).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking slot overlap: %w", err)
	}
	return count > 0, nil
}

func (r *SlotRepository) AnyBooked(ctx context.Context, blockID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&slot.Slot{}).
		Where("block_id = ? AND is_booked = true", blockID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking booked slots: %w", err)
	}
	return count > 0, nil
}

func (r *SlotRepository) DeleteUnbooked(ctx context.Context, blockID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("block_id = ? AND is_booked = false", blockID).
		Delete(&slot.Slot{}).Error
	if err != nil {
		return fmt.Errorf("deleting unbooked slots: %w", err)
	}
	return nil
}

func (r *SlotRepository) ListAvailable(ctx context.Context, providerID, serviceID uuid.UUID) ([]*slot.Slot, error) {
	var slots []*slot.Slot
	err := r.db.WithContext(ctx).
		Where("provider_id = ? AND service_id = ? AND is_booked = false AND active = true", providerID, serviceID).
		Order("start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, fmt.Errorf("listing available slots: %w", err)
	}
	return slots, nil
}

func (r *SlotRepository) HasAvailable(ctx context.Context, providerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&slot.Slot{}).
		Where("provider_id = ? AND is_booked = false AND active = true", providerID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking provider availability: %w", err)
	}
	return count > 0, nil
}

func (r *SlotRepository) ArchiveExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&slot.Slot{}).
		Where("active = true AND end_time < ?", cutoff).
		Update("active", false)
	if res.Error != nil {
		return 0, fmt.Errorf("archiving expired slots: %w", res.Error)
	}
	return res.RowsAffected, nil
}
