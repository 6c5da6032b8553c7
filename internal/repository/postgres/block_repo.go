// Package postgres holds the gorm-backed implementations of the domain
// repository interfaces. All cross-row races are resolved here with
// guarded single-statement updates rather than transactions.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/curaflow/curaflow/internal/domain/slotblock"
)

type BlockRepository struct {
	db *gorm.DB
}

func NewBlockRepository(db *gorm.DB) *BlockRepository {
	return &BlockRepository{db: db}
}

func (r *BlockRepository) Create(ctx context.Context, b *slotblock.SlotBlock) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("creating slot block: %w", err)
	}
	return nil
}

func (r *BlockRepository) GetByID(ctx context.Context, id uuid.UUID) (*slotblock.SlotBlock, error) {
	var b slotblock.SlotBlock
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, slotblock.ErrBlockNotFound
		}
		return nil, fmt.Errorf("fetching slot block: %w", err)
	}
	return &b, nil
}

func (r *BlockRepository) UpdateStatus(ctx context.Context, b *slotblock.SlotBlock) error {
	res := r.db.WithContext(ctx).
		Model(&slotblock.SlotBlock{}).
		Where("id = ? AND deleted_at IS NULL", b.ID).
		Update("status", b.Status)
	if res.Error != nil {
		return fmt.Errorf("updating block status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return slotblock.ErrBlockNotFound
	}
	return nil
}

// HasOverlap compares against other non-draft blocks for the provider.
// Intervals are half-open, so back-to-back blocks do not collide.
func (r *BlockRepository) HasOverlap(ctx context.Context, providerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&slotblock.SlotBlock{}).
		Where("provider_id = ? AND status <> ? AND active = true AND deleted_at IS NULL", providerID, slotblock.StatusDraft).
		Where("(date + start_minute * interval '1 minute') < ? AND (date + end_minute * interval '1 minute') > ?", end, start)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking block overlap: %w", err)
	}
	return count > 0, nil
}

func (r *BlockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&slotblock.SlotBlock{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{"deleted_at": time.Now().UTC(), "active": false})
	if res.Error != nil {
		return fmt.Errorf("deleting slot block: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return slotblock.ErrBlockNotFound
	}
	return nil
}
