package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/curaflow/curaflow/internal/domain"
)

type ChangeLogRepository struct {
	db *gorm.DB
}

func NewChangeLogRepository(db *gorm.DB) *ChangeLogRepository {
	return &ChangeLogRepository{db: db}
}

func (r *ChangeLogRepository) Create(ctx context.Context, entry *domain.ChangeLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("creating change log entry: %w", err)
	}
	return nil
}
