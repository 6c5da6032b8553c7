package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/curaflow/curaflow/internal/domain/visit"
)

type VisitRepository struct {
	db *gorm.DB
}

func NewVisitRepository(db *gorm.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

func (r *VisitRepository) Create(ctx context.Context, v *visit.Visit) error {
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		return fmt.Errorf("creating visit: %w", err)
	}
	return nil
}

func (r *VisitRepository) GetByID(ctx context.Context, id uuid.UUID) (*visit.Visit, error) {
	var v visit.Visit
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, visit.ErrVisitNotFound
		}
		return nil, fmt.Errorf("fetching visit: %w", err)
	}
	return &v, nil
}

func (r *VisitRepository) Update(ctx context.Context, v *visit.Visit) error {
	res := r.db.WithContext(ctx).
		Model(&visit.Visit{}).
		Where("id = ? AND deleted_at IS NULL", v.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(v)
	if res.Error != nil {
		return fmt.Errorf("updating visit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return visit.ErrVisitNotFound
	}
	return nil
}

func (r *VisitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&visit.Visit{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{"deleted_at": time.Now().UTC(), "active": false})
	if res.Error != nil {
		return fmt.Errorf("deleting visit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return visit.ErrVisitNotFound
	}
	return nil
}

func (r *VisitRepository) GetActiveByPatient(ctx context.Context, patientID uuid.UUID) (*visit.Visit, error) {
	var v visit.Visit
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND state = ? AND deleted_at IS NULL", patientID, visit.StateActive).
		First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, visit.ErrVisitNotFound
		}
		return nil, fmt.Errorf("fetching active visit: %w", err)
	}
	return &v, nil
}

func (r *VisitRepository) HasActiveByPatient(ctx context.Context, patientID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&visit.Visit{}).
		Where("patient_id = ? AND state = ? AND deleted_at IS NULL", patientID, visit.StateActive).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking active visit: %w", err)
	}
	return count > 0, nil
}

func (r *VisitRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*visit.Visit, error) {
	var v visit.Visit
	err := r.db.WithContext(ctx).
		Where("appointment_id = ? AND deleted_at IS NULL", appointmentID).
		Order("created_at DESC").
		First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, visit.ErrVisitNotFound
		}
		return nil, fmt.Errorf("fetching visit by appointment: %w", err)
	}
	return &v, nil
}

func (r *VisitRepository) CountEncounters(ctx context.Context, visitID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&visit.Encounter{}).
		Where("visit_id = ?", visitID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting encounters: %w", err)
	}
	return count, nil
}

func (r *VisitRepository) CreateEncounter(ctx context.Context, e *visit.Encounter) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("creating encounter: %w", err)
	}
	return nil
}

func (r *VisitRepository) ListEncounters(ctx context.Context, visitID uuid.UUID) ([]*visit.Encounter, error) {
	var encs []*visit.Encounter
	err := r.db.WithContext(ctx).
		Where("visit_id = ?", visitID).
		Order("started_at ASC").
		Find(&encs).Error
	if err != nil {
		return nil, fmt.Errorf("listing encounters: %w", err)
	}
	return encs, nil
}

func (r *VisitRepository) CreateNote(ctx context.Context, n *visit.VisitNote) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("creating visit note: %w", err)
	}
	return nil
}

func (r *VisitRepository) ListNotes(ctx context.Context, visitID uuid.UUID) ([]*visit.VisitNote, error) {
	var notes []*visit.VisitNote
	err := r.db.WithContext(ctx).
		Where("visit_id = ? AND active = true", visitID).
		Order("created_at ASC").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("listing visit notes: %w", err)
	}
	return notes, nil
}
