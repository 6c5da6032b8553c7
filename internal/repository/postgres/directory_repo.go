package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/curaflow/curaflow/internal/domain/directory"
	"github.com/curaflow/curaflow/internal/domain/visit"
)

// PatientRepository serves the narrow patient surface the booking engine
// needs. HasActiveVisit reads the visits table directly so the booking
// engine and the visit tracker agree on the single-active-visit rule.
type PatientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

func (r *PatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*directory.Patient, error) {
	var p directory.Patient
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, directory.ErrPatientNotFound
		}
		return nil, fmt.Errorf("fetching patient: %w", err)
	}
	return &p, nil
}

func (r *PatientRepository) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&directory.Patient{}).
		Where("id = ? AND is_active = true AND deleted_at IS NULL", id).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking patient: %w", err)
	}
	return count > 0, nil
}

func (r *PatientRepository) HasActiveVisit(ctx context.Context, patientID uuid.UUID) (bool, error) {
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

type ProviderRepository struct {
	db *gorm.DB
}

func NewProviderRepository(db *gorm.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

func (r *ProviderRepository) GetByID(ctx context.Context, id uuid.UUID) (*directory.Provider, error) {
	var p directory.Provider
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, directory.ErrProviderNotFound
		}
		return nil, fmt.Errorf("fetching provider: %w", err)
	}
	return &p, nil
}

func (r *ProviderRepository) OffersService(ctx context.Context, providerID, serviceID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&directory.ProviderService{}).
		Where("provider_id = ? AND service_id = ?", providerID, serviceID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking provider service: %w", err)
	}
	return count > 0, nil
}

func (r *ProviderRepository) ServiceByID(ctx context.Context, id uuid.UUID) (*directory.MedicalService, error) {
	var svc directory.MedicalService
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&svc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, directory.ErrServiceNotFound
		}
		return nil, fmt.Errorf("fetching service: %w", err)
	}
	return &svc, nil
}

func (r *ProviderRepository) ServiceBySlug(ctx context.Context, slug string) (*directory.MedicalService, error) {
	var svc directory.MedicalService
	err := r.db.WithContext(ctx).Where("slug = ? AND is_active = true", slug).First(&svc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, directory.ErrServiceNotFound
		}
		return nil, fmt.Errorf("fetching service by slug: %w", err)
	}
	return &svc, nil
}

func (r *ProviderRepository) SetAvailability(ctx context.Context, providerID uuid.UUID, available bool) error {
	res := r.db.WithContext(ctx).
		Model(&directory.Provider{}).
		Where("id = ? AND deleted_at IS NULL", providerID).
		Update("is_available", available)
	if res.Error != nil {
		return fmt.Errorf("updating provider availability: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return directory.ErrProviderNotFound
	}
	return nil
}

func (r *ProviderRepository) ListDoctors(ctx context.Context) ([]directory.DoctorCard, error) {
	var cards []directory.DoctorCard
	err := r.db.WithContext(ctx).
		Table("clinical.providers AS p").
		Select("p.id, p.name, p.specialty, p.about, s.name AS service_name, s.slug AS service_slug, p.is_available").
		Joins("LEFT JOIN clinical.provider_services ps ON ps.provider_id = p.id").
		Joins("LEFT JOIN clinical.services s ON s.id = ps.service_id").
		Where("p.is_active = true AND p.deleted_at IS NULL").
		Order("p.name ASC").
		Scan(&cards).Error
	if err != nil {
		return nil, fmt.Errorf("listing doctors: %w", err)
	}
	return cards, nil
}
