package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/curaflow/curaflow/internal/domain/appointment"
)

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("creating appointment: %w", err)
	}
	return nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appointment.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("fetching appointment: %w", err)
	}
	return &a, nil
}

func (r *AppointmentRepository) Update(ctx context.Context, a *appointment.Appointment) error {
	res := r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Where("id = ? AND deleted_at IS NULL", a.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(a)
	if res.Error != nil {
		return fmt.Errorf("updating appointment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}

// TransitionFrom writes the appointment's lifecycle fields guarded by the
// previous (state, status) pair. A zero row count means another writer got
// there first.
func (r *AppointmentRepository) TransitionFrom(ctx context.Context, a *appointment.Appointment, prevState appointment.State, prevStatus appointment.Status) error {
	res := r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Where("id = ? AND state = ? AND status = ? AND deleted_at IS NULL", a.ID, prevState, prevStatus).
		Updates(map[string]interface{}{
			"state":         a.State,
			"status":        a.Status,
			"slot_id":       a.SlotID,
			"provider_id":   a.ProviderID,
			"location_id":   a.LocationID,
			"service_id":    a.ServiceID,
			"start_time":    a.StartTime,
			"duration_mins": a.DurationMins,
			"confirmed_at":  a.ConfirmedAt,
			"scheduled_at":  a.ScheduledAt,
			"checked_in_at": a.CheckedInAt,
			"completed_at":  a.CompletedAt,
			"cancelled_at":  a.CancelledAt,
			"note":          a.Note,
		})
	if res.Error != nil {
		return fmt.Errorf("transitioning appointment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return appointment.ErrStale
	}
	return nil
}

func (r *AppointmentRepository) ListConfirmedByPatient(ctx context.Context, patientID uuid.UUID) ([]*appointment.Appointment, error) {
	var appts []*appointment.Appointment
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND status = ? AND deleted_at IS NULL", patientID, appointment.StatusConfirmed).
		Order("start_time DESC NULLS LAST").
		Find(&appts).Error
	if err != nil {
		return nil, fmt.Errorf("listing patient appointments: %w", err)
	}
	return appts, nil
}

func (r *AppointmentRepository) AnyForBlock(ctx context.Context, blockID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Where("slot_id IN (?) AND deleted_at IS NULL",
			r.db.Table("scheduling.slots").Select("id").Where("block_id = ?", blockID)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking block appointments: %w", err)
	}
	return count > 0, nil
}

func (r *AppointmentRepository) FindOverdueScheduled(ctx context.Context, now time.Time) ([]*appointment.Appointment, error) {
	var appts []*appointment.Appointment
	err := r.db.WithContext(ctx).
		Where("state = ? AND start_time < ? AND deleted_at IS NULL", appointment.StateScheduled, now).
		Order("start_time ASC").
		Find(&appts).Error
	if err != nil {
		return nil, fmt.Errorf("finding overdue appointments: %w", err)
	}
	return appts, nil
}
