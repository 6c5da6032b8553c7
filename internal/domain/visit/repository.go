package visit

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)
	Update(ctx context.Context, v *Visit) error
	Delete(ctx context.Context, id uuid.UUID) error

	// GetActiveByPatient returns the patient's active visit, or
	// ErrVisitNotFound when there is none.
	GetActiveByPatient(ctx context.Context, patientID uuid.UUID) (*Visit, error)
	HasActiveByPatient(ctx context.Context, patientID uuid.UUID) (bool, error)

	// GetByAppointment returns the visit opened for the appointment.
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Visit, error)

	CountEncounters(ctx context.Context, visitID uuid.UUID) (int64, error)
	CreateEncounter(ctx context.Context, e *Encounter) error
	ListEncounters(ctx context.Context, visitID uuid.UUID) ([]*Encounter, error)

	CreateNote(ctx context.Context, n *VisitNote) error
	ListNotes(ctx context.Context, visitID uuid.UUID) ([]*VisitNote, error)
}
