package directory

import (
	"context"

	"github.com/google/uuid"
)

// PatientDirectory is the narrow patient lookup surface consumed by the
// booking engine. HasActiveVisit mirrors the visit tracker's own invariant
// check and must agree with it.
type PatientDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
	HasActiveVisit(ctx context.Context, patientID uuid.UUID) (bool, error)
}

// ProviderDirectory validates provider/service pairings when blocks are
// defined and serves the availability read model.
type ProviderDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	OffersService(ctx context.Context, providerID, serviceID uuid.UUID) (bool, error)
	ServiceByID(ctx context.Context, id uuid.UUID) (*MedicalService, error)
	ServiceBySlug(ctx context.Context, slug string) (*MedicalService, error)
	SetAvailability(ctx context.Context, providerID uuid.UUID, available bool) error
	ListDoctors(ctx context.Context) ([]DoctorCard, error)
}
