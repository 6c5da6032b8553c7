package directory

import (
	"time"

	"github.com/google/uuid"
)

// Patient is the slim demographic row consumed by the scheduling core.
// Full patient-record CRUD lives in its own module.
type Patient struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	PatientNumber string `gorm:"column:patient_number;type:varchar(30);uniqueIndex;not null"`
	FirstName     string `gorm:"column:first_name;type:varchar(100);not null"`
	LastName      string `gorm:"column:last_name;type:varchar(100);not null"`
	Gender        string `gorm:"column:gender;type:varchar(20)"`

	IsActive bool `gorm:"column:is_active;default:true;index"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

type Provider struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	Name          string `gorm:"column:name;type:varchar(200);not null"`
	About         string `gorm:"column:about;type:text"`
	LicenseNumber string `gorm:"column:license_number;type:varchar(50)"`
	Specialty     string `gorm:"column:specialty;type:varchar(100)"`

	IsActive bool `gorm:"column:is_active;default:true;index"`
	// True while the provider has at least one unbooked active slot.
	// Recomputed after slot generation, booking and archival.
	IsAvailable bool `gorm:"column:is_available;default:false;index"`
}

func (Provider) TableName() string {
	return "clinical.providers"
}

type Location struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Name     string `gorm:"column:name;type:varchar(200);not null"`
	IsActive bool   `gorm:"column:is_active;default:true;index"`
}

func (Location) TableName() string {
	return "clinical.locations"
}

// MedicalService is a bookable service type (clinic type in the UI).
type MedicalService struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Name     string `gorm:"column:name;type:varchar(200);not null"`
	Slug     string `gorm:"column:slug;type:varchar(100);uniqueIndex;not null"`
	IsActive bool   `gorm:"column:is_active;default:true;index"`
}

func (MedicalService) TableName() string {
	return "clinical.services"
}

// ProviderService links a provider to a service they offer.
type ProviderService struct {
	ProviderID uuid.UUID `gorm:"column:provider_id;type:uuid;primaryKey"`
	ServiceID  uuid.UUID `gorm:"column:service_id;type:uuid;primaryKey"`
}

func (ProviderService) TableName() string {
	return "clinical.provider_services"
}

// DoctorCard is the read model served for provider discovery.
type DoctorCard struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Specialty   string    `json:"speciality"`
	About       string    `json:"about"`
	ServiceName string    `json:"clinic_type"`
	ServiceSlug string    `json:"clinic_type_slug"`
	IsAvailable bool      `json:"is_available"`
}
