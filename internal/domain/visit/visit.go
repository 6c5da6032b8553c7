package visit

import (
	"time"

	"github.com/google/uuid"
)

type VisitState string

const (
	StateDraft  VisitState = "draft"
	StateActive VisitState = "active"
	StateEnded  VisitState = "ended"
)

type VisitType string

const (
	TypeFacilityVisit VisitType = "facility_visit"
	TypeHomeVisit     VisitType = "home_visit"
	TypeOPDVisit      VisitType = "opd_visit"
	TypeOfflineVisit  VisitType = "offline_visit"
)

func (t VisitType) IsValid() bool {
	switch t {
	case TypeFacilityVisit, TypeHomeVisit, TypeOPDVisit, TypeOfflineVisit:
		return true
	}
	return false
}

// Punctuality compares check-in time against the scheduled start with an
// inclusive ten-minute tolerance.
type Punctuality string

const (
	OnTime  Punctuality = "on_time"
	Late    Punctuality = "late"
	Early   Punctuality = "early"
	Unknown Punctuality = "unknown"
)

// PunctualityTolerance is the inclusive on-time window around the
// scheduled start.
const PunctualityTolerance = 10 * time.Minute

// Classify returns the punctuality of a check-in at now against the
// scheduled start. A nil scheduled time yields Unknown.
func Classify(scheduled *time.Time, now time.Time) Punctuality {
	if scheduled == nil {
		return Unknown
	}
	diff := now.Sub(*scheduled)
	switch {
	case diff > PunctualityTolerance:
		return Late
	case diff < -PunctualityTolerance:
		return Early
	default:
		return OnTime
	}
}

// Visit is the clinical session opened at check-in and closed at check-out.
// A patient has at most one active visit at any time.
type Visit struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	VisitNumber string `gorm:"column:visit_number;type:varchar(30);uniqueIndex;not null"`

	AppointmentID *uuid.UUID `gorm:"column:appointment_id;type:uuid;index"`
	PatientID     uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;index"`
	LocationID    uuid.UUID  `gorm:"column:location_id;type:uuid;not null"`

	VisitType   VisitType   `gorm:"column:visit_type;type:varchar(30);not null"`
	Punctuality Punctuality `gorm:"column:punctuality;type:varchar(10)"`

	StartedAt *time.Time `gorm:"column:started_at"`
	EndedAt   *time.Time `gorm:"column:ended_at"`

	State  VisitState `gorm:"column:state;type:varchar(10);not null;default:'draft';index"`
	Active bool       `gorm:"column:active;not null;default:true"`
}

func (Visit) TableName() string {
	return "clinical.visits"
}

// Encounter links a visit to a clinical-record row created while the visit
// was active. RecordType is the registry tag of the record's type.
type Encounter struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	VisitID uuid.UUID `gorm:"column:visit_id;type:uuid;not null;index"`

	RecordType string    `gorm:"column:record_type;type:varchar(50);not null"`
	RecordID   uuid.UUID `gorm:"column:record_id;type:uuid;not null"`

	EncounterType string `gorm:"column:encounter_type;type:varchar(50);not null"`
	FormType      string `gorm:"column:form_type;type:varchar(50)"`

	StartedAt  time.Time `gorm:"column:started_at;not null"`
	RecordedBy uuid.UUID `gorm:"column:recorded_by;type:uuid"`
}

func (Encounter) TableName() string {
	return "clinical.visit_encounters"
}

// VisitNote is the clinical note recorded during a visit; it is the one
// encounter-generating record type owned by this module.
type VisitNote struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	VisitID   uuid.UUID `gorm:"column:visit_id;type:uuid;not null;index"`
	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`

	Note      string   `gorm:"column:note;type:text;not null"`
	Diagnoses []string `gorm:"column:diagnoses;type:jsonb;serializer:json"`

	RecordedBy uuid.UUID `gorm:"column:recorded_by;type:uuid"`
	Active     bool      `gorm:"column:active;not null;default:true"`
}

func (VisitNote) TableName() string {
	return "clinical.visit_notes"
}

// RecordTypeVisitNote is the registry tag under which visit notes generate
// encounters.
const RecordTypeVisitNote = "visit_note"
