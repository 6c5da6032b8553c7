package appointment

import (
	"time"

	"github.com/google/uuid"
)

// State transitions:
//
//	requested → scheduled → checked_in → completed
//	requested → cancelled
//	scheduled → cancelled
//	scheduled → missed (reaper only)
type State string

const (
	StateRequested State = "requested"
	StateScheduled State = "scheduled"
	StateCheckedIn State = "checked_in"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateMissed    State = "missed"
)

// Status is the commit flag orthogonal to the clinical state: a booking is
// created as draft and flipped to confirmed once the slot claim has stuck.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusConfirmed Status = "confirmed"
)

type Appointment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	AppointmentNumber string `gorm:"column:appointment_number;type:varchar(30);uniqueIndex;not null"`

	// Slot reference; unique across non-cancelled appointments (partial
	// unique index, see pkg/database).
	SlotID *uuid.UUID `gorm:"column:slot_id;type:uuid;index"`

	PatientID *uuid.UUID `gorm:"column:patient_id;type:uuid;index"`

	// Copied from the claimed slot.
	ProviderID   *uuid.UUID `gorm:"column:provider_id;type:uuid;index"`
	LocationID   *uuid.UUID `gorm:"column:location_id;type:uuid"`
	ServiceID    *uuid.UUID `gorm:"column:service_id;type:uuid"`
	StartTime    *time.Time `gorm:"column:start_time;index"`
	DurationMins int        `gorm:"column:duration_mins"`

	State  State  `gorm:"column:state;type:varchar(20);not null;default:'requested';index"`
	Status Status `gorm:"column:status;type:varchar(20);not null;default:'draft';index"`

	ConfirmedAt *time.Time `gorm:"column:confirmed_at"`
	ScheduledAt *time.Time `gorm:"column:scheduled_at"`
	CheckedInAt *time.Time `gorm:"column:checked_in_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`

	Note   string `gorm:"column:note;type:text"`
	Active bool   `gorm:"column:active;not null;default:true;index"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid"`
}

func (Appointment) TableName() string {
	return "clinical.appointments"
}

func (a *Appointment) EndsAt() *time.Time {
	if a.StartTime == nil {
		return nil
	}
	t := a.StartTime.Add(time.Duration(a.DurationMins) * time.Minute)
	return &t
}

func (a *Appointment) CanTransitionTo(next State) bool {
	allowed := map[State][]State{
		StateRequested: {StateScheduled, StateCancelled},
		StateScheduled: {StateCheckedIn, StateCancelled, StateMissed},
		StateCheckedIn: {StateCompleted},
		StateCompleted: {},
		StateCancelled: {},
		StateMissed:    {},
	}
	for _, s := range allowed[a.State] {
		if s == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (a *Appointment) IsTerminal() bool {
	switch a.State {
	case StateCompleted, StateCancelled, StateMissed:
		return true
	}
	return false
}

// BookingResult is the structured booking outcome. Slot contention is a
// routine result, not an error, so callers can retry another slot.
type BookingResult struct {
	Success       bool       `json:"success"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	ScheduledTime string     `json:"time,omitempty"`
	Message       string     `json:"message"`
}

type BookCommand struct {
	SlotID    uuid.UUID
	PatientID uuid.UUID
	Note      string
	ActorID   uuid.UUID
}

// ManualReschedule carries explicit target fields for a reschedule that is
// not backed by a generated slot.
type ManualReschedule struct {
	ProviderID uuid.UUID
	LocationID uuid.UUID
	ServiceID  uuid.UUID
	StartTime  time.Time
}

type RescheduleCommand struct {
	AppointmentID uuid.UUID
	NewSlotID     *uuid.UUID
	Manual        *ManualReschedule
	ActorID       uuid.UUID
}

// Summary is the patient-facing listing row (confirmed appointments only).
type Summary struct {
	ID           uuid.UUID `json:"id"`
	DateTime     string    `json:"date_time"`
	IsCancelled  bool      `json:"isCancelled"`
	IsCompleted  bool      `json:"isCompleted"`
	ProviderName string    `json:"doctor_name"`
}
