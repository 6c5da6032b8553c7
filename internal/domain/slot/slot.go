package slot

import (
	"time"

	"github.com/google/uuid"
)

// Slot is the atomic bookable unit generated from a confirmed block.
// Provider, location and service are denormalized from the owning block so
// a claim returns everything the booking engine needs in one read.
type Slot struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	SlotNumber string    `gorm:"column:slot_number;type:varchar(30);uniqueIndex;not null"`
	BlockID    uuid.UUID `gorm:"column:block_id;type:uuid;not null;index"`

	StartTime    time.Time `gorm:"column:start_time;not null;index"`
	EndTime      time.Time `gorm:"column:end_time;not null;index"`
	DurationMins int       `gorm:"column:duration_mins;not null"`

	ProviderID uuid.UUID `gorm:"column:provider_id;type:uuid;not null;index"`
	LocationID uuid.UUID `gorm:"column:location_id;type:uuid;not null"`
	ServiceID  uuid.UUID `gorm:"column:service_id;type:uuid;not null;index"`

	IsBooked bool `gorm:"column:is_booked;not null;default:false;index"`
	Active   bool `gorm:"column:active;not null;default:true;index"`
}

func (Slot) TableName() string {
	return "scheduling.slots"
}

// AvailabilityDay groups a provider's open slots under one calendar date.
type AvailabilityDay struct {
	Date  string             `json:"date"`
	Slots []AvailabilityItem `json:"slots"`
}

type AvailabilityItem struct {
	ID   uuid.UUID `json:"id"`
	Time string    `json:"time"`
}
