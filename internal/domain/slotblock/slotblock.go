package slotblock

import (
	"time"

	"github.com/google/uuid"
)

// Block lifecycle:
//
//	draft → confirmed (generates bookable slots)
//	confirmed → posted (children without bookings are discarded)
//	posted/confirmed → draft (reset, guarded by linked appointments)
type BlockStatus string

const (
	StatusDraft     BlockStatus = "draft"
	StatusPosted    BlockStatus = "posted"
	StatusConfirmed BlockStatus = "confirmed"
)

func (s BlockStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusPosted, StatusConfirmed:
		return true
	}
	return false
}

// SlotBlock is a provider's declared working window for a date. Confirming
// it tiles the window into fixed-duration bookable slots.
type SlotBlock struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	BlockNumber string `gorm:"column:block_number;type:varchar(30);uniqueIndex;not null"`

	ProviderID uuid.UUID `gorm:"column:provider_id;type:uuid;not null;index"`
	LocationID uuid.UUID `gorm:"column:location_id;type:uuid;not null"`
	ServiceID  uuid.UUID `gorm:"column:service_id;type:uuid;not null;index"`

	Date time.Time `gorm:"column:date;type:date;not null;index"`
	// Minutes from midnight on Date.
	StartMinute int `gorm:"column:start_minute;not null"`
	EndMinute   int `gorm:"column:end_minute;not null"`

	SlotDurationMins int `gorm:"column:slot_duration_mins;not null;default:20"`

	Status BlockStatus `gorm:"column:status;type:varchar(20);not null;default:'draft';index"`
	Active bool        `gorm:"column:active;default:true;index"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (SlotBlock) TableName() string {
	return "scheduling.slot_blocks"
}

// StartAt returns the block's absolute start timestamp.
func (b *SlotBlock) StartAt() time.Time {
	return day(b.Date).Add(time.Duration(b.StartMinute) * time.Minute)
}

// EndAt returns the block's absolute end timestamp.
func (b *SlotBlock) EndAt() time.Time {
	return day(b.Date).Add(time.Duration(b.EndMinute) * time.Minute)
}

func day(d time.Time) time.Time {
	y, m, dd := d.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, d.Location())
}

// Overlaps reports whether [aStart,aEnd) intersects [bStart,bEnd).
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

type CreateBlockCommand struct {
	ProviderID       uuid.UUID
	LocationID       uuid.UUID
	ServiceID        uuid.UUID
	Date             time.Time
	StartMinute      int
	EndMinute        int
	SlotDurationMins int
	CreatedBy        uuid.UUID
}
