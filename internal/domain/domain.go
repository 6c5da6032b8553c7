package domain

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts "now" so overlap checks, punctuality and expiry sweeps
// are deterministic under test.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by the wall clock (UTC).
func SystemClock() Clock { return systemClock{} }

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DisplayTimeFormat is the human-readable timestamp format used on booking
// confirmations and appointment listings.
const DisplayTimeFormat = "02 Jan 2006 | 03:04 PM"

type ChangeAction string

const (
	ActionCreate     ChangeAction = "create"
	ActionUpdate     ChangeAction = "update"
	ActionTransition ChangeAction = "transition"
	ActionArchive    ChangeAction = "archive"
	ActionSweep      ChangeAction = "sweep"
	ActionDelete     ChangeAction = "delete"
)

// ChangeLog is the single change-trail row written explicitly by every
// mutating scheduling operation.
type ChangeLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	// Who
	ActorID   uuid.UUID `gorm:"column:actor_id;type:uuid;index"`
	RequestID string    `gorm:"column:request_id;type:varchar(50);index"`

	// What
	Action       ChangeAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string       `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string       `gorm:"column:resource_id;type:varchar(50);index"`
	// Human-readable identifier (BLK00001, APT00001, ...) when one exists.
	ResourceRef string `gorm:"column:resource_ref;type:varchar(30)"`

	Details string `gorm:"column:details;type:jsonb"`
}

func (ChangeLog) TableName() string {
	return "ops.change_log"
}
