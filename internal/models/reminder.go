package models

import "time"

// ReminderKind separates the three reminder families. Each kind is polled by
// its own scheduler loop.
type ReminderKind string

const (
	KindCountdown ReminderKind = "countdown" // N days before an exam sitting
	KindPersonal  ReminderKind = "personal"  // one user's own reminder
	KindBroadcast ReminderKind = "broadcast" // admin rule, all opted-in users
)

// Reminder is a stored reminder rule of any kind. OwnerID is nil for
// broadcast reminders. TotalSent and LastSentAt are written only by the
// dispatcher, once per fired occurrence.
type Reminder struct {
	ID      int64        `json:"id" db:"id"`
	Kind    ReminderKind `json:"kind" db:"kind"`
	OwnerID *int64       `json:"owner_id,omitempty" db:"owner_id"`

	Title string `json:"title" db:"title"`
	Body  string `json:"body" db:"body"`

	Schedule Schedule `json:"-"`

	// RepeatCount 0 records occurrences without sending; 1 sends once;
	// >1 sends a burst spaced RepeatIntervalSec apart.
	RepeatCount       int `json:"repeat_count" db:"repeat_count"`
	RepeatIntervalSec int `json:"repeat_interval_sec" db:"repeat_interval_sec"`

	IsActive   bool       `json:"is_active" db:"is_active"`
	TotalSent  int        `json:"total_sent" db:"total_sent"`
	LastSentAt *time.Time `json:"last_sent_at,omitempty" db:"last_sent_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsBroadcast reports whether the reminder fans out to all opted-in users.
func (r *Reminder) IsBroadcast() bool { return r.Kind == KindBroadcast }

// ReminderUpdate carries a partial update: nil fields are left unchanged.
type ReminderUpdate struct {
	Title             *string
	Body              *string
	Schedule          Schedule
	RepeatCount       *int
	RepeatIntervalSec *int
	IsActive          *bool
}
