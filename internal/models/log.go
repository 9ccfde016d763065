package models

import "time"

// DeliveryStatus is the terminal state of one delivery attempt.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// DeliveryLog is one append-only record of a single send attempt to a single
// recipient. It exists for audit and statistics; scheduling correctness does
// not read it back.
type DeliveryLog struct {
	ID           int64          `json:"id" db:"id"`
	ReminderID   int64          `json:"reminder_id" db:"reminder_id"`
	ReminderKind ReminderKind   `json:"reminder_kind" db:"reminder_kind"`
	RecipientID  int64          `json:"recipient_id" db:"recipient_id"`
	Status       DeliveryStatus `json:"status" db:"status"`
	ErrorMessage string         `json:"error_message,omitempty" db:"error_message"`
	LatencyMs    int64          `json:"latency_ms" db:"latency_ms"`
	SentAt       time.Time      `json:"sent_at" db:"sent_at"`
}

// OptOut records a user's exception to a broadcast reminder. Absence of a row
// means the default: opted in.
type OptOut struct {
	UserID     int64     `json:"user_id" db:"user_id"`
	ReminderID int64     `json:"reminder_id" db:"reminder_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
