package repository

import (
	"context"
	"time"

	"github.com/parsarad/konkurbot/internal/models"
)

// ReminderRepository persists reminder rules of all three kinds.
// Point reads return (nil, nil) when the id does not exist.
type ReminderRepository interface {
	Create(ctx context.Context, r *models.Reminder) (*models.Reminder, error)
	GetByID(ctx context.Context, id int64) (*models.Reminder, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.Reminder, error)
	ListByKind(ctx context.Context, kind models.ReminderKind) ([]*models.Reminder, error)

	// GetDueCandidates is a cheap prefilter: active rules of the kind whose
	// date range overlaps now's date. Exact due evaluation happens in Go.
	GetDueCandidates(ctx context.Context, kind models.ReminderKind, now time.Time) ([]*models.Reminder, error)

	// Update applies only the non-nil fields of upd.
	Update(ctx context.Context, id int64, upd *models.ReminderUpdate) (*models.Reminder, error)
	SetActive(ctx context.Context, id int64, active bool) error

	// Delete is idempotent; it reports whether a row was removed.
	Delete(ctx context.Context, id int64) (bool, error)

	// MarkFired records that an occurrence was processed at the given
	// instant, bumping total_sent when the occurrence actually sent.
	MarkFired(ctx context.Context, id int64, at time.Time, countSend bool) error
}

// UserRepository persists Telegram users.
type UserRepository interface {
	Upsert(ctx context.Context, telegramID int64, username, firstName string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	ListActive(ctx context.Context) ([]*models.User, error)
	SetActive(ctx context.Context, id int64, active bool) error
	SetAdmin(ctx context.Context, telegramID int64, admin bool) error
}

// DeliveryStat is one aggregated row of the delivery log.
type DeliveryStat struct {
	Kind   models.ReminderKind
	Status models.DeliveryStatus
	Count  int64
}

// DeliveryLogRepository is the append-only delivery audit trail.
type DeliveryLogRepository interface {
	Append(ctx context.Context, entry *models.DeliveryLog) error
	ListRecent(ctx context.Context, limit int) ([]*models.DeliveryLog, error)
	Stats(ctx context.Context) ([]DeliveryStat, error)
}

// OptOutRepository stores per-user exceptions to broadcast reminders.
// No row means the default: opted in.
type OptOutRepository interface {
	SetOptIn(ctx context.Context, userID, reminderID int64, optedIn bool) error
	ListOptedOutUsers(ctx context.Context, reminderID int64) ([]int64, error)
	ListForUser(ctx context.Context, userID int64) ([]int64, error)
}

// EventRepository reads the fixed exam registry.
type EventRepository interface {
	GetByKey(ctx context.Context, key string) (*models.ExamEvent, error)
	ListAll(ctx context.Context) ([]*models.ExamEvent, error)
}
