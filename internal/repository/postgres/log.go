package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/parsarad/konkurbot/internal/models"
	"github.com/parsarad/konkurbot/internal/repository"
)

type deliveryLogRepository struct {
	db *sql.DB
}

// NewDeliveryLogRepository creates a new delivery log repository
func NewDeliveryLogRepository(db *sql.DB) repository.DeliveryLogRepository {
	return &deliveryLogRepository{db: db}
}

func (r *deliveryLogRepository) Append(ctx context.Context, entry *models.DeliveryLog) error {
	query := `
		INSERT INTO delivery_logs (reminder_id, reminder_kind, recipient_id, status, error_message, latency_ms, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		entry.ReminderID,
		entry.ReminderKind,
		entry.RecipientID,
		entry.Status,
		entry.ErrorMessage,
		entry.LatencyMs,
		entry.SentAt,
	).Scan(&entry.ID)

	if err != nil {
		return fmt.Errorf("failed to append delivery log: %w", err)
	}
	return nil
}

func (r *deliveryLogRepository) ListRecent(ctx context.Context, limit int) ([]*models.DeliveryLog, error) {
	query := `
		SELECT id, reminder_id, reminder_kind, recipient_id, status, error_message, latency_ms, sent_at
		FROM delivery_logs
		ORDER BY id DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.DeliveryLog
	for rows.Next() {
		entry := &models.DeliveryLog{}
		if err := rows.Scan(
			&entry.ID,
			&entry.ReminderID,
			&entry.ReminderKind,
			&entry.RecipientID,
			&entry.Status,
			&entry.ErrorMessage,
			&entry.LatencyMs,
			&entry.SentAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan delivery log: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func (r *deliveryLogRepository) Stats(ctx context.Context) ([]repository.DeliveryStat, error) {
	query := `
		SELECT reminder_kind, status, COUNT(*)
		FROM delivery_logs
		GROUP BY reminder_kind, status
		ORDER BY reminder_kind, status`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery stats: %w", err)
	}
	defer rows.Close()

	var stats []repository.DeliveryStat
	for rows.Next() {
		var s repository.DeliveryStat
		if err := rows.Scan(&s.Kind, &s.Status, &s.Count); err != nil {
			return nil, fmt.Errorf("failed to scan delivery stat: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}
