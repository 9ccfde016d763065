package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/parsarad/konkurbot/internal/models"
	"github.com/parsarad/konkurbot/internal/repository"
)

type eventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new exam event repository
func NewEventRepository(db *sql.DB) repository.EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) GetByKey(ctx context.Context, key string) (*models.ExamEvent, error) {
	query := `SELECT key, name, at_time, display_date FROM exam_events WHERE key = $1`

	event := &models.ExamEvent{}
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&event.Key,
		&event.Name,
		&event.AtTime,
		&event.DisplayDate,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get exam event: %w", err)
	}

	if event.Dates, err = r.sittingDates(ctx, key); err != nil {
		return nil, err
	}
	return event, nil
}

func (r *eventRepository) ListAll(ctx context.Context) ([]*models.ExamEvent, error) {
	query := `SELECT key, name, at_time, display_date FROM exam_events ORDER BY key`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query exam events: %w", err)
	}
	defer rows.Close()

	var events []*models.ExamEvent
	for rows.Next() {
		event := &models.ExamEvent{}
		if err := rows.Scan(&event.Key, &event.Name, &event.AtTime, &event.DisplayDate); err != nil {
			return nil, fmt.Errorf("failed to scan exam event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, event := range events {
		if event.Dates, err = r.sittingDates(ctx, event.Key); err != nil {
			return nil, err
		}
	}

	return events, nil
}

// sittingDates loads the one-or-more sitting dates of an event.
func (r *eventRepository) sittingDates(ctx context.Context, key string) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sitting_date FROM exam_event_dates WHERE event_key = $1 ORDER BY sitting_date`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query sitting dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan sitting date: %w", err)
		}
		dates = append(dates, d)
	}

	return dates, rows.Err()
}
