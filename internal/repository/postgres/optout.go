package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/parsarad/konkurbot/internal/repository"
)

type optOutRepository struct {
	db *sql.DB
}

// NewOptOutRepository creates a new opt-out repository
func NewOptOutRepository(db *sql.DB) repository.OptOutRepository {
	return &optOutRepository{db: db}
}

func (r *optOutRepository) SetOptIn(ctx context.Context, userID, reminderID int64, optedIn bool) error {
	// Opted in is the default, so opting in just removes the exception row.
	if optedIn {
		_, err := r.db.ExecContext(ctx,
			`DELETE FROM reminder_opt_outs WHERE user_id = $1 AND reminder_id = $2`,
			userID, reminderID)
		if err != nil {
			return fmt.Errorf("failed to opt user in: %w", err)
		}
		return nil
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reminder_opt_outs (user_id, reminder_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, reminder_id) DO NOTHING`,
		userID, reminderID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to opt user out: %w", err)
	}
	return nil
}

func (r *optOutRepository) ListOptedOutUsers(ctx context.Context, reminderID int64) ([]int64, error) {
	return r.queryIDs(ctx,
		`SELECT user_id FROM reminder_opt_outs WHERE reminder_id = $1`, reminderID)
}

func (r *optOutRepository) ListForUser(ctx context.Context, userID int64) ([]int64, error) {
	return r.queryIDs(ctx,
		`SELECT reminder_id FROM reminder_opt_outs WHERE user_id = $1 ORDER BY reminder_id`, userID)
}

func (r *optOutRepository) queryIDs(ctx context.Context, query string, arg int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query opt-outs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan opt-out: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
