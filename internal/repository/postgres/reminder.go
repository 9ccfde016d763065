package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/parsarad/konkurbot/internal/models"
	"github.com/parsarad/konkurbot/internal/repository"
)

const reminderColumns = `id, kind, owner_id, title, body,
		schedule_type, week_days, start_time, end_time, start_date, end_date,
		event_key, offset_days, recur_kind, anchor_date, at_time, interval_days, max_occurrences,
		repeat_count, repeat_interval_sec, is_active, total_sent, last_sent_at, created_at, updated_at`

type reminderRepository struct {
	db *sql.DB
}

// NewReminderRepository creates a new reminder repository
func NewReminderRepository(db *sql.DB) repository.ReminderRepository {
	return &reminderRepository{db: db}
}

func (r *reminderRepository) Create(ctx context.Context, reminder *models.Reminder) (*models.Reminder, error) {
	query := `
		INSERT INTO reminders (kind, owner_id, title, body,
			schedule_type, week_days, start_time, end_time, start_date, end_date,
			event_key, offset_days, recur_kind, anchor_date, at_time, interval_days, max_occurrences,
			repeat_count, repeat_interval_sec, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	reminder.CreatedAt = now
	reminder.UpdatedAt = now
	reminder.IsActive = true

	cols := flattenSchedule(reminder.Schedule)

	err := r.db.QueryRowContext(ctx, query,
		reminder.Kind,
		reminder.OwnerID,
		reminder.Title,
		reminder.Body,
		cols.scheduleType,
		cols.weekDays,
		cols.startTime,
		cols.endTime,
		cols.startDate,
		cols.endDate,
		cols.eventKey,
		cols.offsetDays,
		cols.recurKind,
		cols.anchorDate,
		cols.atTime,
		cols.intervalDays,
		cols.maxOccurrences,
		reminder.RepeatCount,
		reminder.RepeatIntervalSec,
		reminder.IsActive,
		reminder.CreatedAt,
		reminder.UpdatedAt,
	).Scan(&reminder.ID, &reminder.CreatedAt, &reminder.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}

	return reminder, nil
}

func (r *reminderRepository) GetByID(ctx context.Context, id int64) (*models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1`

	reminder, err := scanReminder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return reminder, nil
}

func (r *reminderRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE owner_id = $1 ORDER BY id ASC`
	return r.queryReminders(ctx, query, ownerID)
}

func (r *reminderRepository) ListByKind(ctx context.Context, kind models.ReminderKind) ([]*models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE kind = $1 ORDER BY id ASC`
	return r.queryReminders(ctx, query, kind)
}

func (r *reminderRepository) GetDueCandidates(ctx context.Context, kind models.ReminderKind, now time.Time) ([]*models.Reminder, error) {
	// Date-range prefilter only. Weekday and time-of-day matching happens in
	// Go with exact set membership, never by matching serialized lists.
	query := `SELECT ` + reminderColumns + `
		FROM reminders
		WHERE is_active = true
		  AND kind = $1
		  AND (start_date IS NULL OR start_date <= $2)
		  AND (end_date IS NULL OR end_date >= $2)
		ORDER BY id ASC`

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return r.queryReminders(ctx, query, kind, day)
}

func (r *reminderRepository) Update(ctx context.Context, id int64, upd *models.ReminderUpdate) (*models.Reminder, error) {
	reminder, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reminder == nil {
		return nil, nil
	}

	if upd.Title != nil {
		reminder.Title = *upd.Title
	}
	if upd.Body != nil {
		reminder.Body = *upd.Body
	}
	if upd.Schedule != nil {
		reminder.Schedule = upd.Schedule
	}
	if upd.RepeatCount != nil {
		reminder.RepeatCount = *upd.RepeatCount
	}
	if upd.RepeatIntervalSec != nil {
		reminder.RepeatIntervalSec = *upd.RepeatIntervalSec
	}
	if upd.IsActive != nil {
		reminder.IsActive = *upd.IsActive
	}
	reminder.UpdatedAt = time.Now()

	query := `
		UPDATE reminders
		SET title = $2, body = $3,
			schedule_type = $4, week_days = $5, start_time = $6, end_time = $7, start_date = $8, end_date = $9,
			event_key = $10, offset_days = $11, recur_kind = $12, anchor_date = $13, at_time = $14,
			interval_days = $15, max_occurrences = $16,
			repeat_count = $17, repeat_interval_sec = $18, is_active = $19, updated_at = $20
		WHERE id = $1`

	cols := flattenSchedule(reminder.Schedule)
	_, err = r.db.ExecContext(ctx, query,
		reminder.ID,
		reminder.Title,
		reminder.Body,
		cols.scheduleType,
		cols.weekDays,
		cols.startTime,
		cols.endTime,
		cols.startDate,
		cols.endDate,
		cols.eventKey,
		cols.offsetDays,
		cols.recurKind,
		cols.anchorDate,
		cols.atTime,
		cols.intervalDays,
		cols.maxOccurrences,
		reminder.RepeatCount,
		reminder.RepeatIntervalSec,
		reminder.IsActive,
		reminder.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update reminder: %w", err)
	}

	return reminder, nil
}

func (r *reminderRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE reminders SET is_active = $2, updated_at = $3 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, active, time.Now()); err != nil {
		return fmt.Errorf("failed to toggle reminder: %w", err)
	}
	return nil
}

func (r *reminderRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete reminder: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *reminderRepository) MarkFired(ctx context.Context, id int64, at time.Time, countSend bool) error {
	query := `UPDATE reminders SET last_sent_at = $2, updated_at = $2 WHERE id = $1`
	if countSend {
		query = `UPDATE reminders SET last_sent_at = $2, updated_at = $2, total_sent = total_sent + 1 WHERE id = $1`
	}

	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to mark reminder %d fired: %w", id, err)
	}
	return nil
}

func (r *reminderRepository) queryReminders(ctx context.Context, query string, args ...any) ([]*models.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, reminder)
	}

	return reminders, rows.Err()
}

// scheduleColumns is the flattened relational form of the schedule variants.
// Unused columns stay NULL for the other variants.
type scheduleColumns struct {
	scheduleType   models.ScheduleType
	weekDays       any
	startTime      sql.NullString
	endTime        sql.NullString
	startDate      sql.NullTime
	endDate        sql.NullTime
	eventKey       sql.NullString
	offsetDays     sql.NullInt64
	recurKind      sql.NullString
	anchorDate     sql.NullTime
	atTime         sql.NullString
	intervalDays   sql.NullInt64
	maxOccurrences sql.NullInt64
}

func flattenSchedule(s models.Schedule) scheduleColumns {
	var c scheduleColumns
	c.scheduleType = s.Type()

	switch v := s.(type) {
	case models.WeekWindow:
		days := make(pq.Int64Array, 0, len(v.Days))
		for _, d := range v.Days {
			days = append(days, int64(d))
		}
		c.weekDays = days
		c.startTime = sql.NullString{String: v.StartTime, Valid: true}
		c.endTime = sql.NullString{String: v.EndTime, Valid: true}
		if v.StartDate != nil {
			c.startDate = sql.NullTime{Time: *v.StartDate, Valid: true}
		}
		if v.EndDate != nil {
			c.endDate = sql.NullTime{Time: *v.EndDate, Valid: true}
		}
	case models.DaysBefore:
		c.eventKey = sql.NullString{String: v.EventKey, Valid: true}
		c.offsetDays = sql.NullInt64{Int64: int64(v.OffsetDays), Valid: true}
	case models.SimpleSchedule:
		c.recurKind = sql.NullString{String: string(v.Kind), Valid: true}
		c.anchorDate = sql.NullTime{Time: v.AnchorDate, Valid: true}
		c.atTime = sql.NullString{String: v.AtTime, Valid: true}
		c.intervalDays = sql.NullInt64{Int64: int64(v.IntervalDays), Valid: true}
		c.maxOccurrences = sql.NullInt64{Int64: int64(v.MaxOccurrences), Valid: true}
	}
	return c
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*models.Reminder, error) {
	var (
		reminder models.Reminder
		c        scheduleColumns
		weekDays pq.Int64Array
	)

	err := row.Scan(
		&reminder.ID,
		&reminder.Kind,
		&reminder.OwnerID,
		&reminder.Title,
		&reminder.Body,
		&c.scheduleType,
		&weekDays,
		&c.startTime,
		&c.endTime,
		&c.startDate,
		&c.endDate,
		&c.eventKey,
		&c.offsetDays,
		&c.recurKind,
		&c.anchorDate,
		&c.atTime,
		&c.intervalDays,
		&c.maxOccurrences,
		&reminder.RepeatCount,
		&reminder.RepeatIntervalSec,
		&reminder.IsActive,
		&reminder.TotalSent,
		&reminder.LastSentAt,
		&reminder.CreatedAt,
		&reminder.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	switch c.scheduleType {
	case models.ScheduleWeekWindow:
		w := models.WeekWindow{
			StartTime: c.startTime.String,
			EndTime:   c.endTime.String,
		}
		for _, d := range weekDays {
			w.Days = append(w.Days, time.Weekday(d))
		}
		if c.startDate.Valid {
			d := c.startDate.Time
			w.StartDate = &d
		}
		if c.endDate.Valid {
			d := c.endDate.Time
			w.EndDate = &d
		}
		reminder.Schedule = w
	case models.ScheduleDaysBefore:
		reminder.Schedule = models.DaysBefore{
			EventKey:   c.eventKey.String,
			OffsetDays: int(c.offsetDays.Int64),
		}
	case models.ScheduleSimple:
		reminder.Schedule = models.SimpleSchedule{
			Kind:           models.RecurrenceKind(c.recurKind.String),
			AnchorDate:     c.anchorDate.Time,
			AtTime:         c.atTime.String,
			IntervalDays:   int(c.intervalDays.Int64),
			MaxOccurrences: int(c.maxOccurrences.Int64),
		}
	default:
		return nil, fmt.Errorf("unknown schedule type %q for reminder %d", c.scheduleType, reminder.ID)
	}

	return &reminder, nil
}
