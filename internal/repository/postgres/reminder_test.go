package postgres

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parsarad/konkurbot/internal/models"
)

var reminderCols = []string{
	"id", "kind", "owner_id", "title", "body",
	"schedule_type", "week_days", "start_time", "end_time", "start_date", "end_date",
	"event_key", "offset_days", "recur_kind", "anchor_date", "at_time", "interval_days", "max_occurrences",
	"repeat_count", "repeat_interval_sec", "is_active", "total_sent", "last_sent_at", "created_at", "updated_at",
}

func windowRow(id int64) []driver.Value {
	now := time.Now()
	return []driver.Value{
		id, "broadcast", nil, "عنوان", "متن",
		"week_window", "{5,6}", "08:00", "08:05", now, now,
		nil, nil, nil, nil, nil, nil, nil,
		1, 0, true, 0, nil, now, now,
	}
}

func TestGetByIDNotFoundReturnsNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM reminders WHERE id").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(reminderCols))

	repo := NewReminderRepository(db)
	got, err := repo.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDRestoresWeekWindow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM reminders WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(reminderCols).AddRow(windowRow(1)...))

	repo := NewReminderRepository(db)
	got, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, got)

	w, ok := got.Schedule.(models.WeekWindow)
	require.True(t, ok, "schedule variant restored from columns")
	assert.Equal(t, []time.Weekday{time.Friday, time.Saturday}, w.Days)
	assert.Equal(t, "08:00", w.StartTime)
	assert.Equal(t, "08:05", w.EndTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM reminders WHERE id").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM reminders WHERE id").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewReminderRepository(db)

	deleted, err := repo.Delete(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, deleted)

	// Second delete of the same id: no rows, no error.
	deleted, err = repo.Delete(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, deleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFiredCountsOnlyRealSends(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec("UPDATE reminders SET last_sent_at = (.+), total_sent = total_sent \\+ 1").
		WithArgs(int64(1), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE reminders SET last_sent_at").
		WithArgs(int64(2), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewReminderRepository(db)
	require.NoError(t, repo.MarkFired(context.Background(), 1, now, true))
	require.NoError(t, repo.MarkFired(context.Background(), 2, now, false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDueCandidatesFiltersByKindAndRange(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2025, time.March, 7, 8, 3, 0, 0, time.UTC)
	day := time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM reminders\\s+WHERE is_active = true").
		WithArgs("broadcast", day).
		WillReturnRows(sqlmock.NewRows(reminderCols).AddRow(windowRow(1)...))

	repo := NewReminderRepository(db)
	got, err := repo.GetDueCandidates(context.Background(), models.KindBroadcast, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFlattensSchedule(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("INSERT INTO reminders").
		WithArgs(
			"broadcast", nil, "عنوان", "متن",
			"week_window", pq.Int64Array{5, 6}, "08:00", "08:05", sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(),
			1, 0, true, sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now))

	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)
	reminder := &models.Reminder{
		Kind:  models.KindBroadcast,
		Title: "عنوان",
		Body:  "متن",
		Schedule: models.WeekWindow{
			Days:      []time.Weekday{time.Friday, time.Saturday},
			StartTime: "08:00",
			EndTime:   "08:05",
			StartDate: &start,
			EndDate:   &end,
		},
		RepeatCount: 1,
	}

	repo := NewReminderRepository(db)
	created, err := repo.Create(context.Background(), reminder)
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.ID)
	assert.True(t, created.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}
