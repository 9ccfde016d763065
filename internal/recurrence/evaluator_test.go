package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parsarad/konkurbot/internal/models"
)

type stubEvents map[string][]time.Time

func (s stubEvents) Dates(key string) ([]time.Time, error) {
	return s[key], nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func windowRule(days []time.Weekday, startT, endT string, startD, endD time.Time) *models.Reminder {
	return &models.Reminder{
		Kind:     models.KindBroadcast,
		IsActive: true,
		Schedule: models.WeekWindow{
			Days:      days,
			StartTime: startT,
			EndTime:   endT,
			StartDate: &startD,
			EndDate:   &endD,
		},
	}
}

func TestWeekWindowBoundaries(t *testing.T) {
	ev := NewEvaluator(stubEvents{})
	// Fridays 08:00-08:05 through all of 2025.
	rule := windowRule([]time.Weekday{time.Friday}, "08:00", "08:05",
		date(2025, time.January, 1), date(2025, time.December, 31))

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"inside window on a Friday", at(2025, time.March, 7, 8, 3), true},
		{"exactly at start time", at(2025, time.March, 7, 8, 0), true},
		{"exactly at end time", at(2025, time.March, 7, 8, 5), true},
		{"one minute before start", at(2025, time.March, 7, 7, 59), false},
		{"one minute after end", at(2025, time.March, 7, 8, 6), false},
		{"right time on a Saturday", at(2025, time.March, 8, 8, 3), false},
		{"first day of date range", at(2025, time.January, 3, 8, 2), true}, // a Friday
		{"last day of date range", at(2025, time.December, 26, 8, 2), true},
		{"day before range starts", at(2024, time.December, 27, 8, 2), false},
		{"day after range ends", at(2026, time.January, 2, 8, 2), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			due, err := ev.IsDue(rule, tc.now)
			require.NoError(t, err)
			assert.Equal(t, tc.want, due)
		})
	}
}

func TestWeekWindowInactiveNeverDue(t *testing.T) {
	ev := NewEvaluator(stubEvents{})
	rule := windowRule([]time.Weekday{time.Friday}, "08:00", "08:05",
		date(2025, time.January, 1), date(2025, time.December, 31))
	rule.IsActive = false

	due, err := ev.IsDue(rule, at(2025, time.March, 7, 8, 3))
	require.NoError(t, err)
	assert.False(t, due)
}

func TestDaysBeforeTwoSittings(t *testing.T) {
	ev := NewEvaluator(stubEvents{
		"konkur-riazi": {date(2026, time.May, 6), date(2026, time.May, 7)},
	})
	owner := int64(1)
	rule := &models.Reminder{
		Kind:     models.KindCountdown,
		OwnerID:  &owner,
		IsActive: true,
		Schedule: models.DaysBefore{EventKey: "konkur-riazi", OffsetDays: 1},
	}

	cases := []struct {
		now  time.Time
		want bool
	}{
		{at(2026, time.May, 5, 10, 0), true},  // day before first sitting
		{at(2026, time.May, 6, 10, 0), true},  // day before second sitting
		{at(2026, time.May, 4, 10, 0), false},
		{at(2026, time.May, 7, 10, 0), false},
	}
	for _, tc := range cases {
		due, err := ev.IsDue(rule, tc.now)
		require.NoError(t, err)
		assert.Equal(t, tc.want, due, "now=%s", tc.now)
	}
}

func TestIsDueIsIdempotent(t *testing.T) {
	ev := NewEvaluator(stubEvents{})
	rule := windowRule([]time.Weekday{time.Friday}, "08:00", "08:05",
		date(2025, time.January, 1), date(2025, time.December, 31))
	now := at(2025, time.March, 7, 8, 3)

	before := *rule
	for i := 0; i < 5; i++ {
		due, err := ev.IsDue(rule, now)
		require.NoError(t, err)
		assert.True(t, due)
	}
	assert.Equal(t, before, *rule, "IsDue must not mutate the rule")
}

func simpleRule(s models.SimpleSchedule) *models.Reminder {
	owner := int64(7)
	return &models.Reminder{
		Kind:     models.KindPersonal,
		OwnerID:  &owner,
		IsActive: true,
		Schedule: s,
	}
}

func TestSimpleRecurrenceKinds(t *testing.T) {
	ev := NewEvaluator(stubEvents{})
	anchor := date(2025, time.June, 10) // a Tuesday

	t.Run("once", func(t *testing.T) {
		r := simpleRule(models.SimpleSchedule{Kind: models.RecurOnce, AnchorDate: anchor, AtTime: "09:30"})
		due, _ := ev.IsDue(r, at(2025, time.June, 10, 9, 30))
		assert.True(t, due)
		due, _ = ev.IsDue(r, at(2025, time.June, 11, 9, 30))
		assert.False(t, due)
		due, _ = ev.IsDue(r, at(2025, time.June, 10, 9, 31))
		assert.False(t, due)
	})

	t.Run("daily respects anchor", func(t *testing.T) {
		r := simpleRule(models.SimpleSchedule{Kind: models.RecurDaily, AnchorDate: anchor, AtTime: "09:30"})
		due, _ := ev.IsDue(r, at(2025, time.June, 9, 9, 30))
		assert.False(t, due, "before anchor date")
		due, _ = ev.IsDue(r, at(2025, time.July, 1, 9, 30))
		assert.True(t, due)
	})

	t.Run("weekly", func(t *testing.T) {
		r := simpleRule(models.SimpleSchedule{Kind: models.RecurWeekly, AnchorDate: anchor, AtTime: "09:30"})
		due, _ := ev.IsDue(r, at(2025, time.June, 17, 9, 30)) // next Tuesday
		assert.True(t, due)
		due, _ = ev.IsDue(r, at(2025, time.June, 18, 9, 30))
		assert.False(t, due)
	})

	t.Run("monthly rolls to last day of short months", func(t *testing.T) {
		r := simpleRule(models.SimpleSchedule{
			Kind: models.RecurMonthly, AnchorDate: date(2025, time.January, 31), AtTime: "09:30",
		})
		due, _ := ev.IsDue(r, at(2025, time.February, 28, 9, 30))
		assert.True(t, due)
		due, _ = ev.IsDue(r, at(2025, time.March, 31, 9, 30))
		assert.True(t, due)
		due, _ = ev.IsDue(r, at(2025, time.March, 30, 9, 30))
		assert.False(t, due)
	})

	t.Run("custom interval", func(t *testing.T) {
		r := simpleRule(models.SimpleSchedule{
			Kind: models.RecurCustom, AnchorDate: anchor, AtTime: "09:30", IntervalDays: 3,
		})
		due, _ := ev.IsDue(r, at(2025, time.June, 13, 9, 30))
		assert.True(t, due)
		due, _ = ev.IsDue(r, at(2025, time.June, 14, 9, 30))
		assert.False(t, due)
		due, _ = ev.IsDue(r, at(2025, time.June, 10, 9, 30))
		assert.True(t, due, "anchor day itself is occurrence zero")
	})

	t.Run("max occurrences exhausts the rule", func(t *testing.T) {
		r := simpleRule(models.SimpleSchedule{
			Kind: models.RecurDaily, AnchorDate: anchor, AtTime: "09:30", MaxOccurrences: 2,
		})
		r.TotalSent = 2
		due, _ := ev.IsDue(r, at(2025, time.July, 1, 9, 30))
		assert.False(t, due)
	})
}

func TestAlreadyFired(t *testing.T) {
	now := at(2025, time.June, 10, 9, 30)

	t.Run("day granularity for simple schedules", func(t *testing.T) {
		r := simpleRule(models.SimpleSchedule{Kind: models.RecurDaily, AnchorDate: date(2025, time.June, 1), AtTime: "09:30"})
		earlier := at(2025, time.June, 10, 9, 29)
		r.LastSentAt = &earlier
		assert.True(t, AlreadyFired(r, now, time.Minute))

		yesterday := at(2025, time.June, 9, 9, 30)
		r.LastSentAt = &yesterday
		assert.False(t, AlreadyFired(r, now, time.Minute))
	})

	t.Run("tick granularity for windows", func(t *testing.T) {
		r := windowRule([]time.Weekday{time.Tuesday}, "09:00", "10:00",
			date(2025, time.January, 1), date(2025, time.December, 31))
		recent := now.Add(-30 * time.Second)
		r.LastSentAt = &recent
		assert.True(t, AlreadyFired(r, now, time.Minute))

		old := now.Add(-2 * time.Minute)
		r.LastSentAt = &old
		assert.False(t, AlreadyFired(r, now, time.Minute))
	})

	t.Run("never fired", func(t *testing.T) {
		r := simpleRule(models.SimpleSchedule{Kind: models.RecurDaily, AnchorDate: date(2025, time.June, 1), AtTime: "09:30"})
		assert.False(t, AlreadyFired(r, now, time.Minute))
	})
}
