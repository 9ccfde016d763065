package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/parsarad/konkurbot/internal/models"
)

// ErrInvalidConfig is wrapped by every validation failure so callers can
// distinguish a bad rule definition from an infrastructure error.
var ErrInvalidConfig = errors.New("invalid reminder configuration")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate rejects malformed reminder rules synchronously, before they are
// stored. A rule that passes Validate is total for the evaluator.
func Validate(r *models.Reminder) error {
	if r.Schedule == nil {
		return invalidf("schedule is required")
	}
	if r.RepeatCount < 0 {
		return invalidf("repeat count must be >= 0")
	}
	if r.RepeatIntervalSec < 0 {
		return invalidf("repeat interval must be >= 0")
	}
	if r.RepeatCount > 1 && r.RepeatIntervalSec == 0 {
		return invalidf("repeat interval is required for repeat count %d", r.RepeatCount)
	}
	if r.Kind == models.KindBroadcast && r.OwnerID != nil {
		return invalidf("broadcast reminders have no owner")
	}
	if r.Kind != models.KindBroadcast && r.OwnerID == nil {
		return invalidf("%s reminders require an owner", r.Kind)
	}

	switch s := r.Schedule.(type) {
	case models.WeekWindow:
		return validateWeekWindow(s)
	case models.DaysBefore:
		if s.EventKey == "" {
			return invalidf("event key is required")
		}
		if s.OffsetDays < 0 {
			return invalidf("offset days must be >= 0")
		}
	case models.SimpleSchedule:
		return validateSimple(s)
	default:
		return invalidf("unknown schedule type %T", r.Schedule)
	}
	return nil
}

func validateWeekWindow(w models.WeekWindow) error {
	if len(w.Days) == 0 {
		return invalidf("weekday set must not be empty")
	}
	for _, d := range w.Days {
		if d < time.Sunday || d > time.Saturday {
			return invalidf("invalid weekday %d", d)
		}
	}
	if err := checkTimeOfDay(w.StartTime); err != nil {
		return err
	}
	if err := checkTimeOfDay(w.EndTime); err != nil {
		return err
	}
	// Windows wrapping midnight are rejected rather than guessed at.
	if w.StartTime > w.EndTime {
		return invalidf("window start %s is after end %s", w.StartTime, w.EndTime)
	}
	if w.StartDate != nil && w.EndDate != nil && civilBefore(*w.EndDate, *w.StartDate) {
		return invalidf("start date is after end date")
	}
	return nil
}

func validateSimple(s models.SimpleSchedule) error {
	if err := checkTimeOfDay(s.AtTime); err != nil {
		return err
	}
	if s.AnchorDate.IsZero() {
		return invalidf("anchor date is required")
	}
	if s.MaxOccurrences < 0 {
		return invalidf("max occurrences must be >= 0")
	}
	switch s.Kind {
	case models.RecurOnce, models.RecurDaily, models.RecurWeekly, models.RecurMonthly:
		return nil
	case models.RecurCustom:
		if s.IntervalDays < 1 {
			return invalidf("custom recurrence requires an interval of at least 1 day")
		}
		return nil
	default:
		return invalidf("unknown recurrence kind %q", s.Kind)
	}
}

func checkTimeOfDay(v string) error {
	// Zero-padded five-char form keeps string order equal to time order.
	if len(v) != 5 {
		return invalidf("bad time of day %q, want HH:MM", v)
	}
	if _, err := time.Parse("15:04", v); err != nil {
		return invalidf("bad time of day %q, want HH:MM", v)
	}
	return nil
}
