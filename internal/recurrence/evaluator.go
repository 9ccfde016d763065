package recurrence

import (
	"fmt"
	"time"

	"github.com/parsarad/konkurbot/internal/models"
)

// EventDates resolves an exam event key to its sitting dates. The evaluator
// needs it only for days-before schedules.
type EventDates interface {
	Dates(key string) ([]time.Time, error)
}

// Evaluator decides whether a reminder rule fires at a given instant. It
// never mutates the rule: calling IsDue repeatedly with the same inputs
// returns the same answer.
type Evaluator struct {
	events EventDates
}

// NewEvaluator creates an Evaluator backed by the given event registry.
func NewEvaluator(events EventDates) *Evaluator {
	return &Evaluator{events: events}
}

// IsDue reports whether r fires at now. now must already be expressed in the
// bot's civil timezone.
func (e *Evaluator) IsDue(r *models.Reminder, now time.Time) (bool, error) {
	if !r.IsActive {
		return false, nil
	}

	switch s := r.Schedule.(type) {
	case models.WeekWindow:
		return dueWeekWindow(s, now), nil
	case models.DaysBefore:
		dates, err := e.events.Dates(s.EventKey)
		if err != nil {
			return false, fmt.Errorf("failed to resolve event %q: %w", s.EventKey, err)
		}
		return dueDaysBefore(s, dates, now), nil
	case models.SimpleSchedule:
		return dueSimple(s, r.TotalSent, now), nil
	default:
		return false, fmt.Errorf("unknown schedule type %T", r.Schedule)
	}
}

// AlreadyFired reports whether the occurrence containing now was processed in
// an earlier tick. Day-granularity schedules fire at most once per civil day;
// window schedules fire at most once per polling interval.
func AlreadyFired(r *models.Reminder, now time.Time, tick time.Duration) bool {
	if r.LastSentAt == nil {
		return false
	}
	last := r.LastSentAt.In(now.Location())
	switch r.Schedule.(type) {
	case models.DaysBefore, models.SimpleSchedule:
		return sameDate(last, now)
	default:
		return now.Sub(last) < tick
	}
}

func dueWeekWindow(w models.WeekWindow, now time.Time) bool {
	if w.StartDate != nil && civilBefore(now, *w.StartDate) {
		return false
	}
	if w.EndDate != nil && civilBefore(*w.EndDate, now) {
		return false
	}
	if !w.HasDay(now.Weekday()) {
		return false
	}
	// Both sides are zero-padded "HH:MM", so string order is time order.
	hhmm := now.Format("15:04")
	return w.StartTime <= hhmm && hhmm <= w.EndTime
}

func dueDaysBefore(s models.DaysBefore, dates []time.Time, now time.Time) bool {
	for _, d := range dates {
		if sameDate(now, d.AddDate(0, 0, -s.OffsetDays)) {
			return true
		}
	}
	return false
}

func dueSimple(s models.SimpleSchedule, totalSent int, now time.Time) bool {
	if s.MaxOccurrences > 0 && totalSent >= s.MaxOccurrences {
		return false
	}
	if civilBefore(now, s.AnchorDate) {
		return false
	}
	if now.Format("15:04") != s.AtTime {
		return false
	}

	switch s.Kind {
	case models.RecurOnce:
		return sameDate(now, s.AnchorDate)
	case models.RecurDaily:
		return true
	case models.RecurWeekly:
		return now.Weekday() == s.AnchorDate.Weekday()
	case models.RecurMonthly:
		// Anchors on the 29th-31st roll to the last day of shorter months.
		day := s.AnchorDate.Day()
		if last := lastDayOfMonth(now); day > last {
			day = last
		}
		return now.Day() == day
	case models.RecurCustom:
		if s.IntervalDays <= 0 {
			return false
		}
		return daysBetween(s.AnchorDate, now)%s.IntervalDays == 0
	default:
		return false
	}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// civilBefore reports whether a's calendar date precedes b's.
func civilBefore(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}

func lastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).
		AddDate(0, 1, -1).Day()
}

// daysBetween counts whole calendar days from a to b, ignoring time of day.
// Midnights are compared in UTC so DST shifts cannot skew the count.
func daysBetween(a, b time.Time) int {
	am := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bm := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bm.Sub(am) / (24 * time.Hour))
}
