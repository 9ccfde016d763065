package models

import "time"

// ScheduleType tags the concrete schedule variant carried by a reminder.
type ScheduleType string

const (
	ScheduleWeekWindow ScheduleType = "week_window"
	ScheduleDaysBefore ScheduleType = "days_before"
	ScheduleSimple     ScheduleType = "simple"
)

// RecurrenceKind defines how a SimpleSchedule repeats.
type RecurrenceKind string

const (
	RecurOnce    RecurrenceKind = "once"
	RecurDaily   RecurrenceKind = "daily"
	RecurWeekly  RecurrenceKind = "weekly"
	RecurMonthly RecurrenceKind = "monthly"
	RecurCustom  RecurrenceKind = "custom"
)

// Schedule is the tagged union of the three schedule variants. Exactly one
// concrete type sits behind it on every stored reminder.
type Schedule interface {
	Type() ScheduleType
}

// WeekWindow fires on every tick while now is on an allowed weekday, inside
// the [StartTime, EndTime] wall-clock window and inside the [StartDate,
// EndDate] date range. All bounds are inclusive. Times are zero-padded
// "HH:MM" strings so lexicographic comparison matches chronological order.
type WeekWindow struct {
	Days      []time.Weekday
	StartTime string
	EndTime   string
	StartDate *time.Time
	EndDate   *time.Time
}

func (WeekWindow) Type() ScheduleType { return ScheduleWeekWindow }

// HasDay reports whether d is in the allowed weekday set.
func (w WeekWindow) HasDay(d time.Weekday) bool {
	for _, day := range w.Days {
		if day == d {
			return true
		}
	}
	return false
}

// DaysBefore fires on the single calendar day that is OffsetDays before each
// date of the referenced exam sitting. An event with two sittings yields two
// firing days.
type DaysBefore struct {
	EventKey   string
	OffsetDays int
}

func (DaysBefore) Type() ScheduleType { return ScheduleDaysBefore }

// SimpleSchedule fires at AtTime ("HH:MM") on days selected by Kind relative
// to AnchorDate. MaxOccurrences of 0 means unbounded.
type SimpleSchedule struct {
	Kind           RecurrenceKind
	AnchorDate     time.Time
	AtTime         string
	IntervalDays   int
	MaxOccurrences int
}

func (SimpleSchedule) Type() ScheduleType { return ScheduleSimple }
