package models

import "time"

// ExamEvent is one entry of the fixed exam registry: a named exam with one or
// more sittings. Dates are civil dates in the bot's timezone; DisplayDate is
// the pre-formatted Solar Hijri string shown to users.
type ExamEvent struct {
	Key         string      `json:"key" db:"key"`
	Name        string      `json:"name" db:"name"`
	Dates       []time.Time `json:"dates"`
	AtTime      string      `json:"at_time" db:"at_time"`
	DisplayDate string      `json:"display_date" db:"display_date"`
}
