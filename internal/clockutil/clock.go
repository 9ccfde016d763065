package clockutil

import (
	"fmt"
	"time"

	"github.com/jmhodges/clock"
	ptime "github.com/yaa110/go-persian-calendar"
)

// Clock supplies the current civil time in the bot's fixed timezone. The
// underlying clock is injectable so scheduler and recurrence tests can pin
// "now".
type Clock struct {
	clk clock.Clock
	loc *time.Location
}

// New creates a Clock for the given IANA timezone name.
func New(tz string) (*Clock, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", tz, err)
	}
	return &Clock{clk: clock.New(), loc: loc}, nil
}

// NewWithClock creates a Clock over an explicit clock source, typically a
// clock.FakeClock in tests.
func NewWithClock(clk clock.Clock, loc *time.Location) *Clock {
	return &Clock{clk: clk, loc: loc}
}

// Now returns the current instant expressed in the fixed civil timezone.
func (c *Clock) Now() time.Time {
	return c.clk.Now().In(c.loc)
}

// Location returns the fixed civil timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// SameDay reports whether a and b fall on the same civil date in c's zone.
func (c *Clock) SameDay(a, b time.Time) bool {
	ay, am, ad := a.In(c.loc).Date()
	by, bm, bd := b.In(c.loc).Date()
	return ay == by && am == bm && ad == bd
}

// Jalali formats a civil date in the Solar Hijri calendar for display. All
// persisted dates stay Gregorian; this conversion happens only at the
// presentation boundary.
func Jalali(t time.Time) string {
	return ptime.New(t).Format("E d MMM yyyy")
}

// JalaliShort formats a civil date as a compact Solar Hijri date string.
func JalaliShort(t time.Time) string {
	return ptime.New(t).Format("yyyy/MM/dd")
}
