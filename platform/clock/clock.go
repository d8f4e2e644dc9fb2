// Package clock provides the civil wall clock used for lead timestamps.
// Lead timestamps are stored as civil time in a single fixed zone and rendered
// as "YYYY-MM-DD HH:mm:ss".
package clock

import (
	"time"
	_ "time/tzdata"
)

// Layout is the rendering of every stored civil timestamp.
const Layout = "2006-01-02 15:04:05"

// DateLayout is the rendering of civil dates.
const DateLayout = "2006-01-02"

// ZoneName is the fixed civil zone.
const ZoneName = "Asia/Kolkata"

// Zone is the loaded civil zone.
var Zone = mustLoad(ZoneName)

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("IST", 5*60*60+30*60)
	}
	return loc
}

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

// System is the real clock.
type System struct{}

// Now implements Clock.
func (System) Now() time.Time { return time.Now() }

// Fixed always returns the same instant. Used by tests.
type Fixed time.Time

// Now implements Clock.
func (f Fixed) Now() time.Time { return time.Time(f) }

// Civil renders t as civil time in Zone.
func Civil(t time.Time) string {
	return t.In(Zone).Format(Layout)
}

// CivilDate renders t's civil date in Zone.
func CivilDate(t time.Time) string {
	return t.In(Zone).Format(DateLayout)
}

// MonthBounds returns the first civil instant of t's month and of the next month.
func MonthBounds(t time.Time) (string, string) {
	local := t.In(Zone)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, Zone)
	return start.Format(Layout), start.AddDate(0, 1, 0).Format(Layout)
}
