// Package caltime implements the RFC 5545 DATE and DATE-TIME value model.
//
// Every constructor routes through Round so a value is truncated to its
// precision in its own reference zone no matter where it came from.
package caltime

import (
	"time"

	"github.com/cyp0633/calrecur/internal/calmath"
)

// DateTime is a calendar point with an explicit precision and mode.
// Values are immutable.
type DateTime struct {
	t    time.Time
	prec Precision
	mode Mode
}

// Round truncates t to p in the location of m. It is the single rounding
// path for every constructor in this package.
func Round(t time.Time, p Precision, m Mode) time.Time {
	loc := m.Location()
	t = t.In(loc)
	if p == Day {
		y, mo, d := t.Date()
		return time.Date(y, mo, d, 0, 0, 0, 0, loc)
	}
	return t.Truncate(time.Second)
}

// New builds a value from an instant.
func New(t time.Time, p Precision, m Mode) DateTime {
	return DateTime{t: Round(t, p, m), prec: p, mode: m}
}

// FromTime keeps t's location: UTC stays UTC, anything else becomes zoned.
func FromTime(t time.Time) DateTime {
	return New(t, Second, Zoned(t.Location()))
}

// FromUnix builds a value from seconds since the epoch.
func FromUnix(sec int64, p Precision, m Mode) DateTime {
	return New(time.Unix(sec, 0), p, m)
}

// Of builds a second-precision value from wall-clock fields in m.
func Of(year int, month time.Month, day, hour, min, sec int, m Mode) DateTime {
	return New(time.Date(year, month, day, hour, min, sec, 0, m.Location()), Second, m)
}

// OfDate builds a day-precision value at midnight of the given day in m.
func OfDate(year int, month time.Month, day int, m Mode) DateTime {
	return New(time.Date(year, month, day, 0, 0, 0, 0, m.Location()), Day, m)
}

// Time returns the value as a time.Time in its mode's location.
func (dt DateTime) Time() time.Time { return dt.t }

// Precision of the value.
func (dt DateTime) Precision() Precision { return dt.prec }

// Mode of the value.
func (dt DateTime) Mode() Mode { return dt.mode }

// IsDate reports whether the value has day precision.
func (dt DateTime) IsDate() bool { return dt.prec == Day }

// IsUTC reports whether the value is in UTC mode.
func (dt DateTime) IsUTC() bool { return dt.mode.IsUTC() }

// IsZero reports whether the value is the zero DateTime.
func (dt DateTime) IsZero() bool { return dt.t.IsZero() }

// Date returns the wall-clock day.
func (dt DateTime) Date() calmath.Date { return calmath.FromTime(dt.t) }

// Clock returns the wall-clock time of day.
func (dt DateTime) Clock() (hour, min, sec int) { return dt.t.Clock() }

// Unix returns seconds since the epoch.
func (dt DateTime) Unix() int64 { return dt.t.Unix() }

// WithPrecision re-rounds the value.
func (dt DateTime) WithPrecision(p Precision) DateTime {
	return New(dt.t, p, dt.mode)
}

// In converts the value to mode m. Moving between UTC and zoned modes keeps
// the instant; moving from floating to zoned keeps the wall clock, as does
// moving anything to floating.
func (dt DateTime) In(m Mode) DateTime {
	if m.IsFloating() || dt.mode.IsFloating() {
		return New(rewall(dt.t, m.Location()), dt.prec, m)
	}
	return New(dt.t, dt.prec, m)
}

func rewall(t time.Time, loc *time.Location) time.Time {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return time.Date(y, mo, d, h, mi, s, 0, loc)
}

// AddDate adds calendar fields in the value's own location.
func (dt DateTime) AddDate(years, months, days int) DateTime {
	return New(dt.t.AddDate(years, months, days), dt.prec, dt.mode)
}

// AddClock adds wall-clock fields, normalising overflow through time.Date.
func (dt DateTime) AddClock(days, hours, mins, secs int) DateTime {
	y, mo, d := dt.t.Date()
	h, mi, s := dt.t.Clock()
	t := time.Date(y, mo, d+days, h+hours, mi+mins, s+secs, 0, dt.mode.Location())
	return New(t, dt.prec, dt.mode)
}

// Add adds elapsed time.
func (dt DateTime) Add(d time.Duration) DateTime {
	return New(dt.t.Add(d), dt.prec, dt.mode)
}

// Sub returns the elapsed time dt-o.
func (dt DateTime) Sub(o DateTime) time.Duration { return dt.t.Sub(o.t) }

// Equal compares the normalised (instant, utc) pair, so zoned values in
// different locations with the same effective instant are equal.
func (dt DateTime) Equal(o DateTime) bool {
	return dt.t.Equal(o.t) && dt.mode.IsUTC() == o.mode.IsUTC()
}

// Compare orders by instant, then places non-UTC before UTC.
func (dt DateTime) Compare(o DateTime) int {
	if c := dt.t.Compare(o.t); c != 0 {
		return c
	}
	switch {
	case dt.mode.IsUTC() == o.mode.IsUTC():
		return 0
	case o.mode.IsUTC():
		return -1
	}
	return 1
}

// Before reports whether dt is strictly earlier than o.
func (dt DateTime) Before(o DateTime) bool { return dt.t.Before(o.t) }

// After reports whether dt is strictly later than o.
func (dt DateTime) After(o DateTime) bool { return dt.t.After(o.t) }

func (dt DateTime) String() string {
	return Format(dt.t, dt.prec, dt.mode.IsUTC())
}

// Min returns the earlier of a and b.
func Min(a, b DateTime) DateTime {
	if b.Before(a) {
		return b
	}
	return a
}

// Max returns the later of a and b.
func Max(a, b DateTime) DateTime {
	if b.After(a) {
		return b
	}
	return a
}
