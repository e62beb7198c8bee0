// Package calmath is stateless proleptic-Gregorian arithmetic over civil
// dates. Nothing here holds state, so every function is safe to call from
// any goroutine.
package calmath

import (
	"fmt"
	"time"
)

// Date is a civil calendar day. A Date built from raw rule values may be
// invalid (day past the end of the month); callers check Valid before use.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Of builds a Date without normalising it.
func Of(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// FromTime returns the wall-clock date of t in its own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Valid reports whether the month and day name a real day.
func (d Date) Valid() bool {
	return d.Month >= time.January && d.Month <= time.December &&
		d.Day >= 1 && d.Day <= DaysIn(d.Year, d.Month)
}

// Normalize folds overflowing fields the way time.Date does (Feb 30 -> Mar 1/2).
func (d Date) Normalize() Date {
	return FromDays(ToDays(d))
}

// Weekday of the date.
func (d Date) Weekday() time.Weekday {
	// 1970-01-01 was a Thursday.
	return time.Weekday(mod(ToDays(d)+4, 7))
}

// YearDay is the 1-based ordinal day within the year.
func (d Date) YearDay() int {
	return ToDays(d) - ToDays(Date{d.Year, time.January, 1}) + 1
}

// AddDays moves the date by n days.
func (d Date) AddDays(n int) Date {
	return FromDays(ToDays(d) + n)
}

// Compare orders two valid dates.
func (d Date) Compare(o Date) int {
	a, b := ToDays(d), ToDays(o)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Time anchors the date at the given wall clock in loc.
func (d Date) Time(hour, min, sec int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, min, sec, 0, loc)
}

// IsLeap reports whether year has a February 29th.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysIn returns the length of month m in year.
func DaysIn(year int, m time.Month) int {
	switch m {
	case time.February:
		if IsLeap(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	}
	return 31
}

// DaysInYear returns 365 or 366.
func DaysInYear(year int) int {
	if IsLeap(year) {
		return 366
	}
	return 365
}

// AddMonths moves (year, month) by n months.
func AddMonths(year int, m time.Month, n int) (int, time.Month) {
	total := year*12 + int(m) - 1 + n
	return floorDiv(total, 12), time.Month(mod(total, 12) + 1)
}

// ToDays returns the number of days since 1970-01-01. Out-of-range months
// and days are folded into neighbouring months.
func ToDays(d Date) int {
	y, m := AddMonths(d.Year, time.January, int(d.Month)-1)
	// days_from_civil, H. Hinnant
	yy := y
	if m <= time.February {
		yy--
	}
	era := floorDiv(yy, 400)
	yoe := yy - era*400
	mp := (int(m) + 9) % 12
	doy := (153*mp + 2) / 5
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468 + d.Day - 1
}

// FromDays is the inverse of ToDays.
func FromDays(z int) Date {
	z += 719468
	era := floorDiv(z, 146097)
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	y := yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	d := doy - (153*mp+2)/5 + 1
	m := mp + 3
	if m > 12 {
		m -= 12
	}
	if m <= 2 {
		y++
	}
	return Date{Year: y, Month: time.Month(m), Day: d}
}

// WeekStart returns the first day of the week containing d, weeks
// beginning on wkst.
func WeekStart(d Date, wkst time.Weekday) Date {
	back := mod(int(d.Weekday())-int(wkst), 7)
	return d.AddDays(-back)
}

// WeekOne returns the first day of week number 1 of year: the wkst-aligned
// week holding at least four days of the year, which is always the week
// containing January 4th.
func WeekOne(year int, wkst time.Weekday) Date {
	return WeekStart(Date{year, time.January, 4}, wkst)
}

// WeeksInYear returns 52 or 53.
func WeeksInYear(year int, wkst time.Weekday) int {
	return (ToDays(WeekOne(year+1, wkst)) - ToDays(WeekOne(year, wkst))) / 7
}

// WeekNumber returns the week-numbering year and week of d.
func WeekNumber(d Date, wkst time.Weekday) (year, week int) {
	year = d.Year
	if d.Compare(WeekOne(year+1, wkst)) >= 0 {
		year++
	} else if d.Compare(WeekOne(year, wkst)) < 0 {
		year--
	}
	week = (ToDays(d)-ToDays(WeekOne(year, wkst)))/7 + 1
	return year, week
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
