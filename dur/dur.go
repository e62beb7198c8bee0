// Package dur implements the RFC 5545 DURATION value: a signed,
// calendar-aware amount of nominal time.
package dur

import (
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/caltime"
	"github.com/cyp0633/calrecur/internal/calmath"
)

// Dur is either a week form (nW) or a day/time form, never both.
// Values are immutable.
type Dur struct {
	negative bool
	weeks    int
	days     int
	hours    int
	minutes  int
	seconds  int
}

// Weeks builds a week-form duration. Negative n yields a negative duration.
func Weeks(n int) Dur {
	d := Dur{weeks: abs(n)}
	d.negative = n < 0
	return d
}

// New builds a day/time form duration. Fields are taken as magnitudes;
// the result is negative when negative is set.
func New(negative bool, days, hours, minutes, seconds int) Dur {
	return Dur{
		negative: negative,
		days:     abs(days),
		hours:    abs(hours),
		minutes:  abs(minutes),
		seconds:  abs(seconds),
	}
}

// FromDuration splits an elapsed time.Duration into days/hours/minutes/seconds.
// Sub-second remainders are dropped.
func FromDuration(td time.Duration) Dur {
	neg := td < 0
	if neg {
		td = -td
	}
	total := int(td / time.Second)
	return normalise(neg, total)
}

func normalise(neg bool, total int) Dur {
	d := Dur{negative: neg && total != 0}
	d.seconds = total % 60
	total /= 60
	d.minutes = total % 60
	total /= 60
	d.hours = total % 24
	d.days = total / 24
	if d.seconds == 0 && d.minutes == 0 && d.hours == 0 && d.days != 0 && d.days%7 == 0 {
		d.weeks = d.days / 7
		d.days = 0
	}
	return d
}

// Between computes the delta from start to end as whole wall-clock days
// in start's location plus the exact elapsed remainder. A 23 or 25 hour
// span across a DST change that covers one calendar day is P1D, and the
// remainder is never folded by a repeated hour.
func Between(start, end caltime.DateTime) Dur {
	if start.Mode().IsFloating() != end.Mode().IsFloating() {
		end = end.In(start.Mode())
	}
	neg := end.Before(start)
	step := 1
	if neg {
		step = -1
	}
	loc := start.Mode().Location()
	days := calmath.ToDays(calmath.FromTime(end.Time().In(loc))) - calmath.ToDays(calmath.FromTime(start.Time().In(loc)))
	if days*step < 0 {
		days = 0
	}
	mid := addDays(start, days)
	for days != 0 && overshoots(mid, end, neg) {
		days -= step
		mid = addDays(start, days)
	}
	rest := int(end.Sub(mid) / time.Second)
	return compose(neg, abs(days), abs(rest))
}

func overshoots(mid, end caltime.DateTime, neg bool) bool {
	if neg {
		return mid.Before(end)
	}
	return mid.After(end)
}

// addDays moves start by whole wall days, keeping the instant for zero.
func addDays(start caltime.DateTime, days int) caltime.DateTime {
	if days == 0 {
		return start
	}
	return start.AddClock(days, 0, 0, 0)
}

// compose builds a duration from whole days and an elapsed remainder in
// seconds. The remainder stays in hours so a 25 hour wall day is PT24H45M
// rather than P1DT45M.
func compose(neg bool, days, secs int) Dur {
	d := Dur{negative: neg && (days != 0 || secs != 0)}
	d.seconds = secs % 60
	secs /= 60
	d.minutes = secs % 60
	d.hours = secs / 60
	if secs == 0 && d.seconds == 0 && days != 0 && days%7 == 0 {
		d.weeks = days / 7
	} else {
		d.days = days
	}
	return d
}

// Parse reads [+/-]P(nW | nD[T[nH][nM][nS]] | T(nH|nM|nS)).
func Parse(s string) (Dur, error) {
	bad := func() (Dur, error) { return Dur{}, calerr.Format("DURATION", s, nil) }

	rest := s
	var d Dur
	switch {
	case strings.HasPrefix(rest, "-"):
		d.negative = true
		rest = rest[1:]
	case strings.HasPrefix(rest, "+"):
		rest = rest[1:]
	}
	if !strings.HasPrefix(rest, "P") {
		return bad()
	}
	rest = rest[1:]
	if rest == "" {
		return bad()
	}

	inTime := false
	seen := 0 // order guard: W=1 D=2 T=3 H=4 M=5 S=6
	num := ""
	anyValue := false
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if c >= '0' && c <= '9' {
			num += string(c)
			continue
		}
		if seen == 1 {
			// nothing may follow the week designator
			return bad()
		}
		var order int
		switch {
		case c == 'T' && !inTime:
			if num != "" {
				return bad()
			}
			inTime = true
			order = 3
		case c == 'W' && !inTime:
			order = 1
		case c == 'D' && !inTime:
			order = 2
		case c == 'H' && inTime:
			order = 4
		case c == 'M' && inTime:
			order = 5
		case c == 'S' && inTime:
			order = 6
		default:
			return bad()
		}
		if order <= seen {
			return bad()
		}
		seen = order
		if c == 'T' {
			continue
		}
		if num == "" {
			return bad()
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return Dur{}, calerr.Format("DURATION", s, err)
		}
		num = ""
		anyValue = true
		switch c {
		case 'W':
			d.weeks = n
		case 'D':
			d.days = n
		case 'H':
			d.hours = n
		case 'M':
			d.minutes = n
		case 'S':
			d.seconds = n
		}
	}
	if num != "" || !anyValue || (inTime && seen == 3) {
		return bad()
	}
	return d, nil
}

// MustParse is Parse that panics, for constants and tests.
func MustParse(s string) Dur {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Dur) String() string {
	var b strings.Builder
	if d.negative {
		b.WriteByte('-')
	}
	b.WriteByte('P')
	if d.weeks > 0 {
		b.WriteString(strconv.Itoa(d.weeks))
		b.WriteByte('W')
		return b.String()
	}
	if d.days > 0 {
		b.WriteString(strconv.Itoa(d.days))
		b.WriteByte('D')
	}
	if d.hours > 0 || d.minutes > 0 || d.seconds > 0 {
		b.WriteByte('T')
		if d.hours > 0 {
			b.WriteString(strconv.Itoa(d.hours))
			b.WriteByte('H')
		}
		if d.minutes > 0 {
			b.WriteString(strconv.Itoa(d.minutes))
			b.WriteByte('M')
		}
		if d.seconds > 0 {
			b.WriteString(strconv.Itoa(d.seconds))
			b.WriteByte('S')
		}
	}
	if d.IsZero() {
		b.WriteString("T0S")
	}
	return b.String()
}

// Project adds the duration to start: weeks and days as nominal wall
// days, then hours, minutes and seconds as exact elapsed time.
func (d Dur) Project(start caltime.DateTime) caltime.DateTime {
	sign := 1
	if d.negative {
		sign = -1
	}
	mid := addDays(start, sign*(d.weeks*7+d.days))
	elapsed := time.Duration(d.hours)*time.Hour + time.Duration(d.minutes)*time.Minute + time.Duration(d.seconds)*time.Second
	return mid.Add(time.Duration(sign) * elapsed)
}

// Negate flips the sign.
func (d Dur) Negate() Dur {
	d.negative = !d.negative && !d.IsZero()
	return d
}

// IsZero reports whether every field is zero.
func (d Dur) IsZero() bool {
	return d.weeks == 0 && d.days == 0 && d.hours == 0 && d.minutes == 0 && d.seconds == 0
}

// Negative reports the sign.
func (d Dur) Negative() bool { return d.negative }

// Fields returns the magnitudes.
func (d Dur) Fields() (weeks, days, hours, minutes, seconds int) {
	return d.weeks, d.days, d.hours, d.minutes, d.seconds
}

// Approx converts to elapsed time assuming 24-hour days.
func (d Dur) Approx() time.Duration {
	total := time.Duration(d.weeks*7+d.days)*24*time.Hour +
		time.Duration(d.hours)*time.Hour +
		time.Duration(d.minutes)*time.Minute +
		time.Duration(d.seconds)*time.Second
	if d.negative {
		return -total
	}
	return total
}

// Compare is lexicographic over (negative, weeks, days, hours, minutes,
// seconds). It is a field order, not a magnitude order: P1W compares
// above P8D, and any negative value compares above any positive one.
// Use Approx for magnitude comparisons.
func (d Dur) Compare(o Dur) int {
	if d.negative != o.negative {
		if d.negative {
			return 1
		}
		return -1
	}
	for _, p := range [][2]int{
		{d.weeks, o.weeks},
		{d.days, o.days},
		{d.hours, o.hours},
		{d.minutes, o.minutes},
		{d.seconds, o.seconds},
	} {
		if p[0] != p[1] {
			if p[0] < p[1] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Equal reports field-wise equality.
func (d Dur) Equal(o Dur) bool { return d.Compare(o) == 0 }

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
