package recur

import (
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/caltime"
	"github.com/cyp0633/calrecur/internal/calmath"
)

// WeekDay is a BYDAY token: a weekday with an optional signed ordinal.
// Offset 0 means every such weekday in scope.
type WeekDay struct {
	Day    time.Weekday
	Offset int
}

var (
	MO = WeekDay{Day: time.Monday}
	TU = WeekDay{Day: time.Tuesday}
	WE = WeekDay{Day: time.Wednesday}
	TH = WeekDay{Day: time.Thursday}
	FR = WeekDay{Day: time.Friday}
	SA = WeekDay{Day: time.Saturday}
	SU = WeekDay{Day: time.Sunday}
)

var dayCodes = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// Nth returns the weekday with ordinal n, e.g. FR.Nth(-1) is the last Friday.
func (w WeekDay) Nth(n int) WeekDay {
	return WeekDay{Day: w.Day, Offset: n}
}

func (w WeekDay) String() string {
	code := dayCodes[w.Day]
	if w.Offset == 0 {
		return code
	}
	return strconv.Itoa(w.Offset) + code
}

// DayCode returns the two-letter code for d.
func DayCode(d time.Weekday) string { return dayCodes[d] }

// ParseDayCode reads a bare two-letter weekday code.
func ParseDayCode(s string) (time.Weekday, error) {
	for i, c := range dayCodes {
		if strings.EqualFold(s, c) {
			return time.Weekday(i), nil
		}
	}
	return 0, calerr.Format("weekday", s, nil)
}

// ParseWeekDay reads [+/-][n]DD. In strict mode the ordinal must lie in
// [-53, -1] or [1, 53].
func ParseWeekDay(s string, st caltime.Strictness) (WeekDay, error) {
	if len(s) < 2 {
		return WeekDay{}, calerr.Format("weekday", s, nil)
	}
	day, err := ParseDayCode(s[len(s)-2:])
	if err != nil {
		return WeekDay{}, calerr.Format("weekday", s, nil)
	}
	w := WeekDay{Day: day}
	num := s[:len(s)-2]
	if num == "" {
		return w, nil
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return WeekDay{}, calerr.Format("weekday", s, err)
	}
	if st == caltime.Strict && (n == 0 || n < -53 || n > 53) {
		return WeekDay{}, calerr.Range("BYDAY", n, -53, 53)
	}
	w.Offset = n
	return w, nil
}

// AbsWeekdays lists every day in [from, to] falling on w.Day. A non-zero
// offset then selects the nth match counted from the start, or from the
// end when negative. An offset past either end keeps every match.
func AbsWeekdays(from, to calmath.Date, w WeekDay) []calmath.Date {
	first := from.AddDays(int((w.Day - from.Weekday() + 7) % 7))
	var all []calmath.Date
	for d := first; d.Compare(to) <= 0; d = d.AddDays(7) {
		all = append(all, d)
	}
	if w.Offset == 0 {
		return all
	}
	i := w.Offset - 1
	if w.Offset < 0 {
		i = len(all) + w.Offset
	}
	if i < 0 || i >= len(all) {
		return all
	}
	return all[i : i+1]
}
