package recur

import (
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/caltime"
	"github.com/cyp0633/calrecur/internal/calmath"
)

// bounds of a BY-rule list. signed lists forbid zero and accept [-hi, -lo].
type bounds struct {
	name   string
	lo, hi int
	signed bool
}

var (
	secondBounds   = bounds{name: "BYSECOND", lo: 0, hi: 60}
	minuteBounds   = bounds{name: "BYMINUTE", lo: 0, hi: 59}
	hourBounds     = bounds{name: "BYHOUR", lo: 0, hi: 23}
	monthDayBounds = bounds{name: "BYMONTHDAY", lo: 1, hi: 31, signed: true}
	yearDayBounds  = bounds{name: "BYYEARDAY", lo: 1, hi: 366, signed: true}
	weekNoBounds   = bounds{name: "BYWEEKNO", lo: 1, hi: 53, signed: true}
	monthBounds    = bounds{name: "BYMONTH", lo: 1, hi: 12}
	setPosBounds   = bounds{name: "BYSETPOS", lo: 1, hi: 366, signed: true}
)

func (b bounds) check(v int) error {
	ok := v >= b.lo && v <= b.hi
	if b.signed && v < 0 {
		ok = -v >= b.lo && -v <= b.hi
	}
	if ok {
		return nil
	}
	lo := b.lo
	if b.signed {
		lo = -b.hi
	}
	return calerr.Range(b.name, v, lo, b.hi)
}

// parseIntList reads a comma-separated list of signed integers and checks
// each against b in strict mode.
func parseIntList(s string, b bounds, st caltime.Strictness) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimPrefix(p, "+"))
		if err != nil {
			return nil, calerr.Format(b.name, s, err)
		}
		if st == caltime.Strict {
			if err := b.check(n); err != nil {
				return nil, err
			}
		}
		out = append(out, n)
	}
	return out, nil
}

func formatIntList(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// resolveIndex maps a signed 1-based index onto 1..n. An index inside
// [-max, max] that misses the actual length n is not resolvable. Indices
// beyond max only survive lenient parsing; they are returned unreduced so
// calendar overflow carries them into the neighbouring period.
func resolveIndex(v, n, max int) (int, bool) {
	switch {
	case v > 0 && v <= max:
		return v, v <= n
	case v < 0 && v >= -max:
		i := n + v + 1
		return i, i >= 1
	case v < 0:
		return n + v + 1, true
	}
	return v, true
}

// AbsYearDay resolves a BYYEARDAY value against year.
func AbsYearDay(year, v int) (int, bool) {
	return resolveIndex(v, calmath.DaysInYear(year), yearDayBounds.hi)
}

// AbsMonthDay resolves a BYMONTHDAY value against the given month.
func AbsMonthDay(year int, month time.Month, v int) (int, bool) {
	return resolveIndex(v, calmath.DaysIn(year, month), monthDayBounds.hi)
}

// AbsWeekNo resolves a BYWEEKNO value against the week-numbering year.
func AbsWeekNo(year int, wkst time.Weekday, v int) (int, bool) {
	return resolveIndex(v, calmath.WeeksInYear(year, wkst), weekNoBounds.hi)
}
