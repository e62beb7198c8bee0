package recur

import (
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/caltime"
	"github.com/samber/mo"
)

// ParseOptions control how rule text is read.
type ParseOptions struct {
	// Strictness selects rejection (Strict) or overflow normalisation
	// (Lenient) for out-of-range BY-rule values.
	Strictness caltime.Strictness
	// Location applies to an UNTIL value written without a trailing Z.
	Location *time.Location
}

// Parse reads an RRULE value such as "FREQ=WEEKLY;COUNT=10;BYDAY=MO,WE".
// A leading "RRULE:" is accepted. In strict mode a rule with both COUNT
// and UNTIL, or a repeated key, is rejected; lenient mode keeps the last.
func Parse(s string, opts ParseOptions) (*Recur, error) {
	text := strings.TrimPrefix(strings.TrimSpace(s), "RRULE:")
	st := opts.Strictness
	r := &Recur{}
	seen := map[string]bool{}
	haveFreq := false

	for _, part := range strings.Split(text, ";") {
		if part == "" {
			continue
		}
		rawKey, val, ok := strings.Cut(part, "=")
		if !ok {
			return nil, calerr.Format("RRULE", s, nil)
		}
		key := strings.ToUpper(rawKey)
		if seen[key] && st == caltime.Strict {
			return nil, calerr.Formatf(s, "duplicate rule part %s", key)
		}
		seen[key] = true

		var err error
		switch key {
		case "FREQ":
			r.freq, err = ParseFrequency(val)
			haveFreq = err == nil
		case "INTERVAL":
			r.interval, err = positive("INTERVAL", val)
		case "COUNT":
			if _, until := r.term.Until(); until && st == caltime.Strict {
				return nil, calerr.Formatf(s, "COUNT and UNTIL are mutually exclusive")
			}
			var n int
			if n, err = positive("COUNT", val); err == nil {
				r.term = Count(n)
			}
		case "UNTIL":
			if _, count := r.term.Count(); count && st == caltime.Strict {
				return nil, calerr.Formatf(s, "COUNT and UNTIL are mutually exclusive")
			}
			var t caltime.DateTime
			if t, err = caltime.ParseWith(val, opts.Location, st); err == nil {
				r.term = Until(t)
			} else {
				err = calerr.Format("UNTIL", val, err)
			}
		case "BYSECOND":
			r.bySecond, err = parseIntList(val, secondBounds, st)
		case "BYMINUTE":
			r.byMinute, err = parseIntList(val, minuteBounds, st)
		case "BYHOUR":
			r.byHour, err = parseIntList(val, hourBounds, st)
		case "BYDAY":
			r.byDay, err = parseWeekDays(val, st)
		case "BYMONTHDAY":
			r.byMonthDay, err = parseIntList(val, monthDayBounds, st)
		case "BYYEARDAY":
			r.byYearDay, err = parseIntList(val, yearDayBounds, st)
		case "BYWEEKNO":
			r.byWeekNo, err = parseIntList(val, weekNoBounds, st)
		case "BYMONTH":
			r.byMonth, err = parseIntList(val, monthBounds, st)
		case "BYSETPOS":
			r.bySetPos, err = parseIntList(val, setPosBounds, st)
		case "WKST":
			var d time.Weekday
			if d, err = ParseDayCode(val); err == nil {
				r.wkst = mo.Some(d)
			}
		default:
			r.ext = append(r.ext, Extension{Key: rawKey, Value: val})
		}
		if err != nil {
			return nil, err
		}
	}
	if !haveFreq {
		return nil, calerr.Formatf(s, "missing FREQ")
	}
	return r, nil
}

// MustParse is Parse in strict mode that panics on error.
func MustParse(s string) *Recur {
	r, err := Parse(s, ParseOptions{})
	if err != nil {
		panic(err)
	}
	return r
}

func positive(name, val string) (int, error) {
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, calerr.Format(name, val, err)
	}
	if n < 1 {
		return 0, calerr.Range(name, n, 1, 1<<31-1)
	}
	return n, nil
}

func parseWeekDays(val string, st caltime.Strictness) ([]WeekDay, error) {
	parts := strings.Split(val, ",")
	out := make([]WeekDay, 0, len(parts))
	for _, p := range parts {
		w, err := ParseWeekDay(strings.TrimSpace(p), st)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}
