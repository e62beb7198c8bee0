package caltime

import (
	"time"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/internal/calmath"
)

const (
	dateLayout     = "20060102"
	dateTimeLayout = "20060102T150405"
)

// Format renders the wall-clock fields of t as yyyyMMdd or
// yyyyMMdd'T'HHmmss, with a trailing Z when utc is set.
func Format(t time.Time, p Precision, utc bool) string {
	if p == Day {
		return t.Format(dateLayout)
	}
	s := t.Format(dateTimeLayout)
	if utc {
		s += "Z"
	}
	return s
}

// Parse reads a DATE or DATE-TIME value strictly. A trailing Z yields UTC;
// otherwise loc selects Zoned(loc), or Floating when loc is nil.
func Parse(s string, loc *time.Location) (DateTime, error) {
	return parse(s, loc, Strict, false)
}

// ParseWith is Parse with an explicit strictness.
func ParseWith(s string, loc *time.Location, st Strictness) (DateTime, error) {
	return parse(s, loc, st, false)
}

// ParseDateTime reads a value that must carry a time part.
func ParseDateTime(s string, loc *time.Location) (DateTime, error) {
	dt, err := parse(s, loc, Strict, false)
	if err != nil {
		return DateTime{}, err
	}
	if dt.IsDate() {
		return DateTime{}, calerr.Format("DATE-TIME", s, nil)
	}
	return dt, nil
}

func parse(s string, loc *time.Location, st Strictness, dateOnly bool) (DateTime, error) {
	kind := "DATE-TIME"
	if dateOnly {
		kind = "DATE"
	}
	if len(s) < 8 {
		return DateTime{}, calerr.Format(kind, s, nil)
	}
	year, ok1 := digits(s[0:4])
	month, ok2 := digits(s[4:6])
	day, ok3 := digits(s[6:8])
	if !ok1 || !ok2 || !ok3 {
		return DateTime{}, calerr.Format(kind, s, nil)
	}

	rest := s[8:]
	if dateOnly || rest == "" || rest[0] != 'T' {
		if rest != "" && st == Strict {
			return DateTime{}, calerr.Format(kind, s, nil)
		}
		if st == Strict && !calmath.Of(year, time.Month(month), day).Valid() {
			return DateTime{}, calerr.Formatf(s, "day %04d-%02d-%02d does not exist", year, month, day)
		}
		m := Zoned(loc)
		return New(time.Date(year, time.Month(month), day, 0, 0, 0, 0, m.Location()), Day, m), nil
	}

	if len(rest) < 7 {
		return DateTime{}, calerr.Format(kind, s, nil)
	}
	hour, ok1 := digits(rest[1:3])
	minute, ok2 := digits(rest[3:5])
	sec, ok3 := digits(rest[5:7])
	if !ok1 || !ok2 || !ok3 {
		return DateTime{}, calerr.Format(kind, s, nil)
	}
	tail := rest[7:]
	m := Zoned(loc)
	if len(tail) > 0 && tail[0] == 'Z' {
		m = UTC()
		tail = tail[1:]
	}
	if st == Strict {
		if tail != "" {
			return DateTime{}, calerr.Format(kind, s, nil)
		}
		if !calmath.Of(year, time.Month(month), day).Valid() || hour > 23 || minute > 59 || sec > 60 {
			return DateTime{}, calerr.Formatf(s, "field out of range")
		}
	}
	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, m.Location())
	return New(t, Second, m), nil
}

func digits(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
