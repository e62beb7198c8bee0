package caltime

import "time"

// Date is a day-precision value. It embeds the shared DateTime base, so a
// Date can be used anywhere a DateTime is accepted via its DateTime field.
type Date struct {
	DateTime
}

// NewDate builds a floating date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{OfDate(year, month, day, Floating())}
}

// DateOf truncates t to its day in mode m.
func DateOf(t time.Time, m Mode) Date {
	return Date{New(t, Day, m)}
}

// AsDate rounds any value down to its day.
func AsDate(dt DateTime) Date {
	return Date{dt.WithPrecision(Day)}
}

// ParseDate parses yyyyMMdd.
func ParseDate(s string) (Date, error) {
	dt, err := parse(s, nil, Strict, true)
	if err != nil {
		return Date{}, err
	}
	return Date{dt}, nil
}

// AddDays moves the date by n days.
func (d Date) AddDays(n int) Date {
	return Date{d.AddDate(0, 0, n)}
}
