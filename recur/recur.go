// Package recur implements the RFC 5545 RRULE value and its expansion
// into occurrence instants.
package recur

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/caltime"
	"github.com/samber/mo"
)

// Frequency is the FREQ rule part. Values are ordered from finest to
// coarsest, so f > Daily means "coarser than a day".
type Frequency int

const (
	Secondly Frequency = iota
	Minutely
	Hourly
	Daily
	Weekly
	Monthly
	Yearly
)

var freqNames = [...]string{"SECONDLY", "MINUTELY", "HOURLY", "DAILY", "WEEKLY", "MONTHLY", "YEARLY"}

func (f Frequency) String() string {
	if f < Secondly || f > Yearly {
		return "Frequency(" + strconv.Itoa(int(f)) + ")"
	}
	return freqNames[f]
}

// ParseFrequency reads a FREQ value.
func ParseFrequency(s string) (Frequency, error) {
	for i, n := range freqNames {
		if strings.EqualFold(s, n) {
			return Frequency(i), nil
		}
	}
	return 0, calerr.Format("FREQ", s, nil)
}

type termKind int

const (
	unbounded termKind = iota
	byCount
	byUntil
)

// Termination is exactly one of Count(n), Until(t) or Unbounded.
type Termination struct {
	kind  termKind
	count int
	until caltime.DateTime
}

// Unbounded is the termination of a rule with neither COUNT nor UNTIL.
var Unbounded = Termination{}

// Count terminates after n occurrences.
func Count(n int) Termination { return Termination{kind: byCount, count: n} }

// Until terminates after the last occurrence at or before t.
func Until(t caltime.DateTime) Termination { return Termination{kind: byUntil, until: t} }

// Count returns the occurrence limit, if any.
func (t Termination) Count() (int, bool) { return t.count, t.kind == byCount }

// Until returns the bound, if any.
func (t Termination) Until() (caltime.DateTime, bool) { return t.until, t.kind == byUntil }

// IsUnbounded reports whether neither COUNT nor UNTIL applies.
func (t Termination) IsUnbounded() bool { return t.kind == unbounded }

// Extension is an unrecognised rule part kept for round-tripping.
type Extension struct {
	Key   string
	Value string
}

// Recur is a parsed recurrence rule. Everything except the termination is
// fixed at construction. SetCount, SetUntil and SetUnbounded are
// single-writer operations.
type Recur struct {
	freq       Frequency
	interval   int
	term       Termination
	bySecond   []int
	byMinute   []int
	byHour     []int
	byDay      []WeekDay
	byMonthDay []int
	byYearDay  []int
	byWeekNo   []int
	byMonth    []int
	bySetPos   []int
	wkst       mo.Option[time.Weekday]
	ext        []Extension
}

// Option configures a rule built with New.
type Option func(*Recur)

func WithInterval(n int) Option { return func(r *Recur) { r.interval = n } }
func WithCount(n int) Option { return func(r *Recur) { r.term = Count(n) } }
func WithUntil(t caltime.DateTime) Option { return func(r *Recur) { r.term = Until(t) } }
func BySecond(v ...int) Option { return func(r *Recur) { r.bySecond = v } }
func ByMinute(v ...int) Option { return func(r *Recur) { r.byMinute = v } }
func ByHour(v ...int) Option { return func(r *Recur) { r.byHour = v } }
func ByDay(v ...WeekDay) Option { return func(r *Recur) { r.byDay = v } }
func ByMonthDay(v ...int) Option { return func(r *Recur) { r.byMonthDay = v } }
func ByYearDay(v ...int) Option { return func(r *Recur) { r.byYearDay = v } }
func ByWeekNo(v ...int) Option { return func(r *Recur) { r.byWeekNo = v } }
func ByMonth(v ...int) Option { return func(r *Recur) { r.byMonth = v } }
func BySetPos(v ...int) Option { return func(r *Recur) { r.bySetPos = v } }
func WithWeekStart(d time.Weekday) Option { return func(r *Recur) { r.wkst = mo.Some(d) } }

// WithExtension appends an unrecognised key/value pair.
func WithExtension(key, value string) Option {
	return func(r *Recur) { r.ext = append(r.ext, Extension{Key: key, Value: value}) }
}

// New builds a rule and validates it strictly.
func New(freq Frequency, opts ...Option) (*Recur, error) {
	if freq < Secondly || freq > Yearly {
		return nil, calerr.Format("FREQ", freq.String(), nil)
	}
	r := &Recur{freq: freq}
	for _, o := range opts {
		o(r)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Clone returns a copy of r that shares no state with it.
func (r *Recur) Clone() *Recur {
	c := *r
	c.bySecond = slices.Clone(r.bySecond)
	c.byMinute = slices.Clone(r.byMinute)
	c.byHour = slices.Clone(r.byHour)
	c.byDay = slices.Clone(r.byDay)
	c.byMonthDay = slices.Clone(r.byMonthDay)
	c.byYearDay = slices.Clone(r.byYearDay)
	c.byWeekNo = slices.Clone(r.byWeekNo)
	c.byMonth = slices.Clone(r.byMonth)
	c.bySetPos = slices.Clone(r.bySetPos)
	c.ext = slices.Clone(r.ext)
	return &c
}

func (r *Recur) validate() error {
	if r.interval < 0 {
		return calerr.Range("INTERVAL", r.interval, 1, 1<<31-1)
	}
	if n, ok := r.term.Count(); ok && n < 1 {
		return calerr.Range("COUNT", n, 1, 1<<31-1)
	}
	lists := []struct {
		vs []int
		b  bounds
	}{
		{r.bySecond, secondBounds},
		{r.byMinute, minuteBounds},
		{r.byHour, hourBounds},
		{r.byMonthDay, monthDayBounds},
		{r.byYearDay, yearDayBounds},
		{r.byWeekNo, weekNoBounds},
		{r.byMonth, monthBounds},
		{r.bySetPos, setPosBounds},
	}
	for _, l := range lists {
		for _, v := range l.vs {
			if err := l.b.check(v); err != nil {
				return err
			}
		}
	}
	for _, w := range r.byDay {
		if w.Offset < -53 || w.Offset > 53 {
			return calerr.Range("BYDAY", w.Offset, -53, 53)
		}
	}
	return nil
}

// Frequency of the rule.
func (r *Recur) Frequency() Frequency { return r.freq }

// Interval returns INTERVAL, defaulting to 1.
func (r *Recur) Interval() int {
	if r.interval < 1 {
		return 1
	}
	return r.interval
}

// Termination returns the current COUNT/UNTIL state.
func (r *Recur) Termination() Termination { return r.term }

// SetCount replaces the termination with COUNT=n, clearing any UNTIL.
func (r *Recur) SetCount(n int) error {
	if n < 1 {
		return calerr.Range("COUNT", n, 1, 1<<31-1)
	}
	r.term = Count(n)
	return nil
}

// SetUntil replaces the termination with UNTIL=t, clearing any COUNT.
func (r *Recur) SetUntil(t caltime.DateTime) { r.term = Until(t) }

// SetUnbounded clears COUNT and UNTIL.
func (r *Recur) SetUnbounded() { r.term = Unbounded }

func (r *Recur) BySecond() []int { return slices.Clone(r.bySecond) }
func (r *Recur) ByMinute() []int { return slices.Clone(r.byMinute) }
func (r *Recur) ByHour() []int { return slices.Clone(r.byHour) }
func (r *Recur) ByDay() []WeekDay { return slices.Clone(r.byDay) }
func (r *Recur) ByMonthDay() []int { return slices.Clone(r.byMonthDay) }
func (r *Recur) ByYearDay() []int { return slices.Clone(r.byYearDay) }
func (r *Recur) ByWeekNo() []int { return slices.Clone(r.byWeekNo) }
func (r *Recur) ByMonth() []int { return slices.Clone(r.byMonth) }
func (r *Recur) BySetPos() []int { return slices.Clone(r.bySetPos) }
func (r *Recur) Extensions() []Extension { return slices.Clone(r.ext) }

// WeekStart returns WKST, defaulting to Monday.
func (r *Recur) WeekStart() time.Weekday { return r.wkst.OrElse(time.Monday) }

// String renders the rule with parts in RFC 5545 order, followed by any
// extensions in their original order.
func (r *Recur) String() string {
	parts := []string{"FREQ=" + r.freq.String()}
	add := func(key, val string) { parts = append(parts, key+"="+val) }
	if r.interval > 0 {
		add("INTERVAL", strconv.Itoa(r.interval))
	}
	if until, ok := r.term.Until(); ok {
		add("UNTIL", until.String())
	}
	if n, ok := r.term.Count(); ok {
		add("COUNT", strconv.Itoa(n))
	}
	for _, l := range []struct {
		key string
		vs  []int
	}{
		{"BYSECOND", r.bySecond},
		{"BYMINUTE", r.byMinute},
		{"BYHOUR", r.byHour},
	} {
		if len(l.vs) > 0 {
			add(l.key, formatIntList(l.vs))
		}
	}
	if len(r.byDay) > 0 {
		days := make([]string, len(r.byDay))
		for i, w := range r.byDay {
			days[i] = w.String()
		}
		add("BYDAY", strings.Join(days, ","))
	}
	for _, l := range []struct {
		key string
		vs  []int
	}{
		{"BYMONTHDAY", r.byMonthDay},
		{"BYYEARDAY", r.byYearDay},
		{"BYWEEKNO", r.byWeekNo},
		{"BYMONTH", r.byMonth},
		{"BYSETPOS", r.bySetPos},
	} {
		if len(l.vs) > 0 {
			add(l.key, formatIntList(l.vs))
		}
	}
	if d, ok := r.wkst.Get(); ok {
		add("WKST", DayCode(d))
	}
	for _, e := range r.ext {
		add(e.Key, e.Value)
	}
	return strings.Join(parts, ";")
}
