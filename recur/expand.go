package recur

import (
	"slices"
	"time"

	"github.com/cyp0633/calrecur/caltime"
	"github.com/cyp0633/calrecur/internal/calmath"
)

// plan is a rule bound to a seed. It is built per call and never shared.
type plan struct {
	r        *Recur
	rule     string
	freq     Frequency
	interval int
	wkst     time.Weekday
	mode     caltime.Mode
	prec     caltime.Precision
	loc      *time.Location
	seed     time.Time
	seedDate calmath.Date
	dateOnly bool

	// hours, minutes and seconds expanded for every day of a cycle when
	// the frequency is coarser than the field.
	hours, minutes, seconds []int

	count    int
	until    time.Time
	hasUntil bool
}

// cursor locates one cycle. For YEARLY and MONTHLY date is a placeholder
// carrying the seed's day, which may not exist in that month.
type cursor struct {
	date calmath.Date
	at   time.Time
}

func newPlan(r *Recur, seed caltime.DateTime) *plan {
	p := &plan{
		r:        r,
		rule:     r.String(),
		freq:     r.freq,
		interval: r.Interval(),
		wkst:     r.WeekStart(),
		mode:     seed.Mode(),
		prec:     seed.Precision(),
		loc:      seed.Mode().Location(),
		seed:     seed.Time(),
		seedDate: seed.Date(),
		dateOnly: seed.IsDate(),
	}
	h, m, s := p.seed.Clock()
	if p.dateOnly {
		p.hours, p.minutes, p.seconds = []int{0}, []int{0}, []int{0}
	} else {
		p.hours = timeList(r.byHour, p.freq > Hourly, h)
		p.minutes = timeList(r.byMinute, p.freq > Minutely, m)
		p.seconds = timeList(r.bySecond, p.freq > Secondly, s)
	}
	if n, ok := r.term.Count(); ok {
		p.count = n
	}
	if u, ok := r.term.Until(); ok {
		p.hasUntil = true
		if u.IsDate() {
			// a DATE bound includes the whole day
			d := u.Date()
			p.until = time.Date(d.Year, d.Month, d.Day+1, 0, 0, 0, 0, p.loc).Add(-time.Second)
		} else {
			p.until = p.instant(u)
		}
	}
	return p
}

func timeList(by []int, expands bool, seed int) []int {
	if !expands {
		return nil
	}
	if len(by) == 0 {
		return []int{seed}
	}
	v := slices.Clone(by)
	slices.Sort(v)
	return slices.Compact(v)
}

// instant places dt on the plan's time line. Floating values meet zoned
// ones by wall clock.
func (p *plan) instant(dt caltime.DateTime) time.Time {
	if dt.Mode().IsFloating() != p.mode.IsFloating() {
		return dt.In(p.mode).Time()
	}
	return dt.Time()
}

func (p *plan) value(t time.Time) caltime.DateTime {
	return caltime.New(t, p.prec, p.mode)
}

func (p *plan) unitSeconds() int64 {
	switch p.freq {
	case Hourly:
		return 3600
	case Minutely:
		return 60
	}
	return 1
}

// cursorAt returns cycle n. Every cycle is computed from the seed, never
// from the previous cycle, so month-end and leap-day seeds do not drift.
func (p *plan) cursorAt(n int) cursor {
	step := n * p.interval
	switch p.freq {
	case Yearly:
		return cursor{date: calmath.Of(p.seedDate.Year+step, p.seedDate.Month, p.seedDate.Day)}
	case Monthly:
		y, m := calmath.AddMonths(p.seedDate.Year, p.seedDate.Month, step)
		return cursor{date: calmath.Of(y, m, p.seedDate.Day)}
	case Weekly:
		return cursor{date: p.seedDate.AddDays(7 * step)}
	case Daily:
		return cursor{date: p.seedDate.AddDays(step)}
	}
	at := time.Unix(p.seed.Unix()+int64(step)*p.unitSeconds(), 0).In(p.loc)
	return cursor{date: calmath.FromTime(at), at: at}
}

// cycleNear returns a cycle index at most one cycle before the one
// holding t.
func (p *plan) cycleNear(t time.Time) int {
	t = t.In(p.loc)
	var n int
	switch p.freq {
	case Yearly:
		n = (t.Year() - p.seedDate.Year) / p.interval
	case Monthly:
		n = ((t.Year()-p.seedDate.Year)*12 + int(t.Month()-p.seedDate.Month)) / p.interval
	case Weekly:
		n = (calmath.ToDays(calmath.FromTime(t)) - calmath.ToDays(p.seedDate)) / (7 * p.interval)
	case Daily:
		n = (calmath.ToDays(calmath.FromTime(t)) - calmath.ToDays(p.seedDate)) / p.interval
	default:
		n = int((t.Unix() - p.seed.Unix()) / (int64(p.interval) * p.unitSeconds()))
	}
	return max(0, n-1)
}

// scopeStart is the earliest instant any candidate of the cycle can have.
func (p *plan) scopeStart(c cursor) time.Time {
	switch p.freq {
	case Yearly:
		return time.Date(c.date.Year, time.January, 1, 0, 0, 0, 0, p.loc)
	case Monthly:
		return time.Date(c.date.Year, c.date.Month, 1, 0, 0, 0, 0, p.loc)
	case Weekly:
		return calmath.WeekStart(c.date, p.wkst).Time(0, 0, 0, p.loc)
	case Daily:
		return c.date.Time(0, 0, 0, p.loc)
	case Hourly:
		_, m, s := c.at.Clock()
		return c.at.Add(-time.Duration(m*60+s) * time.Second)
	case Minutely:
		return c.at.Add(-time.Duration(c.at.Second()) * time.Second)
	}
	return c.at
}

// cycle runs the BY-rule pipeline for one cursor and returns the sorted,
// de-duplicated candidates that survive BYSETPOS.
func (p *plan) cycle(c cursor) []time.Time {
	days := p.days(c)
	if len(days) == 0 {
		return nil
	}
	ts := p.instants(c, days)
	slices.SortFunc(ts, time.Time.Compare)
	ts = slices.CompactFunc(ts, time.Time.Equal)
	return setPos(ts, p.r.bySetPos)
}

// daySet is the day-level candidate set threaded through the date stages.
type daySet struct {
	days []calmath.Date
	// months is set once BYMONTH expanded a yearly cycle into months.
	months bool
	// chosen is set once a stage expanded the cycle into concrete days;
	// later date stages then only limit.
	chosen bool
	limits []func(calmath.Date) bool
}

func (s *daySet) limit(f func(calmath.Date) bool) {
	s.limits = append(s.limits, f)
}

func (s *daySet) resolve() []calmath.Date {
	out := make([]calmath.Date, 0, len(s.days))
next:
	for _, d := range s.days {
		if !d.Valid() {
			continue
		}
		for _, f := range s.limits {
			if !f(d) {
				continue next
			}
		}
		out = append(out, d)
	}
	slices.SortFunc(out, calmath.Date.Compare)
	return slices.Compact(out)
}

// days runs the date stages in order: BYMONTH, BYWEEKNO, BYYEARDAY,
// BYMONTHDAY, BYDAY. Limits are predicates on the final days.
func (p *plan) days(c cursor) []calmath.Date {
	s := &daySet{days: []calmath.Date{c.date}}
	p.byMonth(s, c)
	p.byWeekNo(s, c)
	p.byYearDay(s, c)
	p.byMonthDay(s, c)
	p.byDay(s, c)
	return s.resolve()
}

func (p *plan) byMonth(s *daySet, c cursor) {
	by := p.r.byMonth
	if len(by) == 0 {
		return
	}
	if p.freq != Yearly || len(p.r.byWeekNo) > 0 || len(p.r.byYearDay) > 0 {
		s.limit(func(d calmath.Date) bool { return slices.Contains(by, int(d.Month)) })
		return
	}
	days := make([]calmath.Date, 0, len(by))
	for _, m := range by {
		y, mm := calmath.AddMonths(c.date.Year, time.January, m-1)
		days = append(days, calmath.Of(y, mm, p.seedDate.Day))
	}
	s.days = days
	s.months = true
}

func (p *plan) byWeekNo(s *daySet, c cursor) {
	by := p.r.byWeekNo
	if len(by) == 0 {
		return
	}
	match := func(d calmath.Date) bool {
		wy, w := calmath.WeekNumber(d, p.wkst)
		for _, v := range by {
			if i, ok := AbsWeekNo(wy, p.wkst, v); ok && i == w {
				return true
			}
		}
		return false
	}
	if p.freq != Yearly {
		p.spread(s, c)
		s.limit(match)
		return
	}
	var days []calmath.Date
	y := c.date.Year
	for d := calmath.Of(y, time.January, 1); d.Year == y; d = d.AddDays(1) {
		if match(d) {
			days = append(days, d)
		}
	}
	s.days = days
	s.chosen = true
}

func (p *plan) byYearDay(s *daySet, c cursor) {
	by := p.r.byYearDay
	if len(by) == 0 {
		return
	}
	if s.chosen || p.freq != Yearly {
		p.spread(s, c)
		s.limit(func(d calmath.Date) bool {
			for _, v := range by {
				if i, ok := AbsYearDay(d.Year, v); ok && i == d.YearDay() {
					return true
				}
			}
			return false
		})
		return
	}
	y := c.date.Year
	jan1 := calmath.Of(y, time.January, 1)
	days := make([]calmath.Date, 0, len(by))
	for _, v := range by {
		if i, ok := AbsYearDay(y, v); ok {
			days = append(days, jan1.AddDays(i-1))
		}
	}
	s.days = days
	s.chosen = true
}

// spread replaces the cursor day of a MONTHLY or WEEKLY cycle with every
// day of that month or week, so a BY rule that only limits at this
// frequency filters the whole cycle.
func (p *plan) spread(s *daySet, c cursor) {
	if s.chosen || (p.freq != Monthly && p.freq != Weekly) {
		return
	}
	from := calmath.Of(c.date.Year, c.date.Month, 1)
	to := calmath.Of(c.date.Year, c.date.Month, calmath.DaysIn(c.date.Year, c.date.Month))
	if p.freq == Weekly {
		from = calmath.WeekStart(c.date, p.wkst)
		to = from.AddDays(6)
	}
	s.days = nil
	for d := from; d.Compare(to) <= 0; d = d.AddDays(1) {
		s.days = append(s.days, d)
	}
	s.chosen = true
}

func (p *plan) byMonthDay(s *daySet, c cursor) {
	by := p.r.byMonthDay
	if len(by) == 0 {
		return
	}
	if s.chosen || p.freq < Monthly {
		s.limit(func(d calmath.Date) bool {
			for _, v := range by {
				if i, ok := AbsMonthDay(d.Year, d.Month, v); ok && i == d.Day {
					return true
				}
			}
			return false
		})
		return
	}
	var days []calmath.Date
	for _, first := range p.months(s, c) {
		for _, v := range by {
			if i, ok := AbsMonthDay(first.Year, first.Month, v); ok {
				days = append(days, calmath.Of(first.Year, first.Month, i).Normalize())
			}
		}
	}
	s.days = days
	s.chosen = true
}

func (p *plan) byDay(s *daySet, c cursor) {
	by := p.r.byDay
	if len(by) == 0 {
		return
	}
	if s.chosen || p.freq <= Daily {
		s.limit(p.weekdayMatch)
		return
	}
	var scopes [][2]calmath.Date
	switch {
	case p.freq == Weekly:
		from := calmath.WeekStart(c.date, p.wkst)
		scopes = append(scopes, [2]calmath.Date{from, from.AddDays(6)})
	case p.freq == Monthly || s.months:
		for _, first := range p.months(s, c) {
			last := calmath.Of(first.Year, first.Month, calmath.DaysIn(first.Year, first.Month))
			scopes = append(scopes, [2]calmath.Date{first, last})
		}
	default:
		y := c.date.Year
		scopes = append(scopes, [2]calmath.Date{calmath.Of(y, time.January, 1), calmath.Of(y, time.December, 31)})
	}
	var days []calmath.Date
	for _, sc := range scopes {
		for _, w := range by {
			days = append(days, AbsWeekdays(sc[0], sc[1], w)...)
		}
	}
	s.days = days
	s.chosen = true
}

// months lists the first day of every month the cycle spans: the cursor
// month for MONTHLY, the BYMONTH months for YEARLY, or the whole year.
func (p *plan) months(s *daySet, c cursor) []calmath.Date {
	if p.freq == Monthly {
		return []calmath.Date{calmath.Of(c.date.Year, c.date.Month, 1)}
	}
	var out []calmath.Date
	if s.months {
		for _, d := range s.days {
			first := calmath.Of(d.Year, d.Month, 1)
			if !slices.Contains(out, first) {
				out = append(out, first)
			}
		}
		return out
	}
	for m := time.January; m <= time.December; m++ {
		out = append(out, calmath.Of(c.date.Year, m, 1))
	}
	return out
}

// weekdayMatch tests a day against BYDAY when BYDAY only limits. An
// ordinal counts within the rule's natural scope.
func (p *plan) weekdayMatch(d calmath.Date) bool {
	for _, w := range p.r.byDay {
		if d.Weekday() != w.Day {
			continue
		}
		if w.Offset == 0 {
			return true
		}
		from, to := p.weekdayScope(d)
		if slices.Contains(AbsWeekdays(from, to, w), d) {
			return true
		}
	}
	return false
}

func (p *plan) weekdayScope(d calmath.Date) (from, to calmath.Date) {
	switch {
	case p.freq <= Daily:
		return d, d
	case p.freq == Weekly || len(p.r.byWeekNo) > 0:
		from = calmath.WeekStart(d, p.wkst)
		return from, from.AddDays(6)
	case p.freq == Monthly || len(p.r.byMonth) > 0:
		return calmath.Of(d.Year, d.Month, 1), calmath.Of(d.Year, d.Month, calmath.DaysIn(d.Year, d.Month))
	}
	return calmath.Of(d.Year, time.January, 1), calmath.Of(d.Year, time.December, 31)
}

// instants runs the time stages BYHOUR, BYMINUTE and BYSECOND. Fields
// coarser than the frequency expand; the rest limit the cursor. Sub-daily
// candidates are offsets from the cursor instant so repeated wall clocks
// across a DST fall-back stay distinct.
func (p *plan) instants(c cursor, days []calmath.Date) []time.Time {
	if p.freq >= Daily {
		out := make([]time.Time, 0, len(days)*len(p.hours)*len(p.minutes)*len(p.seconds))
		for _, d := range days {
			for _, h := range p.hours {
				for _, m := range p.minutes {
					for _, s := range p.seconds {
						out = append(out, d.Time(h, m, s, p.loc))
					}
				}
			}
		}
		return out
	}
	if p.dateOnly {
		return []time.Time{c.at}
	}
	h, m, s := c.at.Clock()
	if !p.timeMatch(h, m, s) {
		return nil
	}
	var base time.Time
	var mins []int
	switch p.freq {
	case Hourly:
		base = c.at.Add(-time.Duration(m*60+s) * time.Second)
		mins = p.minutes
	case Minutely:
		base = c.at.Add(-time.Duration(s) * time.Second)
		mins = []int{0}
	default:
		return []time.Time{c.at}
	}
	out := make([]time.Time, 0, len(mins)*len(p.seconds))
	for _, mm := range mins {
		for _, ss := range p.seconds {
			out = append(out, base.Add(time.Duration(mm*60+ss)*time.Second))
		}
	}
	return out
}

// timeMatch applies the time limits for sub-daily frequencies.
func (p *plan) timeMatch(h, m, s int) bool {
	if len(p.r.byHour) > 0 && !slices.Contains(p.r.byHour, h) {
		return false
	}
	if p.freq < Hourly && len(p.r.byMinute) > 0 && !slices.Contains(p.r.byMinute, m) {
		return false
	}
	if p.freq < Minutely && len(p.r.bySecond) > 0 && !slices.Contains(p.r.bySecond, s) {
		return false
	}
	return true
}

// skip returns how many cycles to advance past an empty one. Sub-daily
// and daily rules jump to the next month, day, hour or minute whose
// coarser fields can still match instead of stepping through every cycle.
func (p *plan) skip(c cursor) int {
	if p.freq > Daily {
		return 1
	}
	d := c.date
	var next time.Time
	switch {
	case len(p.r.byMonth) > 0 && !slices.Contains(p.r.byMonth, int(d.Month)):
		y, m := calmath.AddMonths(d.Year, d.Month, 1)
		next = time.Date(y, m, 1, 0, 0, 0, 0, p.loc)
	case p.freq == Daily || p.dateOnly:
		return 1
	case len(p.days(c)) == 0:
		next = d.AddDays(1).Time(0, 0, 0, p.loc)
	case p.freq < Hourly && len(p.r.byHour) > 0 && !slices.Contains(p.r.byHour, c.at.Hour()):
		_, m, s := c.at.Clock()
		next = c.at.Add(time.Duration(3600-m*60-s) * time.Second)
	case p.freq < Minutely && len(p.r.byMinute) > 0 && !slices.Contains(p.r.byMinute, c.at.Minute()):
		next = c.at.Add(time.Duration(60-c.at.Second()) * time.Second)
	default:
		return 1
	}

	var gap, step int64
	if p.freq == Daily {
		gap = int64(calmath.ToDays(calmath.FromTime(next)) - calmath.ToDays(d))
		step = int64(p.interval)
	} else {
		gap = next.Unix() - c.at.Unix()
		step = int64(p.interval) * p.unitSeconds()
	}
	k := (gap + step - 1) / step
	if k < 1 {
		return 1
	}
	return int(k)
}

// setPos keeps the 1-based (or negative, from the end) positions of a
// sorted cycle set. Positions outside the set are dropped.
func setPos(ts []time.Time, pos []int) []time.Time {
	if len(pos) == 0 {
		return ts
	}
	out := make([]time.Time, 0, len(pos))
	for _, v := range pos {
		i := v - 1
		if v < 0 {
			i = len(ts) + v
		}
		if i >= 0 && i < len(ts) {
			out = append(out, ts[i])
		}
	}
	slices.SortFunc(out, time.Time.Compare)
	return slices.CompactFunc(out, time.Time.Equal)
}
