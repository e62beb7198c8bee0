// Package period implements RFC 5545 PERIOD values and the interval
// algebra over sorted period sets.
package period

import (
	"strings"
	"time"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/caltime"
	"github.com/cyp0633/calrecur/dur"
	"github.com/samber/mo"
)

// Period is a start point plus either an explicit end or a duration.
// Exactly one of the two is authoritative; the other is derived.
type Period struct {
	start  caltime.DateTime
	end    mo.Option[caltime.DateTime]
	length mo.Option[dur.Dur]
}

// Inclusion selects which boundaries Includes treats as members.
type Inclusion uint8

const (
	InclusiveStart Inclusion = 1 << iota
	InclusiveEnd

	Inclusive = InclusiveStart | InclusiveEnd
	Exclusive Inclusion = 0
)

// NewWithEnd builds an explicit-end period. The end is moved into the
// start's mode so derived values agree on UTC-ness.
func NewWithEnd(start, end caltime.DateTime) Period {
	if !end.Mode().Equal(start.Mode()) {
		end = end.In(start.Mode())
	}
	return Period{start: start, end: mo.Some(end)}
}

// NewWithDuration builds a duration-form period.
func NewWithDuration(start caltime.DateTime, d dur.Dur) Period {
	return Period{start: start, length: mo.Some(d)}
}

// Start of the period.
func (p Period) Start() caltime.DateTime { return p.start }

// End returns the explicit end, or the duration projected from start.
func (p Period) End() caltime.DateTime {
	if e, ok := p.end.Get(); ok {
		return e
	}
	return p.length.OrEmpty().Project(p.start)
}

// Duration returns the explicit duration, or the calendar delta to the end.
func (p Period) Duration() dur.Dur {
	if d, ok := p.length.Get(); ok {
		return d
	}
	return dur.Between(p.start, p.end.OrEmpty())
}

// HasExplicitEnd reports whether the period was written start/end.
func (p Period) HasExplicitEnd() bool { return p.end.IsPresent() }

// IsEmpty reports whether the period covers no time.
func (p Period) IsEmpty() bool { return !p.End().After(p.start) }

// Includes reports whether dt lies within the period, boundaries included.
func (p Period) Includes(dt caltime.DateTime) bool {
	return p.IncludesWith(dt, Inclusive)
}

// IncludesWith is Includes with explicit boundary handling.
func (p Period) IncludesWith(dt caltime.DateTime, incl Inclusion) bool {
	end := p.End()
	var afterStart, beforeEnd bool
	if incl&InclusiveStart != 0 {
		afterStart = !dt.Before(p.start)
	} else {
		afterStart = dt.After(p.start)
	}
	if incl&InclusiveEnd != 0 {
		beforeEnd = !dt.After(end)
	} else {
		beforeEnd = dt.Before(end)
	}
	return afterStart && beforeEnd
}

// Before reports whether the period ends strictly before dt.
func (p Period) Before(dt caltime.DateTime) bool { return p.End().Before(dt) }

// After reports whether the period starts strictly after dt.
func (p Period) After(dt caltime.DateTime) bool { return p.start.After(dt) }

// BeforePeriod reports whether p ends strictly before o starts.
func (p Period) BeforePeriod(o Period) bool { return p.End().Before(o.start) }

// AfterPeriod reports whether p starts strictly after o ends.
func (p Period) AfterPeriod(o Period) bool { return p.start.After(o.End()) }

// Intersects reports whether either start lies inside the other period.
// Periods that only share an end point do not intersect.
func (p Period) Intersects(o Period) bool {
	if o.Includes(p.start) && !same(o.End(), p.start) {
		return true
	}
	return p.Includes(o.start) && !same(p.End(), o.start)
}

// Adjacent reports whether one period ends where the other starts.
func (p Period) Adjacent(o Period) bool {
	return same(p.End(), o.start) || same(o.End(), p.start)
}

// Contains reports whether both boundaries of o lie within p.
func (p Period) Contains(o Period) bool {
	return p.Includes(o.start) && p.Includes(o.End())
}

// Union returns the bounding period of p and o, or p itself for nil.
func (p Period) Union(o *Period) Period {
	if o == nil {
		return p
	}
	return NewWithEnd(caltime.Min(p.start, o.start), caltime.Max(p.End(), o.End()))
}

// Subtract removes o from p, leaving zero, one or two periods. An empty
// p yields nothing and an empty o removes nothing.
func (p Period) Subtract(o Period) []Period {
	switch {
	case p.IsEmpty():
		return nil
	case o.IsEmpty():
		return []Period{p}
	case o.Contains(p):
		return nil
	case !o.Intersects(p):
		return []Period{p}
	case !o.start.After(p.start):
		return []Period{NewWithEnd(o.End(), p.End())}
	case !o.End().Before(p.End()):
		return []Period{NewWithEnd(p.start, o.start)}
	}
	return []Period{
		NewWithEnd(p.start, o.start),
		NewWithEnd(o.End(), p.End()),
	}
}

// InMode converts the period's boundaries to mode m.
func (p Period) InMode(m caltime.Mode) Period {
	if p.start.Mode().Equal(m) {
		return p
	}
	q := Period{start: p.start.In(m), length: p.length}
	if e, ok := p.end.Get(); ok {
		q.end = mo.Some(e.In(m))
	}
	return q
}

// Compare orders by start, then by end.
func (p Period) Compare(o Period) int {
	if c := p.start.Compare(o.start); c != 0 {
		return c
	}
	return p.End().Compare(o.End())
}

// Equal reports whether both periods cover the same span.
func (p Period) Equal(o Period) bool {
	return p.start.Equal(o.start) && p.End().Equal(o.End())
}

// String renders start/end or start/duration, whichever is authoritative.
func (p Period) String() string {
	if e, ok := p.end.Get(); ok {
		return p.start.String() + "/" + e.String()
	}
	return p.start.String() + "/" + p.length.OrEmpty().String()
}

// Parse reads <start>/<end> or <start>/<duration>. Both points must be
// DATE-TIME values; loc applies to those without a trailing Z.
func Parse(s string, loc *time.Location) (Period, error) {
	head, tail, ok := strings.Cut(s, "/")
	if !ok {
		return Period{}, calerr.Format("PERIOD", s, nil)
	}
	start, err := caltime.ParseDateTime(head, loc)
	if err != nil {
		return Period{}, calerr.Format("PERIOD", s, err)
	}
	if strings.HasPrefix(tail, "P") || strings.HasPrefix(tail, "+") || strings.HasPrefix(tail, "-") {
		d, err := dur.Parse(tail)
		if err != nil {
			return Period{}, calerr.Format("PERIOD", s, err)
		}
		return NewWithDuration(start, d), nil
	}
	end, err := caltime.ParseDateTime(tail, loc)
	if err != nil {
		return Period{}, calerr.Format("PERIOD", s, err)
	}
	return NewWithEnd(start, end), nil
}

func same(a, b caltime.DateTime) bool {
	return a.Time().Equal(b.Time())
}
