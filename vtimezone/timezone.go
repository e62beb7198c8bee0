// Package vtimezone resolves UTC offsets from VTIMEZONE observances.
//
// Each observance names the wall-clock instants at which its offset takes
// effect: DTSTART, every RRULE occurrence and every RDATE. Those times are
// local to the offset in force before the onset (TZOFFSETFROM), except an
// RRULE UNTIL, which is UTC.
package vtimezone

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/caltime"
	"github.com/cyp0633/calrecur/recur"
	"github.com/samber/mo"
)

// Kind tells standard time from daylight saving time.
type Kind int

const (
	Standard Kind = iota
	Daylight
)

func (k Kind) String() string {
	if k == Daylight {
		return "DAYLIGHT"
	}
	return "STANDARD"
}

// ParseKind reads a component name, STANDARD or DAYLIGHT.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(s) {
	case "STANDARD":
		return Standard, nil
	case "DAYLIGHT":
		return Daylight, nil
	}
	return 0, calerr.Format("observance", s, nil)
}

// Observance is one STANDARD or DAYLIGHT sub-component.
type Observance struct {
	Kind       Kind
	Name       string
	OffsetFrom UTCOffset
	OffsetTo   UTCOffset
	// Start is the first onset, in local time.
	Start caltime.DateTime
	// Rule, when set, repeats the onset from Start.
	Rule *recur.Recur
	// RDates are additional onsets, in local time unless UTC.
	RDates []caltime.DateTime
}

// onsets holds an observance prepared for lookups.
type onsets struct {
	Observance
	start caltime.DateTime
	rule  *recur.Recur
}

func prepare(o Observance) onsets {
	p := onsets{Observance: o, start: o.Start.In(caltime.Floating())}
	if o.Rule == nil {
		return p
	}
	p.rule = o.Rule
	if until, ok := o.Rule.Termination().Until(); ok && until.IsUTC() {
		p.rule = o.Rule.Clone()
		p.rule.SetUntil(p.wall(until.Time()))
	}
	return p
}

// wall returns the local time of instant t before this onset.
func (o *onsets) wall(t time.Time) caltime.DateTime {
	return caltime.New(t.UTC().Add(o.OffsetFrom.Duration()), caltime.Second, caltime.Floating())
}

func (o *onsets) instant(wall caltime.DateTime) time.Time {
	return wall.Time().Add(-o.OffsetFrom.Duration())
}

// latest returns the last onset at or before t.
func (o *onsets) latest(ctx context.Context, t time.Time, b recur.Budget) (mo.Option[time.Time], error) {
	w := o.wall(t)
	if o.start.After(w) {
		return mo.None[time.Time](), nil
	}
	best := o.start
	if o.rule != nil {
		occ, err := o.rule.Expand(ctx, o.start, o.start, w, b)
		if err != nil {
			return mo.None[time.Time](), err
		}
		if n := len(occ); n > 0 && occ[n-1].After(best) {
			best = occ[n-1]
		}
	}
	for _, rd := range o.RDates {
		if rd.IsUTC() {
			rd = o.wall(rd.Time())
		} else {
			rd = rd.In(caltime.Floating())
		}
		if !rd.After(w) && rd.After(best) {
			best = rd
		}
	}
	return mo.Some(o.instant(best)), nil
}

// TimeZone is a VTIMEZONE: a TZID and its observances.
type TimeZone struct {
	id     string
	obs    []onsets
	budget recur.Budget
}

// Option configures a TimeZone.
type Option func(*TimeZone)

// WithBudget bounds the onset expansion done by each lookup.
func WithBudget(b recur.Budget) Option {
	return func(tz *TimeZone) { tz.budget = b }
}

// New builds a time zone. At least one observance is required.
func New(id string, obs []Observance, opts ...Option) (*TimeZone, error) {
	if len(obs) == 0 {
		return nil, calerr.Formatf(id, "VTIMEZONE %q has no observances", id)
	}
	tz := &TimeZone{id: id}
	for _, o := range obs {
		if o.Start.IsZero() {
			return nil, calerr.Formatf(id, "%s observance of %q has no DTSTART", o.Kind, id)
		}
		tz.obs = append(tz.obs, prepare(o))
	}
	for _, opt := range opts {
		opt(tz)
	}
	return tz, nil
}

// ID returns the TZID.
func (tz *TimeZone) ID() string { return tz.id }

// Observances returns the observances in their original order.
func (tz *TimeZone) Observances() []Observance {
	out := make([]Observance, len(tz.obs))
	for i, o := range tz.obs {
		out[i] = o.Observance
	}
	return out
}

// ObservanceAt returns the observance in force at t: of all observances
// with an onset at or before t, the one whose latest onset is greatest.
// It returns None when t precedes every onset.
func (tz *TimeZone) ObservanceAt(ctx context.Context, t time.Time) (mo.Option[Observance], error) {
	var (
		found  *onsets
		onsetT time.Time
	)
	for i := range tz.obs {
		o := &tz.obs[i]
		at, err := o.latest(ctx, t, tz.budget)
		if err != nil {
			return mo.None[Observance](), err
		}
		if v, ok := at.Get(); ok && (found == nil || v.After(onsetT)) {
			found, onsetT = o, v
		}
	}
	if found == nil {
		return mo.None[Observance](), nil
	}
	return mo.Some(found.Observance), nil
}

// OffsetAt returns the UTC offset in force at t. Before the first onset
// the earliest observance's TZOFFSETFROM applies.
func (tz *TimeZone) OffsetAt(ctx context.Context, t time.Time) (UTCOffset, error) {
	o, err := tz.ObservanceAt(ctx, t)
	if err != nil {
		return 0, err
	}
	if v, ok := o.Get(); ok {
		return v.OffsetTo, nil
	}
	first := slices.MinFunc(tz.obs, func(a, b onsets) int {
		return a.instant(a.start).Compare(b.instant(b.start))
	})
	return first.OffsetFrom, nil
}

// InDaylight reports whether a DAYLIGHT observance is in force at t.
func (tz *TimeZone) InDaylight(ctx context.Context, t time.Time) (bool, error) {
	o, err := tz.ObservanceAt(ctx, t)
	if err != nil {
		return false, err
	}
	v, ok := o.Get()
	return ok && v.Kind == Daylight, nil
}

// RawOffset returns the TZOFFSETTO of the standard observance that starts
// last, or of the last daylight observance when there is no standard one.
func (tz *TimeZone) RawOffset() UTCOffset {
	latest := func(k Kind) (onsets, bool) {
		var (
			best onsets
			ok   bool
		)
		for _, o := range tz.obs {
			if o.Kind == k && (!ok || o.start.After(best.start)) {
				best, ok = o, true
			}
		}
		return best, ok
	}
	if o, ok := latest(Standard); ok {
		return o.OffsetTo
	}
	o, _ := latest(Daylight)
	return o.OffsetTo
}

// ToUTC resolves a wall-clock time in this zone to an instant. A time in
// a gap maps forward by the gap's length; an ambiguous time maps to its
// later occurrence.
func (tz *TimeZone) ToUTC(ctx context.Context, wall caltime.DateTime) (time.Time, error) {
	w := wall.In(caltime.Floating()).Time()
	guess, err := tz.OffsetAt(ctx, w.Add(-tz.RawOffset().Duration()))
	if err != nil {
		return time.Time{}, err
	}
	off, err := tz.OffsetAt(ctx, w.Add(-guess.Duration()))
	if err != nil {
		return time.Time{}, err
	}
	return w.Add(-off.Duration()), nil
}

// ToLocal returns the wall-clock time in this zone at instant t, as a
// floating value.
func (tz *TimeZone) ToLocal(ctx context.Context, t time.Time) (caltime.DateTime, error) {
	off, err := tz.OffsetAt(ctx, t)
	if err != nil {
		return caltime.DateTime{}, err
	}
	return caltime.New(t.UTC().Add(off.Duration()), caltime.Second, caltime.Floating()), nil
}

// Transitions lists the onsets in [start, end] in ascending order.
func (tz *TimeZone) Transitions(ctx context.Context, start, end time.Time) ([]Transition, error) {
	var out []Transition
	for i := range tz.obs {
		o := &tz.obs[i]
		lo, hi := o.wall(start), o.wall(end)
		walls := []caltime.DateTime{o.start}
		if o.rule != nil {
			occ, err := o.rule.Expand(ctx, o.start, lo, hi, tz.budget)
			if err != nil {
				return nil, err
			}
			walls = append(walls, occ...)
		}
		for _, rd := range o.RDates {
			if rd.IsUTC() {
				rd = o.wall(rd.Time())
			}
			walls = append(walls, rd.In(caltime.Floating()))
		}
		for _, w := range walls {
			if w.Before(lo) || w.After(hi) {
				continue
			}
			out = append(out, Transition{At: o.instant(w), Observance: o.Observance})
		}
	}
	slices.SortFunc(out, func(a, b Transition) int { return a.At.Compare(b.At) })
	return slices.CompactFunc(out, func(a, b Transition) bool {
		return a.At.Equal(b.At) && a.Observance.Kind == b.Observance.Kind
	}), nil
}

// Transition is one onset of an observance.
type Transition struct {
	At         time.Time
	Observance Observance
}
