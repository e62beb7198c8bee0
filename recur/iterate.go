package recur

import (
	"context"
	"slices"
	"time"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/caltime"
	"github.com/samber/mo"
)

// run feeds each non-empty cycle, from cycle index from onward, to emit
// until emit returns false, a cycle starts after stop (when stop is set),
// or the calendar runs out. Exhausting the budget is an Unresolvable error.
func (p *plan) run(ctx context.Context, b Budget, from int, stop time.Time, emit func([]time.Time) bool) error {
	b = b.withDefaults()
	ctx, cancel := context.WithTimeout(ctx, b.Deadline)
	defer cancel()

	empty := 0
	n := from
	for cycles := 0; ; cycles++ {
		if cycles >= b.MaxCycles {
			return calerr.Unresolvable(p.rule, errCycleBudget)
		}
		if empty >= b.MaxEmptyCycles {
			return calerr.Unresolvable(p.rule, errEmptyBudget)
		}
		if cycles%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return calerr.Unresolvable(p.rule, err)
			}
		}

		c := p.cursorAt(n)
		if c.date.Year > maxYear {
			return nil
		}
		start := p.scopeStart(c)
		if !stop.IsZero() && start.After(stop) {
			return nil
		}
		if p.hasUntil && start.After(p.until) {
			return nil
		}

		ts := p.cycle(c)
		if len(ts) == 0 {
			empty++
			n += p.skip(c)
			continue
		}
		empty = 0
		n++
		if !emit(ts) {
			return nil
		}
	}
}

// Expand returns the occurrences of the rule seeded at seed that fall in
// the inclusive window [start, end], in ascending order. COUNT is counted
// from the seed, so occurrences before the window still use up the count.
//
// When the budget runs out the occurrences found so far are returned along
// with an error matching calerr.ErrBudgetExceeded.
func (r *Recur) Expand(ctx context.Context, seed, start, end caltime.DateTime, b Budget) ([]caltime.DateTime, error) {
	p := newPlan(r, seed)
	lo, hi := p.instant(start), p.instant(end)
	if hi.Before(lo) {
		return nil, nil
	}

	from := 0
	if p.count == 0 {
		from = p.cycleNear(lo)
	}
	var found []time.Time
	produced := 0
	err := p.run(ctx, b, from, hi, func(ts []time.Time) bool {
		for _, t := range ts {
			if t.Before(p.seed) {
				continue
			}
			if (p.hasUntil && t.After(p.until)) || t.After(hi) {
				return false
			}
			if p.count > 0 && produced >= p.count {
				return false
			}
			produced++
			if t.Before(lo) {
				continue
			}
			found = append(found, t)
		}
		return p.count == 0 || produced < p.count
	})
	return p.values(found), err
}

// Occurrences is Expand seeded at the window start.
func (r *Recur) Occurrences(ctx context.Context, start, end caltime.DateTime, b Budget) ([]caltime.DateTime, error) {
	return r.Expand(ctx, start, start, end, b)
}

// Dates expands a rule over DATE values. Time rule parts are ignored.
func (r *Recur) Dates(ctx context.Context, seed, start, end caltime.Date, b Budget) ([]caltime.Date, error) {
	dts, err := r.Expand(ctx, seed.DateTime, start.DateTime, end.DateTime, b)
	out := make([]caltime.Date, len(dts))
	for i, dt := range dts {
		out[i] = caltime.AsDate(dt)
	}
	return out, err
}

// NextOccurrence returns the first occurrence at or after seed that is
// strictly after after. It returns None when the rule is exhausted, and
// None with an error matching calerr.ErrBudgetExceeded when the budget
// ran out first.
func (r *Recur) NextOccurrence(ctx context.Context, seed, after caltime.DateTime, b Budget) (mo.Option[caltime.DateTime], error) {
	p := newPlan(r, seed)
	a := p.instant(after)

	from := 0
	if p.count == 0 {
		from = p.cycleNear(a)
	}
	var next time.Time
	ok := false
	produced := 0
	err := p.run(ctx, b, from, time.Time{}, func(ts []time.Time) bool {
		for _, t := range ts {
			if t.Before(p.seed) {
				continue
			}
			if p.hasUntil && t.After(p.until) {
				return false
			}
			if p.count > 0 && produced >= p.count {
				return false
			}
			produced++
			if t.After(a) {
				next, ok = t, true
				return false
			}
		}
		return true
	})
	if err != nil || !ok {
		return mo.None[caltime.DateTime](), err
	}
	return mo.Some(p.value(next)), nil
}

func (p *plan) values(ts []time.Time) []caltime.DateTime {
	slices.SortFunc(ts, time.Time.Compare)
	out := make([]caltime.DateTime, 0, len(ts))
	for _, t := range ts {
		v := p.value(t)
		if n := len(out); n > 0 && out[n-1].Equal(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}
