package period

import (
	"slices"
	"strings"
	"time"

	"github.com/cyp0633/calrecur/caltime"
	"github.com/samber/mo"
)

// PeriodList is a set of periods kept sorted by start then end. A list
// may be tagged with a mode that is applied to every member on insertion.
//
// A PeriodList is single-writer: AddPeriod and Remove must not run
// concurrently with any other method on the same list.
type PeriodList struct {
	mode    mo.Option[caltime.Mode]
	periods []Period
}

// NewList returns an untagged list holding ps.
func NewList(ps ...Period) *PeriodList {
	l := &PeriodList{}
	for _, p := range ps {
		l.AddPeriod(p)
	}
	return l
}

// NewListIn returns a list whose members are converted to m.
func NewListIn(m caltime.Mode, ps ...Period) *PeriodList {
	l := &PeriodList{mode: mo.Some(m)}
	for _, p := range ps {
		l.AddPeriod(p)
	}
	return l
}

func (l *PeriodList) empty() *PeriodList {
	return &PeriodList{mode: l.mode}
}

// Mode returns the list's tag, if any.
func (l *PeriodList) Mode() (caltime.Mode, bool) { return l.mode.Get() }

// AddPeriod inserts p. Duplicates are ignored. The list is not normalised.
func (l *PeriodList) AddPeriod(p Period) {
	if m, ok := l.mode.Get(); ok {
		p = p.InMode(m)
	}
	i, found := slices.BinarySearchFunc(l.periods, p, Period.Compare)
	if found {
		return
	}
	l.periods = slices.Insert(l.periods, i, p)
}

// Remove deletes p and reports whether it was present.
func (l *PeriodList) Remove(p Period) bool {
	if m, ok := l.mode.Get(); ok {
		p = p.InMode(m)
	}
	i, found := slices.BinarySearchFunc(l.periods, p, Period.Compare)
	if !found {
		return false
	}
	l.periods = slices.Delete(l.periods, i, i+1)
	return true
}

// Len returns the number of periods.
func (l *PeriodList) Len() int { return len(l.periods) }

// IsEmpty reports whether the list has no periods.
func (l *PeriodList) IsEmpty() bool { return len(l.periods) == 0 }

// Periods returns a copy of the members in order.
func (l *PeriodList) Periods() []Period { return slices.Clone(l.periods) }

// Normalise merges contained, intersecting and adjacent periods and drops
// empty ones in a single ordered pass. It returns l itself when nothing
// changed, so normalising a normalised list is the identity.
func (l *PeriodList) Normalise() *PeriodList {
	out := l.empty()
	var prev *Period
	changed := false
	for _, p := range l.periods {
		cur := p
		switch {
		case cur.IsEmpty():
			changed = true
			if prev == nil {
				continue
			}
			cur = *prev
		case prev == nil:
		case prev.Contains(cur):
			cur = *prev
			changed = true
		case prev.Intersects(cur), prev.Adjacent(cur):
			cur = prev.Union(&cur)
			changed = true
		default:
			out.periods = append(out.periods, *prev)
		}
		prev = &cur
	}
	if prev != nil {
		out.periods = append(out.periods, *prev)
	}
	if !changed {
		return l
	}
	return out
}

// Add returns the normalised union of l and o. Adding a nil or empty
// list returns l unchanged.
func (l *PeriodList) Add(o *PeriodList) *PeriodList {
	if o == nil || o.IsEmpty() {
		return l
	}
	out := l.empty()
	for _, p := range l.periods {
		out.AddPeriod(p)
	}
	for _, p := range o.periods {
		out.AddPeriod(p)
	}
	return out.Normalise()
}

// Subtract removes every period of o from l. Each subtrahend is applied
// in turn to the running result; the result is sorted and normalised.
func (l *PeriodList) Subtract(o *PeriodList) *PeriodList {
	if o == nil || o.IsEmpty() {
		return l
	}
	result := l
	for _, sub := range o.periods {
		next := l.empty()
		for _, p := range result.periods {
			for _, rest := range p.Subtract(sub) {
				next.AddPeriod(rest)
			}
		}
		result = next
	}
	return result.Normalise()
}

// Equal reports whether both lists hold equal periods in the same order.
func (l *PeriodList) Equal(o *PeriodList) bool {
	return slices.EqualFunc(l.periods, o.periods, Period.Equal)
}

// String renders the members comma-separated.
func (l *PeriodList) String() string {
	parts := make([]string, len(l.periods))
	for i, p := range l.periods {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}

// ParseList reads a comma-separated period list into an untagged list.
func ParseList(s string, loc *time.Location) (*PeriodList, error) {
	l := NewList()
	if s == "" {
		return l, nil
	}
	for _, part := range strings.Split(s, ",") {
		p, err := Parse(strings.TrimSpace(part), loc)
		if err != nil {
			return nil, err
		}
		l.AddPeriod(p)
	}
	return l, nil
}
