package recurrence

import (
	"crypto/sha256"
	"fmt"

	"github.com/cyp0633/calrecur/caltime"
	"github.com/cyp0633/calrecur/dur"
	"github.com/cyp0633/calrecur/period"
	"github.com/cyp0633/calrecur/recur"
	"github.com/cyp0633/calrecur/vtimezone"
	"github.com/samber/mo"
)

// RecurrenceSet contains all recurrence-related information for one
// component: its first instance, its length and the rules and dates that
// add or remove instances.
type RecurrenceSet struct {
	Start    caltime.DateTime            // DTSTART, always the first instance
	End      mo.Option[caltime.DateTime] // DTEND or DUE
	Duration mo.Option[dur.Dur]          // DURATION, wins over End
	RRules   []*recur.Recur              // RRULE properties
	ExRules  []*recur.Recur              // EXRULE properties
	RDates   []caltime.DateTime          // RDATE;VALUE=DATE-TIME or DATE
	RPeriods []period.Period             // RDATE;VALUE=PERIOD
	ExDates  []caltime.DateTime          // EXDATE

	// Zone, when set, is the VTIMEZONE the floating values above are
	// local to. Instances are expanded on its wall clock and reported in
	// UTC.
	Zone *vtimezone.TimeZone
}

// Length returns the length of each instance. Without DURATION or an end,
// a DATE start lasts one day and a DATE-TIME start is instantaneous.
func (s RecurrenceSet) Length() dur.Dur {
	if d, ok := s.Duration.Get(); ok {
		return d
	}
	if e, ok := s.End.Get(); ok {
		return dur.Between(s.Start, e)
	}
	if s.Start.IsDate() {
		return dur.New(false, 1, 0, 0, 0)
	}
	return dur.New(false, 0, 0, 0, 0)
}

// IsRecurring reports whether anything beyond DTSTART adds instances.
func (s RecurrenceSet) IsRecurring() bool {
	return len(s.RRules) > 0 || len(s.RDates) > 0 || len(s.RPeriods) > 0
}

// key hashes every field that influences expansion.
func (s RecurrenceSet) key(operation string, window period.Period) string {
	hasher := sha256.New()
	write := func(v fmt.Stringer) {
		hasher.Write([]byte(v.String()))
		hasher.Write([]byte{0})
	}

	hasher.Write([]byte(operation))
	write(s.Start)
	write(s.Start.Mode())
	write(s.Length())
	for _, r := range s.RRules {
		write(r)
	}
	hasher.Write([]byte("EXRULE"))
	for _, r := range s.ExRules {
		write(r)
	}
	hasher.Write([]byte("RDATE"))
	for _, d := range s.RDates {
		write(d)
		write(d.Mode())
	}
	for _, p := range s.RPeriods {
		write(p)
		write(p.Start().Mode())
	}
	hasher.Write([]byte("EXDATE"))
	for _, d := range s.ExDates {
		write(d)
		write(d.Mode())
	}
	if s.Zone != nil {
		hasher.Write([]byte("TZID"))
		hasher.Write([]byte(s.Zone.ID()))
		for _, o := range s.Zone.Observances() {
			fmt.Fprintf(hasher, "|%s|%s|%s|%s|", o.Kind, o.OffsetFrom, o.OffsetTo, o.Start)
			if o.Rule != nil {
				write(o.Rule)
			}
			for _, d := range o.RDates {
				write(d)
				write(d.Mode())
			}
		}
	}
	write(window)
	return fmt.Sprintf("%x", hasher.Sum(nil))
}
