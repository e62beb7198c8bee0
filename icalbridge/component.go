// Package icalbridge converts between go-ical components and the
// recurrence types of this module.
package icalbridge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/caltime"
	"github.com/cyp0633/calrecur/dur"
	"github.com/cyp0633/calrecur/period"
	"github.com/cyp0633/calrecur/recur"
	"github.com/cyp0633/calrecur/recurrence"
	"github.com/cyp0633/calrecur/vtimezone"
	"github.com/emersion/go-ical"
	"github.com/samber/mo"
)

const (
	propExceptionRule = "EXRULE"
	propRecurrenceID  = "RECURRENCE-ID"
	valuePeriod       = "PERIOD"
	valueDate         = "DATE"
)

// Zones maps TZID values to the VTIMEZONE definitions of a calendar.
type Zones map[string]*vtimezone.TimeZone

// reader parses the date-valued properties of one component. Values
// naming a TZID found in zones stay floating on that zone's wall clock;
// other TZIDs are looked up in the system database.
type reader struct {
	ctx   context.Context
	zones Zones
	zone  *vtimezone.TimeZone
}

// RecurrenceSetFromComponent extracts the recurrence set of a VEVENT,
// VTODO or VJOURNAL. When DTSTART names a zone defined in zones, the set
// is expanded on that zone's wall clock.
func RecurrenceSetFromComponent(ctx context.Context, comp *ical.Component, zones Zones) (recurrence.RecurrenceSet, error) {
	r := &reader{ctx: ctx, zones: zones}
	var set recurrence.RecurrenceSet

	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil && comp.Name == ical.CompToDo {
		startProp = comp.Props.Get(ical.PropDue)
	}
	if startProp == nil {
		return set, calerr.Format(comp.Name, ical.PropDateTimeStart, nil)
	}
	if tzid := startProp.Params.Get(ical.ParamTimezoneID); tzid != "" {
		r.zone = zones[tzid]
	}
	start, err := r.dateTime(startProp, startProp.Value)
	if err != nil {
		return set, fmt.Errorf("failed to parse %s: %w", startProp.Name, err)
	}
	set.Start = start
	set.Zone = r.zone

	if prop := comp.Props.Get(ical.PropDuration); prop != nil {
		d, err := dur.Parse(prop.Value)
		if err != nil {
			return set, fmt.Errorf("failed to parse DURATION: %w", err)
		}
		set.Duration = mo.Some(d)
	} else if prop := endProp(comp); prop != nil {
		end, err := r.dateTime(prop, prop.Value)
		if err != nil {
			return set, fmt.Errorf("failed to parse %s: %w", prop.Name, err)
		}
		set.End = mo.Some(end)
	}

	loc := start.Mode().Location()
	if start.Mode().IsFloating() {
		loc = nil
	}
	for _, prop := range comp.Props.Values(ical.PropRecurrenceRule) {
		rule, err := recur.Parse(prop.Value, recur.ParseOptions{Location: loc})
		if err != nil {
			return set, fmt.Errorf("failed to parse RRULE: %w", err)
		}
		set.RRules = append(set.RRules, rule)
	}
	for _, prop := range comp.Props.Values(propExceptionRule) {
		rule, err := recur.Parse(prop.Value, recur.ParseOptions{Location: loc})
		if err != nil {
			return set, fmt.Errorf("failed to parse EXRULE: %w", err)
		}
		set.ExRules = append(set.ExRules, rule)
	}

	for _, prop := range comp.Props.Values(ical.PropRecurrenceDates) {
		if strings.EqualFold(prop.Params.Get(ical.ParamValue), valuePeriod) {
			list, err := r.periods(&prop)
			if err != nil {
				return set, fmt.Errorf("failed to parse RDATE: %w", err)
			}
			set.RPeriods = append(set.RPeriods, list...)
			continue
		}
		dates, err := r.dateTimes(&prop)
		if err != nil {
			return set, fmt.Errorf("failed to parse RDATE: %w", err)
		}
		set.RDates = append(set.RDates, dates...)
	}
	for _, prop := range comp.Props.Values(ical.PropExceptionDates) {
		dates, err := r.dateTimes(&prop)
		if err != nil {
			return set, fmt.Errorf("failed to parse EXDATE: %w", err)
		}
		set.ExDates = append(set.ExDates, dates...)
	}
	return set, nil
}

// RecurrenceID returns the RECURRENCE-ID of an overriding instance. A
// value local to a VTIMEZONE is returned in UTC.
func RecurrenceID(ctx context.Context, comp *ical.Component, zones Zones) (mo.Option[caltime.DateTime], error) {
	prop := comp.Props.Get(propRecurrenceID)
	if prop == nil {
		return mo.None[caltime.DateTime](), nil
	}
	r := &reader{ctx: ctx, zones: zones}
	if tzid := prop.Params.Get(ical.ParamTimezoneID); tzid != "" {
		r.zone = zones[tzid]
	}
	dt, err := r.dateTime(prop, prop.Value)
	if err != nil {
		return mo.None[caltime.DateTime](), fmt.Errorf("failed to parse RECURRENCE-ID: %w", err)
	}
	if r.zone != nil && !dt.IsDate() {
		at, err := r.zone.ToUTC(ctx, dt)
		if err != nil {
			return mo.None[caltime.DateTime](), err
		}
		dt = caltime.New(at, dt.Precision(), caltime.UTC())
	}
	return mo.Some(dt), nil
}

func endProp(comp *ical.Component) *ical.Prop {
	if prop := comp.Props.Get(ical.PropDateTimeEnd); prop != nil {
		return prop
	}
	if comp.Name == ical.CompToDo && comp.Props.Get(ical.PropDateTimeStart) != nil {
		return comp.Props.Get(ical.PropDue)
	}
	return nil
}

// location resolves the TZID parameter of prop, either to a zone defined
// in the calendar or to a system location.
func (r *reader) location(prop *ical.Prop) (loc *time.Location, local *vtimezone.TimeZone, err error) {
	tzid := prop.Params.Get(ical.ParamTimezoneID)
	if tzid == "" {
		return nil, nil, nil
	}
	if tz, ok := r.zones[tzid]; ok {
		return nil, tz, nil
	}
	loc, err = time.LoadLocation(tzid)
	if err != nil {
		return nil, nil, calerr.Format(ical.ParamTimezoneID, tzid, err)
	}
	return loc, nil, nil
}

func (r *reader) dateTime(prop *ical.Prop, value string) (caltime.DateTime, error) {
	loc, local, err := r.location(prop)
	if err != nil {
		return caltime.DateTime{}, err
	}
	dt, err := caltime.Parse(value, loc)
	if err != nil {
		return caltime.DateTime{}, err
	}
	return r.align(dt, local)
}

// align brings a value into the component's frame. Values local to a
// different VTIMEZONE than DTSTART, and UTC values in a component whose
// DTSTART is local to a VTIMEZONE, are moved to the DTSTART zone's wall
// clock so comparisons against expanded instances hold.
func (r *reader) align(dt caltime.DateTime, local *vtimezone.TimeZone) (caltime.DateTime, error) {
	if dt.IsDate() {
		return dt, nil
	}
	var at time.Time
	switch {
	case local != nil && local != r.zone:
		t, err := local.ToUTC(r.ctx, dt)
		if err != nil {
			return caltime.DateTime{}, err
		}
		at = t
	case local == nil && r.zone != nil && !dt.Mode().IsFloating():
		at = dt.Time()
	default:
		return dt, nil
	}
	if r.zone == nil {
		return caltime.New(at, dt.Precision(), caltime.UTC()), nil
	}
	return r.zone.ToLocal(r.ctx, at)
}

func (r *reader) dateTimes(prop *ical.Prop) ([]caltime.DateTime, error) {
	var out []caltime.DateTime
	for _, v := range strings.Split(prop.Value, ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		dt, err := r.dateTime(prop, v)
		if err != nil {
			return nil, err
		}
		out = append(out, dt)
	}
	return out, nil
}

func (r *reader) periods(prop *ical.Prop) ([]period.Period, error) {
	loc, local, err := r.location(prop)
	if err != nil {
		return nil, err
	}
	list, err := period.ParseList(prop.Value, loc)
	if err != nil {
		return nil, err
	}
	out := make([]period.Period, 0, list.Len())
	for _, p := range list.Periods() {
		s, err := r.align(p.Start(), local)
		if err != nil {
			return nil, err
		}
		if !p.HasExplicitEnd() {
			out = append(out, period.NewWithDuration(s, p.Duration()))
			continue
		}
		e, err := r.align(p.End(), local)
		if err != nil {
			return nil, err
		}
		out = append(out, period.NewWithEnd(s, e))
	}
	return out, nil
}
