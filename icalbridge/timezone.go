package icalbridge

import (
	"fmt"
	"strings"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/caltime"
	"github.com/cyp0633/calrecur/recur"
	"github.com/cyp0633/calrecur/vtimezone"
	"github.com/emersion/go-ical"
)

// TimeZones collects every VTIMEZONE of cal by TZID.
func TimeZones(cal *ical.Calendar, opts ...vtimezone.Option) (Zones, error) {
	zones := Zones{}
	for _, child := range cal.Children {
		if child.Name != ical.CompTimezone {
			continue
		}
		tz, err := TimeZoneFromComponent(child, opts...)
		if err != nil {
			return nil, err
		}
		zones[tz.ID()] = tz
	}
	return zones, nil
}

// TimeZoneFromComponent builds a time zone from a VTIMEZONE component.
func TimeZoneFromComponent(comp *ical.Component, opts ...vtimezone.Option) (*vtimezone.TimeZone, error) {
	if comp.Name != ical.CompTimezone {
		return nil, calerr.Format(ical.CompTimezone, comp.Name, nil)
	}
	idProp := comp.Props.Get(ical.PropTimezoneID)
	if idProp == nil || idProp.Value == "" {
		return nil, calerr.Format(ical.CompTimezone, ical.PropTimezoneID, nil)
	}
	id := idProp.Value

	var obs []vtimezone.Observance
	for _, child := range comp.Children {
		kind, err := vtimezone.ParseKind(child.Name)
		if err != nil {
			// Unknown sub-components such as X- extensions are skipped
			continue
		}
		o, err := observance(kind, child)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s of %s: %w", child.Name, id, err)
		}
		obs = append(obs, o)
	}
	return vtimezone.New(id, obs, opts...)
}

func observance(kind vtimezone.Kind, comp *ical.Component) (vtimezone.Observance, error) {
	o := vtimezone.Observance{Kind: kind}

	offset := func(name string) (vtimezone.UTCOffset, error) {
		prop := comp.Props.Get(name)
		if prop == nil {
			return 0, calerr.Format(comp.Name, name, nil)
		}
		return vtimezone.ParseUTCOffset(strings.TrimSpace(prop.Value))
	}
	var err error
	if o.OffsetFrom, err = offset(ical.PropTimezoneOffsetFrom); err != nil {
		return o, err
	}
	if o.OffsetTo, err = offset(ical.PropTimezoneOffsetTo); err != nil {
		return o, err
	}
	if prop := comp.Props.Get(ical.PropTimezoneName); prop != nil {
		o.Name = prop.Value
	}

	prop := comp.Props.Get(ical.PropDateTimeStart)
	if prop == nil {
		return o, calerr.Format(comp.Name, ical.PropDateTimeStart, nil)
	}
	if o.Start, err = caltime.ParseDateTime(prop.Value, nil); err != nil {
		return o, err
	}

	if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil {
		if o.Rule, err = recur.Parse(prop.Value, recur.ParseOptions{}); err != nil {
			return o, err
		}
	}
	for _, prop := range comp.Props.Values(ical.PropRecurrenceDates) {
		for _, v := range strings.Split(prop.Value, ",") {
			dt, err := caltime.ParseDateTime(strings.TrimSpace(v), nil)
			if err != nil {
				return o, err
			}
			o.RDates = append(o.RDates, dt)
		}
	}
	return o, nil
}
