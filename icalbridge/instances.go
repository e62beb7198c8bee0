package icalbridge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/cyp0633/calrecur/caltime"
	"github.com/cyp0633/calrecur/period"
	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

const productID = "-//calrecur//Recurrence Expander//EN"

// recurrenceProps are dropped from expanded instances.
var recurrenceProps = []string{
	ical.PropRecurrenceRule,
	propExceptionRule,
	ical.PropRecurrenceDates,
	ical.PropExceptionDates,
	ical.PropDateTimeStart,
	ical.PropDateTimeEnd,
	ical.PropDuration,
	ical.PropDue,
	propRecurrenceID,
}

// Decode reads a calendar stream.
func Decode(r io.Reader) (*ical.Calendar, error) {
	cal, err := ical.NewDecoder(r).Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode calendar: %w", err)
	}
	return cal, nil
}

// Encode writes components as a calendar stream, filling in VERSION,
// PRODID and any missing DTSTAMP.
func Encode(w io.Writer, comps ...*ical.Component) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, comp := range comps {
		if comp.Name == ical.CompEvent || comp.Name == ical.CompToDo {
			if comp.Props.Get(ical.PropDateTimeStamp) == nil {
				comp.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
			}
		}
		cal.Children = append(cal.Children, comp)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// SetPeriods replaces the RDATE properties of props with one
// RDATE;VALUE=PERIOD listing every period of list.
func SetPeriods(props ical.Props, list *period.PeriodList) {
	props.Del(ical.PropRecurrenceDates)
	if list.IsEmpty() {
		return
	}
	prop := ical.NewProp(ical.PropRecurrenceDates)
	prop.Params.Set(ical.ParamValue, valuePeriod)
	prop.Value = list.String()
	props.Set(prop)
}

// Instances turns each period of list into a standalone copy of master
// carrying DTSTART, DTEND and RECURRENCE-ID. An override whose
// RECURRENCE-ID matches an instance start replaces that instance. When
// master has no UID, one is generated and shared by every instance.
func Instances(ctx context.Context, master *ical.Component, list *period.PeriodList, overrides []*ical.Component, zones Zones) ([]*ical.Component, error) {
	uid := uuid.NewString()
	if prop := master.Props.Get(ical.PropUID); prop != nil && prop.Value != "" {
		uid = prop.Value
	}

	type override struct {
		id   caltime.DateTime
		comp *ical.Component
	}
	var ovs []override
	for _, comp := range overrides {
		id, err := RecurrenceID(ctx, comp, zones)
		if err != nil {
			return nil, err
		}
		if v, ok := id.Get(); ok {
			ovs = append(ovs, override{id: v, comp: comp})
		}
	}

	out := make([]*ical.Component, 0, list.Len())
	for _, p := range list.Periods() {
		replaced := false
		for _, ov := range ovs {
			if sameStart(ov.id, p.Start()) {
				out = append(out, ov.comp)
				replaced = true
				break
			}
		}
		if replaced {
			continue
		}

		inst := &ical.Component{
			Name:     master.Name,
			Props:    make(ical.Props, len(master.Props)),
			Children: master.Children,
		}
		for name, values := range master.Props {
			if !slices.Contains(recurrenceProps, name) {
				inst.Props[name] = append([]ical.Prop(nil), values...)
			}
		}
		inst.Props.SetText(ical.PropUID, uid)
		setDateTime(inst.Props, ical.PropDateTimeStart, p.Start())
		setDateTime(inst.Props, ical.PropDateTimeEnd, p.End())
		setDateTime(inst.Props, propRecurrenceID, p.Start())
		out = append(out, inst)
	}
	return out, nil
}

func setDateTime(props ical.Props, name string, dt caltime.DateTime) {
	prop := ical.NewProp(name)
	switch {
	case dt.IsDate():
		prop.Params.Set(ical.ParamValue, valueDate)
	case dt.Mode().IsZoned():
		prop.Params.Set(ical.ParamTimezoneID, dt.Mode().TZID())
	}
	prop.Value = dt.String()
	props.Set(prop)
}

func sameStart(a, b caltime.DateTime) bool {
	if a.IsDate() || b.IsDate() {
		return a.Date() == b.Date()
	}
	if a.Mode().IsFloating() != b.Mode().IsFloating() {
		b = b.In(a.Mode())
	}
	return a.Time().Equal(b.Time())
}
