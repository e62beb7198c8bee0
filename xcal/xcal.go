// Package xcal encodes recurrence values in the XML representation of
// iCalendar (RFC 6321).
package xcal

import (
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/caltime"
	"github.com/cyp0633/calrecur/dur"
	"github.com/cyp0633/calrecur/period"
)

// Namespace is the xCal namespace.
const Namespace = "urn:ietf:params:xml:ns:icalendar-2.0"

// Element names
const (
	TagICalendar  = "icalendar"
	TagVCalendar  = "vcalendar"
	TagProperties = "properties"
	TagRecur      = "recur"
	TagPeriod     = "period"
	TagStart      = "start"
	TagEnd        = "end"
	TagDuration   = "duration"
	TagDate       = "date"
	TagDateTime   = "date-time"
)

const (
	xDateLayout     = "2006-01-02"
	xDateTimeLayout = "2006-01-02T15:04:05"
)

// NewDocument returns an icalendar document with one empty vcalendar and
// its properties element.
func NewDocument() (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(TagICalendar)
	root.CreateAttr("xmlns", Namespace)
	props := root.CreateElement(TagVCalendar).CreateElement(TagProperties)
	return doc, props
}

// Property wraps a value element in a property element such as rrule.
func Property(name string, value *etree.Element) *etree.Element {
	prop := etree.NewElement(strings.ToLower(name))
	prop.AddChild(value)
	return prop
}

// FormatDateTime renders dt in xCal text form: 2024-03-04 for a DATE,
// 2024-03-04T09:00:00 or 2024-03-04T09:00:00Z otherwise.
func FormatDateTime(dt caltime.DateTime) string {
	if dt.IsDate() {
		return dt.Time().Format(xDateLayout)
	}
	s := dt.Time().Format(xDateTimeLayout)
	if dt.IsUTC() {
		s += "Z"
	}
	return s
}

// ParseDateTime reads a value in xCal text form. loc applies to
// DATE-TIME values without a trailing Z.
func ParseDateTime(s string, loc *time.Location) (caltime.DateTime, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(xDateLayout) && len(s) != len(xDateTimeLayout) && len(s) != len(xDateTimeLayout)+1 {
		return caltime.DateTime{}, calerr.Format(TagDateTime, s, nil)
	}
	compact := strings.NewReplacer("-", "", ":", "").Replace(s)
	dt, err := caltime.Parse(compact, loc)
	if err != nil {
		return caltime.DateTime{}, calerr.Format(TagDateTime, s, err)
	}
	return dt, nil
}

// EncodeDateTime returns a date or date-time element holding dt.
func EncodeDateTime(dt caltime.DateTime) *etree.Element {
	tag := TagDateTime
	if dt.IsDate() {
		tag = TagDate
	}
	el := etree.NewElement(tag)
	el.SetText(FormatDateTime(dt))
	return el
}

// DecodeDateTime reads a date or date-time element.
func DecodeDateTime(el *etree.Element, loc *time.Location) (caltime.DateTime, error) {
	if el.Tag != TagDate && el.Tag != TagDateTime {
		return caltime.DateTime{}, fmt.Errorf("invalid date element: %s", el.Tag)
	}
	dt, err := ParseDateTime(el.Text(), loc)
	if err != nil {
		return caltime.DateTime{}, err
	}
	if (el.Tag == TagDate) != dt.IsDate() {
		return caltime.DateTime{}, calerr.Format(el.Tag, el.Text(), nil)
	}
	return dt, nil
}

// EncodeDuration returns a duration element.
func EncodeDuration(d dur.Dur) *etree.Element {
	el := etree.NewElement(TagDuration)
	el.SetText(d.String())
	return el
}

// DecodeDuration reads a duration element.
func DecodeDuration(el *etree.Element) (dur.Dur, error) {
	if el.Tag != TagDuration {
		return dur.Dur{}, fmt.Errorf("invalid duration element: %s", el.Tag)
	}
	return dur.Parse(strings.TrimSpace(el.Text()))
}

// EncodePeriod returns a period element with a start and either an end
// or a duration, as the period was written.
func EncodePeriod(p period.Period) *etree.Element {
	el := etree.NewElement(TagPeriod)
	el.CreateElement(TagStart).SetText(FormatDateTime(p.Start()))
	if p.HasExplicitEnd() {
		el.CreateElement(TagEnd).SetText(FormatDateTime(p.End()))
	} else {
		el.AddChild(EncodeDuration(p.Duration()))
	}
	return el
}

// DecodePeriod reads a period element.
func DecodePeriod(el *etree.Element, loc *time.Location) (period.Period, error) {
	if el.Tag != TagPeriod {
		return period.Period{}, fmt.Errorf("invalid period element: %s", el.Tag)
	}
	startEl := el.SelectElement(TagStart)
	if startEl == nil {
		return period.Period{}, calerr.Format(TagPeriod, "missing start", nil)
	}
	start, err := ParseDateTime(startEl.Text(), loc)
	if err != nil {
		return period.Period{}, err
	}
	if start.IsDate() {
		return period.Period{}, calerr.Format(TagPeriod, startEl.Text(), nil)
	}
	if endEl := el.SelectElement(TagEnd); endEl != nil {
		end, err := ParseDateTime(endEl.Text(), loc)
		if err != nil {
			return period.Period{}, err
		}
		return period.NewWithEnd(start, end), nil
	}
	if durEl := el.SelectElement(TagDuration); durEl != nil {
		d, err := DecodeDuration(durEl)
		if err != nil {
			return period.Period{}, err
		}
		return period.NewWithDuration(start, d), nil
	}
	return period.Period{}, calerr.Format(TagPeriod, "missing end or duration", nil)
}
