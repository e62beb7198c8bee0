package xcal

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/recur"
)

// recurOrder is the element order of the xCal recur schema.
var recurOrder = []string{
	"FREQ", "UNTIL", "COUNT", "INTERVAL",
	"BYSECOND", "BYMINUTE", "BYHOUR", "BYDAY", "BYMONTHDAY",
	"BYYEARDAY", "BYWEEKNO", "BYMONTH", "BYSETPOS", "WKST",
}

// EncodeRecur returns a recur element for r. Multi-valued parts become
// one element per value; extension parts follow the standard ones.
func EncodeRecur(r *recur.Recur) *etree.Element {
	parts := map[string]string{}
	var ext []string
	for _, part := range strings.Split(r.String(), ";") {
		key, val, _ := strings.Cut(part, "=")
		parts[key] = val
		if !slices.Contains(recurOrder, key) {
			ext = append(ext, key)
		}
	}

	el := etree.NewElement(TagRecur)
	emit := func(key, val string) {
		tag := strings.ToLower(key)
		if key == "UNTIL" {
			if u, ok := r.Termination().Until(); ok {
				val = FormatDateTime(u)
			}
			el.CreateElement(tag).SetText(val)
			return
		}
		for _, v := range strings.Split(val, ",") {
			el.CreateElement(tag).SetText(v)
		}
	}
	for _, key := range recurOrder {
		if val, ok := parts[key]; ok {
			emit(key, val)
		}
	}
	for _, key := range ext {
		emit(key, parts[key])
	}
	return el
}

// DecodeRecur reads a recur element. loc applies to an until value
// without a trailing Z.
func DecodeRecur(el *etree.Element, loc *time.Location) (*recur.Recur, error) {
	if el.Tag != TagRecur {
		return nil, fmt.Errorf("invalid recur element: %s", el.Tag)
	}

	var (
		keys   []string
		values = map[string][]string{}
	)
	for _, child := range el.ChildElements() {
		key := strings.ToUpper(child.Tag)
		val := strings.TrimSpace(child.Text())
		if key == "UNTIL" {
			dt, err := ParseDateTime(val, loc)
			if err != nil {
				return nil, calerr.Format("UNTIL", val, err)
			}
			val = dt.String()
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = append(values[key], val)
	}

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+strings.Join(values[key], ","))
	}
	return recur.Parse(strings.Join(parts, ";"), recur.ParseOptions{Location: loc})
}
