package caltime

import "time"

// Precision is the resolution a value is rounded to.
type Precision int

const (
	// Day precision, RFC 5545 DATE.
	Day Precision = iota
	// Second precision, RFC 5545 DATE-TIME.
	Second
)

func (p Precision) String() string {
	if p == Day {
		return "DATE"
	}
	return "DATE-TIME"
}

type modeKind int

const (
	kindFloating modeKind = iota
	kindUTC
	kindZoned
)

// Mode is the time reference of a value: UTC, zoned, or floating.
// The zero Mode is floating.
type Mode struct {
	kind modeKind
	loc  *time.Location
}

// UTC is the mode of values written with a trailing "Z".
func UTC() Mode { return Mode{kind: kindUTC} }

// Floating is the mode of values with no zone. Floating values are held
// as UTC wall clocks so arithmetic on them never sees DST rules.
func Floating() Mode { return Mode{kind: kindFloating} }

// Zoned binds values to loc. A nil loc yields Floating, time.UTC yields UTC.
func Zoned(loc *time.Location) Mode {
	switch loc {
	case nil:
		return Floating()
	case time.UTC:
		return UTC()
	}
	return Mode{kind: kindZoned, loc: loc}
}

// IsUTC reports whether the mode is UTC.
func (m Mode) IsUTC() bool { return m.kind == kindUTC }

// IsFloating reports whether the mode is floating.
func (m Mode) IsFloating() bool { return m.kind == kindFloating }

// IsZoned reports whether the mode carries a location.
func (m Mode) IsZoned() bool { return m.kind == kindZoned }

// Location used for field arithmetic in this mode.
func (m Mode) Location() *time.Location {
	if m.kind == kindZoned {
		return m.loc
	}
	return time.UTC
}

// TZID is the location name for zoned modes, empty otherwise.
func (m Mode) TZID() string {
	if m.kind == kindZoned {
		return m.loc.String()
	}
	return ""
}

// Equal compares modes; zoned modes match on location name.
func (m Mode) Equal(o Mode) bool {
	if m.kind != o.kind {
		return false
	}
	return m.kind != kindZoned || m.loc.String() == o.loc.String()
}

func (m Mode) String() string {
	switch m.kind {
	case kindUTC:
		return "UTC"
	case kindZoned:
		return "TZID=" + m.loc.String()
	}
	return "floating"
}

// Strictness selects how parsers treat out-of-range fields and trailing text.
type Strictness int

const (
	// Strict rejects anything RFC 5545 does not allow.
	Strict Strictness = iota
	// Lenient tolerates trailing text and normalises overflowing fields
	// (hour 26 becomes 02:00 the next day).
	Lenient
)
