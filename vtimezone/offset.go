package vtimezone

import (
	"fmt"
	"time"

	"github.com/cyp0633/calrecur/calerr"
)

// UTCOffset is a signed offset from UTC in seconds, as written in
// TZOFFSETFROM and TZOFFSETTO.
type UTCOffset int

// ParseUTCOffset reads (+|-)hhmm[ss].
func ParseUTCOffset(s string) (UTCOffset, error) {
	if len(s) != 5 && len(s) != 7 {
		return 0, calerr.Format("UTC-OFFSET", s, nil)
	}
	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, calerr.Format("UTC-OFFSET", s, nil)
	}
	var fields [3]int
	for i := 0; i*2+1 < len(s); i++ {
		a, b := s[i*2+1], s[i*2+2]
		if a < '0' || a > '9' || b < '0' || b > '9' {
			return 0, calerr.Format("UTC-OFFSET", s, nil)
		}
		fields[i] = int(a-'0')*10 + int(b-'0')
	}
	if fields[1] > 59 || fields[2] > 59 {
		return 0, calerr.Format("UTC-OFFSET", s, nil)
	}
	return UTCOffset(sign * (fields[0]*3600 + fields[1]*60 + fields[2])), nil
}

// String renders +hhmm, adding seconds only when they are non-zero.
func (o UTCOffset) String() string {
	sign := '+'
	v := int(o)
	if v < 0 {
		sign, v = '-', -v
	}
	h, m, s := v/3600, v/60%60, v%60
	if s != 0 {
		return fmt.Sprintf("%c%02d%02d%02d", sign, h, m, s)
	}
	return fmt.Sprintf("%c%02d%02d", sign, h, m)
}

// Duration returns the offset as a time.Duration.
func (o UTCOffset) Duration() time.Duration {
	return time.Duration(o) * time.Second
}

// Location returns a fixed zone with this offset.
func (o UTCOffset) Location(name string) *time.Location {
	return time.FixedZone(name, int(o))
}
