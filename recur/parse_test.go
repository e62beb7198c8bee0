package recur

import (
	"testing"
	"time"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/caltime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{
			input: "FREQ=WEEKLY;INTERVAL=2;UNTIL=19971224T000000Z;WKST=SU;BYDAY=TU,TH",
			want:  "FREQ=WEEKLY;INTERVAL=2;UNTIL=19971224T000000Z;BYDAY=TU,TH;WKST=SU",
		},
		{
			input: "FREQ=MONTHLY;BYDAY=-1FR;X-NAME=foo;COUNT=3",
			want:  "FREQ=MONTHLY;COUNT=3;BYDAY=-1FR;X-NAME=foo",
		},
		{
			input: "RRULE:FREQ=YEARLY;BYMONTH=1,2",
			want:  "FREQ=YEARLY;BYMONTH=1,2",
		},
		{
			input: "FREQ=YEARLY;BYSETPOS=-1;BYWEEKNO=20,-1;BYYEARDAY=+100;BYMONTHDAY=-31;BYSECOND=0;BYMINUTE=30;BYHOUR=9",
			want:  "FREQ=YEARLY;BYSECOND=0;BYMINUTE=30;BYHOUR=9;BYMONTHDAY=-31;BYYEARDAY=100;BYWEEKNO=20,-1;BYSETPOS=-1",
		},
		{
			input: "freq=daily;until=20240105",
			want:  "FREQ=DAILY;UNTIL=20240105",
		},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r, err := Parse(tt.input, ParseOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.String())

			again, err := Parse(r.String(), ParseOptions{})
			require.NoError(t, err)
			assert.Equal(t, r.String(), again.String())
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input  string
		format bool
		rng    bool
	}{
		{input: "", format: true},
		{input: "INTERVAL=2", format: true},
		{input: "FREQ=SOMETIMES", format: true},
		{input: "FREQ=DAILY;UNTIL=2024", format: true},
		{input: "FREQ=DAILY;COUNT=x", format: true},
		{input: "FREQ=DAILY;COUNT=3;UNTIL=20240101", format: true},
		{input: "FREQ=DAILY;FREQ=WEEKLY", format: true},
		{input: "FREQ=DAILY;FOO", format: true},
		{input: "FREQ=DAILY;BYDAY=XX", format: true},
		{input: "FREQ=DAILY;BYMONTH=1,,2", format: true},
		{input: "FREQ=DAILY;WKST=1MO", format: true},
		{input: "FREQ=DAILY;BYHOUR=24", rng: true},
		{input: "FREQ=MONTHLY;BYMONTHDAY=0", rng: true},
		{input: "FREQ=MONTHLY;BYMONTHDAY=-32", rng: true},
		{input: "FREQ=YEARLY;BYYEARDAY=367", rng: true},
		{input: "FREQ=YEARLY;BYWEEKNO=54", rng: true},
		{input: "FREQ=YEARLY;BYMONTH=13", rng: true},
		{input: "FREQ=MONTHLY;BYDAY=0MO", rng: true},
		{input: "FREQ=MONTHLY;BYDAY=54MO", rng: true},
		{input: "FREQ=DAILY;INTERVAL=0", rng: true},
		{input: "FREQ=DAILY;COUNT=0", rng: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input, ParseOptions{})
			require.Error(t, err)
			assert.Equal(t, tt.format, calerr.IsFormat(err), err.Error())
			assert.Equal(t, tt.rng, calerr.IsRange(err), err.Error())
		})
	}
}

func TestParseLenient(t *testing.T) {
	lenient := ParseOptions{Strictness: caltime.Lenient}

	r, err := Parse("FREQ=DAILY;COUNT=3;UNTIL=20240101", lenient)
	require.NoError(t, err)
	_, hasCount := r.Termination().Count()
	until, hasUntil := r.Termination().Until()
	assert.False(t, hasCount)
	assert.True(t, hasUntil)
	assert.Equal(t, "20240101", until.String())

	r, err = Parse("FREQ=DAILY;BYHOUR=25;BYMONTHDAY=0", lenient)
	require.NoError(t, err)
	assert.Equal(t, []int{25}, r.ByHour())
	assert.Equal(t, []int{0}, r.ByMonthDay())

	r, err = Parse("FREQ=DAILY;INTERVAL=2;INTERVAL=3", lenient)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Interval())
}

func TestParseUntilLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	r, err := Parse("FREQ=DAILY;UNTIL=20240105T090000", ParseOptions{Location: tokyo})
	require.NoError(t, err)
	until, ok := r.Termination().Until()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), until.Time().UTC())
}

func TestTerminationIsExclusive(t *testing.T) {
	r := MustParse("FREQ=DAILY;COUNT=5")
	r.SetUntil(caltime.Of(2024, 1, 1, 0, 0, 0, caltime.UTC()))
	_, hasCount := r.Termination().Count()
	assert.False(t, hasCount)
	assert.Equal(t, "FREQ=DAILY;UNTIL=20240101T000000Z", r.String())

	require.NoError(t, r.SetCount(2))
	_, hasUntil := r.Termination().Until()
	assert.False(t, hasUntil)
	assert.Equal(t, "FREQ=DAILY;COUNT=2", r.String())

	assert.True(t, calerr.IsRange(r.SetCount(0)))

	r.SetUnbounded()
	assert.True(t, r.Termination().IsUnbounded())
	assert.Equal(t, "FREQ=DAILY", r.String())
}

func TestNew(t *testing.T) {
	r, err := New(Monthly, WithCount(3), ByDay(FR.Nth(-1)), WithWeekStart(time.Sunday), WithExtension("X-A", "1"))
	require.NoError(t, err)
	assert.Equal(t, "FREQ=MONTHLY;COUNT=3;BYDAY=-1FR;WKST=SU;X-A=1", r.String())
	assert.Equal(t, []Extension{{Key: "X-A", Value: "1"}}, r.Extensions())

	_, err = New(Daily, ByHour(30))
	assert.True(t, calerr.IsRange(err))

	_, err = New(Frequency(42))
	assert.True(t, calerr.IsFormat(err))
}

func TestAccessorsReturnCopies(t *testing.T) {
	r := MustParse("FREQ=YEARLY;BYMONTH=1,2")
	m := r.ByMonth()
	m[0] = 12
	assert.Equal(t, []int{1, 2}, r.ByMonth())
}

func TestCloneIsIndependent(t *testing.T) {
	r := MustParse("FREQ=YEARLY;UNTIL=20240101T000000Z;BYMONTH=3")
	c := r.Clone()
	require.NoError(t, c.SetCount(4))
	assert.Equal(t, "FREQ=YEARLY;UNTIL=20240101T000000Z;BYMONTH=3", r.String())
	assert.Equal(t, "FREQ=YEARLY;COUNT=4;BYMONTH=3", c.String())
}
