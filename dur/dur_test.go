package dur

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/caltime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  string
		neg   bool
	}{
		{"P1W", "P1W", false},
		{"-P2W", "-P2W", true},
		{"+P15DT5H0M20S", "P15DT5H20S", false},
		{"PT2H", "PT2H", false},
		{"PT90M", "PT90M", false},
		{"-PT15M", "-PT15M", true},
		{"P1D", "P1D", false},
		{"P0D", "PT0S", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
			assert.Equal(t, tt.neg, d.Negative())
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, input := range []string{
		"", "P", "PT", "1D", "P1", "P1DT", "P1W2D", "P1WT1H", "PT1H2D", "PT1S1M", "P1M", "P1DD", "P-1D", "PT1.5S",
	} {
		_, err := Parse(input)
		assert.True(t, calerr.IsFormat(err), input)
	}
}

func TestBetweenAndProject(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	z := caltime.Zoned(ny)

	tests := []struct {
		name  string
		start caltime.DateTime
		end   caltime.DateTime
		want  string
	}{
		{
			name:  "one wall day across spring forward",
			start: caltime.Of(2024, 3, 9, 12, 0, 0, z),
			end:   caltime.Of(2024, 3, 10, 12, 0, 0, z),
			want:  "P1D",
		},
		{
			name:  "one wall day across fall back",
			start: caltime.Of(2024, 11, 2, 12, 0, 0, z),
			end:   caltime.Of(2024, 11, 3, 12, 0, 0, z),
			want:  "P1D",
		},
		{
			name:  "elapsed hours over the gap",
			start: caltime.Of(2024, 3, 10, 0, 0, 0, z),
			end:   caltime.Of(2024, 3, 10, 4, 0, 0, z),
			want:  "PT3H",
		},
		{
			name:  "into the repeated hour",
			start: caltime.Of(2024, 11, 3, 0, 0, 0, z),
			end:   caltime.Of(2024, 11, 3, 0, 0, 0, z).Add(2*time.Hour + 10*time.Minute),
			want:  "PT2H10M",
		},
		{
			name:  "twenty five hour day",
			start: caltime.Of(2024, 11, 3, 0, 30, 0, z),
			end:   caltime.Of(2024, 11, 4, 0, 15, 0, z),
			want:  "PT24H45M",
		},
		{
			name:  "borrow across month end",
			start: caltime.Of(2024, 1, 31, 23, 30, 45, caltime.UTC()),
			end:   caltime.Of(2024, 2, 2, 1, 10, 5, caltime.UTC()),
			want:  "P1DT1H39M20S",
		},
		{
			name:  "whole weeks",
			start: caltime.Of(2024, 2, 20, 8, 0, 0, caltime.UTC()),
			end:   caltime.Of(2024, 3, 5, 8, 0, 0, caltime.UTC()),
			want:  "P2W",
		},
		{
			name:  "negative",
			start: caltime.Of(2024, 1, 2, 0, 0, 0, caltime.UTC()),
			end:   caltime.Of(2024, 1, 1, 22, 0, 0, caltime.UTC()),
			want:  "-PT2H",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Between(tt.start, tt.end)
			assert.Equal(t, tt.want, d.String())
			assert.True(t, d.Project(tt.start).Equal(tt.end), "project(start) = %s", d.Project(tt.start))
		})
	}
}

func TestBetweenProjectsBackAcrossTransitions(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	z := caltime.Zoned(ny)

	tests := []struct {
		name string
		base caltime.DateTime
	}{
		{"fall back", caltime.Of(2024, 11, 2, 23, 0, 0, z)},
		{"spring forward", caltime.Of(2024, 3, 9, 23, 0, 0, z)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var grid []caltime.DateTime
			for i := 0; i <= 8*6; i++ {
				grid = append(grid, tt.base.Add(time.Duration(i)*10*time.Minute))
			}
			grid = append(grid, tt.base.AddClock(1, 0, 0, 0), tt.base.AddClock(2, 1, 10, 0))
			for _, a := range grid {
				for _, b := range grid {
					d := Between(a, b)
					got := d.Project(a)
					assert.True(t, got.Equal(b), "%s + %s = %s, want %s", a.Time(), d, got.Time(), b.Time())
				}
			}
		})
	}
}

func TestCompareIsFieldWise(t *testing.T) {
	w := MustParse("P1W")
	d8 := MustParse("P8D")
	assert.Equal(t, 1, w.Compare(d8), "weeks field dominates")
	assert.Less(t, w.Approx(), d8.Approx())

	assert.Equal(t, 1, MustParse("-PT1S").Compare(MustParse("P1D")))
	assert.Equal(t, 0, MustParse("PT60M").Compare(MustParse("PT60M")))
	assert.Equal(t, -1, MustParse("PT1H").Compare(MustParse("PT1H1S")))
}

func TestNegateAndFromDuration(t *testing.T) {
	assert.Equal(t, "-P1DT2H", FromDuration(26*time.Hour).Negate().String())
	assert.Equal(t, "PT0S", FromDuration(0).Negate().String())
	assert.Equal(t, "P1W", FromDuration(7*24*time.Hour).String())
	assert.Equal(t, -90*time.Minute, MustParse("-PT1H30M").Approx())
}
