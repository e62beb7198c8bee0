package calmath

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		date Date
		days int
	}{
		{Of(1970, time.January, 1), 0},
		{Of(1969, time.December, 31), -1},
		{Of(2000, time.March, 1), 11017},
		{Of(2024, time.February, 29), 19782},
	} {
		assert.Equal(t, tc.days, ToDays(tc.date), tc.date.String())
		assert.Equal(t, tc.date, FromDays(tc.days))
	}
}

func TestNormalizeAndValid(t *testing.T) {
	d := Of(2023, time.February, 30)
	assert.False(t, d.Valid())
	assert.Equal(t, Of(2023, time.March, 2), d.Normalize())
	assert.True(t, Of(2024, time.February, 29).Valid())
	assert.Equal(t, Of(2024, time.January, 31), Of(2023, time.December+1, 31).Normalize())
}

func TestWeekday(t *testing.T) {
	for i := -400; i < 400; i += 37 {
		d := FromDays(i)
		want := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
		assert.Equal(t, want, d.Weekday(), d.String())
	}
}

func TestAddMonths(t *testing.T) {
	y, m := AddMonths(2020, time.November, 3)
	assert.Equal(t, 2021, y)
	assert.Equal(t, time.February, m)

	y, m = AddMonths(2020, time.January, -1)
	assert.Equal(t, 2019, y)
	assert.Equal(t, time.December, m)
}

func TestISOWeekAgreesWithTime(t *testing.T) {
	start := ToDays(Of(2019, time.December, 20))
	for i := 0; i < 800; i++ {
		d := FromDays(start + i)
		wy, wn := d.Time(0, 0, 0, time.UTC).ISOWeek()
		y, n := WeekNumber(d, time.Monday)
		assert.Equal(t, wy, y, d.String())
		assert.Equal(t, wn, n, d.String())
	}
}

func TestWeeksInYear(t *testing.T) {
	assert.Equal(t, 53, WeeksInYear(2020, time.Monday))
	assert.Equal(t, 52, WeeksInYear(2021, time.Monday))
	assert.Equal(t, Of(2019, time.December, 30), WeekOne(2020, time.Monday))
	assert.Equal(t, Of(2019, time.December, 29), WeekOne(2020, time.Sunday))
}

func TestYearDay(t *testing.T) {
	assert.Equal(t, 1, Of(2021, time.January, 1).YearDay())
	assert.Equal(t, 366, Of(2020, time.December, 31).YearDay())
	assert.Equal(t, 60, Of(2020, time.February, 29).YearDay())
}
