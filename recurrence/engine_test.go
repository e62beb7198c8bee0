package recurrence

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/caltime"
	"github.com/cyp0633/calrecur/dur"
	"github.com/cyp0633/calrecur/period"
	"github.com/cyp0633/calrecur/recur"
	"github.com/cyp0633/calrecur/vtimezone"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utc(y int, m time.Month, d, h int) caltime.DateTime {
	return caltime.Of(y, m, d, h, 0, 0, caltime.UTC())
}

func window(from, to caltime.DateTime) period.Period {
	return period.NewWithEnd(from, to)
}

func rules(s ...string) []*recur.Recur {
	out := make([]*recur.Recur, len(s))
	for i, r := range s {
		out[i] = recur.MustParse(r)
	}
	return out
}

func TestExpandPeriodsDailyWithEnd(t *testing.T) {
	engine := NewEngine()
	set := RecurrenceSet{
		Start:  utc(2008, time.June, 1, 10),
		End:    mo.Some(utc(2008, time.June, 1, 12)),
		RRules: rules("FREQ=DAILY;COUNT=7"),
	}

	got, err := engine.ExpandPeriods(context.Background(), set, window(utc(2008, time.June, 1, 0), utc(2008, time.June, 30, 0)))
	require.NoError(t, err)
	assert.Equal(t,
		"20080601T100000Z/PT2H,20080602T100000Z/PT2H,20080603T100000Z/PT2H,20080604T100000Z/PT2H,"+
			"20080605T100000Z/PT2H,20080606T100000Z/PT2H,20080607T100000Z/PT2H",
		got.String())
}

func TestExpandPeriods(t *testing.T) {
	start := utc(2024, time.January, 1, 9)
	hour := mo.Some(dur.MustParse("PT1H"))

	tests := []struct {
		name   string
		set    RecurrenceSet
		window period.Period
		want   string
	}{
		{
			name:   "single instance",
			set:    RecurrenceSet{Start: start, Duration: hour},
			window: window(utc(2023, time.December, 31, 0), utc(2024, time.January, 2, 0)),
			want:   "20240101T090000Z/PT1H",
		},
		{
			name:   "instance overlapping the window start",
			set:    RecurrenceSet{Start: start, Duration: mo.Some(dur.MustParse("PT3H")), RRules: rules("FREQ=DAILY")},
			window: window(utc(2024, time.January, 3, 10), utc(2024, time.January, 3, 11)),
			want:   "20240103T090000Z/PT3H",
		},
		{
			name:   "instance ending at the window start is outside",
			set:    RecurrenceSet{Start: start, Duration: hour, RRules: rules("FREQ=DAILY")},
			window: window(utc(2024, time.January, 3, 10), utc(2024, time.January, 3, 12)),
			want:   "",
		},
		{
			name: "exdate and rdate",
			set: RecurrenceSet{
				Start: start, Duration: hour,
				RRules:  rules("FREQ=DAILY;COUNT=3"),
				RDates:  []caltime.DateTime{utc(2024, time.January, 5, 15)},
				ExDates: []caltime.DateTime{utc(2024, time.January, 2, 9)},
			},
			window: window(utc(2024, time.January, 1, 0), utc(2024, time.January, 31, 0)),
			want:   "20240101T090000Z/PT1H,20240103T090000Z/PT1H,20240105T150000Z/PT1H",
		},
		{
			name: "date exdate removes the whole day",
			set: RecurrenceSet{
				Start: start, Duration: hour,
				RRules:  rules("FREQ=HOURLY;INTERVAL=12;COUNT=4"),
				ExDates: []caltime.DateTime{caltime.OfDate(2024, time.January, 1, caltime.UTC())},
			},
			window: window(utc(2024, time.January, 1, 0), utc(2024, time.January, 31, 0)),
			want:   "20240102T090000Z/PT1H,20240102T210000Z/PT1H",
		},
		{
			name: "exrule",
			set: RecurrenceSet{
				Start: start, Duration: hour,
				RRules:  rules("FREQ=DAILY;COUNT=5"),
				ExRules: rules("FREQ=DAILY;INTERVAL=2"),
			},
			window: window(utc(2024, time.January, 1, 0), utc(2024, time.January, 31, 0)),
			want:   "20240102T090000Z/PT1H,20240104T090000Z/PT1H",
		},
		{
			name: "rdate period keeps its own length",
			set: RecurrenceSet{
				Start: start, Duration: hour,
				RPeriods: []period.Period{period.NewWithEnd(utc(2024, time.January, 4, 8), utc(2024, time.January, 4, 18))},
			},
			window: window(utc(2024, time.January, 1, 0), utc(2024, time.January, 31, 0)),
			want:   "20240101T090000Z/PT1H,20240104T080000Z/20240104T180000Z",
		},
		{
			name: "all-day instances last a day",
			set: RecurrenceSet{
				Start:  caltime.OfDate(2024, time.January, 1, caltime.Floating()),
				RRules: rules("FREQ=WEEKLY;COUNT=3"),
			},
			window: window(utc(2024, time.January, 8, 12), utc(2024, time.January, 31, 0)),
			want:   "20240108/P1D,20240115/P1D",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngineWithConfig(DisabledCacheConfig)
			got, err := engine.ExpandPeriods(context.Background(), tt.set, tt.window)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestEngine_HasOccurrenceInRange(t *testing.T) {
	// Base event: Daily meeting from 9-10 AM starting Jan 1, 2024
	start := utc(2024, time.January, 1, 9)
	end := mo.Some(utc(2024, time.January, 1, 10))

	tests := []struct {
		name     string
		set      RecurrenceSet
		window   period.Period
		expected bool
	}{
		{
			name:     "Non-recurring event in range",
			set:      RecurrenceSet{Start: start, End: end},
			window:   window(utc(2023, time.December, 31, 0), utc(2024, time.January, 2, 0)),
			expected: true,
		},
		{
			name:     "Non-recurring event out of range",
			set:      RecurrenceSet{Start: start, End: end},
			window:   window(utc(2024, time.January, 2, 0), utc(2024, time.January, 3, 0)),
			expected: false,
		},
		{
			name:     "Daily recurring event with occurrence in range",
			set:      RecurrenceSet{Start: start, End: end, RRules: rules("FREQ=DAILY;COUNT=7")},
			window:   window(utc(2024, time.January, 3, 0), utc(2024, time.January, 4, 0)),
			expected: true,
		},
		{
			name:     "Daily recurring event with no occurrence in range",
			set:      RecurrenceSet{Start: start, End: end, RRules: rules("FREQ=DAILY;COUNT=3")},
			window:   window(utc(2024, time.January, 10, 0), utc(2024, time.January, 11, 0)),
			expected: false,
		},
		{
			name: "Only occurrence in range is excluded",
			set: RecurrenceSet{
				Start: start, End: end, RRules: rules("FREQ=DAILY;COUNT=3"),
				ExDates: []caltime.DateTime{utc(2024, time.January, 2, 9)},
			},
			window:   window(utc(2024, time.January, 2, 0), utc(2024, time.January, 2, 23)),
			expected: false,
		},
		{
			name: "Occurrence removed by EXRULE",
			set: RecurrenceSet{
				Start: start, End: end, RRules: rules("FREQ=DAILY;COUNT=5"),
				ExRules: rules("FREQ=DAILY;INTERVAL=2"),
			},
			window:   window(utc(2024, time.January, 3, 0), utc(2024, time.January, 3, 23)),
			expected: false,
		},
		{
			name: "RDATE in range",
			set: RecurrenceSet{
				Start: start, End: end,
				RDates: []caltime.DateTime{utc(2024, time.March, 1, 9)},
			},
			window:   window(utc(2024, time.March, 1, 0), utc(2024, time.March, 2, 0)),
			expected: true,
		},
		{
			name:     "Unbounded weekly rule far in the future",
			set:      RecurrenceSet{Start: start, End: end, RRules: rules("FREQ=WEEKLY;BYDAY=MO")},
			window:   window(utc(2030, time.January, 7, 0), utc(2030, time.January, 8, 0)),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine()
			result, err := engine.HasOccurrenceInRange(context.Background(), tt.set, tt.window)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestHasOccurrenceFallsBackToExpansion(t *testing.T) {
	config := DisabledCacheConfig
	config.MaxExpansionOccurrences = 1
	engine := NewEngineWithConfig(config)

	set := RecurrenceSet{
		Start:   utc(2024, time.January, 1, 9),
		RRules:  rules("FREQ=DAILY;COUNT=10"),
		ExDates: []caltime.DateTime{utc(2024, time.January, 3, 9)},
	}
	found, err := engine.HasOccurrenceInRange(context.Background(), set,
		window(utc(2024, time.January, 3, 0), utc(2024, time.January, 4, 23)))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestEngineMetricsAndCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	engine := NewEngine(WithMetrics(metrics))
	defer engine.Close()

	set := RecurrenceSet{Start: utc(2024, time.January, 1, 9), RRules: rules("FREQ=WEEKLY;COUNT=4")}
	w := window(utc(2024, time.January, 1, 0), utc(2024, time.February, 1, 0))

	first, err := engine.ExpandPeriods(context.Background(), set, w)
	require.NoError(t, err)
	second, err := engine.ExpandPeriods(context.Background(), set, w)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
	assert.Equal(t, 4, second.Len())

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.expansions.WithLabelValues(opExpand)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheMisses))

	stats := engine.Cache().(*RecurrenceCache).Stats()
	assert.Equal(t, 1, stats.ActiveEntries)
	assert.Equal(t, int64(1), stats.Hits)
}

func TestBudgetExceeded(t *testing.T) {
	var logs bytes.Buffer
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	config := DisabledCacheConfig
	config.Budget = recur.Budget{MaxEmptyCycles: 10}
	engine := NewEngineWithConfig(config,
		WithMetrics(metrics),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	impossible := RecurrenceSet{Start: utc(2024, time.January, 1, 9), RRules: rules("FREQ=DAILY;BYMONTH=2;BYMONTHDAY=30")}
	fine := RecurrenceSet{Start: utc(2024, time.January, 1, 9), RRules: rules("FREQ=DAILY;COUNT=2")}
	w := window(utc(2024, time.January, 1, 0), utc(2024, time.December, 31, 0))

	list, err := engine.ExpandPeriods(context.Background(), impossible, w)
	require.Error(t, err)
	assert.ErrorIs(t, err, calerr.ErrBudgetExceeded)
	assert.True(t, calerr.IsUnresolvable(err))
	assert.Equal(t, "20240101T090000Z/PT0S", list.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.budgetExceeded))
	assert.Contains(t, logs.String(), "exceeded its budget")

	results := engine.ExpandBatch(context.Background(), []RecurrenceSet{fine, impossible, fine}, w)
	require.Len(t, results, 3)
	assert.True(t, results[0].IsOk())
	assert.Equal(t, 2, results[0].MustGet().Len())
	assert.True(t, results[1].IsError())
	assert.ErrorIs(t, results[1].Error(), calerr.ErrBudgetExceeded)
	assert.True(t, results[2].IsOk())
}

func TestCacheSeparatesZonesSharingTZID(t *testing.T) {
	zone := func(offset vtimezone.UTCOffset) *vtimezone.TimeZone {
		tz, err := vtimezone.New("Custom", []vtimezone.Observance{{
			Kind:       vtimezone.Standard,
			OffsetFrom: offset,
			OffsetTo:   offset,
			Start:      caltime.Of(1970, time.January, 1, 0, 0, 0, caltime.Floating()),
		}})
		require.NoError(t, err)
		return tz
	}
	start := caltime.Of(2024, time.January, 1, 10, 0, 0, caltime.Floating())
	w := window(utc(2024, time.January, 1, 0), utc(2024, time.January, 2, 0))
	ctx := context.Background()

	engine := NewEngine()
	defer engine.Close()

	for _, tc := range []struct {
		offset vtimezone.UTCOffset
		want   string
	}{
		{0, "20240101T100000Z/PT0S"},
		{5 * 3600, "20240101T050000Z/PT0S"},
		{0, "20240101T100000Z/PT0S"},
	} {
		list, err := engine.ExpandPeriods(ctx, RecurrenceSet{Start: start, Zone: zone(tc.offset)}, w)
		require.NoError(t, err)
		assert.Equal(t, tc.want, list.String(), "offset %s", tc.offset)
	}
}
