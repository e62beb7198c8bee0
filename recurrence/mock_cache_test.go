package recurrence

import (
	"context"
	"testing"
	"time"

	"github.com/cyp0633/calrecur/caltime"
	"github.com/cyp0633/calrecur/period"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCache implements the Cache interface for testing
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(operation string, set RecurrenceSet, window period.Period) (CacheEntry, bool) {
	args := m.Called(operation, set, window)
	return args.Get(0).(CacheEntry), args.Bool(1)
}

func (m *MockCache) Set(operation string, set RecurrenceSet, window period.Period, entry CacheEntry) {
	m.Called(operation, set, window, entry)
}

func TestEngineWithCache(t *testing.T) {
	set := RecurrenceSet{Start: utc(2024, time.January, 1, 9), RRules: rules("FREQ=DAILY;COUNT=3")}
	w := window(utc(2024, time.January, 1, 0), utc(2024, time.January, 10, 0))
	ctx := context.Background()

	t.Run("miss stores the expansion", func(t *testing.T) {
		cache := new(MockCache)
		cache.On("Get", opExpand, mock.Anything, w).Return(CacheEntry{}, false)
		cache.On("Set", opExpand, mock.Anything, w, mock.MatchedBy(func(e CacheEntry) bool {
			return len(e.Periods) == 3
		})).Return()

		engine := NewEngineWithConfig(DisabledCacheConfig, WithCache(cache))
		list, err := engine.ExpandPeriods(ctx, set, w)
		require.NoError(t, err)
		assert.Equal(t, 3, list.Len())
		cache.AssertExpectations(t)
	})

	t.Run("hit skips expansion", func(t *testing.T) {
		stored := period.NewWithEnd(utc(2030, time.June, 1, 0), utc(2030, time.June, 1, 1))
		cache := new(MockCache)
		cache.On("Get", opExpand, mock.Anything, w).Return(CacheEntry{Periods: []period.Period{stored}}, true)

		engine := NewEngine(WithCache(cache))
		list, err := engine.ExpandPeriods(ctx, set, w)
		require.NoError(t, err)
		assert.Equal(t, stored.String(), list.String())
		cache.AssertExpectations(t)
		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("has occurrence caches the answer", func(t *testing.T) {
		cache := new(MockCache)
		cache.On("Get", opHas, mock.Anything, w).Return(CacheEntry{}, false)
		cache.On("Set", opHas, mock.Anything, w, CacheEntry{Found: true}).Return()

		engine := NewEngine(WithCache(cache))
		found, err := engine.HasOccurrenceInRange(ctx, set, w)
		require.NoError(t, err)
		assert.True(t, found)
		cache.AssertExpectations(t)
	})

	t.Run("failed expansion is not cached", func(t *testing.T) {
		year := window(utc(2024, time.January, 1, 0), utc(2024, time.December, 31, 0))
		cache := new(MockCache)
		cache.On("Get", opExpand, mock.Anything, year).Return(CacheEntry{}, false)

		config := DisabledCacheConfig
		config.Budget.MaxEmptyCycles = 10
		engine := NewEngineWithConfig(config, WithCache(cache))
		impossible := RecurrenceSet{
			Start:  caltime.Of(2024, time.January, 1, 9, 0, 0, caltime.UTC()),
			RRules: rules("FREQ=DAILY;BYMONTH=2;BYMONTHDAY=30"),
		}
		_, err := engine.ExpandPeriods(ctx, impossible, year)
		require.Error(t, err)
		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
