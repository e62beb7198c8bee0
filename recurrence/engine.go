// Package recurrence expands whole recurrence sets (DTSTART, RRULE,
// EXRULE, RDATE and EXDATE together) into the periods their instances
// occupy.
package recurrence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/caltime"
	"github.com/cyp0633/calrecur/period"
	"github.com/cyp0633/calrecur/vtimezone"
	"github.com/samber/mo"
)

const (
	opExpand = "expand"
	opHas    = "has_occurrence"
)

// Cache stores evaluation results keyed by operation, set and window.
type Cache interface {
	Get(operation string, set RecurrenceSet, window period.Period) (CacheEntry, bool)
	Set(operation string, set RecurrenceSet, window period.Period, entry CacheEntry)
}

// Engine provides unified recurrence expansion and validation logic
type Engine struct {
	cache   Cache
	config  EngineConfig
	logger  *slog.Logger
	metrics *Metrics
}

// Option represents a configuration option for the Engine
type Option func(*Engine)

// WithLogger sets the logger for the engine
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCache replaces the engine's cache, whatever the configuration says
func WithCache(c Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithMetrics instruments the engine
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates a new recurrence engine instance with DefaultEngineConfig
func NewEngine(opts ...Option) *Engine {
	return NewEngineWithConfig(DefaultEngineConfig, opts...)
}

// NewEngineWithConfig creates a new recurrence engine with custom configuration
func NewEngineWithConfig(config EngineConfig, opts ...Option) *Engine {
	e := &Engine{
		config: config,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if config.CacheEnabled {
		e.cache = NewRecurrenceCache(config.CacheConfig)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cache returns the engine's cache, or nil when caching is disabled
func (e *Engine) Cache() Cache { return e.cache }

// Close releases cached results
func (e *Engine) Close() {
	if c, ok := e.cache.(interface{ Close() }); ok {
		c.Close()
	}
}

// ExpandPeriods returns the instances of set that overlap window, as a
// sorted list of periods. Each instance starting at an RRULE occurrence,
// an RDATE or DTSTART lasts set.Length(); RDATE periods keep their own
// length. Instances whose start matches an EXDATE or an EXRULE occurrence
// are dropped.
//
// An instance overlaps the window when it starts no later than the
// window's end and ends after the window's start; an instantaneous one
// must lie inside the window.
//
// When a rule runs out of budget the instances found so far are returned
// with an error matching calerr.ErrBudgetExceeded.
func (e *Engine) ExpandPeriods(ctx context.Context, set RecurrenceSet, window period.Period) (*period.PeriodList, error) {
	start := time.Now()
	e.count(opExpand)
	defer e.observe(opExpand, start)

	if entry, ok := e.lookup(opExpand, set, window); ok {
		return period.NewList(entry.Periods...), nil
	}

	list, err := e.expand(ctx, set, window)
	if err != nil {
		e.failed(set, err)
		return list, err
	}
	if e.cache != nil {
		e.cache.Set(opExpand, set, window, CacheEntry{Periods: list.Periods()})
	}
	e.logger.Debug("expanded recurrence set",
		"start", set.Start.String(),
		"window", window.String(),
		"instances", list.Len())
	return list, nil
}

func (e *Engine) expand(ctx context.Context, set RecurrenceSet, window period.Period) (*period.PeriodList, error) {
	if set.Zone != nil {
		return e.expandZoned(ctx, set, window)
	}
	return e.expandIn(ctx, set, window)
}

// zoneSlack covers the distance between any wall clock and UTC.
const zoneSlack = 26 * time.Hour

// expandZoned expands set on its zone's wall clock over a window widened
// by zoneSlack, then converts each instance to UTC and filters again.
func (e *Engine) expandZoned(ctx context.Context, set RecurrenceSet, window period.Period) (*period.PeriodList, error) {
	wide := period.NewWithEnd(window.Start().Add(-zoneSlack), window.End().Add(zoneSlack))
	local, err := e.expandIn(ctx, set, wide)

	list := period.NewList()
	for _, p := range local.Periods() {
		utc, convErr := localize(ctx, set.Zone, p)
		if convErr != nil {
			return list, errors.Join(err, convErr)
		}
		if overlaps(utc, window) {
			list.AddPeriod(utc)
		}
	}
	return list, err
}

// localize converts a period on tz's wall clock to UTC. DATE and UTC
// values are left alone.
func localize(ctx context.Context, tz *vtimezone.TimeZone, p period.Period) (period.Period, error) {
	s := p.Start()
	if s.IsDate() || !s.Mode().IsFloating() {
		return p, nil
	}
	at, err := tz.ToUTC(ctx, s)
	if err != nil {
		return p, err
	}
	start := caltime.New(at, s.Precision(), caltime.UTC())
	if !p.HasExplicitEnd() {
		return period.NewWithDuration(start, p.Duration()), nil
	}
	until, err := tz.ToUTC(ctx, p.End())
	if err != nil {
		return p, err
	}
	return period.NewWithEnd(start, caltime.New(until, s.Precision(), caltime.UTC())), nil
}

func (e *Engine) expandIn(ctx context.Context, set RecurrenceSet, window period.Period) (*period.PeriodList, error) {
	length := set.Length()
	lo := length.Negate().Project(window.Start().In(set.Start.Mode()))
	hi := window.End()

	starts := []caltime.DateTime{set.Start}
	starts = append(starts, set.RDates...)
	var errs []error
	for _, r := range set.RRules {
		occ, err := r.Expand(ctx, set.Start, lo, hi, e.config.Budget)
		if err != nil {
			errs = append(errs, err)
		}
		starts = append(starts, occ...)
	}

	excluded, err := e.exclusions(ctx, set, lo, hi)
	if err != nil {
		errs = append(errs, err)
	}

	list := period.NewList()
	for _, s := range starts {
		p := period.NewWithDuration(s, length)
		if overlaps(p, window) && !isExcluded(s, set.ExDates, excluded) {
			list.AddPeriod(p)
		}
	}
	for _, p := range set.RPeriods {
		if overlaps(p, window) && !isExcluded(p.Start(), set.ExDates, excluded) {
			list.AddPeriod(p)
		}
	}
	return list, errors.Join(errs...)
}

// exclusions expands every EXRULE over [lo, hi].
func (e *Engine) exclusions(ctx context.Context, set RecurrenceSet, lo, hi caltime.DateTime) ([]caltime.DateTime, error) {
	var (
		out  []caltime.DateTime
		errs []error
	)
	for _, r := range set.ExRules {
		occ, err := r.Expand(ctx, set.Start, lo, hi, e.config.Budget)
		if err != nil {
			errs = append(errs, err)
		}
		out = append(out, occ...)
	}
	return out, errors.Join(errs...)
}

// HasOccurrenceInRange checks if a recurrence set has any instance
// overlapping the window. It walks instances one by one rather than
// expanding the whole window, falling back to ExpandPeriods once
// MaxExpansionOccurrences excluded instances have been skipped.
func (e *Engine) HasOccurrenceInRange(ctx context.Context, set RecurrenceSet, window period.Period) (bool, error) {
	start := time.Now()
	e.count(opHas)
	defer e.observe(opHas, start)

	if entry, ok := e.lookup(opHas, set, window); ok {
		return entry.Found, nil
	}

	found, err := e.hasOccurrence(ctx, set, window)
	if err != nil {
		e.failed(set, err)
		return found, err
	}
	if e.cache != nil {
		e.cache.Set(opHas, set, window, CacheEntry{Found: found})
	}
	return found, nil
}

func (e *Engine) hasOccurrence(ctx context.Context, set RecurrenceSet, window period.Period) (bool, error) {
	if set.Zone != nil {
		list, err := e.expandZoned(ctx, set, window)
		return !list.IsEmpty(), err
	}
	length := set.Length()

	// Fast path: check the master instance and explicit dates first
	candidates := append([]caltime.DateTime{set.Start}, set.RDates...)
	for _, s := range candidates {
		if !overlaps(period.NewWithDuration(s, length), window) {
			continue
		}
		excluded, err := e.exruled(ctx, set, s)
		if err != nil {
			return false, err
		}
		if !excluded {
			return true, nil
		}
	}
	for _, p := range set.RPeriods {
		if !overlaps(p, window) {
			continue
		}
		excluded, err := e.exruled(ctx, set, p.Start())
		if err != nil {
			return false, err
		}
		if !excluded {
			return true, nil
		}
	}

	// Walk each RRULE from the first instance that can still reach the window
	after := length.Negate().Project(window.Start().In(set.Start.Mode())).Add(-time.Second)
	for _, r := range set.RRules {
		cursor := after
		for probes := 0; ; probes++ {
			if probes >= e.config.MaxExpansionOccurrences {
				list, err := e.expand(ctx, set, window)
				return !list.IsEmpty(), err
			}
			next, err := r.NextOccurrence(ctx, set.Start, cursor, e.config.Budget)
			if err != nil {
				return false, fmt.Errorf("failed to check RRULE occurrences: %w", err)
			}
			s, ok := next.Get()
			if !ok || s.After(window.End()) {
				break
			}
			if overlaps(period.NewWithDuration(s, length), window) {
				excluded, err := e.exruled(ctx, set, s)
				if err != nil {
					return false, err
				}
				if !excluded {
					return true, nil
				}
			}
			cursor = s
		}
	}
	return false, nil
}

// exruled reports whether an instance starting at s is removed by an
// EXDATE or EXRULE.
func (e *Engine) exruled(ctx context.Context, set RecurrenceSet, s caltime.DateTime) (bool, error) {
	if isExcluded(s, set.ExDates, nil) {
		return true, nil
	}
	occ, err := e.exclusions(ctx, set, s, s)
	if err != nil {
		return false, err
	}
	return isExcluded(s, nil, occ), nil
}

// ExpandBatch expands many sets over the same window concurrently. Each
// result carries its own error so one failing set does not hide the rest.
func (e *Engine) ExpandBatch(ctx context.Context, sets []RecurrenceSet, window period.Period) []mo.Result[*period.PeriodList] {
	results := make([]mo.Result[*period.PeriodList], len(sets))
	workers := max(e.config.BatchWorkers, 1)
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i, set := range sets {
		i, set := i, set
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			list, err := e.ExpandPeriods(ctx, set, window)
			results[i] = mo.TupleToResult(list, err)
		}()
	}
	wg.Wait()
	return results
}

func (e *Engine) lookup(operation string, set RecurrenceSet, window period.Period) (CacheEntry, bool) {
	if e.cache == nil {
		return CacheEntry{}, false
	}
	entry, ok := e.cache.Get(operation, set, window)
	if e.metrics != nil {
		if ok {
			e.metrics.cacheHits.Inc()
		} else {
			e.metrics.cacheMisses.Inc()
		}
	}
	return entry, ok
}

func (e *Engine) count(operation string) {
	if e.metrics != nil {
		e.metrics.expansions.WithLabelValues(operation).Inc()
	}
}

func (e *Engine) observe(operation string, start time.Time) {
	if e.metrics != nil {
		e.metrics.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

func (e *Engine) failed(set RecurrenceSet, err error) {
	if errors.Is(err, calerr.ErrBudgetExceeded) {
		if e.metrics != nil {
			e.metrics.budgetExceeded.Inc()
		}
		e.logger.Warn("recurrence expansion exceeded its budget",
			"start", set.Start.String(),
			"error", err)
		return
	}
	e.logger.Error("recurrence expansion failed",
		"start", set.Start.String(),
		"error", err)
}

// overlaps reports whether p shares time with window. An instantaneous
// period overlaps when it lies inside the window, boundaries included.
func overlaps(p, window period.Period) bool {
	s, end := p.Start(), p.End()
	if s.After(window.End()) {
		return false
	}
	if !end.After(s) {
		return !s.Before(window.Start())
	}
	return end.After(window.Start())
}

// isExcluded checks if an instance start is named by an EXDATE or an
// EXRULE occurrence. A DATE exception removes every instance on that day.
func isExcluded(s caltime.DateTime, exdates, exrules []caltime.DateTime) bool {
	for _, ex := range exdates {
		if ex.IsDate() {
			if s.Date() == ex.Date() {
				return true
			}
			continue
		}
		if sameInstant(s, ex) {
			return true
		}
	}
	for _, ex := range exrules {
		if sameInstant(s, ex) {
			return true
		}
	}
	return false
}

func sameInstant(a, b caltime.DateTime) bool {
	if a.Mode().IsFloating() != b.Mode().IsFloating() {
		b = b.In(a.Mode())
	}
	return a.Time().Equal(b.Time())
}
