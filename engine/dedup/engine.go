package dedup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/fieldsync/fieldsync/engine/core"
	"github.com/fieldsync/fieldsync/engine/workflow/events"
	"github.com/fieldsync/fieldsync/pkg/logger"
)

// Options configure the deduplication engine. Threshold has no hidden
// default here: callers (normally pkg/config) must decide it explicitly.
type Options struct {
	Enabled         bool
	Threshold       float64
	CacheTTL        time.Duration
	CacheSize       int
	Strategies      []string
	WorkOrderWindow time.Duration
}

// Engine runs the configured strategies against an input entity and caches
// the filtered result per entity fingerprint. Safe for concurrent use; the
// cache is shared across executions and never serves stale entries (a read
// past TTL is a miss).
type Engine struct {
	store      Store
	opts       Options
	strategies []Strategy
	cache      *expirable.LRU[string, []Match]
	events     *events.Bus
}

type Option func(*Engine)

// WithEvents attaches the bus duplicate.detected events are published to.
func WithEvents(bus *events.Bus) Option {
	return func(e *Engine) {
		e.events = bus
	}
}

func New(store Store, opts Options, options ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("dedup engine requires a candidate store")
	}
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("dedup threshold must be in [0,1], got %v", opts.Threshold)
	}
	if opts.CacheTTL <= 0 {
		return nil, fmt.Errorf("dedup cache TTL must be positive")
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 2048
	}
	strategies, err := buildStrategies(opts.Strategies, opts.WorkOrderWindow)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		store:      store,
		opts:       opts,
		strategies: strategies,
		cache:      expirable.NewLRU[string, []Match](opts.CacheSize, nil, opts.CacheTTL),
	}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// FindMatches returns duplicate candidates for entity, deduplicated by
// candidate id (first occurrence wins), sorted by descending confidence and
// filtered to the configured threshold. Strategy failures are logged and
// excluded; partial matching information is still useful, so the method
// never fails because of them.
func (e *Engine) FindMatches(ctx context.Context, entity *Entity) ([]Match, error) {
	if !e.opts.Enabled || entity == nil {
		return nil, nil
	}
	log := logger.FromContext(ctx)
	fingerprint, err := core.HashAny(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint entity: %w", err)
	}
	if cached, ok := e.cache.Get(fingerprint); ok {
		return copyMatches(cached), nil
	}

	var combined []Match
	for _, strategy := range e.strategies {
		matches, err := strategy.FindCandidates(ctx, e.store, entity)
		if err != nil {
			log.Warn("matching strategy failed, excluding its results",
				"strategy", strategy.Name(), "error", err)
			continue
		}
		combined = append(combined, matches...)
	}

	filtered := e.filter(entity, combined)
	if len(filtered) > 0 {
		// Empty results are not cached: a record created right after a clean
		// check must be visible to the next identical check, not masked for
		// a whole TTL.
		e.cache.Add(fingerprint, filtered)
	}

	if len(filtered) > 0 && e.events != nil {
		e.events.Publish(events.New(events.DuplicateDetected, events.DuplicateDetectedData{
			Entity:     entity,
			Matches:    filtered,
			Confidence: filtered[0].Confidence,
		}))
		log.Info("duplicate detected",
			"entity", entity.Name, "matches", len(filtered), "confidence", filtered[0].Confidence)
	}
	return copyMatches(filtered), nil
}

// filter dedupes by candidate id (first seen wins), sorts descending by
// confidence with a stable id tie-break, and applies the threshold.
func (e *Engine) filter(entity *Entity, matches []Match) []Match {
	seen := make(map[core.ID]struct{}, len(matches))
	unique := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.EntityID.IsZero() {
			continue
		}
		if !entity.ID.IsZero() && m.EntityID == entity.ID {
			// A record never duplicates itself.
			continue
		}
		if _, ok := seen[m.EntityID]; ok {
			continue
		}
		seen[m.EntityID] = struct{}{}
		unique = append(unique, m)
	}
	sort.SliceStable(unique, func(i, j int) bool {
		if unique[i].Confidence == unique[j].Confidence {
			return unique[i].EntityID < unique[j].EntityID
		}
		return unique[i].Confidence > unique[j].Confidence
	})
	out := unique[:0:0]
	for _, m := range unique {
		if m.Confidence >= e.opts.Threshold {
			out = append(out, m)
		}
	}
	return out
}

func copyMatches(matches []Match) []Match {
	if matches == nil {
		return nil
	}
	out := make([]Match, len(matches))
	copy(out, matches)
	return out
}
