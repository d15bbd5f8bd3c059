// Package schedule binds workflow names to cron expressions. Existing
// definitions use the extended 6-field form with a seconds field
// (e.g. "0 */30 12-23 * * 2-6"); plain 5-field expressions are accepted
// and normalized by prepending a zero seconds field.
package schedule

import (
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
)

// Precompiled 6-field cron parser to avoid repeated allocations.
var parser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Normalize converts a 5-field cron expression to the 6-field form.
// Other shapes pass through unchanged and fail in Parse if invalid.
func Normalize(expr string) string {
	if strings.HasPrefix(expr, "@") {
		return expr
	}
	if len(strings.Fields(expr)) == 5 {
		return "0 " + expr
	}
	return expr
}

// Parse validates a 5- or 6-field cron expression.
func Parse(expr string) (cron.Schedule, error) {
	sched, err := parser.Parse(Normalize(expr))
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return sched, nil
}

// Scheduler owns one active cron binding per workflow name. Each firing
// runs in its own goroutine (robfig/cron starts one per job run), so a slow
// execution never delays the next tick.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
}

func New() *Scheduler {
	c := cron.New(cron.WithParser(parser))
	c.Start()
	return &Scheduler{
		cron:    c,
		entries: make(map[string]cron.EntryID),
	}
}

// Bind schedules fn under name, replacing any prior binding for that name.
func (s *Scheduler) Bind(name, expr string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.cron.AddFunc(Normalize(expr), fn)
	if err != nil {
		return fmt.Errorf("failed to bind schedule for %q: %w", name, err)
	}
	if prior, ok := s.entries[name]; ok {
		s.cron.Remove(prior)
	}
	s.entries[name] = id
	return nil
}

// Unbind cancels the binding for name, if any.
func (s *Scheduler) Unbind(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
}

// Bound reports whether name currently has an active binding.
func (s *Scheduler) Bound(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[name]
	return ok
}

// Stop cancels all bindings and halts the cron loop. Running jobs finish on
// their own goroutines.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cron.Stop()
	s.entries = make(map[string]cron.EntryID)
}
