// Package action maps dotted "<capability>.<operation>" names to handlers
// contributed by external integrations. The table is fixed shortly after
// startup; unknown actions are rejected at workflow registration when
// possible and always fail at dispatch.
package action

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fieldsync/fieldsync/engine/core"
)

// ErrUnknownAction is returned when a name does not resolve to a handler.
var ErrUnknownAction = errors.New("unknown action")

// Handler executes one operation with resolved parameters.
type Handler func(ctx context.Context, params core.Params) (core.Output, error)

// ParseName splits and validates a dotted action name.
func ParseName(name string) (capability, operation string, err error) {
	parts := strings.Split(name, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed action name %q: want <capability>.<operation>", name)
	}
	return parts[0], parts[1], nil
}

// Registry holds the capability/operation table. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a capability's operations in one call.
func (r *Registry) Register(capability string, ops map[string]Handler) error {
	for op, h := range ops {
		if err := r.RegisterFunc(capability+"."+op, h); err != nil {
			return err
		}
	}
	return nil
}

// RegisterFunc binds a single dotted action name to a handler. Re-registering
// a name replaces the prior handler.
func (r *Registry) RegisterFunc(name string, h Handler) error {
	if _, _, err := ParseName(name); err != nil {
		return err
	}
	if h == nil {
		return fmt.Errorf("nil handler for action %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
	return nil
}

// Resolve returns the handler for name or ErrUnknownAction.
func (r *Registry) Resolve(name string) (Handler, error) {
	if _, _, err := ParseName(name); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	return h, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Names returns all registered action names, unordered.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	return out
}
