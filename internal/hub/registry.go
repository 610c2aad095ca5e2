package hub

import (
	"context"
	"sync"
)

// Driver is the capability interface every device integration
// implements to take part in command routing. A driver declares the
// command names it handles and is invoked with the full envelope; it
// must not retain the envelope past the call.
//
// Invoke returns the command's result, or nil when the command has no
// meaningful payload. For list-style commands shared by several drivers
// the result must be a slice so the dispatcher can concatenate it with
// the other responders' slices. A returned error is logged and treated
// as no reply.
type Driver interface {
	Name() string
	Commands() []string
	Invoke(ctx context.Context, env *Envelope) (any, error)
}

// Registry holds the registered drivers. It is owned by the Dispatcher
// and injected where needed; nothing in the hub is process-global, so
// tests can build isolated registries freely.
type Registry struct {
	mu        sync.RWMutex
	drivers   []Driver
	byCommand map[string][]Driver
}

// NewRegistry creates an empty driver registry.
func NewRegistry() *Registry {
	return &Registry{byCommand: make(map[string][]Driver)}
}

// Register adds a driver. Registration order is preserved per command
// name and fixes the aggregation order of multi-responder replies.
func (r *Registry) Register(d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.drivers = append(r.drivers, d)
	for _, cmd := range d.Commands() {
		r.byCommand[cmd] = append(r.byCommand[cmd], d)
	}
}

// Subscribers returns the drivers handling the named command, in
// registration order. The returned slice is a copy.
func (r *Registry) Subscribers(command string) []Driver {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.byCommand[command]
	out := make([]Driver, len(subs))
	copy(out, subs)
	return out
}

// Drivers returns every registered driver in registration order.
func (r *Registry) Drivers() []Driver {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Driver, len(r.drivers))
	copy(out, r.drivers)
	return out
}
