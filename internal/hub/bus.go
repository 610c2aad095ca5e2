package hub

import "sync"

// Handler receives one published bus event.
type Handler func(event string, payload any)

// Bus is the in-process event bus. Drivers and services subscribe to
// named events; the Relay re-emits every broadcast here so same-process
// collaborators (triggers, alarms, the audit recorder) can react
// without a network round trip.
//
// Delivery is synchronous and in subscription order. Handlers must not
// block; anything slow belongs in the handler's own goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers a handler for the named event. Multiple handlers
// per event are invoked in registration order.
func (b *Bus) Subscribe(event string, handler func(event string, payload any)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Publish delivers payload to every handler subscribed to event. The
// handler list is snapshotted first, so a handler may subscribe or
// publish without deadlocking.
func (b *Bus) Publish(event string, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event]))
	copy(handlers, b.handlers[event])
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event, payload)
	}
}
