package hub

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hearthwire/hearth-core/internal/audit"
	"github.com/hearthwire/hearth-core/internal/permission"
	"github.com/hearthwire/hearth-core/internal/usergroup"
)

// EventDispatchDone is published on the bus after every dispatch that
// expected a reply, carrying a Metric.
const EventDispatchDone = "dispatchDone"

// Metric summarises one completed dispatch for telemetry.
type Metric struct {
	Command    string
	Reason     Reason
	Responders int
	Duration   time.Duration
}

// GroupResolver resolves a caller's user group by email. Implemented by
// the usergroup registry; first match wins, nil means unrestricted.
type GroupResolver interface {
	FindByMember(email string) *usergroup.Group
}

// Enricher rewrites a driver result before filtering. Installed per
// command name; used to merge hub-side metadata (room assignment,
// custom names) into device enumeration replies.
type Enricher func(ctx context.Context, env *Envelope, result any) any

// Dispatcher routes inbound command envelopes to registered drivers and
// aggregates their replies. One Dispatcher serves both transports; all
// per-command state lives in a per-dispatch context, so any number of
// commands, including the same command name, can be in flight at once.
type Dispatcher struct {
	registry  *Registry
	groups    GroupResolver
	perms     *permission.Engine
	bus       *Bus
	timeout   time.Duration
	enrichers map[string]Enricher
	logger    Logger

	mu      sync.Mutex
	pending map[string]*dispatch
}

// dispatch is the aggregation state of one in-flight command. slots is
// indexed by driver registration order so the final concatenation is
// deterministic regardless of reply arrival order.
type dispatch struct {
	id    string
	start time.Time
	reply ReplyFunc
	timer *time.Timer

	mu       sync.Mutex
	done     bool
	slots    [][]any
	received int
}

// NewDispatcher creates a dispatcher. groups may be nil when no user
// groups are configured; every caller is then unrestricted.
func NewDispatcher(registry *Registry, groups GroupResolver, perms *permission.Engine, bus *Bus, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		registry:  registry,
		groups:    groups,
		perms:     perms,
		bus:       bus,
		timeout:   timeout,
		enrichers: make(map[string]Enricher),
		logger:    noopLogger{},
		pending:   make(map[string]*dispatch),
	}
}

// SetLogger attaches a logger. Safe to call before serving traffic.
func (d *Dispatcher) SetLogger(logger Logger) {
	if logger != nil {
		d.logger = logger
	}
}

// SetEnricher installs an enricher for one command name, replacing any
// previous one.
func (d *Dispatcher) SetEnricher(command string, fn Enricher) {
	d.enrichers[command] = fn
}

// InFlight returns the number of dispatches awaiting replies.
func (d *Dispatcher) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Dispatch routes one command envelope. reply may be nil for
// fire-and-forget commands; when non-nil it is invoked exactly once,
// with a success payload or a Reason-tagged outcome.
//
// The caller's goroutine only runs authorization and fan-out setup;
// driver invocations happen on their own goroutines and the reply fires
// from whichever goroutine completes the dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, env *Envelope, reply ReplyFunc) {
	// OWNER and ADMIN callers skip group resolution entirely. A caller
	// whose email matches no group is unrestricted as well; groups only
	// restrict the members they name.
	var group *usergroup.Group
	if !env.Identity.UserLevel.BypassesGroups() && d.groups != nil {
		group = d.groups.FindByMember(env.Identity.UserEmail)
	}

	if group != nil && !d.perms.PermittedCommand(ctx, env.Name, env.Args, group) {
		d.logger.Debug("command denied",
			"command", env.Name,
			"user", env.Identity.UserEmail,
			"group", group.Name,
		)
		if reply != nil {
			reply(nil, ReasonPermission)
			d.bus.Publish(EventDispatchDone, Metric{Command: env.Name, Reason: ReasonPermission})
		}
		return
	}

	identity := env.Identity
	env.Log = func(deviceID, deviceName, action string) {
		d.bus.Publish(audit.EventAppendActionLog, audit.Entry{
			UserName:   identity.UserName,
			UserID:     identity.UserID,
			DeviceID:   deviceID,
			DeviceName: deviceName,
			Action:     action,
		})
	}

	subs := d.registry.Subscribers(env.Name)

	if len(subs) == 0 {
		d.logger.Debug("command has no handler", "command", env.Name)
		if reply != nil {
			reply(nil, ReasonVersion)
			d.bus.Publish(EventDispatchDone, Metric{Command: env.Name, Reason: ReasonVersion})
		}
		return
	}

	if reply == nil {
		for _, drv := range subs {
			go d.invoke(ctx, drv, env, nil)
		}
		return
	}

	dc := &dispatch{
		id:    "dsp-" + uuid.NewString()[:8],
		start: time.Now(),
		reply: reply,
		slots: make([][]any, len(subs)),
	}
	d.track(dc)
	dc.timer = time.AfterFunc(d.timeout, func() { d.expire(dc, env, group) })

	if len(subs) == 1 {
		go d.invoke(ctx, subs[0], env, func(result any) {
			d.completeSingle(ctx, dc, env, group, result)
		})
		return
	}

	for i, drv := range subs {
		slot := i
		go d.invoke(ctx, drv, env, func(result any) {
			d.accumulate(ctx, dc, env, group, slot, result)
		})
	}
}

// invoke runs one driver with panic isolation. A panicking or erroring
// driver produces no reply; the dispatch timer covers the gap. deliver
// is nil for fire-and-forget commands.
func (d *Dispatcher) invoke(ctx context.Context, drv Driver, env *Envelope, deliver func(any)) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("driver panicked",
				"driver", drv.Name(),
				"command", env.Name,
				"panic", r,
			)
		}
	}()

	result, err := drv.Invoke(ctx, env)
	if err != nil {
		d.logger.Warn("driver failed",
			"driver", drv.Name(),
			"command", env.Name,
			"error", err,
		)
		return
	}
	if deliver != nil {
		deliver(result)
	}
}

// completeSingle delivers a lone responder's result as-is, enriched and
// filtered but never wrapped in a slice.
func (d *Dispatcher) completeSingle(ctx context.Context, dc *dispatch, env *Envelope, group *usergroup.Group, result any) {
	dc.mu.Lock()
	if dc.done {
		dc.mu.Unlock()
		return
	}
	dc.done = true
	dc.timer.Stop()
	dc.mu.Unlock()

	result = d.shape(ctx, env, group, result)
	d.finish(dc, env, result, "", 1)
}

// accumulate folds one multi-responder reply into the dispatch.
//
// Responder semantics follow the list-command contract: a slice fills
// the responder's registration slot; nil is ignored and does not count
// toward completion; any other value short-circuits the aggregation and
// is delivered alone, unfiltered.
func (d *Dispatcher) accumulate(ctx context.Context, dc *dispatch, env *Envelope, group *usergroup.Group, slot int, result any) {
	if result == nil {
		return
	}

	list, ok := asSlice(result)
	if !ok {
		dc.mu.Lock()
		if dc.done {
			dc.mu.Unlock()
			return
		}
		dc.done = true
		dc.timer.Stop()
		dc.mu.Unlock()

		d.finish(dc, env, result, "", 1)
		return
	}

	shaped, _ := asSlice(d.shape(ctx, env, group, list))

	dc.mu.Lock()
	if dc.done {
		dc.mu.Unlock()
		return
	}
	dc.slots[slot] = shaped
	dc.received++
	complete := dc.received == len(dc.slots)
	if complete {
		dc.done = true
		dc.timer.Stop()
	}
	dc.mu.Unlock()

	if complete {
		d.finish(dc, env, dc.concat(), "", len(dc.slots))
	}
}

// expire fires on the response deadline and delivers whatever partial
// accumulation exists. Replies arriving afterwards are discarded.
func (d *Dispatcher) expire(dc *dispatch, env *Envelope, group *usergroup.Group) {
	dc.mu.Lock()
	if dc.done {
		dc.mu.Unlock()
		return
	}
	dc.done = true
	received := dc.received
	dc.mu.Unlock()

	d.logger.Warn("command timed out",
		"command", env.Name,
		"received", received,
		"expected", len(dc.slots),
	)
	d.finish(dc, env, dc.concat(), ReasonTimeout, received)
}

// finish fires the reply, drops the dispatch from the pending map, and
// publishes the telemetry metric. Callers must have set dc.done first.
func (d *Dispatcher) finish(dc *dispatch, env *Envelope, result any, reason Reason, responders int) {
	d.untrack(dc)
	dc.reply(result, reason)
	d.bus.Publish(EventDispatchDone, Metric{
		Command:    env.Name,
		Reason:     reason,
		Responders: responders,
		Duration:   time.Since(dc.start),
	})
}

// shape applies the command's enricher and, for grouped callers, the
// permission engine's response filter.
func (d *Dispatcher) shape(ctx context.Context, env *Envelope, group *usergroup.Group, result any) any {
	if enrich := d.enrichers[env.Name]; enrich != nil {
		result = enrich(ctx, env, result)
	}
	if group != nil {
		result = d.perms.FilterResponse(env.Name, group, result)
	}
	return result
}

func (d *Dispatcher) track(dc *dispatch) {
	d.mu.Lock()
	d.pending[dc.id] = dc
	d.mu.Unlock()
}

func (d *Dispatcher) untrack(dc *dispatch) {
	d.mu.Lock()
	delete(d.pending, dc.id)
	d.mu.Unlock()
}

// concat joins the filled slots in registration order. Safe to call
// without dc.mu only after done has been set, since no slot is written
// past that point.
func (dc *dispatch) concat() []any {
	var out []any
	for _, slot := range dc.slots {
		out = append(out, slot...)
	}
	if out == nil {
		out = []any{}
	}
	return out
}

// asSlice normalises the slice shapes drivers return.
func asSlice(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []map[string]any:
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = item
		}
		return out, true
	default:
		return nil, false
	}
}
