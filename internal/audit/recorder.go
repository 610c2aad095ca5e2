package audit

import "context"

// EventAppendActionLog is the bus event carrying an Entry whenever a
// driver logs an executed action.
const EventAppendActionLog = "appendActionLog"

// EventActionLogged is rebroadcast to clients after an entry has been
// persisted, so UIs can refresh their activity views.
const EventActionLogged = "actionLogged"

// Subscriber is the slice of the hub event bus the recorder needs.
type Subscriber interface {
	Subscribe(event string, handler func(event string, payload any))
}

// Broadcaster pushes events to cloud clients, local clients, and
// internal listeners.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// Logger is the minimal logging interface used by the Recorder.
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Recorder listens for appendActionLog events, persists them, and
// rebroadcasts the stored entry.
type Recorder struct {
	repo   Repository
	relay  Broadcaster
	logger Logger
}

// NewRecorder creates a recorder. relay may be nil in tests.
func NewRecorder(repo Repository, relay Broadcaster, logger Logger) *Recorder {
	return &Recorder{
		repo:   repo,
		relay:  relay,
		logger: logger,
	}
}

// Attach subscribes the recorder to the event bus.
func (r *Recorder) Attach(bus Subscriber) {
	bus.Subscribe(EventAppendActionLog, r.handle)
}

// handle persists one logged action. A malformed payload is dropped with
// a warning; persistence failures must not disturb command dispatch.
func (r *Recorder) handle(_ string, payload any) {
	entry, ok := payload.(Entry)
	if !ok {
		r.logger.Warn("action log event with unexpected payload", "payload", payload)
		return
	}

	if err := r.repo.Create(context.Background(), &entry); err != nil {
		r.logger.Warn("persisting action log entry failed", "error", err, "action", entry.Action)
		return
	}
	r.logger.Debug("action logged",
		"user", entry.UserName,
		"device", entry.DeviceID,
		"action", entry.Action,
	)

	if r.relay != nil {
		r.relay.Broadcast(EventActionLogged, entry)
	}
}
