package hub

import "github.com/hearthwire/hearth-core/internal/auth"

// Reason tags a reply that did not come from a driver's own result.
// An empty Reason means the reply carries a normal success payload.
type Reason string

const (
	// ReasonPermission means the caller's user group does not permit the
	// command. No driver was invoked.
	ReasonPermission Reason = "permission"

	// ReasonVersion means no driver handles the command. Clients treat
	// this as a version skew signal rather than a hard failure, so an
	// old hub stays compatible with newer apps.
	ReasonVersion Reason = "version"

	// ReasonTimeout means not every responder replied within the
	// response window. The reply carries whatever accumulated.
	ReasonTimeout Reason = "timeout"
)

// ReplyFunc delivers the outcome of one dispatched command back to the
// transport. It is invoked at most once per dispatch.
type ReplyFunc func(result any, reason Reason)

// LogFunc appends one audit log entry for an executed device action.
// Drivers call it when a command actually changed device state.
type LogFunc func(deviceID, deviceName, action string)

// Envelope is one inbound command. Transports construct a fresh
// Envelope per wire message; it is consumed by a single dispatch and
// never persisted.
type Envelope struct {
	// Name identifies the operation, e.g. "switchOn" or "getDevices".
	Name string

	// Args are the caller-supplied positional arguments.
	Args []any

	// Identity is the resolved principal behind the session that sent
	// the command.
	Identity auth.Identity

	// Log is installed by the Dispatcher before fan-out. Drivers invoke
	// it to record an executed action; it is safe to call from any
	// goroutine and never blocks on storage.
	Log LogFunc
}
