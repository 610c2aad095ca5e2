package hub

// CloudChannel is the outbound side of the cloud transport. Send
// delivers with the transport's normal guarantees; SendVolatile may use
// a cheaper non-guaranteed mode for high-frequency state updates and
// falls back to Send when the transport has no such mode.
type CloudChannel interface {
	Send(event string, payload any)
	SendVolatile(event string, payload any)
}

// LocalChannel is the outbound side of the local-network transport.
// ClientCount gates local delivery; events are not queued for absent
// clients.
type LocalChannel interface {
	Send(event string, payload any)
	ClientCount() int
}

// Relay fans outbound events to their destinations. Broadcast touches
// all three (cloud, local when a client is attached, internal bus);
// Send and SendVolatile touch only the cloud channel; Local touches
// only the local channel.
//
// Either channel may be nil, in which case its leg is skipped. The bus
// leg always fires, so in-process listeners see every broadcast even
// when both transports are down.
type Relay struct {
	cloud  CloudChannel
	local  LocalChannel
	bus    *Bus
	logger Logger
}

// NewRelay creates a relay over the given channels.
func NewRelay(cloud CloudChannel, local LocalChannel, bus *Bus) *Relay {
	return &Relay{
		cloud:  cloud,
		local:  local,
		bus:    bus,
		logger: noopLogger{},
	}
}

// SetLogger attaches a logger. Safe to call before serving traffic.
func (r *Relay) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Broadcast delivers event to cloud clients, attached local clients,
// and the internal bus.
func (r *Relay) Broadcast(event string, payload any) {
	if r.cloud != nil {
		r.cloud.Send(event, payload)
	}
	r.Local(event, payload)
	r.bus.Publish(event, payload)
}

// Send delivers event to the cloud channel only.
func (r *Relay) Send(event string, payload any) {
	if r.cloud == nil {
		return
	}
	r.cloud.Send(event, payload)
}

// SendVolatile delivers event to the cloud channel in non-guaranteed
// mode.
func (r *Relay) SendVolatile(event string, payload any) {
	if r.cloud == nil {
		return
	}
	r.cloud.SendVolatile(event, payload)
}

// Local delivers event to the local channel. A no-op when no local
// client is attached.
func (r *Relay) Local(event string, payload any) {
	if r.local == nil || r.local.ClientCount() == 0 {
		return
	}
	r.local.Send(event, payload)
}
