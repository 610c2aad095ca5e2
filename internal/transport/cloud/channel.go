package cloud

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hearthwire/hearth-core/internal/auth"
	"github.com/hearthwire/hearth-core/internal/hub"
)

// Bus events published on cloud connection state changes, also
// broadcast so dependent UI can show relay reachability.
const (
	EventCloudConnected    = "cloudConnected"
	EventCloudDisconnected = "cloudDisconnected"
)

// Dispatcher is the slice of the hub the channel needs for inbound
// commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, env *hub.Envelope, reply hub.ReplyFunc)
}

// commandMessage is the wire format of one inbound relay command. The
// identity is asserted by the relay, which has already authenticated
// the app user against the account. An empty request_id means the
// caller expects no reply.
type commandMessage struct {
	RequestID string        `json:"request_id,omitempty"`
	Args      []any         `json:"args,omitempty"`
	Identity  auth.Identity `json:"identity"`
}

// replyMessage is the wire format of one outbound reply.
type replyMessage struct {
	Result any        `json:"result"`
	Reason hub.Reason `json:"reason,omitempty"`
}

// Channel adapts the relay client to the hub. Inbound command messages
// become envelopes handed to the Dispatcher; outbound Send and
// SendVolatile satisfy the relay leg of hub.Relay.
type Channel struct {
	client     *Client
	dispatcher Dispatcher
	bus        *hub.Bus
	qos        byte
	logger     Logger

	// claimed reports whether a local-origin listener owns the command
	// name; such messages are not dispatched from the cloud side.
	claimed func(name string) bool
}

// NewChannel creates a relay channel over an established client.
func NewChannel(client *Client, dispatcher Dispatcher, bus *hub.Bus, qos int) *Channel {
	return &Channel{
		client:     client,
		dispatcher: dispatcher,
		bus:        bus,
		qos:        byte(qos),
	}
}

// SetLogger attaches a logger for dropped and malformed messages.
func (ch *Channel) SetLogger(logger Logger) {
	ch.logger = logger
	ch.client.SetLogger(logger)
}

// SetClaimFilter installs the local-origin claim check. Must be called
// before Start.
func (ch *Channel) SetClaimFilter(claimed func(name string) bool) {
	ch.claimed = claimed
}

// Start subscribes to the hub's command topic and wires connection
// state changes onto the bus. Connection events fire from paho's
// callback goroutine.
func (ch *Channel) Start(ctx context.Context) error {
	ch.client.SetOnConnect(func() {
		ch.bus.Publish(EventCloudConnected, nil)
	})
	ch.client.SetOnDisconnect(func(err error) {
		ch.bus.Publish(EventCloudDisconnected, err)
	})

	if err := ch.client.Subscribe(ch.client.Topics().AllCommands(), ch.qos, func(topic string, payload []byte) error {
		return ch.handleCommand(ctx, topic, payload)
	}); err != nil {
		return fmt.Errorf("subscribing to command topic: %w", err)
	}
	return nil
}

// handleCommand parses one relay message into an envelope and hands it
// to the dispatcher. Runs on a paho handler goroutine.
func (ch *Channel) handleCommand(ctx context.Context, topic string, payload []byte) error {
	name := ch.client.Topics().commandName(topic)
	if name == "" {
		return fmt.Errorf("unexpected topic %q", topic)
	}
	if ch.claimed != nil && ch.claimed(name) {
		return nil
	}

	var msg commandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("malformed command payload on %q: %w", topic, err)
	}

	env := &hub.Envelope{
		Name:     name,
		Args:     msg.Args,
		Identity: msg.Identity,
	}

	var reply hub.ReplyFunc
	if msg.RequestID != "" {
		replyTopic := ch.client.Topics().Reply(msg.RequestID)
		reply = func(result any, reason hub.Reason) {
			ch.publish(replyTopic, replyMessage{Result: result, Reason: reason}, ch.qos)
		}
	}

	ch.dispatcher.Dispatch(ctx, env, reply)
	return nil
}

// Send delivers one event to relay subscribers.
func (ch *Channel) Send(event string, payload any) {
	ch.publish(ch.client.Topics().Event(event), payload, ch.qos)
}

// SendVolatile delivers one event at QoS 0. Used for high-frequency
// state updates where a lost message is cheaper than queueing.
func (ch *Channel) SendVolatile(event string, payload any) {
	ch.publish(ch.client.Topics().Event(event), payload, 0)
}

func (ch *Channel) publish(topic string, payload any, qos byte) {
	data, err := json.Marshal(payload)
	if err != nil {
		if ch.logger != nil {
			ch.logger.Error("marshalling relay payload failed", "topic", topic, "error", err)
		}
		return
	}
	if err := ch.client.Publish(topic, data, qos, false); err != nil {
		if ch.logger != nil {
			ch.logger.Warn("relay publish failed", "topic", topic, "error", err)
		}
	}
}
