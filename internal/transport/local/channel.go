package local

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hearthwire/hearth-core/internal/hub"
	"github.com/hearthwire/hearth-core/internal/infrastructure/config"
	"github.com/hearthwire/hearth-core/internal/infrastructure/logging"
)

// Dispatcher is the slice of the hub the channel needs for inbound
// commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, env *hub.Envelope, reply hub.ReplyFunc)
}

// localCommands are message types the local channel handles itself
// rather than routing through the generic command path. The cloud
// channel skips these names so a streaming session is never started
// from the metered side.
var localCommands = map[string]bool{
	MsgTypeStartStreaming: true,
	MsgTypeStopStreaming:  true,
	MsgTypeStartPlayback:  true,
	MsgTypeEndPlayback:    true,
}

// streamMeta is the room metadata for one camera stream.
type streamMeta struct {
	cameraID string
	opts     StreamOptions
	key      string
}

// playbackMeta is the room metadata for one playback session.
type playbackMeta struct {
	recordingID string
	playbackID  string
}

// Channel manages connected local clients. It is the LocalChannel leg
// of the broadcast relay and the owner of the streaming and playback
// rooms.
type Channel struct {
	cfg        config.WebSocketConfig
	logger     *logging.Logger
	dispatcher Dispatcher

	ctx       context.Context
	clients   map[*Client]struct{}
	mu        sync.RWMutex
	streams   *Rooms
	playbacks *Rooms
}

// NewChannel creates a client channel. ctx bounds the dispatches the
// channel makes on behalf of clients.
func NewChannel(ctx context.Context, cfg config.WebSocketConfig, dispatcher Dispatcher, logger *logging.Logger) *Channel {
	return &Channel{
		cfg:        cfg,
		logger:     logger,
		dispatcher: dispatcher,
		ctx:        ctx,
		clients:    make(map[*Client]struct{}),
		streams:    NewRooms(),
		playbacks:  NewRooms(),
	}
}

// ClaimsCommand reports whether the named command is handled by the
// local channel exclusively.
func (ch *Channel) ClaimsCommand(name string) bool {
	return localCommands[name]
}

// Attach subscribes the channel to the bus events that carry media
// frames from the camera pipeline to subscribed clients.
func (ch *Channel) Attach(bus *hub.Bus) {
	bus.Subscribe(EventCameraFrame, func(_ string, payload any) {
		frame, ok := payload.(CameraFrame)
		if !ok {
			return
		}
		ch.broadcastRoom(ch.streams, frame.Key, EventCameraFrame, frame)
	})

	bus.Subscribe(EventPlaybackFrame, func(_ string, payload any) {
		frame, ok := payload.(PlaybackFrame)
		if !ok {
			return
		}
		ch.broadcastRoom(ch.playbacks, frame.PlaybackID, EventPlaybackFrame, frame)
	})

	bus.Subscribe(EventPlaybackEnded, func(_ string, payload any) {
		playbackID, ok := payload.(string)
		if !ok {
			return
		}
		ch.broadcastRoom(ch.playbacks, playbackID, EventPlaybackEnded, playbackID)
		ch.playbacks.Drop(playbackID)
	})
}

func (ch *Channel) broadcastRoom(rooms *Rooms, key, event string, payload any) {
	data, err := json.Marshal(newEventMessage(MsgTypeEvent, event, payload))
	if err != nil {
		ch.logger.Error("failed to marshal frame message", "event", event, "error", err)
		return
	}
	rooms.Broadcast(key, data)
}

// Register adds a client to the channel.
func (ch *Channel) Register(client *Client) {
	ch.mu.Lock()
	ch.clients[client] = struct{}{}
	ch.mu.Unlock()
	ch.logger.Debug("local client connected",
		"user", client.identity.UserEmail,
		"clients", ch.ClientCount(),
	)
}

// Unregister removes a client, closes its send channel, and winds down
// any stream or playback it was the last subscriber of.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (ch *Channel) Unregister(client *Client) {
	ch.mu.Lock()
	_, existed := ch.clients[client]
	delete(ch.clients, client)
	ch.mu.Unlock()

	if existed {
		close(client.send)
	}

	for _, left := range ch.streams.LeaveAll(client) {
		if !left.Last {
			continue
		}
		if meta, ok := left.Meta.(streamMeta); ok {
			ch.stopStream(client, meta)
		}
	}
	for _, left := range ch.playbacks.LeaveAll(client) {
		if !left.Last {
			continue
		}
		if meta, ok := left.Meta.(playbackMeta); ok {
			ch.endPlayback(client, meta)
		}
	}

	ch.logger.Debug("local client disconnected", "clients", ch.ClientCount())
}

// stopStream asks the camera pipeline to stop one stream variant.
func (ch *Channel) stopStream(client *Client, meta streamMeta) {
	ch.dispatcher.Dispatch(ch.ctx, &hub.Envelope{
		Name:     MsgTypeStopStreaming,
		Args:     []any{meta.cameraID, meta.key},
		Identity: client.identity,
	}, nil)
}

// endPlayback asks the camera pipeline to end one playback session.
func (ch *Channel) endPlayback(client *Client, meta playbackMeta) {
	ch.dispatcher.Dispatch(ch.ctx, &hub.Envelope{
		Name:     MsgTypeEndPlayback,
		Args:     []any{meta.playbackID},
		Identity: client.identity,
	}, nil)
}

// Send delivers one broadcast event to every connected client.
// Implements the LocalChannel leg of the broadcast relay.
func (ch *Channel) Send(event string, payload any) {
	data, err := json.Marshal(newEventMessage(MsgTypeEvent, event, payload))
	if err != nil {
		ch.logger.Error("failed to marshal broadcast message", "event", event, "error", err)
		return
	}

	// Snapshot client list under lock, then release before sending
	ch.mu.RLock()
	clients := make([]*Client, 0, len(ch.clients))
	for client := range ch.clients {
		clients = append(clients, client)
	}
	ch.mu.RUnlock()

	for _, client := range clients {
		client.trySend(data)
	}
}

// ClientCount returns the number of connected clients. Read by the
// broadcast relay to gate local delivery.
func (ch *Channel) ClientCount() int {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return len(ch.clients)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (ch *Channel) closeAll() {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	for client := range ch.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(ch.clients, client)
	}
}
