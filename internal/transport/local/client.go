package local

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hearthwire/hearth-core/internal/auth"
	"github.com/hearthwire/hearth-core/internal/hub"
	"github.com/hearthwire/hearth-core/internal/infrastructure/config"
)

// sendBufferSize is the per-client outbound message buffer size.
const sendBufferSize = 256

// Client represents one connected local WebSocket session. The
// identity resolved at handshake time is stamped onto every command
// envelope the session produces.
type Client struct {
	channel  *Channel
	conn     *websocket.Conn
	send     chan []byte
	identity auth.Identity
}

func newClient(channel *Channel, conn *websocket.Conn, identity auth.Identity) *Client {
	return &Client{
		channel:  channel,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		identity: identity,
	}
}

// readPump reads messages from the WebSocket connection.
func (c *Client) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.channel.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.channel.logger.Warn("local client read error", "error", err)
			} else {
				c.channel.logger.Debug("local client closed", "error", err)
			}
			return
		}
		// Any client message resets the read deadline (keeps connection
		// alive even if the client doesn't answer protocol-level pings).
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *Client) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Channel closed the send queue
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes one incoming WebSocket message.
func (c *Client) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case MsgTypeCommand:
		c.handleCommand(msg)
	case MsgTypeStartStreaming:
		c.handleStartStreaming(msg)
	case MsgTypeStopStreaming:
		c.handleStopStreaming(msg)
	case MsgTypeStartPlayback:
		c.handleStartPlayback(msg)
	case MsgTypeEndPlayback:
		c.handleEndPlayback(msg)
	case MsgTypePing:
		c.sendMessage(Message{Type: MsgTypePong, ID: msg.ID})
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// handleCommand routes one named command through the dispatcher. A
// message id marks the command as expecting a reply.
func (c *Client) handleCommand(msg Message) {
	if msg.Name == "" {
		c.sendError(msg.ID, "command name required")
		return
	}

	env := &hub.Envelope{
		Name:     msg.Name,
		Args:     msg.Args,
		Identity: c.identity,
	}

	var reply hub.ReplyFunc
	if msg.ID != "" {
		id := msg.ID
		reply = func(result any, reason hub.Reason) {
			c.sendMessage(Message{Type: MsgTypeReply, ID: id, Result: result, Reason: reason})
		}
	}

	c.channel.dispatcher.Dispatch(c.channel.ctx, env, reply)
}

// handleStartStreaming joins the stream room for the requested camera
// and options. The first subscriber for a key starts the pipeline.
func (c *Client) handleStartStreaming(msg Message) {
	cameraID, opts, err := parseStreamArgs(msg.Args)
	if err != nil {
		c.sendError(msg.ID, err.Error())
		return
	}

	key := opts.Key(cameraID)
	first := c.channel.streams.Join(key, c, streamMeta{cameraID: cameraID, opts: opts, key: key})
	if first {
		c.channel.dispatcher.Dispatch(c.channel.ctx, &hub.Envelope{
			Name:     MsgTypeStartStreaming,
			Args:     []any{cameraID, opts, key},
			Identity: c.identity,
		}, nil)
	}

	c.sendMessage(Message{Type: MsgTypeReply, ID: msg.ID, Result: key})
}

// handleStopStreaming leaves the stream room. The last subscriber to
// leave stops the pipeline.
func (c *Client) handleStopStreaming(msg Message) {
	cameraID, opts, err := parseStreamArgs(msg.Args)
	if err != nil {
		c.sendError(msg.ID, err.Error())
		return
	}

	key := opts.Key(cameraID)
	if last, _ := c.channel.streams.Leave(key, c); last {
		c.channel.stopStream(c, streamMeta{cameraID: cameraID, opts: opts, key: key})
	}
}

// handleStartPlayback opens a playback session for one recording. The
// generated playback id is both the room key and the handle the camera
// pipeline tags frames with.
func (c *Client) handleStartPlayback(msg Message) {
	if len(msg.Args) == 0 {
		c.sendError(msg.ID, "recording id required")
		return
	}
	recordingID, ok := msg.Args[0].(string)
	if !ok || recordingID == "" {
		c.sendError(msg.ID, "recording id must be a string")
		return
	}

	var options any
	if len(msg.Args) > 1 {
		options = msg.Args[1]
	}

	playbackID := "pb-" + uuid.NewString()[:8]
	c.channel.playbacks.Join(playbackID, c, playbackMeta{recordingID: recordingID, playbackID: playbackID})

	c.channel.dispatcher.Dispatch(c.channel.ctx, &hub.Envelope{
		Name:     MsgTypeStartPlayback,
		Args:     []any{recordingID, playbackID, options},
		Identity: c.identity,
	}, nil)

	c.sendMessage(Message{Type: MsgTypeReply, ID: msg.ID, Result: playbackID})
}

// handleEndPlayback closes a playback session explicitly.
func (c *Client) handleEndPlayback(msg Message) {
	if len(msg.Args) == 0 {
		return
	}
	playbackID, ok := msg.Args[0].(string)
	if !ok {
		return
	}

	if last, _ := c.channel.playbacks.Leave(playbackID, c); last {
		c.channel.endPlayback(c, playbackMeta{playbackID: playbackID})
	}
}

// trySend attempts to queue data for the client. It silently handles
// closed channels (client disconnected during broadcast) and full
// buffers (slow client).
func (c *Client) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		// Client buffer full, skip
	}
}

// sendMessage marshals and queues one message for the client.
func (c *Client) sendMessage(msg Message) {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(data)
}

// sendError sends an error message to the client.
func (c *Client) sendError(id, message string) {
	c.sendMessage(Message{Type: MsgTypeError, ID: id, Payload: map[string]string{"message": message}})
}
