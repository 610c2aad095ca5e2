package local

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hearthwire/hearth-core/internal/hub"
)

// WebSocket message types.
const (
	MsgTypeCommand = "command"
	MsgTypeReply   = "reply"
	MsgTypeEvent   = "event"
	MsgTypePing    = "ping"
	MsgTypePong    = "pong"
	MsgTypeError   = "error"

	MsgTypeStartStreaming = "startStreaming"
	MsgTypeStopStreaming  = "stopStreaming"
	MsgTypeStartPlayback  = "startPlayback"
	MsgTypeEndPlayback    = "endPlayback"
)

// Bus events carrying media frames from the camera pipeline to
// subscribed local clients. The pipeline driver publishes these; the
// local channel routes them into the matching room.
const (
	EventCameraFrame   = "cameraFrame"
	EventPlaybackFrame = "playbackFrame"
	EventPlaybackEnded = "playbackEnded"
)

// Message is one WebSocket frame in either direction.
type Message struct {
	Type      string     `json:"type"`
	ID        string     `json:"id,omitempty"`
	Name      string     `json:"name,omitempty"`
	Args      []any      `json:"args,omitempty"`
	Result    any        `json:"result,omitempty"`
	Reason    hub.Reason `json:"reason,omitempty"`
	Payload   any        `json:"payload,omitempty"`
	Timestamp string     `json:"timestamp,omitempty"`
}

// CameraFrame is the bus payload for one live stream frame. Key must
// match the stream key the pipeline was started with.
type CameraFrame struct {
	Key  string `json:"key"`
	Data any    `json:"data"`
}

// PlaybackFrame is the bus payload for one recorded frame.
type PlaybackFrame struct {
	PlaybackID string `json:"playbackid"`
	Data       any    `json:"data"`
}

// StreamOptions describe one requested camera stream variant. Every
// distinct combination is a separate stream key, so two clients asking
// for the same variant share one pipeline.
type StreamOptions struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Framerate int    `json:"framerate"`
	Encoder   string `json:"encoder"`
	Base64    bool   `json:"base64"`
}

// Key derives the room key for a camera and options pair.
//
// Example: cam1-640x480-15-mjpeg-b64
func (o StreamOptions) Key(cameraID string) string {
	enc := "bin"
	if o.Base64 {
		enc = "b64"
	}
	return fmt.Sprintf("%s-%dx%d-%d-%s-%s", cameraID, o.Width, o.Height, o.Framerate, o.Encoder, enc)
}

// parseStreamArgs extracts the camera id and options from a streaming
// message's args: [cameraID, {width, height, ...}].
func parseStreamArgs(args []any) (string, StreamOptions, error) {
	if len(args) == 0 {
		return "", StreamOptions{}, fmt.Errorf("camera id required")
	}
	cameraID, ok := args[0].(string)
	if !ok || cameraID == "" {
		return "", StreamOptions{}, fmt.Errorf("camera id must be a string")
	}

	var opts StreamOptions
	if len(args) > 1 {
		raw, err := json.Marshal(args[1])
		if err != nil {
			return "", StreamOptions{}, fmt.Errorf("invalid stream options: %w", err)
		}
		if err := json.Unmarshal(raw, &opts); err != nil {
			return "", StreamOptions{}, fmt.Errorf("invalid stream options: %w", err)
		}
	}
	return cameraID, opts, nil
}

// newEventMessage builds an outbound broadcast frame.
func newEventMessage(msgType, name string, payload any) Message {
	return Message{
		Type:      msgType,
		Name:      name,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
