package permission

import (
	"context"

	"github.com/hearthwire/hearth-core/internal/usergroup"
)

// MediaIndex resolves stored camera resources to their owning camera.
// Implemented by the media package; a nil index denies all
// snapshot/recording commands for grouped callers.
type MediaIndex interface {
	// SnapshotCamera returns the camera id owning a snapshot, or "" if
	// the snapshot is unknown.
	SnapshotCamera(ctx context.Context, snapshotID string) string

	// RecordingCamera returns the camera id owning a recording, or "" if
	// the recording is unknown.
	RecordingCamera(ctx context.Context, recordingID string) string
}

// Engine evaluates command permissions for grouped callers.
type Engine struct {
	media MediaIndex
}

// NewEngine creates a permission engine. media may be nil when no camera
// pipeline is wired in.
func NewEngine(media MediaIndex) *Engine {
	return &Engine{media: media}
}

// PermittedCommand reports whether a group may run the named command.
//
// Rules, in priority order:
//  1. owner-only commands are always denied
//  2. filter-later list commands are allowed (enforced per element by
//     FilterResponse)
//  3. always-permitted commands are allowed
//  4. device commands require the first argument (a device id) to be in
//     the group's device list
//  5. snapshot/recording commands follow the owning camera's grant
//  6. everything else is denied
func (e *Engine) PermittedCommand(ctx context.Context, name string, args []any, group *usergroup.Group) bool {
	switch {
	case ownerOnly[name]:
		return false

	case filterDevices[name], filterCameras[name]:
		return true

	case alwaysPermitted[name]:
		return true

	case deviceCommands[name]:
		return group.PermitsDevice(firstString(args))

	case snapshotCommands[name]:
		if e.media == nil {
			return false
		}
		return group.PermitsDevice(e.media.SnapshotCamera(ctx, firstString(args)))

	case recordingCommands[name]:
		if e.media == nil {
			return false
		}
		return group.PermitsDevice(e.media.RecordingCamera(ctx, firstString(args)))

	default:
		return false
	}
}

// FilterResponse trims a list response to entries the group may see.
//
// Device-enumeration commands keep entries whose "id" is in the group's
// device list; camera-resource listings keep entries whose "cameraid"
// is. Every other command's response passes through unchanged.
func (e *Engine) FilterResponse(name string, group *usergroup.Group, response any) any {
	switch {
	case filterDevices[name]:
		return filterList(response, "id", group)
	case filterCameras[name]:
		return filterList(response, "cameraid", group)
	default:
		return response
	}
}

// filterList keeps list entries whose key field names a permitted
// device. Non-list responses and entries without the key pass out of the
// result entirely.
func filterList(response any, key string, group *usergroup.Group) any {
	list, ok := asList(response)
	if !ok {
		return response
	}

	filtered := make([]any, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, ok := entry[key].(string)
		if !ok {
			continue
		}
		if group.PermitsDevice(id) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// asList normalises the slice shapes drivers produce.
func asList(v any) ([]any, bool) {
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

// firstString returns the first argument as a string, or "" when absent
// or not a string.
func firstString(args []any) string {
	if len(args) == 0 {
		return ""
	}
	s, _ := args[0].(string) //nolint:errcheck // non-string ids simply never match a grant
	return s
}
