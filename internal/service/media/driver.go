// Package media exposes stored snapshots and recordings over the
// command protocol. The permission engine filters list replies per
// camera and resolves single-resource commands to the owning camera, so
// the driver itself does no authorization.
package media

import (
	"context"
	"fmt"

	"github.com/hearthwire/hearth-core/internal/hub"
	store "github.com/hearthwire/hearth-core/internal/media"
)

// Driver serves snapshot and recording queries from the media repository.
type Driver struct {
	repo *store.Repository
}

// New creates the media driver.
func New(repo *store.Repository) *Driver {
	return &Driver{repo: repo}
}

// Name implements hub.Driver.
func (d *Driver) Name() string { return "media" }

// Commands implements hub.Driver.
func (d *Driver) Commands() []string {
	return []string{
		"getSnapshots",
		"getRecordings",
		"deleteSnapshot",
		"deleteRecording",
	}
}

// Invoke implements hub.Driver.
//
// List commands take an optional camera id as their first argument;
// delete commands take the resource id.
func (d *Driver) Invoke(ctx context.Context, env *hub.Envelope) (any, error) {
	switch env.Name {
	case "getSnapshots":
		snaps, err := d.repo.ListSnapshots(ctx, optionalString(env.Args))
		if err != nil {
			return nil, fmt.Errorf("listing snapshots: %w", err)
		}
		return asMaps(snaps, snapshotMap), nil

	case "getRecordings":
		recs, err := d.repo.ListRecordings(ctx, optionalString(env.Args))
		if err != nil {
			return nil, fmt.Errorf("listing recordings: %w", err)
		}
		return asMaps(recs, recordingMap), nil

	case "deleteSnapshot":
		id := optionalString(env.Args)
		if id == "" {
			return nil, fmt.Errorf("deleteSnapshot requires a snapshot id")
		}
		if err := d.repo.DeleteSnapshot(ctx, id); err != nil {
			return nil, fmt.Errorf("deleting snapshot: %w", err)
		}
		return true, nil

	case "deleteRecording":
		id := optionalString(env.Args)
		if id == "" {
			return nil, fmt.Errorf("deleteRecording requires a recording id")
		}
		if err := d.repo.DeleteRecording(ctx, id); err != nil {
			return nil, fmt.Errorf("deleting recording: %w", err)
		}
		return true, nil

	default:
		return nil, fmt.Errorf("unknown command %q", env.Name)
	}
}

// optionalString reads the first argument as a string, "" when absent.
func optionalString(args []any) string {
	if len(args) == 0 {
		return ""
	}
	s, _ := args[0].(string)
	return s
}

// asMaps converts typed rows into the generic list shape the permission
// engine filters, keeping the "cameraid" key visible per element.
func asMaps[T any](items []T, convert func(T) map[string]any) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, item := range items {
		out[i] = convert(item)
	}
	return out
}

func snapshotMap(s store.Snapshot) map[string]any {
	return map[string]any{
		"id":       s.ID,
		"cameraid": s.CameraID,
		"time":     s.CreatedAt.Unix(),
	}
}

func recordingMap(r store.Recording) map[string]any {
	m := map[string]any{
		"id":       r.ID,
		"cameraid": r.CameraID,
		"size":     r.SizeBytes,
		"start":    r.StartedAt.Unix(),
	}
	if r.EndedAt != nil {
		m["end"] = r.EndedAt.Unix()
	}
	return m
}
