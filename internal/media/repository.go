// Package media stores camera snapshot and recording metadata.
//
// The camera pipeline itself (capture, encoding, file management) lives
// outside the hub; this package only tracks which camera owns which
// stored resource so permission checks and listings can be answered
// without consulting the pipeline.
package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the snapshot or recording does not exist.
var ErrNotFound = errors.New("media resource not found")

// Snapshot is one stored camera still.
type Snapshot struct {
	ID        string    `json:"id"`
	CameraID  string    `json:"cameraid"`
	Path      string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Recording is one stored camera clip.
type Recording struct {
	ID        string     `json:"id"`
	CameraID  string     `json:"cameraid"`
	Path      string     `json:"-"`
	SizeBytes int64      `json:"size_bytes"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Repository stores media metadata in SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new media metadata repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// AddSnapshot records a new snapshot. ID and CreatedAt are generated if
// empty.
func (r *Repository) AddSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap.ID == "" {
		snap.ID = "snap-" + uuid.NewString()[:8]
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO snapshots (id, camera_id, path, created_at) VALUES (?, ?, ?, ?)",
		snap.ID, snap.CameraID, snap.Path, snap.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return nil
}

// AddRecording records a new recording. ID and StartedAt are generated
// if empty.
func (r *Repository) AddRecording(ctx context.Context, rec *Recording) error {
	if rec.ID == "" {
		rec.ID = "rec-" + uuid.NewString()[:8]
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}

	var endedAt any
	if rec.EndedAt != nil {
		endedAt = rec.EndedAt.Format(time.RFC3339)
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO recordings (id, camera_id, path, size_bytes, started_at, ended_at) VALUES (?, ?, ?, ?, ?, ?)",
		rec.ID, rec.CameraID, rec.Path, rec.SizeBytes,
		rec.StartedAt.Format(time.RFC3339), endedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting recording: %w", err)
	}
	return nil
}

// SnapshotCamera implements permission.MediaIndex. Unknown snapshots
// resolve to "" which never matches a device grant.
func (r *Repository) SnapshotCamera(ctx context.Context, snapshotID string) string {
	var cameraID string
	err := r.db.QueryRowContext(ctx,
		"SELECT camera_id FROM snapshots WHERE id = ?", snapshotID).Scan(&cameraID)
	if err != nil {
		return ""
	}
	return cameraID
}

// RecordingCamera implements permission.MediaIndex.
func (r *Repository) RecordingCamera(ctx context.Context, recordingID string) string {
	var cameraID string
	err := r.db.QueryRowContext(ctx,
		"SELECT camera_id FROM recordings WHERE id = ?", recordingID).Scan(&cameraID)
	if err != nil {
		return ""
	}
	return cameraID
}

// ListSnapshots returns snapshots, newest first. cameraID narrows the
// listing to one camera when non-empty.
func (r *Repository) ListSnapshots(ctx context.Context, cameraID string) ([]Snapshot, error) {
	query := "SELECT id, camera_id, path, created_at FROM snapshots"
	var args []any
	if cameraID != "" {
		query += " WHERE camera_id = ?"
		args = append(args, cameraID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		var createdAt string
		if err := rows.Scan(&snap.ID, &snap.CameraID, &snap.Path, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		if snap.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing snapshot timestamp: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// ListRecordings returns recordings, newest first. cameraID narrows the
// listing to one camera when non-empty.
func (r *Repository) ListRecordings(ctx context.Context, cameraID string) ([]Recording, error) {
	query := "SELECT id, camera_id, path, size_bytes, started_at, ended_at FROM recordings"
	var args []any
	if cameraID != "" {
		query += " WHERE camera_id = ?"
		args = append(args, cameraID)
	}
	query += " ORDER BY started_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying recordings: %w", err)
	}
	defer rows.Close()

	var recs []Recording
	for rows.Next() {
		var rec Recording
		var startedAt string
		var endedAt sql.NullString
		if err := rows.Scan(&rec.ID, &rec.CameraID, &rec.Path, &rec.SizeBytes, &startedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scanning recording: %w", err)
		}
		if rec.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
			return nil, fmt.Errorf("parsing recording timestamp: %w", err)
		}
		if endedAt.Valid {
			t, err := time.Parse(time.RFC3339, endedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing recording end timestamp: %w", err)
			}
			rec.EndedAt = &t
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// DeleteSnapshot removes a snapshot record.
func (r *Repository) DeleteSnapshot(ctx context.Context, id string) error {
	return r.deleteFrom(ctx, "snapshots", id)
}

// DeleteRecording removes a recording record.
func (r *Repository) DeleteRecording(ctx context.Context, id string) error {
	return r.deleteFrom(ctx, "recordings", id)
}

func (r *Repository) deleteFrom(ctx context.Context, table, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
