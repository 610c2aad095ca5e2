// Package audit persists the action log: one entry per device action a
// driver reports through the envelope log callback.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is a single action log record. The JSON field names are part of
// the client protocol and match the broadcast payload.
type Entry struct {
	ID         string    `json:"-"`
	UserName   string    `json:"user_name"`
	UserID     string    `json:"user_id"`
	DeviceID   string    `json:"id"`
	DeviceName string    `json:"device"`
	Action     string    `json:"action"`
	CreatedAt  time.Time `json:"created_at"`
}

// Filter controls which action log entries to return.
type Filter struct {
	DeviceID string // optional: entries for one device
	UserID   string // optional: entries by one user
	Limit    int    // default 50, max 200
	Offset   int    // pagination offset
}

// Repository defines the persistence interface for the action log.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, error)
}

// SQLiteRepository stores action log entries in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new action log repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts an entry. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = "act-" + uuid.NewString()[:8]
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO action_log (id, user_id, user_name, device_id, device_name, action, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.UserName,
		entry.DeviceID, entry.DeviceName, entry.Action,
		entry.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting action log entry: %w", err)
	}
	return nil
}

// List returns entries matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]Entry, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size for log queries
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.DeviceID != "" {
		conditions = append(conditions, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, user_id, user_name, device_id, device_name, action, created_at FROM action_log %s ORDER BY created_at DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying action log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var createdAt string
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.UserName,
			&entry.DeviceID, &entry.DeviceName, &entry.Action, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning action log entry: %w", err)
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing action log timestamp %q: %w", createdAt, err)
		}
		entry.CreatedAt = t
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating action log: %w", err)
	}

	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}
