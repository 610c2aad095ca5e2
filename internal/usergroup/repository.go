package usergroup

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository defines the persistence interface for user groups.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Group, error)
	List(ctx context.Context) ([]Group, error)
	Create(ctx context.Context, group *Group) error
	Update(ctx context.Context, group *Group) error
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository stores user groups in SQLite. Members and devices are
// JSON arrays in TEXT columns.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new user group repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a group by id.
// Returns ErrGroupNotFound if no row exists.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Group, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, members, devices, created_at, updated_at FROM usergroups WHERE id = ?", id)

	group, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying usergroup: %w", err)
	}
	return group, nil
}

// List retrieves all groups ordered by creation time. The order matters:
// first-match-wins member resolution must be stable across restarts.
func (r *SQLiteRepository) List(ctx context.Context) ([]Group, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, members, devices, created_at, updated_at FROM usergroups ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("querying usergroups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning usergroup: %w", err)
		}
		groups = append(groups, *group)
	}
	return groups, rows.Err()
}

// Create inserts a new group.
func (r *SQLiteRepository) Create(ctx context.Context, group *Group) error {
	members, devices, err := marshalLists(group)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO usergroups (id, name, members, devices, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, members, devices,
		group.CreatedAt.Format(time.RFC3339Nano), group.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting usergroup: %w", err)
	}
	return nil
}

// Update rewrites an existing group.
func (r *SQLiteRepository) Update(ctx context.Context, group *Group) error {
	members, devices, err := marshalLists(group)
	if err != nil {
		return err
	}

	group.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx,
		`UPDATE usergroups SET name = ?, members = ?, devices = ?, updated_at = ? WHERE id = ?`,
		group.Name, members, devices, group.UpdatedAt.Format(time.RFC3339Nano), group.ID,
	)
	if err != nil {
		return fmt.Errorf("updating usergroup: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// Delete removes a group by id.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM usergroups WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting usergroup: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// marshalLists encodes the members and devices slices as JSON.
func marshalLists(group *Group) (members, devices string, err error) {
	m, err := json.Marshal(orEmpty(group.Members))
	if err != nil {
		return "", "", fmt.Errorf("marshalling members: %w", err)
	}
	d, err := json.Marshal(orEmpty(group.Devices))
	if err != nil {
		return "", "", fmt.Errorf("marshalling devices: %w", err)
	}
	return string(m), string(d), nil
}

// orEmpty substitutes an empty slice for nil so JSON stays "[]".
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanGroup reads one usergroup row.
func scanGroup(row rowScanner) (*Group, error) {
	var group Group
	var members, devices, createdAt, updatedAt string

	if err := row.Scan(&group.ID, &group.Name, &members, &devices, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(members), &group.Members); err != nil {
		return nil, fmt.Errorf("parsing members: %w", err)
	}
	if err := json.Unmarshal([]byte(devices), &group.Devices); err != nil {
		return nil, fmt.Errorf("parsing devices: %w", err)
	}

	var err error
	if group.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if group.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &group, nil
}
