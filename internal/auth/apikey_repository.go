package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// APIKey is a stored API key record. Hash only; the raw key is never
// persisted.
type APIKey struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	KeyHash    string     `json:"-"`
	Identity   Identity   `json:"identity"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// APIKeyRepository stores API keys in SQLite.
type APIKeyRepository struct {
	db *sql.DB
}

// NewAPIKeyRepository creates a new API key repository.
func NewAPIKeyRepository(db *sql.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Create stores a new API key record. The ID and CreatedAt are generated
// if empty.
func (r *APIKeyRepository) Create(ctx context.Context, key *APIKey) error {
	if key.ID == "" {
		key.ID = "key-" + uuid.NewString()[:8]
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_keys (id, name, key_hash, user_id, user_name, user_level, user_email, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		key.ID, key.Name, key.KeyHash,
		key.Identity.UserID, key.Identity.UserName, string(key.Identity.UserLevel), key.Identity.UserEmail,
		key.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting api key: %w", err)
	}
	return nil
}

// Authenticate verifies a presented key against every stored hash and
// returns the matching identity. Hashing dominates the cost; the table
// holds a handful of rows at most, so a scan is fine.
func (r *APIKeyRepository) Authenticate(ctx context.Context, key string) (Identity, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, key_hash, user_id, user_name, user_level, user_email FROM api_keys")
	if err != nil {
		return Identity{}, fmt.Errorf("querying api keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, keyHash string
		var ident Identity
		var level string
		if err := rows.Scan(&id, &keyHash, &ident.UserID, &ident.UserName, &level, &ident.UserEmail); err != nil {
			return Identity{}, fmt.Errorf("scanning api key: %w", err)
		}
		ident.UserLevel = Level(level)

		ok, err := VerifyKey(key, keyHash)
		if err != nil {
			return Identity{}, fmt.Errorf("verifying api key %s: %w", id, err)
		}
		if ok {
			r.touch(ctx, id)
			return ident, nil
		}
	}
	if err := rows.Err(); err != nil {
		return Identity{}, fmt.Errorf("iterating api keys: %w", err)
	}

	return Identity{}, ErrKeyMismatch
}

// Delete removes an API key by id.
func (r *APIKeyRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM api_keys WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting api key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// touch updates last_used_at. Best effort; failures are not surfaced as
// they would only block an otherwise valid login.
func (r *APIKeyRepository) touch(ctx context.Context, id string) {
	_, _ = r.db.ExecContext(ctx, //nolint:errcheck // advisory timestamp only
		"UPDATE api_keys SET last_used_at = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339), id,
	)
}
