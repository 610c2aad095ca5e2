package auth

// Level represents a caller's authorisation tier.
type Level string

const (
	// LevelOwner is the account that registered the hub. Owners bypass
	// all group-based filtering and may run owner-only commands.
	LevelOwner Level = "OWNER"

	// LevelAdmin is a delegated administrator. Admins bypass group-based
	// filtering like owners but cannot run owner-only commands.
	LevelAdmin Level = "ADMIN"

	// LevelUser is a regular household member, subject to user-group
	// permission checks and response filtering.
	LevelUser Level = "USER"
)

// BypassesGroups reports whether the level skips user-group resolution
// entirely. Owner and admin callers are never filtered.
func (l Level) BypassesGroups() bool {
	return l == LevelOwner || l == LevelAdmin
}

// Identity describes the principal behind a command envelope.
// It is resolved once per connection at the transport boundary and
// stamped onto every envelope from that session.
type Identity struct {
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	UserLevel Level  `json:"user_level"`
	UserEmail string `json:"user_email"`
}
