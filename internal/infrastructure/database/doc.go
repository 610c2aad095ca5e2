// Package database manages the SQLite connection and schema migrations
// for Hearth Core.
//
// SQLite is opened in WAL mode with a busy timeout and restricted file
// permissions. Migrations are embedded in the binary (see the top-level
// migrations package) and applied on startup, each in its own
// transaction.
package database
