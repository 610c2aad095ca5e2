package audit

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the action log schema.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "audit-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE action_log (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			user_name   TEXT NOT NULL,
			device_id   TEXT NOT NULL,
			device_name TEXT NOT NULL,
			action      TEXT NOT NULL,
			created_at  TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	return db
}

func seedEntry(t *testing.T, repo *SQLiteRepository, entry Entry) Entry {
	t.Helper()
	if err := repo.Create(context.Background(), &entry); err != nil {
		t.Fatalf("seeding entry: %v", err)
	}
	return entry
}

func TestCreateGeneratesIDAndTimestamp(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))

	entry := Entry{
		UserName:   "ada",
		UserID:     "usr-1",
		DeviceID:   "light-7",
		DeviceName: "Kitchen Light",
		Action:     "lightOn",
	}
	if err := repo.Create(context.Background(), &entry); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if entry.ID == "" {
		t.Error("expected generated ID")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("expected generated CreatedAt")
	}

	entries, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Action != "lightOn" || entries[0].UserName != "ada" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestListNewestFirst(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	for i, action := range []string{"lightOn", "lightOff", "lockDoor"} {
		seedEntry(t, repo, Entry{
			UserID:    "usr-1",
			UserName:  "ada",
			DeviceID:  "dev-1",
			Action:    action,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	entries, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Action != "lockDoor" || entries[2].Action != "lightOn" {
		t.Errorf("entries not newest first: %v, %v, %v",
			entries[0].Action, entries[1].Action, entries[2].Action)
	}
}

func TestListFilters(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))

	seedEntry(t, repo, Entry{UserID: "usr-1", UserName: "ada", DeviceID: "light-1", Action: "lightOn"})
	seedEntry(t, repo, Entry{UserID: "usr-2", UserName: "kim", DeviceID: "light-1", Action: "lightOff"})
	seedEntry(t, repo, Entry{UserID: "usr-1", UserName: "ada", DeviceID: "lock-1", Action: "lockDoor"})

	byDevice, err := repo.List(context.Background(), Filter{DeviceID: "light-1"})
	if err != nil {
		t.Fatalf("List by device: %v", err)
	}
	if len(byDevice) != 2 {
		t.Errorf("expected 2 entries for light-1, got %d", len(byDevice))
	}

	byUser, err := repo.List(context.Background(), Filter{UserID: "usr-1"})
	if err != nil {
		t.Fatalf("List by user: %v", err)
	}
	if len(byUser) != 2 {
		t.Errorf("expected 2 entries for usr-1, got %d", len(byUser))
	}

	both, err := repo.List(context.Background(), Filter{DeviceID: "light-1", UserID: "usr-2"})
	if err != nil {
		t.Fatalf("List combined: %v", err)
	}
	if len(both) != 1 || both[0].Action != "lightOff" {
		t.Errorf("combined filter returned %+v", both)
	}
}

func TestListLimitAndOffset(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		seedEntry(t, repo, Entry{
			UserID:    "usr-1",
			UserName:  "ada",
			DeviceID:  "dev-1",
			Action:    "lightOn",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	page, err := repo.List(context.Background(), Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
	if !page[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("unexpected page start %v", page[0].CreatedAt)
	}
}

func TestListEmptyIsNotNil(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))

	entries, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if entries == nil {
		t.Error("expected non-nil empty slice")
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}
