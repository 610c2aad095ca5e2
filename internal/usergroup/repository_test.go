package usergroup

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the usergroups schema.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "usergroup-test-*.db")
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
		CREATE TABLE usergroups (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			members    TEXT NOT NULL DEFAULT '[]',
			devices    TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	return db
}

func TestRepositoryRoundTrip(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()

	group := &Group{
		ID:      "g-1",
		Name:    "Kids",
		Members: []string{"kid@example.com"},
		Devices: []string{"lamp1", "lamp2"},
	}
	if err := repo.Create(ctx, group); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	got, err := repo.GetByID(ctx, "g-1")
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got.Name != "Kids" || len(got.Members) != 1 || len(got.Devices) != 2 {
		t.Errorf("GetByID() = %+v, want stored group", got)
	}

	got.Devices = append(got.Devices, "shutter1")
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	again, err := repo.GetByID(ctx, "g-1")
	if err != nil {
		t.Fatalf("GetByID() after update error: %v", err)
	}
	if !again.PermitsDevice("shutter1") {
		t.Error("updated device list not persisted")
	}

	if err := repo.Delete(ctx, "g-1"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := repo.GetByID(ctx, "g-1"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrGroupNotFound", err)
	}
}

func TestRepositoryNotFound(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("GetByID() error = %v, want ErrGroupNotFound", err)
	}
	if err := repo.Delete(ctx, "missing"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("Delete() error = %v, want ErrGroupNotFound", err)
	}
	if err := repo.Update(ctx, &Group{ID: "missing", Name: "x"}); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("Update() error = %v, want ErrGroupNotFound", err)
	}
}

func TestRegistryFindByMember(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	reg := NewRegistry(repo)
	ctx := context.Background()

	firstID, err := reg.CreateGroup(ctx, "First")
	if err != nil {
		t.Fatalf("CreateGroup() error: %v", err)
	}
	secondID, err := reg.CreateGroup(ctx, "Second")
	if err != nil {
		t.Fatalf("CreateGroup() error: %v", err)
	}

	// Same member in both groups: creation order wins.
	for _, id := range []string{firstID, secondID} {
		if err := reg.AddMember(ctx, id, "shared@example.com"); err != nil {
			t.Fatalf("AddMember() error: %v", err)
		}
	}

	got := reg.FindByMember("shared@example.com")
	if got == nil || got.ID != firstID {
		t.Errorf("FindByMember() = %+v, want first-created group %s", got, firstID)
	}

	if reg.FindByMember("nobody@example.com") != nil {
		t.Error("FindByMember() matched a non-member")
	}
	if reg.FindByMember("") != nil {
		t.Error("FindByMember() matched an empty email")
	}
}

func TestRegistryResolutionSurvivesRestart(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteRepository(db)
	reg := NewRegistry(repo)
	ctx := context.Background()

	id, err := reg.CreateGroup(ctx, "Family")
	if err != nil {
		t.Fatalf("CreateGroup() error: %v", err)
	}
	if err := reg.AddMember(ctx, id, "dana@example.com"); err != nil {
		t.Fatalf("AddMember() error: %v", err)
	}
	if err := reg.AddDevice(ctx, id, "lamp1"); err != nil {
		t.Fatalf("AddDevice() error: %v", err)
	}

	// Fresh registry over the same database.
	reloaded := NewRegistry(NewSQLiteRepository(db))
	if err := reloaded.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error: %v", err)
	}

	got := reloaded.FindByMember("dana@example.com")
	if got == nil {
		t.Fatal("FindByMember() = nil after reload")
	}
	if !got.PermitsDevice("lamp1") {
		t.Error("reloaded group lost device grant")
	}
}

func TestRegistryMutationsAreIdempotent(t *testing.T) {
	reg := NewRegistry(NewSQLiteRepository(testDB(t)))
	ctx := context.Background()

	id, err := reg.CreateGroup(ctx, "Family")
	if err != nil {
		t.Fatalf("CreateGroup() error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := reg.AddDevice(ctx, id, "lamp1"); err != nil {
			t.Fatalf("AddDevice() error: %v", err)
		}
	}
	group, err := reg.GetGroup(id)
	if err != nil {
		t.Fatalf("GetGroup() error: %v", err)
	}
	if len(group.Devices) != 1 {
		t.Errorf("devices = %v, want single entry", group.Devices)
	}

	if err := reg.RemoveDevice(ctx, id, "lamp1"); err != nil {
		t.Fatalf("RemoveDevice() error: %v", err)
	}
	group, err = reg.GetGroup(id)
	if err != nil {
		t.Fatalf("GetGroup() error: %v", err)
	}
	if len(group.Devices) != 0 {
		t.Errorf("devices = %v, want empty", group.Devices)
	}

	if err := reg.AddMember(ctx, "missing", "x@example.com"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("AddMember() on missing group error = %v, want ErrGroupNotFound", err)
	}
}
