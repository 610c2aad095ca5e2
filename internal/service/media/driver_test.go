package media

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hearthwire/hearth-core/internal/hub"
	store "github.com/hearthwire/hearth-core/internal/media"
)

func testRepo(t *testing.T) *store.Repository {
	t.Helper()

	f, err := os.CreateTemp("", "media-driver-test-*.db")
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
		CREATE TABLE snapshots (
			id         TEXT PRIMARY KEY,
			camera_id  TEXT NOT NULL,
			path       TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE TABLE recordings (
			id         TEXT PRIMARY KEY,
			camera_id  TEXT NOT NULL,
			path       TEXT NOT NULL,
			size_bytes INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			ended_at   TEXT
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	return store.NewRepository(db)
}

func invoke(t *testing.T, d *Driver, name string, args ...any) any {
	t.Helper()
	result, err := d.Invoke(context.Background(), &hub.Envelope{Name: name, Args: args})
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return result
}

func TestGetSnapshotsFiltersByCamera(t *testing.T) {
	repo := testRepo(t)
	d := New(repo)
	ctx := context.Background()

	for _, cam := range []string{"cam-1", "cam-1", "cam-2"} {
		snap := &store.Snapshot{CameraID: cam, Path: "/tmp/x.jpg"}
		if err := repo.AddSnapshot(ctx, snap); err != nil {
			t.Fatalf("seeding snapshot: %v", err)
		}
	}

	all, ok := invoke(t, d, "getSnapshots").([]map[string]any)
	if !ok {
		t.Fatal("expected list of maps")
	}
	if len(all) != 3 {
		t.Errorf("expected 3 snapshots, got %d", len(all))
	}
	if _, hasKey := all[0]["cameraid"]; !hasKey {
		t.Error("snapshot entries must expose cameraid for permission filtering")
	}

	cam1 := invoke(t, d, "getSnapshots", "cam-1").([]map[string]any)
	if len(cam1) != 2 {
		t.Errorf("expected 2 snapshots for cam-1, got %d", len(cam1))
	}
}

func TestGetRecordingsIncludesEndWhenFinished(t *testing.T) {
	repo := testRepo(t)
	d := New(repo)
	ctx := context.Background()

	ended := time.Now().UTC()
	finished := &store.Recording{CameraID: "cam-1", Path: "/tmp/a.mkv", SizeBytes: 100, StartedAt: ended.Add(-time.Minute), EndedAt: &ended}
	inProgress := &store.Recording{CameraID: "cam-1", Path: "/tmp/b.mkv", StartedAt: ended}
	for _, rec := range []*store.Recording{finished, inProgress} {
		if err := repo.AddRecording(ctx, rec); err != nil {
			t.Fatalf("seeding recording: %v", err)
		}
	}

	recs := invoke(t, d, "getRecordings").([]map[string]any)
	if len(recs) != 2 {
		t.Fatalf("expected 2 recordings, got %d", len(recs))
	}

	var withEnd, withoutEnd int
	for _, rec := range recs {
		if _, ok := rec["end"]; ok {
			withEnd++
		} else {
			withoutEnd++
		}
	}
	if withEnd != 1 || withoutEnd != 1 {
		t.Errorf("expected one finished and one in-progress recording, got %d/%d", withEnd, withoutEnd)
	}
}

func TestDeleteSnapshot(t *testing.T) {
	repo := testRepo(t)
	d := New(repo)
	ctx := context.Background()

	snap := &store.Snapshot{CameraID: "cam-1", Path: "/tmp/x.jpg"}
	if err := repo.AddSnapshot(ctx, snap); err != nil {
		t.Fatalf("seeding snapshot: %v", err)
	}

	if got := invoke(t, d, "deleteSnapshot", snap.ID); got != true {
		t.Errorf("deleteSnapshot = %v, want true", got)
	}

	remaining := invoke(t, d, "getSnapshots").([]map[string]any)
	if len(remaining) != 0 {
		t.Errorf("expected no snapshots after delete, got %d", len(remaining))
	}
}

func TestDeleteRequiresID(t *testing.T) {
	d := New(testRepo(t))

	for _, name := range []string{"deleteSnapshot", "deleteRecording"} {
		if _, err := d.Invoke(context.Background(), &hub.Envelope{Name: name}); err == nil {
			t.Errorf("%s without id should fail", name)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	d := New(testRepo(t))

	if _, err := d.Invoke(context.Background(), &hub.Envelope{Name: "getWeather"}); err == nil {
		t.Error("unknown command should fail")
	}
}
