package usergroups

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hearthwire/hearth-core/internal/auth"
	"github.com/hearthwire/hearth-core/internal/hub"
	"github.com/hearthwire/hearth-core/internal/usergroup"
)

func testRegistry(t *testing.T) *usergroup.Registry {
	t.Helper()

	f, err := os.CreateTemp("", "usergroups-driver-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath)
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

	registry := usergroup.NewRegistry(usergroup.NewSQLiteRepository(db))
	if err := registry.RefreshCache(context.Background()); err != nil {
		t.Fatalf("refreshing cache: %v", err)
	}
	return registry
}

var (
	owner = auth.Identity{UserID: "u1", UserName: "Owner", UserLevel: auth.LevelOwner, UserEmail: "owner@example.com"}
	user  = auth.Identity{UserID: "u2", UserName: "Kid", UserLevel: auth.LevelUser, UserEmail: "kid@example.com"}
)

func invoke(t *testing.T, d *Driver, ident auth.Identity, name string, args ...any) any {
	t.Helper()
	result, err := d.Invoke(context.Background(), &hub.Envelope{Name: name, Args: args, Identity: ident})
	if err != nil {
		t.Fatalf("Invoke(%s) error: %v", name, err)
	}
	return result
}

func TestGroupLifecycle(t *testing.T) {
	d := New(testRegistry(t))

	id, ok := invoke(t, d, owner, "addUsergroup", "Kids").(string)
	if !ok || id == "" {
		t.Fatal("addUsergroup did not return a group id")
	}

	if got := invoke(t, d, owner, "addUsergroupMember", id, "kid@example.com"); got != true {
		t.Errorf("addUsergroupMember = %v, want true", got)
	}
	if got := invoke(t, d, owner, "addUsergroupDevice", id, "lamp1"); got != true {
		t.Errorf("addUsergroupDevice = %v, want true", got)
	}

	groups, ok := invoke(t, d, owner, "getUsergroups").([]usergroup.Group)
	if !ok || len(groups) != 1 {
		t.Fatalf("getUsergroups = %v, want one group", groups)
	}
	if !groups[0].HasMember("kid@example.com") || !groups[0].PermitsDevice("lamp1") {
		t.Errorf("group = %+v, missing member or device", groups[0])
	}

	mine, ok := invoke(t, d, user, "getMyUsergroup").(*usergroup.Group)
	if !ok || mine == nil || mine.ID != id {
		t.Errorf("getMyUsergroup = %v, want group %s", mine, id)
	}

	if got := invoke(t, d, owner, "removeUsergroupMember", id, "kid@example.com"); got != true {
		t.Errorf("removeUsergroupMember = %v, want true", got)
	}
	if got := invoke(t, d, owner, "deleteUsergroup", id); got != true {
		t.Errorf("deleteUsergroup = %v, want true", got)
	}
	if got := invoke(t, d, owner, "deleteUsergroup", id); got != false {
		t.Errorf("deleteUsergroup twice = %v, want false", got)
	}
}

func TestMutationsRequireElevatedCaller(t *testing.T) {
	d := New(testRegistry(t))

	for _, cmd := range []struct {
		name string
		args []any
	}{
		{"addUsergroup", []any{"Kids"}},
		{"deleteUsergroup", []any{"g-1"}},
		{"addUsergroupMember", []any{"g-1", "kid@example.com"}},
		{"removeUsergroupDevice", []any{"g-1", "lamp1"}},
		{"getUsergroups", nil},
	} {
		if got := invoke(t, d, user, cmd.name, cmd.args...); got != false {
			t.Errorf("%s as USER = %v, want false", cmd.name, got)
		}
	}
}

func TestGetMyUsergroupWithoutGroup(t *testing.T) {
	d := New(testRegistry(t))

	result := invoke(t, d, user, "getMyUsergroup")
	if group, ok := result.(*usergroup.Group); !ok || group != nil {
		t.Errorf("getMyUsergroup = %v, want nil group", result)
	}
}

func TestInvalidArguments(t *testing.T) {
	d := New(testRegistry(t))

	if _, err := d.Invoke(context.Background(), &hub.Envelope{Name: "addUsergroup", Identity: owner}); err == nil {
		t.Error("addUsergroup without name expected error")
	}
	if _, err := d.Invoke(context.Background(), &hub.Envelope{Name: "addUsergroupMember", Args: []any{"g-1", 42}, Identity: owner}); err == nil {
		t.Error("addUsergroupMember with non-string member expected error")
	}
}
