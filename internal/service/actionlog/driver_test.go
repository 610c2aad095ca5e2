package actionlog

import (
	"context"
	"testing"

	"github.com/hearthwire/hearth-core/internal/audit"
	"github.com/hearthwire/hearth-core/internal/auth"
	"github.com/hearthwire/hearth-core/internal/hub"
)

// fakeRepo records List calls and returns canned entries.
type fakeRepo struct {
	entries []audit.Entry
	filter  audit.Filter
}

func (r *fakeRepo) Create(context.Context, *audit.Entry) error { return nil }

func (r *fakeRepo) List(_ context.Context, filter audit.Filter) ([]audit.Entry, error) {
	r.filter = filter
	return r.entries, nil
}

func TestGetActionLog(t *testing.T) {
	repo := &fakeRepo{entries: []audit.Entry{
		{UserName: "Owner", DeviceID: "lamp1", Action: "switch-on"},
	}}
	d := New(repo)

	result, err := d.Invoke(context.Background(), &hub.Envelope{
		Name:     "getActionLog",
		Identity: auth.Identity{UserLevel: auth.LevelOwner},
	})
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	entries, ok := result.([]audit.Entry)
	if !ok || len(entries) != 1 || entries[0].Action != "switch-on" {
		t.Errorf("result = %v, want one switch-on entry", result)
	}
}

func TestGetActionLogFilter(t *testing.T) {
	repo := &fakeRepo{}
	d := New(repo)

	_, err := d.Invoke(context.Background(), &hub.Envelope{
		Name: "getActionLog",
		Args: []any{map[string]any{
			"id": "lamp1", "user_id": "u1", "limit": float64(10), "offset": float64(20),
		}},
		Identity: auth.Identity{UserLevel: auth.LevelOwner},
	})
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}

	want := audit.Filter{DeviceID: "lamp1", UserID: "u1", Limit: 10, Offset: 20}
	if repo.filter != want {
		t.Errorf("filter = %+v, want %+v", repo.filter, want)
	}
}

func TestGetActionLogEmptyResultIsList(t *testing.T) {
	d := New(&fakeRepo{})

	result, err := d.Invoke(context.Background(), &hub.Envelope{Name: "getActionLog"})
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	entries, ok := result.([]audit.Entry)
	if !ok || entries == nil {
		t.Errorf("result = %v, want empty non-nil list", result)
	}
}
