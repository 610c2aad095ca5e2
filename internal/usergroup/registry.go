package usergroup

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides user group management with caching and thread
// safety. It wraps a Repository and keeps an ordered in-memory copy so
// group resolution on the command hot path never touches the database.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   []Group // ordered by creation time; resolution order matters
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a new user group registry.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all groups from the repository.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	groups, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading usergroups: %w", err)
	}

	r.cacheMu.Lock()
	r.cache = make([]Group, len(groups))
	for i := range groups {
		r.cache[i] = *groups[i].DeepCopy()
	}
	r.cacheMu.Unlock()

	r.logger.Info("usergroup cache refreshed", "count", len(groups))
	return nil
}

// FindByMember returns the first group containing the email, or nil if
// none matches. Groups are checked in creation order, so membership in
// multiple groups resolves the same way every time.
func (r *Registry) FindByMember(email string) *Group {
	if email == "" {
		return nil
	}

	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	for i := range r.cache {
		if r.cache[i].HasMember(email) {
			return r.cache[i].DeepCopy()
		}
	}
	return nil
}

// GetGroup retrieves a group by id from the cache.
func (r *Registry) GetGroup(id string) (*Group, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	for i := range r.cache {
		if r.cache[i].ID == id {
			return r.cache[i].DeepCopy(), nil
		}
	}
	return nil, ErrGroupNotFound
}

// ListGroups returns all groups in creation order.
func (r *Registry) ListGroups() []Group {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	groups := make([]Group, len(r.cache))
	for i := range r.cache {
		groups[i] = *r.cache[i].DeepCopy()
	}
	return groups
}

// CreateGroup creates a new empty group and returns its id.
func (r *Registry) CreateGroup(ctx context.Context, name string) (string, error) {
	group := &Group{
		ID:      uuid.NewString(),
		Name:    name,
		Members: []string{},
		Devices: []string{},
	}
	if err := group.Validate(); err != nil {
		return "", err
	}

	if err := r.repo.Create(ctx, group); err != nil {
		return "", err
	}

	r.cacheMu.Lock()
	r.cache = append(r.cache, *group.DeepCopy())
	r.cacheMu.Unlock()

	r.logger.Info("usergroup created", "id", group.ID, "name", name)
	return group.ID, nil
}

// DeleteGroup removes a group.
func (r *Registry) DeleteGroup(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	for i := range r.cache {
		if r.cache[i].ID == id {
			r.cache = append(r.cache[:i], r.cache[i+1:]...)
			break
		}
	}
	r.cacheMu.Unlock()

	r.logger.Info("usergroup deleted", "id", id)
	return nil
}

// AddMember adds an email to a group's member list. Adding an existing
// member is a no-op.
func (r *Registry) AddMember(ctx context.Context, groupID, email string) error {
	return r.mutate(ctx, groupID, func(g *Group) bool {
		if g.HasMember(email) {
			return false
		}
		g.Members = append(g.Members, email)
		return true
	})
}

// RemoveMember removes an email from a group's member list.
func (r *Registry) RemoveMember(ctx context.Context, groupID, email string) error {
	return r.mutate(ctx, groupID, func(g *Group) bool {
		return removeString(&g.Members, email)
	})
}

// AddDevice adds a device id to a group's device list. Adding an
// existing device is a no-op.
func (r *Registry) AddDevice(ctx context.Context, groupID, deviceID string) error {
	return r.mutate(ctx, groupID, func(g *Group) bool {
		if g.PermitsDevice(deviceID) {
			return false
		}
		g.Devices = append(g.Devices, deviceID)
		return true
	})
}

// RemoveDevice removes a device id from a group's device list.
func (r *Registry) RemoveDevice(ctx context.Context, groupID, deviceID string) error {
	return r.mutate(ctx, groupID, func(g *Group) bool {
		return removeString(&g.Devices, deviceID)
	})
}

// mutate applies fn to a cached group and persists it when fn reports a
// change.
func (r *Registry) mutate(ctx context.Context, groupID string, fn func(*Group) bool) error {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	for i := range r.cache {
		if r.cache[i].ID != groupID {
			continue
		}

		updated := r.cache[i].DeepCopy()
		if !fn(updated) {
			return nil
		}

		if err := r.repo.Update(ctx, updated); err != nil {
			return err
		}
		r.cache[i] = *updated
		return nil
	}
	return ErrGroupNotFound
}

// removeString deletes all occurrences of v from *s, reporting whether
// anything was removed.
func removeString(s *[]string, v string) bool {
	out := (*s)[:0]
	removed := false
	for _, item := range *s {
		if item == v {
			removed = true
			continue
		}
		out = append(out, item)
	}
	*s = out
	return removed
}
