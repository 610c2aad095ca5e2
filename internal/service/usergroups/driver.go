// Package usergroups exposes user-group management over the command
// protocol. It is a hub driver like any device integration, so apps
// manage groups through the same envelope path they use for devices.
package usergroups

import (
	"context"
	"errors"
	"fmt"

	"github.com/hearthwire/hearth-core/internal/hub"
	"github.com/hearthwire/hearth-core/internal/usergroup"
)

// Driver serves the usergroup command set from the cached registry.
type Driver struct {
	registry *usergroup.Registry
}

// New creates the usergroups driver.
func New(registry *usergroup.Registry) *Driver {
	return &Driver{registry: registry}
}

// Name implements hub.Driver.
func (d *Driver) Name() string { return "usergroups" }

// Commands implements hub.Driver.
func (d *Driver) Commands() []string {
	return []string{
		"getUsergroups",
		"addUsergroup",
		"deleteUsergroup",
		"addUsergroupMember",
		"removeUsergroupMember",
		"addUsergroupDevice",
		"removeUsergroupDevice",
		"getMyUsergroup",
	}
}

// Invoke implements hub.Driver.
//
// Mutating commands require an OWNER or ADMIN caller and reply false
// otherwise; grouped members can only read their own group via
// getMyUsergroup.
func (d *Driver) Invoke(ctx context.Context, env *hub.Envelope) (any, error) {
	switch env.Name {
	case "getMyUsergroup":
		return d.registry.FindByMember(env.Identity.UserEmail), nil
	case "getUsergroups":
		if !env.Identity.UserLevel.BypassesGroups() {
			return false, nil
		}
		return d.registry.ListGroups(), nil
	}

	if !env.Identity.UserLevel.BypassesGroups() {
		return false, nil
	}

	switch env.Name {
	case "addUsergroup":
		name, err := stringArg(env.Args, 0)
		if err != nil {
			return nil, err
		}
		id, err := d.registry.CreateGroup(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("creating usergroup: %w", err)
		}
		return id, nil

	case "deleteUsergroup":
		id, err := stringArg(env.Args, 0)
		if err != nil {
			return nil, err
		}
		return d.mutated(d.registry.DeleteGroup(ctx, id))

	case "addUsergroupMember":
		return d.groupMutation(ctx, env.Args, d.registry.AddMember)
	case "removeUsergroupMember":
		return d.groupMutation(ctx, env.Args, d.registry.RemoveMember)
	case "addUsergroupDevice":
		return d.groupMutation(ctx, env.Args, d.registry.AddDevice)
	case "removeUsergroupDevice":
		return d.groupMutation(ctx, env.Args, d.registry.RemoveDevice)

	default:
		return nil, fmt.Errorf("unknown command %q", env.Name)
	}
}

// groupMutation runs one (groupID, value) registry mutation.
func (d *Driver) groupMutation(ctx context.Context, args []any, fn func(context.Context, string, string) error) (any, error) {
	groupID, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}
	value, err := stringArg(args, 1)
	if err != nil {
		return nil, err
	}
	return d.mutated(fn(ctx, groupID, value))
}

// mutated maps a registry error to the wire result: true on success,
// false when the group does not exist.
func (d *Driver) mutated(err error) (any, error) {
	if errors.Is(err, usergroup.ErrGroupNotFound) {
		return false, nil
	}
	if err != nil {
		return nil, err
	}
	return true, nil
}

func stringArg(args []any, i int) (string, error) {
	if len(args) <= i {
		return "", fmt.Errorf("argument %d required", i)
	}
	s, ok := args[i].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %d must be a non-empty string", i)
	}
	return s, nil
}
