// Package actionlog exposes the persisted action log over the command
// protocol.
package actionlog

import (
	"context"
	"fmt"

	"github.com/hearthwire/hearth-core/internal/audit"
	"github.com/hearthwire/hearth-core/internal/hub"
)

// Driver serves getActionLog from the audit repository.
type Driver struct {
	repo audit.Repository
}

// New creates the actionlog driver.
func New(repo audit.Repository) *Driver {
	return &Driver{repo: repo}
}

// Name implements hub.Driver.
func (d *Driver) Name() string { return "actionlog" }

// Commands implements hub.Driver.
func (d *Driver) Commands() []string {
	return []string{"getActionLog"}
}

// Invoke implements hub.Driver.
//
// getActionLog takes an optional filter object:
//
//	getActionLog [{ "id": "lamp1", "user_id": "u1", "limit": 50, "offset": 0 }]
func (d *Driver) Invoke(ctx context.Context, env *hub.Envelope) (any, error) {
	if env.Name != "getActionLog" {
		return nil, fmt.Errorf("unknown command %q", env.Name)
	}

	filter := parseFilter(env.Args)
	entries, err := d.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing action log: %w", err)
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	return entries, nil
}

// parseFilter reads the optional filter object from the args. Unknown
// fields and malformed values fall back to the defaults.
func parseFilter(args []any) audit.Filter {
	var filter audit.Filter
	if len(args) == 0 {
		return filter
	}
	raw, ok := args[0].(map[string]any)
	if !ok {
		return filter
	}

	if v, ok := raw["id"].(string); ok {
		filter.DeviceID = v
	}
	if v, ok := raw["user_id"].(string); ok {
		filter.UserID = v
	}
	if v, ok := raw["limit"].(float64); ok {
		filter.Limit = int(v)
	}
	if v, ok := raw["offset"].(float64); ok {
		filter.Offset = int(v)
	}
	return filter
}
