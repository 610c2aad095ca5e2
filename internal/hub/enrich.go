package hub

import "context"

// DeviceTypeFilter returns an Enricher for device enumeration replies.
// When the caller supplies a device type as the first argument, only
// entries whose "type" field matches are kept. With no argument the
// result passes through untouched, so the plain zero-arg form keeps its
// behaviour.
//
// The filter runs before permission filtering, so a grouped caller sees
// the intersection of the type filter and their device allowance.
func DeviceTypeFilter() Enricher {
	return func(_ context.Context, env *Envelope, result any) any {
		if len(env.Args) == 0 {
			return result
		}
		want, ok := env.Args[0].(string)
		if !ok || want == "" {
			return result
		}

		list, ok := asSlice(result)
		if !ok {
			return result
		}

		filtered := make([]any, 0, len(list))
		for _, item := range list {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if typ, _ := entry["type"].(string); typ == want {
				filtered = append(filtered, item)
			}
		}
		return filtered
	}
}
