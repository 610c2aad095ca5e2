package local

import "sync"

// Rooms tracks long-lived subscriptions keyed by stream or playback
// key, with reference counting. Join reports whether the caller is the
// first member and Leave whether it was the last, so the owner can
// start the underlying pipeline exactly once and stop it when the room
// empties.
type Rooms struct {
	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	members map[*Client]struct{}
	meta    any
}

// LeftRoom describes a room a client left, with the metadata supplied
// by the first Join.
type LeftRoom struct {
	Key  string
	Meta any
	Last bool
}

// NewRooms creates an empty room set.
func NewRooms() *Rooms {
	return &Rooms{rooms: make(map[string]*room)}
}

// Join adds a client to the room. meta is retained from the first join
// and handed back on Leave. Joining twice is a no-op.
func (r *Rooms) Join(key string, c *Client, meta any) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[key]
	if !ok {
		rm = &room{members: make(map[*Client]struct{}), meta: meta}
		r.rooms[key] = rm
		first = true
	}
	rm.members[c] = struct{}{}
	return first
}

// Leave removes a client from the room. last reports whether the room
// is now empty (and removed).
func (r *Rooms) Leave(key string, c *Client) (last bool, meta any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(key, c)
}

func (r *Rooms) leaveLocked(key string, c *Client) (last bool, meta any) {
	rm, ok := r.rooms[key]
	if !ok {
		return false, nil
	}
	if _, member := rm.members[c]; !member {
		return false, nil
	}
	delete(rm.members, c)
	if len(rm.members) == 0 {
		delete(r.rooms, key)
		return true, rm.meta
	}
	return false, nil
}

// LeaveAll removes the client from every room it joined, returning one
// entry per left room. Called on disconnect.
func (r *Rooms) LeaveAll(c *Client) []LeftRoom {
	r.mu.Lock()
	defer r.mu.Unlock()

	var left []LeftRoom
	for key, rm := range r.rooms {
		if _, member := rm.members[c]; !member {
			continue
		}
		meta := rm.meta
		last, _ := r.leaveLocked(key, c)
		left = append(left, LeftRoom{Key: key, Meta: meta, Last: last})
	}
	return left
}

// Drop removes a room and all memberships without notifying members.
// Used when the underlying session ends on its own.
func (r *Rooms) Drop(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, key)
}

// Members returns the current member count of a room.
func (r *Rooms) Members(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rm, ok := r.rooms[key]; ok {
		return len(rm.members)
	}
	return 0
}

// Broadcast sends data to every member of a room.
func (r *Rooms) Broadcast(key string, data []byte) {
	r.mu.Lock()
	members := make([]*Client, 0)
	if rm, ok := r.rooms[key]; ok {
		for c := range rm.members {
			members = append(members, c)
		}
	}
	r.mu.Unlock()

	for _, c := range members {
		c.trySend(data)
	}
}
