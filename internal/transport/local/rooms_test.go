package local

import "testing"

func TestRoomRefCounting(t *testing.T) {
	rooms := NewRooms()
	a := &Client{}
	b := &Client{}

	if first := rooms.Join("cam1-640x480-15-mjpeg-b64", a, "meta"); !first {
		t.Error("first Join() = false, want true")
	}
	if first := rooms.Join("cam1-640x480-15-mjpeg-b64", b, "other"); first {
		t.Error("second Join() = true, want false")
	}
	if n := rooms.Members("cam1-640x480-15-mjpeg-b64"); n != 2 {
		t.Errorf("Members() = %d, want 2", n)
	}

	if last, _ := rooms.Leave("cam1-640x480-15-mjpeg-b64", a); last {
		t.Error("Leave() with one member remaining = last, want false")
	}
	last, meta := rooms.Leave("cam1-640x480-15-mjpeg-b64", b)
	if !last {
		t.Error("final Leave() = false, want last")
	}
	if meta != "meta" {
		t.Errorf("Leave() meta = %v, want the first join's meta", meta)
	}
}

func TestRoomJoinIsIdempotent(t *testing.T) {
	rooms := NewRooms()
	a := &Client{}

	rooms.Join("key", a, nil)
	rooms.Join("key", a, nil)

	if n := rooms.Members("key"); n != 1 {
		t.Errorf("Members() = %d after double join, want 1", n)
	}
	if last, _ := rooms.Leave("key", a); !last {
		t.Error("Leave() after double join = false, want last")
	}
}

func TestRoomLeaveNonMember(t *testing.T) {
	rooms := NewRooms()
	a := &Client{}
	b := &Client{}
	rooms.Join("key", a, nil)

	if last, _ := rooms.Leave("key", b); last {
		t.Error("Leave() by non-member reported last")
	}
	if last, _ := rooms.Leave("missing", a); last {
		t.Error("Leave() of missing room reported last")
	}
}

func TestLeaveAllReportsLastRooms(t *testing.T) {
	rooms := NewRooms()
	a := &Client{}
	b := &Client{}

	rooms.Join("shared", a, "shared-meta")
	rooms.Join("shared", b, nil)
	rooms.Join("own", a, "own-meta")

	left := rooms.LeaveAll(a)
	if len(left) != 2 {
		t.Fatalf("LeaveAll() returned %d rooms, want 2", len(left))
	}

	byKey := make(map[string]LeftRoom)
	for _, l := range left {
		byKey[l.Key] = l
	}
	if byKey["shared"].Last {
		t.Error("LeaveAll() reported last for a room with another member")
	}
	if !byKey["own"].Last {
		t.Error("LeaveAll() did not report last for a sole-member room")
	}
	if byKey["own"].Meta != "own-meta" {
		t.Errorf("LeaveAll() meta = %v, want own-meta", byKey["own"].Meta)
	}
}

func TestDropRemovesRoom(t *testing.T) {
	rooms := NewRooms()
	a := &Client{}
	rooms.Join("pb-1234", a, nil)

	rooms.Drop("pb-1234")

	if n := rooms.Members("pb-1234"); n != 0 {
		t.Errorf("Members() = %d after Drop(), want 0", n)
	}
}
