package core

import (
	"math/rand"
	"strconv"
	"testing"
)

func TestRegistryRegisterAndMembers(t *testing.T) {
	r := NewRegistry()

	if got := r.Members("room1"); len(got) != 0 {
		t.Fatalf("unknown room should be empty, got %v", got)
	}

	r.Register("room1", "a", "Alice")
	r.Register("room1", "b", "Bob")
	r.Register("room1", "c", "Alice") // duplicate names are allowed

	got := r.Members("room1")
	want := []Member{{"a", "Alice"}, {"b", "Bob"}, {"c", "Alice"}}
	if len(got) != len(want) {
		t.Fatalf("members = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("members[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	// Mutating the copy must not touch the registry.
	got[0].DisplayName = "Mallory"
	if r.Members("room1")[0].DisplayName != "Alice" {
		t.Fatal("Members must return a copy")
	}
}

func TestRegistryRegisterSameRoomRefreshesName(t *testing.T) {
	r := NewRegistry()
	if !r.Register("room1", "a", "Alice") {
		t.Fatal("first register should add")
	}
	if r.Register("room1", "a", "Alicia") {
		t.Fatal("second register in same room should not add")
	}

	members := r.Members("room1")
	if len(members) != 1 || members[0].DisplayName != "Alicia" {
		t.Fatalf("unexpected members: %v", members)
	}
}

func TestRegistryRegisterMovesBetweenRooms(t *testing.T) {
	r := NewRegistry()
	r.Register("room1", "a", "Alice")
	r.Register("room2", "a", "Alice")

	if len(r.Members("room1")) != 0 {
		t.Fatal("connection should have left room1")
	}
	if room, ok := r.RoomOf("a"); !ok || room != "room2" {
		t.Fatalf("RoomOf = %q, %v", room, ok)
	}
	if r.RoomCount() != 1 {
		t.Fatalf("empty room1 should be evicted, rooms=%d", r.RoomCount())
	}
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register("room1", "a", "Alice")
	r.Register("room1", "b", "Bob")

	affected := r.Unregister("a")
	if len(affected) != 1 || affected[0] != "room1" {
		t.Fatalf("affected = %v", affected)
	}
	members := r.Members("room1")
	if len(members) != 1 || members[0].ConnectionID != "b" {
		t.Fatalf("unexpected members after unregister: %v", members)
	}

	if affected := r.Unregister("ghost"); affected != nil {
		t.Fatalf("unknown connection should be a no-op, got %v", affected)
	}

	r.Unregister("b")
	if r.RoomCount() != 0 {
		t.Fatalf("empty room should be evicted, rooms=%d", r.RoomCount())
	}
}

// A connection id never appears in more than one room, whatever the sequence.
func TestRegistryAtMostOneRoomPerConnection(t *testing.T) {
	r := NewRegistry()
	rng := rand.New(rand.NewSource(42))
	rooms := []string{"r1", "r2", "r3"}

	for i := 0; i < 2000; i++ {
		id := "c" + strconv.Itoa(rng.Intn(10))
		if rng.Intn(3) == 0 {
			r.Unregister(id)
		} else {
			r.Register(rooms[rng.Intn(len(rooms))], id, "user")
		}

		seen := make(map[string]string)
		for _, room := range rooms {
			for _, m := range r.Members(room) {
				if prev, dup := seen[m.ConnectionID]; dup {
					t.Fatalf("step %d: %s in both %s and %s", i, m.ConnectionID, prev, room)
				}
				seen[m.ConnectionID] = room
			}
		}
	}
}
