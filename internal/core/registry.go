package core

// Member is one connection present in a room.
type Member struct {
	ConnectionID string
	DisplayName  string
}

// Registry records which connections are in which room.
//
// It is not safe for concurrent use; the Hub goroutine owns it. A connection id
// appears in at most one room, and a room exists only while it has members.
type Registry struct {
	rooms map[string][]Member
	index map[string]string // connection id -> room id
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string][]Member),
		index: make(map[string]string),
	}
}

// Register adds the connection to room, creating the room on demand. If the
// connection is already in room its display name is refreshed in place and false
// is returned. A connection found in a different room is moved.
func (r *Registry) Register(room, connectionID, displayName string) bool {
	if current, ok := r.index[connectionID]; ok {
		if current == room {
			members := r.rooms[room]
			for i := range members {
				if members[i].ConnectionID == connectionID {
					members[i].DisplayName = displayName
				}
			}
			return false
		}
		r.remove(current, connectionID)
	}

	r.rooms[room] = append(r.rooms[room], Member{ConnectionID: connectionID, DisplayName: displayName})
	r.index[connectionID] = room
	return true
}

// Unregister removes the connection from whatever room holds it and returns the
// affected room ids. Unknown connections yield nil.
func (r *Registry) Unregister(connectionID string) []string {
	room, ok := r.index[connectionID]
	if !ok {
		return nil
	}
	r.remove(room, connectionID)
	return []string{room}
}

// Members returns a copy of the room's members in join order. Unknown rooms
// yield an empty slice.
func (r *Registry) Members(room string) []Member {
	members := r.rooms[room]
	out := make([]Member, len(members))
	copy(out, members)
	return out
}

// RoomOf reports the room a connection is joined to.
func (r *Registry) RoomOf(connectionID string) (string, bool) {
	room, ok := r.index[connectionID]
	return room, ok
}

// RoomCount returns the number of non-empty rooms.
func (r *Registry) RoomCount() int {
	return len(r.rooms)
}

func (r *Registry) remove(room, connectionID string) {
	delete(r.index, connectionID)

	members := r.rooms[room]
	kept := members[:0]
	for _, m := range members {
		if m.ConnectionID != connectionID {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		delete(r.rooms, room)
		return
	}
	// clear the tail so dropped members are not retained by the backing array
	for i := len(kept); i < len(members); i++ {
		members[i] = Member{}
	}
	r.rooms[room] = kept
}
