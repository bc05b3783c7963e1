package core

import "sort"

// Room groups client names subscribed to the same channel.
// Rooms are not safe for concurrent use; the Registry lock guards them.
type Room struct {
	Name    string
	members map[string]struct{}
}

// NewRoom constructs a room with no members.
func NewRoom(name string) *Room {
	return &Room{
		Name:    name,
		members: make(map[string]struct{}),
	}
}

// Add inserts a member. Returns true if newly added.
func (r *Room) Add(name string) bool {
	if _, exists := r.members[name]; exists {
		return false
	}
	r.members[name] = struct{}{}
	return true
}

// Remove deletes a member. Returns true if removed.
func (r *Room) Remove(name string) bool {
	if _, exists := r.members[name]; !exists {
		return false
	}
	delete(r.members, name)
	return true
}

// Has reports membership.
func (r *Room) Has(name string) bool {
	_, ok := r.members[name]
	return ok
}

// Members returns member names in sorted order.
func (r *Room) Members() []string {
	names := make([]string, 0, len(r.members))
	for name := range r.members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the member count.
func (r *Room) Len() int {
	return len(r.members)
}
