package core

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds who is online and which rooms exist.
// One lock guards clients, rooms and the reverse membership index so that
// no reader observes a half-applied join, leave or disconnect.
type Registry struct {
	mu sync.RWMutex

	clients     map[string]*Client
	rooms       map[string]*Room
	order       []string
	clientRooms map[string]map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clients:     make(map[string]*Client),
		rooms:       make(map[string]*Room),
		clientRooms: make(map[string]map[string]struct{}),
	}
}

// Register associates name with client, replacing any previous handle.
// It returns the handle that was replaced, if any.
func (r *Registry) Register(name string, client *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.clients[name]
	r.clients[name] = client
	if prev == client {
		return nil
	}
	return prev
}

// Claim registers name for client only if no other client holds it.
func (r *Registry) Claim(name string, client *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.clients[name]; ok && current != client {
		return false
	}
	r.clients[name] = client
	return true
}

// Lookup returns the handle registered under name.
func (r *Registry) Lookup(name string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[name]
	if !ok {
		return nil, ErrClientNotFound
	}
	return client, nil
}

// Unregister removes name. When owner is non-nil the name is only removed
// if owner still holds it. Returns true if an entry was removed.
func (r *Registry) Unregister(name string, owner *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.unregisterLocked(name, owner)
}

func (r *Registry) unregisterLocked(name string, owner *Client) bool {
	current, ok := r.clients[name]
	if !ok || (owner != nil && current != owner) {
		return false
	}
	delete(r.clients, name)
	return true
}

// Owns reports whether client currently holds name.
func (r *Registry) Owns(name string, client *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.clients[name] == client
}

// Clients returns the registered names in sorted order.
func (r *Registry) Clients() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Send delivers text to the client registered under name.
func (r *Registry) Send(name, text string) error {
	client, err := r.Lookup(name)
	if err != nil {
		return err
	}
	if err := client.Deliver(Reply{To: name, Text: text}); err != nil {
		return fmt.Errorf("deliver to %s: %w", name, err)
	}
	return nil
}

// CreateRoom creates room name with creator as its first member.
func (r *Registry) CreateRoom(name, creator string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[name]; exists {
		return ErrRoomExists
	}
	room := NewRoom(name)
	r.rooms[name] = room
	r.order = append(r.order, name)
	r.addMemberLocked(room, creator)
	return nil
}

// JoinRoom adds client to room name. Joining twice is a no-op reported
// through added=false.
func (r *Registry) JoinRoom(name, client string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[name]
	if !ok {
		return false, ErrRoomNotFound
	}
	return r.addMemberLocked(room, client), nil
}

// LeaveRoom removes client from room name.
func (r *Registry) LeaveRoom(name, client string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[name]
	if !ok {
		return ErrRoomNotFound
	}
	if !r.removeMemberLocked(room, client) {
		return ErrNotInRoom
	}
	return nil
}

// ListRooms returns room names in creation order.
func (r *Registry) ListRooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// ListMembers returns the members of room name. The requester must be a member.
func (r *Registry) ListMembers(name, requester string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[name]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if !room.Has(requester) {
		return nil, ErrNotInRoom
	}
	return room.Members(), nil
}

// IsMember reports whether client belongs to room name.
func (r *Registry) IsMember(name, client string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[name]
	if !ok {
		return false, ErrRoomNotFound
	}
	return room.Has(client), nil
}

// RoomsOf returns the rooms client belongs to, sorted.
func (r *Registry) RoomsOf(client string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.clientRooms[client]))
	for name := range r.clientRooms[client] {
		rooms = append(rooms, name)
	}
	sort.Strings(rooms)
	return rooms
}

// RemoveClientEverywhere drops client from every room it joined.
// It returns the rooms it was removed from, in creation order.
func (r *Registry) RemoveClientEverywhere(client string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeEverywhereLocked(client)
}

func (r *Registry) removeEverywhereLocked(client string) []string {
	joined, ok := r.clientRooms[client]
	if !ok {
		return nil
	}
	left := make([]string, 0, len(joined))
	for _, name := range r.order {
		if _, member := joined[name]; !member {
			continue
		}
		if room := r.rooms[name]; room != nil {
			room.Remove(client)
		}
		left = append(left, name)
	}
	delete(r.clientRooms, client)
	return left
}

// Evict removes client from every room and, if owner still holds the name,
// from the client registry, all under one lock.
// It returns the rooms the client was removed from.
func (r *Registry) Evict(client string, owner *Client) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner != nil {
		if current, ok := r.clients[client]; ok && current != owner {
			return nil, false
		}
	}
	left := r.removeEverywhereLocked(client)
	r.unregisterLocked(client, owner)
	return left, true
}

// Broadcast delivers text to every member of room name except skip.
// Each failed delivery is passed to onFail and does not stop the fan-out.
// It returns the number of successful deliveries.
func (r *Registry) Broadcast(name, skip, text string, onFail func(member string, err error)) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[name]
	if !ok {
		return 0, ErrRoomNotFound
	}

	delivered := 0
	for member := range room.members {
		if member == skip {
			continue
		}
		err := r.deliverLocked(member, text)
		if err != nil {
			if onFail != nil {
				onFail(member, err)
			}
			continue
		}
		delivered++
	}
	return delivered, nil
}

func (r *Registry) deliverLocked(name, text string) error {
	client, ok := r.clients[name]
	if !ok {
		return ErrClientNotFound
	}
	return client.Deliver(Reply{To: name, Text: text})
}

// RoomSnapshot is a point-in-time view of one room.
type RoomSnapshot struct {
	Name    string
	Members []string
	Size    int
}

// Snapshot returns every room with its members in creation order.
func (r *Registry) Snapshot() []RoomSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RoomSnapshot, 0, len(r.order))
	for _, name := range r.order {
		room := r.rooms[name]
		out = append(out, RoomSnapshot{Name: name, Members: room.Members(), Size: room.Len()})
	}
	return out
}

func (r *Registry) addMemberLocked(room *Room, client string) bool {
	if !room.Add(client) {
		return false
	}
	joined, ok := r.clientRooms[client]
	if !ok {
		joined = make(map[string]struct{})
		r.clientRooms[client] = joined
	}
	joined[room.Name] = struct{}{}
	return true
}

func (r *Registry) removeMemberLocked(room *Room, client string) bool {
	if !room.Remove(client) {
		return false
	}
	if joined, ok := r.clientRooms[client]; ok {
		delete(joined, room.Name)
		if len(joined) == 0 {
			delete(r.clientRooms, client)
		}
	}
	return true
}
