package runtime

import (
	"channel-chat/contract"
	"channel-chat/domain/chat"
	"sync"
)

type Set map[string]struct{}

// Registry maps channel rooms to the live connections subscribed to them.
// A participant is one websocket connection and may sit in several rooms.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]contract.EventSink // map participant -> Sink
	roomMembers map[chat.ChannelID]Set        // map room to participants
	rooms       map[string]map[chat.ChannelID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[string]contract.EventSink),
		roomMembers: make(map[chat.ChannelID]Set),
		rooms:       make(map[string]map[chat.ChannelID]struct{}),
	}
}

// GetSinksForRoom retrieves all active sinks for a room.
// Participant ids are looked up in roomMembers then resolved through sessions,
// a participant in several rooms owns a single sink.
// Returns nil if the room doesn't exist or has no members.
func (r *Registry) GetSinksForRoom(roomID chat.ChannelID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for participantID := range members {
		if sink, exists := r.sessions[participantID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}

// Subscribe registers a participant's connection and adds it to a room.
// If the room does not yet exist in the registry, it is initialized on the fly.
func (r *Registry) Subscribe(participantID string, roomID chat.ChannelID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[participantID] = sink

	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(Set)
	}
	r.roomMembers[roomID][participantID] = struct{}{}

	if _, ok := r.rooms[participantID]; !ok {
		r.rooms[participantID] = make(map[chat.ChannelID]struct{})
	}
	r.rooms[participantID][roomID] = struct{}{}
}

// Unsubscribe removes a participant from one room.
// The session goes away with its last room, no empty set is left behind.
func (r *Registry) Unsubscribe(participantID string, roomID chat.ChannelID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribe(participantID, roomID)
}

// UnsubscribeAll removes a participant from every room, used when its connection drops.
func (r *Registry) UnsubscribeAll(participantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for roomID := range r.rooms[participantID] {
		r.unsubscribe(participantID, roomID)
	}
	delete(r.sessions, participantID)
}

// Subscriptions counts room subscriptions across all participants.
func (r *Registry) Subscriptions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, members := range r.roomMembers {
		total += len(members)
	}
	return total
}

func (r *Registry) unsubscribe(participantID string, roomID chat.ChannelID) {
	if members, ok := r.roomMembers[roomID]; ok {
		delete(members, participantID)

		// If no one is left in the room, remove the room entry entirely
		if len(members) == 0 {
			delete(r.roomMembers, roomID)
		}
	}

	if rooms, ok := r.rooms[participantID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(r.rooms, participantID)
			delete(r.sessions, participantID)
		}
	}
}
