// Package canvas relays flow-canvas frames between clients editing the same
// project. The hub is a plain broadcast: frames are forwarded verbatim to
// every other subscriber in the room, with no merging or ordering guarantees
// beyond last write wins.
package canvas

import "sync"

// frameBuffer bounds the per-subscriber queue. A slow consumer drops frames
// rather than stalling the room; the snapshot endpoint recovers full state.
const frameBuffer = 64

type Subscriber struct {
	Frames chan []byte

	hub       *Hub
	projectID uint
}

type Hub struct {
	mu    sync.Mutex
	rooms map[uint]map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[uint]map[*Subscriber]struct{})}
}

// Join adds a subscriber to a project room and returns it. The caller must
// call Leave when done.
func (h *Hub) Join(projectID uint) *Subscriber {
	sub := &Subscriber{
		Frames:    make(chan []byte, frameBuffer),
		hub:       h,
		projectID: projectID,
	}
	h.mu.Lock()
	room, ok := h.rooms[projectID]
	if !ok {
		room = make(map[*Subscriber]struct{})
		h.rooms[projectID] = room
	}
	room[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Leave removes the subscriber from its room and closes its frame channel.
func (s *Subscriber) Leave() {
	h := s.hub
	h.mu.Lock()
	if room, ok := h.rooms[s.projectID]; ok {
		if _, present := room[s]; present {
			delete(room, s)
			close(s.Frames)
		}
		if len(room) == 0 {
			delete(h.rooms, s.projectID)
		}
	}
	h.mu.Unlock()
}

// Broadcast forwards a frame to every subscriber of the project except the
// sender. Full queues are skipped. Sends happen under the hub lock: Leave
// closes Frames under the same lock, so a send can never hit a closed channel.
// The sends are non-blocking, so the lock is held only briefly.
func (h *Hub) Broadcast(projectID uint, sender *Subscriber, frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.rooms[projectID] {
		if sub == sender {
			continue
		}
		select {
		case sub.Frames <- frame:
		default:
		}
	}
}

// RoomSize returns the number of subscribers editing a project.
func (h *Hub) RoomSize(projectID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[projectID])
}
