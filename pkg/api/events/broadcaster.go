package events

import (
	"sync"
	"time"
)

// Event is the canonical event payload broadcast to websocket subscribers.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Broadcaster broadcasts events to in-process subscribers.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

// NewBroadcaster creates a broadcaster instance.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe subscribes to events with a buffered channel.
func (b *Broadcaster) Subscribe(buffer int) chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[ch]; !ok {
		return
	}
	delete(b.subscribers, ch)
	close(ch)
}

// Broadcast broadcasts a generic event to all subscribers.
func (b *Broadcaster) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	subs := make([]chan Event, 0, len(b.subscribers))
	for ch := range b.subscribers {
		subs = append(subs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			// Drop on overflow to keep broadcasters non-blocking.
		}
	}
}

// BroadcastEntryAdded emits an entry creation event.
func (b *Broadcaster) BroadcastEntryAdded(sessionID, entryID, layer string, createdAt time.Time) {
	b.Broadcast(Event{
		Type: "entry.added",
		Payload: map[string]any{
			"session_id": sessionID,
			"entry_id":   entryID,
			"layer":      layer,
			"created_at": createdAt.UTC().Format(time.RFC3339Nano),
		},
	})
}

// BroadcastEntryRemoved emits an entry removal event.
func (b *Broadcaster) BroadcastEntryRemoved(sessionID, entryID string) {
	b.Broadcast(Event{
		Type: "entry.removed",
		Payload: map[string]any{
			"session_id": sessionID,
			"entry_id":   entryID,
		},
	})
}

// BroadcastCheckpointCreated emits a checkpoint creation event.
func (b *Broadcaster) BroadcastCheckpointCreated(sessionID, checkpointID string, entryCount int) {
	b.Broadcast(Event{
		Type: "checkpoint.created",
		Payload: map[string]any{
			"session_id":    sessionID,
			"checkpoint_id": checkpointID,
			"entry_count":   entryCount,
		},
	})
}

// BroadcastMemoryRestored emits a restore event.
func (b *Broadcaster) BroadcastMemoryRestored(sessionID, checkpointID string, entryCount int) {
	b.Broadcast(Event{
		Type: "memory.restored",
		Payload: map[string]any{
			"session_id":    sessionID,
			"checkpoint_id": checkpointID,
			"entry_count":   entryCount,
		},
	})
}

// Close closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, ch)
	}
}
