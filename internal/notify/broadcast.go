package notify

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/starzmeet/listing-agent/internal/model"
)

// Event is a named payload destined for real-time subscribers.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Broadcaster fans events out to in-process subscribers (the SSE handlers in
// the serve command). Subscribers with full buffers miss events rather than
// slowing the pipeline down.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string]chan Event
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]chan Event)}
}

// Subscribe registers a new subscriber and returns its id and event channel.
func (b *Broadcaster) Subscribe() (string, <-chan Event) {
	id := uuid.New().String()
	ch := make(chan Event, 64)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) publish(name string, data any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- Event{Name: name, Data: data}:
		default:
			// Slow subscriber; drop rather than block the pipeline.
		}
	}
}

func (b *Broadcaster) OnProgress(p Progress) {
	b.publish("progress", p)
}

func (b *Broadcaster) OnRetryProgress(placeID string, record model.ListingRecord) {
	b.publish("retry_progress", map[string]any{
		"place_id": placeID,
		"place":    record,
	})
}

func (b *Broadcaster) OnSyncProgress(p SyncProgress) {
	b.publish("sync_progress", p)
}

func (b *Broadcaster) OnError(msg string) {
	b.publish("error", map[string]string{"message": msg})
}

func (b *Broadcaster) OnInfo(msg string) {
	b.publish("info", map[string]string{"message": msg})
}

// Encode renders an event as a JSON string for the SSE data field.
func (e Event) Encode() string {
	data, err := json.Marshal(e)
	if err != nil {
		return `{"event":"error","data":{"message":"encode failure"}}`
	}
	return string(data)
}
