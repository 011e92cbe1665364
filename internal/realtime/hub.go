// Package realtime fans committed seat transitions out to live
// subscribers.  Each showtime is a room; subscribers join a room and
// receive every broadcast as a JSON message.  Delivery is best-effort
// and at-most-once per connected session ; a slow subscriber's
// messages are dropped, never queued, because the next full seat
// layout fetch is always authoritative.
//
// When a Redis client is configured the hub bridges rooms over Redis
// pub/sub so broadcasts reach subscribers on every server instance.
// Without Redis the hub degrades to in-process fan-out.
package realtime

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "showtime:"

// subscriberBuffer is the per-session queue; sends beyond it are
// dropped rather than blocking the broadcaster.
const subscriberBuffer = 16

// Hub is the room registry.  All methods are safe for concurrent use.
type Hub struct {
	rdb *redis.Client

	mu    sync.RWMutex
	rooms map[uint64]map[chan []byte]struct{}
}

// NewHub returns a Hub.  rdb may be nil for in-process-only fan-out.
func NewHub(rdb *redis.Client) *Hub {
	return &Hub{rdb: rdb, rooms: make(map[uint64]map[chan []byte]struct{})}
}

// Start launches the Redis bridge when a client is configured.  It
// subscribes to every showtime channel and replays remote broadcasts
// into the local rooms.  Returns immediately; the bridge runs until
// ctx is cancelled.
func (h *Hub) Start(ctx context.Context) {
	if h.rdb == nil {
		return
	}
	go func() {
		sub := h.rdb.PSubscribe(ctx, channelPrefix+"*")
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				id, err := strconv.ParseUint(strings.TrimPrefix(msg.Channel, channelPrefix), 10, 64)
				if err != nil {
					continue
				}
				h.deliver(id, []byte(msg.Payload))
			}
		}
	}()
}

// Subscribe joins the showtime's room.  The returned channel receives
// broadcast payloads until leave is called.  Callers must always call
// leave, typically via defer, or the room leaks the session.
func (h *Hub) Subscribe(showtimeID uint64) (msgs <-chan []byte, leave func()) {
	ch := make(chan []byte, subscriberBuffer)
	h.mu.Lock()
	room, ok := h.rooms[showtimeID]
	if !ok {
		room = make(map[chan []byte]struct{})
		h.rooms[showtimeID] = room
	}
	room[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			if room, ok := h.rooms[showtimeID]; ok {
				delete(room, ch)
				if len(room) == 0 {
					delete(h.rooms, showtimeID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Broadcast sends v to every session in the showtime's room.  With
// Redis configured the message round-trips through pub/sub so remote
// instances deliver it too; locally it is delivered directly.  Errors
// are logged and swallowed, live delivery is fire-and-forget.
func (h *Hub) Broadcast(ctx context.Context, showtimeID uint64, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("realtime: marshal broadcast failed: %v", err)
		return
	}
	if h.rdb != nil {
		if err := h.rdb.Publish(ctx, channelPrefix+strconv.FormatUint(showtimeID, 10), payload).Err(); err != nil {
			log.Printf("realtime: redis publish failed: %v", err)
			// fall back to local delivery so this instance's
			// subscribers still see the update
			h.deliver(showtimeID, payload)
		}
		return
	}
	h.deliver(showtimeID, payload)
}

func (h *Hub) deliver(showtimeID uint64, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.rooms[showtimeID] {
		select {
		case ch <- payload:
		default:
			// subscriber too slow; drop
		}
	}
}

// RoomSize reports the number of sessions currently joined to the
// showtime's room on this instance.
func (h *Hub) RoomSize(showtimeID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[showtimeID])
}
