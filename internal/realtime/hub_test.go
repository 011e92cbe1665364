package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case payload := <-ch:
		return payload
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
		return nil
	}
}

func TestBroadcastReachesRoomOnly(t *testing.T) {
	h := NewHub(nil)
	ctx := context.Background()

	a, leaveA := h.Subscribe(42)
	defer leaveA()
	b, leaveB := h.Subscribe(42)
	defer leaveB()
	other, leaveOther := h.Subscribe(99)
	defer leaveOther()

	h.Broadcast(ctx, 42, map[string]any{"seat_id": 7, "status": "blocked"})

	var got map[string]any
	require.NoError(t, json.Unmarshal(recv(t, a), &got))
	assert.Equal(t, "blocked", got["status"])
	require.NoError(t, json.Unmarshal(recv(t, b), &got))
	assert.Equal(t, float64(7), got["seat_id"])

	select {
	case <-other:
		t.Fatal("room 99 received room 42 broadcast")
	default:
	}
}

func TestLeaveRemovesSubscriber(t *testing.T) {
	h := NewHub(nil)

	_, leaveA := h.Subscribe(7)
	b, leaveB := h.Subscribe(7)
	defer leaveB()
	assert.Equal(t, 2, h.RoomSize(7))

	leaveA()
	leaveA() // second call is a no-op
	assert.Equal(t, 1, h.RoomSize(7))

	h.Broadcast(context.Background(), 7, "ping")
	assert.NotNil(t, recv(t, b))

	leaveB()
	assert.Equal(t, 0, h.RoomSize(7))
}

func TestSlowSubscriberIsDroppedNotBlocked(t *testing.T) {
	h := NewHub(nil)
	ctx := context.Background()

	ch, leave := h.Subscribe(1)
	defer leave()

	// Fill the buffer and keep going; extra messages must be dropped
	// without blocking the broadcaster.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			h.Broadcast(ctx, 1, i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}
	assert.Len(t, ch, subscriberBuffer)
}
