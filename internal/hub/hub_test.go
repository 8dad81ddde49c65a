package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnsphere/chat-service/internal/config"
)

func newRunningHub() *Hub {
	h := NewHub(config.WebSocketConfig{})
	go h.Run()
	return h
}

func recvFrame(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data := <-c.Send:
		return data
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a frame")
		return nil
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestJoinRoomAndBroadcast(t *testing.T) {
	h := newRunningHub()

	c1 := NewClient("c1", h, nil, config.WebSocketConfig{})
	c2 := NewClient("c2", h, nil, config.WebSocketConfig{})
	h.Register(c1)
	h.Register(c2)

	h.JoinRoom(c1, "roomA")
	h.JoinRoom(c2, "roomA")
	assert.Equal(t, 2, h.RoomClientCount("roomA"))

	h.BroadcastRawToRoom("roomA", []byte(`{"type":"receive_message"}`))

	assert.JSONEq(t, `{"type":"receive_message"}`, string(recvFrame(t, c1)))
	assert.JSONEq(t, `{"type":"receive_message"}`, string(recvFrame(t, c2)))
}

func TestBroadcastDoesNotLeakAcrossRooms(t *testing.T) {
	h := newRunningHub()

	c1 := NewClient("c1", h, nil, config.WebSocketConfig{})
	c2 := NewClient("c2", h, nil, config.WebSocketConfig{})
	h.Register(c1)
	h.Register(c2)

	h.JoinRoom(c1, "roomA")
	h.JoinRoom(c2, "roomB")

	h.BroadcastRawToRoom("roomA", []byte(`{"room":"A"}`))

	recvFrame(t, c1)
	assertNoFrame(t, c2)
}

func TestJoinRoomIsIdempotent(t *testing.T) {
	h := newRunningHub()

	c1 := NewClient("c1", h, nil, config.WebSocketConfig{})
	h.Register(c1)

	h.JoinRoom(c1, "roomA")
	h.JoinRoom(c1, "roomA")

	assert.Equal(t, 1, h.RoomClientCount("roomA"))

	// A double join still yields exactly one copy of each broadcast.
	h.BroadcastRawToRoom("roomA", []byte(`{"n":1}`))
	recvFrame(t, c1)
	assertNoFrame(t, c1)
}

func TestUnregisterCleansUpAllMemberships(t *testing.T) {
	h := newRunningHub()

	c1 := NewClient("c1", h, nil, config.WebSocketConfig{})
	h.Register(c1)
	h.JoinRoom(c1, "roomA")
	h.JoinRoom(c1, "roomB")

	h.Unregister(c1)

	require.Eventually(t, func() bool {
		return h.RoomClientCount("roomA") == 0 && h.RoomClientCount("roomB") == 0
	}, time.Second, 5*time.Millisecond)

	// The send channel is closed on unregister so WritePump terminates.
	_, open := <-c1.Send
	assert.False(t, open)
}

func TestBroadcastToUnknownRoomIsNoOp(t *testing.T) {
	h := newRunningHub()

	c1 := NewClient("c1", h, nil, config.WebSocketConfig{})
	h.Register(c1)
	h.JoinRoom(c1, "roomA")

	h.BroadcastRawToRoom("ghost", []byte(`{}`))
	assertNoFrame(t, c1)
}
