package hub

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data := <-c.Send:
		return data
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestLateJoinerReceivesLatest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub(testLogger())
	go h.Run(ctx)

	h.Broadcast([]byte("one"))
	h.Broadcast([]byte("two"))

	c := NewClient("late", 4)
	h.Register(c)

	assert.Equal(t, []byte("two"), receive(t, c))
}

func TestBroadcastReachesRegisteredClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub(testLogger())
	go h.Run(ctx)

	a := NewClient("a", 4)
	b := NewClient("b", 4)
	h.Register(a)
	h.Register(b)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	h.Broadcast([]byte("snap"))

	assert.Equal(t, []byte("snap"), receive(t, a))
	assert.Equal(t, []byte("snap"), receive(t, b))
	assert.Equal(t, []byte("snap"), h.Latest())
}

func TestOfferEvictsOldest(t *testing.T) {
	c := NewClient("slow", 2)

	assert.True(t, offer(c, []byte("1")))
	assert.True(t, offer(c, []byte("2")))
	assert.False(t, offer(c, []byte("3")))

	assert.Equal(t, []byte("2"), <-c.Send)
	assert.Equal(t, []byte("3"), <-c.Send)
}

func TestUnregisterClosesSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub(testLogger())
	go h.Run(ctx)

	c := NewClient("gone", 1)
	h.Register(c)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	h.Unregister(c)
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	_, ok := <-c.Send
	assert.False(t, ok)
}

func TestRegisterAfterShutdownDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	h := NewHub(testLogger())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	live := NewClient("live", 1)
	h.Register(live)
	cancel()
	<-stopped

	_, ok := <-live.Send
	assert.False(t, ok)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 64; i++ {
			c := NewClient("late", 1)
			h.Register(c)
			h.Unregister(c)
			_, open := <-c.Send
			assert.False(t, open)
		}
		h.Unregister(live)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("register/unregister blocked after shutdown")
	}
	assert.Zero(t, h.ClientCount())
}
