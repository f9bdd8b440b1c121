package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xiaot623/newsstream/internal/protocol"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
	return h
}

func errorEvent(msg string) *protocol.ErrorMessage {
	return &protocol.ErrorMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeError},
		Message:     msg,
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	h := startHub(t)
	conn := h.NewConnection(nil)

	h.Register(conn)
	assert.Eventually(t, func() bool { return h.GetConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	h.Unregister(conn)
	assert.Eventually(t, func() bool { return h.GetConnectionCount() == 0 }, time.Second, 5*time.Millisecond)

	// Second unregister is a no-op.
	h.Unregister(conn)
}

func TestSendQueuesEncodedEvent(t *testing.T) {
	h := startHub(t)
	conn := h.NewConnection(nil)
	h.Register(conn)

	require.NoError(t, conn.Send(errorEvent("boom")))

	data := <-conn.Queue()
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "error", got["type"])
	assert.Equal(t, "boom", got["message"])
}

func TestSendAfterUnregisterFails(t *testing.T) {
	h := startHub(t)
	conn := h.NewConnection(nil)
	h.Register(conn)
	h.Unregister(conn)

	assert.ErrorIs(t, conn.Send(errorEvent("late")), ErrConnectionClosed)

	_, ok := <-conn.Queue()
	assert.False(t, ok)
}

func TestSendBufferFull(t *testing.T) {
	conn := NewHub().NewConnection(nil)
	for i := 0; i < sendQueueSize; i++ {
		require.NoError(t, conn.Send(errorEvent("x")))
	}
	assert.ErrorIs(t, conn.Send(errorEvent("overflow")), ErrBufferFull)
}

func TestRunClosesConnectionsOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	conn := h.NewConnection(nil)
	h.Register(conn)
	cancel()
	<-stopped

	_, ok := <-conn.Queue()
	assert.False(t, ok)
	assert.Equal(t, 0, h.GetConnectionCount())

	// Calls after shutdown do not block.
	h.Unregister(conn)
	late := h.NewConnection(nil)
	h.Register(late)
	assert.ErrorIs(t, late.Send(errorEvent("x")), ErrConnectionClosed)
}
