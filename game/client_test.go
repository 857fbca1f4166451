package game

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pumpHub(t *testing.T) *Hub {
	t.Helper()
	// Not started: the pumps only post into its buffered channels.
	return NewHub(HubConfig{ReconcileInterval: time.Minute}, NewSecretVerifier("hunter2"), nopPersistence{}, NewTickerGen())
}

func TestReadPump(t *testing.T) {
	t.Parallel()

	t.Run("Read Error Reports Disconnect", func(t *testing.T) {
		t.Parallel()
		mockConn := &MockConn{}
		mockConn.On("Read").Return([]byte{}, assert.AnError)
		h := pumpHub(t)
		c := newClient("c1", mockConn, h)

		wg := sync.WaitGroup{}
		wg.Add(1)
		go func() { defer wg.Done(); c.ReadPump() }()
		wg.Wait()

		assert.Equal(t, c, <-h.unregister)
		mockConn.AssertExpectations(t)
	})

	t.Run("Garbage Frames Dropped", func(t *testing.T) {
		t.Parallel()
		mockConn := &MockConn{}
		mockConn.On("Read").Return([]byte{1, 5}, nil).Once()
		mockConn.On("Read").Return([]byte{}, assert.AnError).Once()
		h := pumpHub(t)
		c := newClient("c1", mockConn, h)

		wg := sync.WaitGroup{}
		wg.Add(1)
		go func() { defer wg.Done(); c.ReadPump() }()
		wg.Wait()

		assert.Empty(t, h.inbound)
		assert.Equal(t, c, <-h.unregister)
		mockConn.AssertExpectations(t)
	})

	t.Run("Good Frame Delivered", func(t *testing.T) {
		t.Parallel()
		frame, err := encodeEvent(EventRequestRoomsList, nil)
		require.NoError(t, err)
		mockConn := &MockConn{}
		mockConn.On("Read").Return(frame, nil).Once()
		mockConn.On("Read").Return([]byte{}, assert.AnError).Once()
		h := pumpHub(t)
		c := newClient("c1", mockConn, h)

		wg := sync.WaitGroup{}
		wg.Add(1)
		go func() { defer wg.Done(); c.ReadPump() }()
		wg.Wait()

		require.Len(t, h.inbound, 1)
		ev := <-h.inbound
		assert.Equal(t, c, ev.from)
		assert.Equal(t, EventRequestRoomsList, ev.env.Event)
		mockConn.AssertExpectations(t)
	})

	t.Run("Spam Frames Rate Limited", func(t *testing.T) {
		t.Parallel()
		frame, err := encodeEvent(EventRequestRoomsList, nil)
		require.NoError(t, err)
		mockConn := &MockConn{}
		mockConn.On("Read").Return(frame, nil).Times(50)
		mockConn.On("Read").Return([]byte{}, assert.AnError).Once()
		h := pumpHub(t)
		c := newClient("c1", mockConn, h)

		wg := sync.WaitGroup{}
		wg.Add(1)
		go func() { defer wg.Done(); c.ReadPump() }()
		wg.Wait()

		// Burst allowance only; the rest of the flood is shed.
		assert.Len(t, h.inbound, 20)
		mockConn.AssertExpectations(t)
	})
}

func TestWritePump(t *testing.T) {
	t.Parallel()

	t.Run("Queue Closing Releases The Goroutine", func(t *testing.T) {
		t.Parallel()
		mockConn := &MockConn{}
		mockConn.On("Close", "").Return().Once()
		c := newClient("c1", mockConn, pumpHub(t))

		wg := sync.WaitGroup{}
		wg.Add(1)
		go func() { defer wg.Done(); c.WritePump() }()
		close(c.send)
		wg.Wait()

		mockConn.AssertExpectations(t)
	})

	t.Run("Write Error Releases The Goroutine", func(t *testing.T) {
		t.Parallel()
		data := []byte{1, 2, 3}
		mockConn := &MockConn{}
		mockConn.On("Write", data).Return(assert.AnError).Once()
		mockConn.On("Close", "").Return().Once()
		c := newClient("c1", mockConn, pumpHub(t))

		wg := sync.WaitGroup{}
		wg.Add(1)
		go func() { defer wg.Done(); c.WritePump() }()
		c.send <- data
		wg.Wait()

		mockConn.AssertExpectations(t)
	})

	t.Run("Correct Data Writing", func(t *testing.T) {
		t.Parallel()
		data := []byte{1, 2, 3}
		mockConn := &MockConn{}
		mockConn.On("Write", data).Return(nil).Once()
		mockConn.On("Write", data).Return(assert.AnError).Once()
		mockConn.On("Close", "").Return().Once()
		c := newClient("c1", mockConn, pumpHub(t))

		wg := sync.WaitGroup{}
		wg.Add(1)
		go func() { defer wg.Done(); c.WritePump() }()
		c.send <- data
		c.send <- data
		wg.Wait()

		mockConn.AssertExpectations(t)
	})

	t.Run("Keepalive Pings Until One Fails", func(t *testing.T) {
		t.Parallel()
		mockConn := &MockConn{}
		mockConn.On("Ping").Return(nil).Once()
		mockConn.On("Ping").Return(assert.AnError).Once()
		mockConn.On("Close", "").Return().Once()
		c := newClient("c1", mockConn, pumpHub(t))
		c.pingEvery = 5 * time.Millisecond

		wg := sync.WaitGroup{}
		wg.Add(1)
		go func() { defer wg.Done(); c.WritePump() }()
		wg.Wait()

		mockConn.AssertExpectations(t)
	})
}
