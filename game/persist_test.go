package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/s0930s44/BINGO/domain"
	"github.com/s0930s44/BINGO/storage"
)

func TestPersisterAppliesInOrder(t *testing.T) {
	mockStore := &MockStore{}
	var mu sync.Mutex
	var ops []string
	record := func(name string) func(mock.Arguments) {
		return func(mock.Arguments) {
			mu.Lock()
			ops = append(ops, name)
			mu.Unlock()
		}
	}
	userRec := domain.UserRecord{ConnID: "c1", Username: "alice", Room: "friday", IsAdmin: true}
	roomRec := domain.RoomRecord{Name: "friday", MemberCount: 1}
	mockStore.On("UpsertUser", mock.Anything, userRec).Return(nil).Run(record("user")).Once()
	mockStore.On("UpsertRoom", mock.Anything, roomRec).Return(nil).Run(record("room")).Once()
	mockStore.On("InsertDrawnNumber", mock.Anything, "friday", 7, 0).Return(nil).Run(record("draw")).Once()
	mockStore.On("DeleteUser", mock.Anything, "c1").Return(nil).Run(record("gone")).Once()

	p := NewPersister(mockStore)
	p.UpsertUser(userRec)
	p.UpsertRoom(roomRec)
	p.InsertDrawnNumber("friday", 7, 0)
	p.DeleteUser("c1")
	p.Close()

	assert.Equal(t, []string{"user", "room", "draw", "gone"}, ops)
	mockStore.AssertExpectations(t)
}

func TestPersisterToleratesFailures(t *testing.T) {
	mockStore := &MockStore{}
	mockStore.On("DeleteRoom", mock.Anything, "friday").Return(assert.AnError).Once()
	mockStore.On("DeleteRoom", mock.Anything, "saturday").Return(nil).Once()

	p := NewPersister(mockStore)
	p.DeleteRoom("friday")
	p.DeleteRoom("saturday")
	p.Close()

	mockStore.AssertExpectations(t)
}

func TestPersisterSyncRooms(t *testing.T) {
	t.Run("Backfills Missing Draws", func(t *testing.T) {
		mockStore := &MockStore{}
		snap := RoomSnapshot{
			Record: domain.RoomRecord{Name: "friday", MemberCount: 2, HasStarted: true},
			Drawn:  []int{5, 12, 7},
		}
		done := make(chan struct{})
		mockStore.On("CountUsersInRoom", mock.Anything, "friday").Return(1, nil).Once()
		mockStore.On("UpsertRoom", mock.Anything, snap.Record).Return(nil).Once()
		mockStore.On("ListDrawnNumbers", mock.Anything, "friday").Return([]int{5}, nil).Once()
		mockStore.On("InsertDrawnNumber", mock.Anything, "friday", 12, 1).Return(nil).Once()
		mockStore.On("InsertDrawnNumber", mock.Anything, "friday", 7, 2).Return(nil).
			Run(func(mock.Arguments) { close(done) }).Once()

		p := NewPersister(mockStore)
		defer p.Close()
		p.SyncRooms([]RoomSnapshot{snap})

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("sync pass never backfilled the draw history")
		}
		mockStore.AssertExpectations(t)
	})

	t.Run("Single Pass In Flight", func(t *testing.T) {
		mockStore := &MockStore{}
		release := make(chan struct{})
		mockStore.On("CountUsersInRoom", mock.Anything, "friday").Return(1, nil).
			Run(func(mock.Arguments) { <-release }).Once()
		mockStore.On("UpsertRoom", mock.Anything, mock.Anything).Return(nil)
		mockStore.On("ListDrawnNumbers", mock.Anything, "friday").Return([]int{}, nil)

		p := NewPersister(mockStore)
		defer p.Close()
		snapshot := []RoomSnapshot{{Record: domain.RoomRecord{Name: "friday", MemberCount: 1}}}

		p.SyncRooms(snapshot)
		p.SyncRooms(snapshot) // skipped, the first pass is still blocked
		close(release)

		require.Eventually(t, func() bool { return !p.syncing.Load() }, 2*time.Second, 10*time.Millisecond)
		mockStore.AssertNumberOfCalls(t, "CountUsersInRoom", 1)
	})

	t.Run("Count Error Aborts Room", func(t *testing.T) {
		mockStore := &MockStore{}
		mockStore.On("CountUsersInRoom", mock.Anything, "friday").Return(0, assert.AnError).Once()

		p := NewPersister(mockStore)
		defer p.Close()
		p.SyncRooms([]RoomSnapshot{{Record: domain.RoomRecord{Name: "friday", MemberCount: 1}}})

		require.Eventually(t, func() bool { return !p.syncing.Load() }, 2*time.Second, 10*time.Millisecond)
		mockStore.AssertNotCalled(t, "UpsertRoom", mock.Anything, mock.Anything)
	})

	t.Run("Backfill Race Keeps Draws Unique", func(t *testing.T) {
		store := &stallStore{MemoryStore: storage.NewMemoryStore(), release: make(chan struct{})}
		p := NewPersister(store)

		p.UpsertUser(domain.UserRecord{ConnID: "c1", Username: "alice", Room: "friday"})
		p.InsertDrawnNumber("friday", 7, 0)
		p.SyncRooms([]RoomSnapshot{{
			Record: domain.RoomRecord{Name: "friday", MemberCount: 1},
			Drawn:  []int{7},
		}})

		// The sync pass backfills 7 while the worker is still parked on the
		// user upsert queued ahead of the insert.
		require.Eventually(t, func() bool { return !p.syncing.Load() }, 2*time.Second, 10*time.Millisecond)
		close(store.release)
		p.Close()

		drawn, err := store.ListDrawnNumbers(context.Background(), "friday")
		require.NoError(t, err)
		assert.Equal(t, []int{7}, drawn)
	})
}

// stallStore wraps the in-memory backend and parks user upserts until
// released, holding every operation queued behind one while a sync pass
// runs against the live store.
type stallStore struct {
	*storage.MemoryStore
	release chan struct{}
}

func (s *stallStore) UpsertUser(ctx context.Context, user domain.UserRecord) error {
	<-s.release
	return s.MemoryStore.UpsertUser(ctx, user)
}
