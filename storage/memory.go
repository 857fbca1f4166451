package storage

import (
	"context"
	"sync"

	"github.com/s0930s44/BINGO/domain"
)

// MemoryStore keeps every record in process. It is the default backend and
// the reference behavior the other adapters are tested against.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]domain.RoomRecord
	users map[string]domain.UserRecord
	drawn map[string][]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: make(map[string]domain.RoomRecord),
		users: make(map[string]domain.UserRecord),
		drawn: make(map[string][]int),
	}
}

func (m *MemoryStore) UpsertRoom(_ context.Context, room domain.RoomRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[room.Name] = room
	return nil
}

func (m *MemoryStore) DeleteRoom(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, name)
	delete(m.drawn, name)
	return nil
}

func (m *MemoryStore) UpsertUser(_ context.Context, user domain.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ConnID] = user
	return nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, connID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, connID)
	return nil
}

func (m *MemoryStore) InsertDrawnNumber(_ context.Context, room string, number, position int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.drawn[room] {
		if n == number {
			return nil
		}
	}
	m.drawn[room] = append(m.drawn[room], number)
	return nil
}

func (m *MemoryStore) ListDrawnNumbers(_ context.Context, room string) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	drawn := make([]int, len(m.drawn[room]))
	copy(drawn, m.drawn[room])
	return drawn, nil
}

func (m *MemoryStore) CountUsersInRoom(_ context.Context, room string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, user := range m.users {
		if user.Room == room {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) Close() error { return nil }
