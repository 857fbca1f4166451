package game

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/s0930s44/BINGO/domain"
)

// --- Conn ---

type MockConn struct {
	mock.Mock
}

func (m *MockConn) Read() ([]byte, error) {
	args := m.Called()
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockConn) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockConn) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockConn) Close(reason string) {
	m.Called(reason)
}

// --- PeriodicTickerChannelCreator ---

type MockPeriodicTickerChannelCreator struct {
	mock.Mock
}

func (m *MockPeriodicTickerChannelCreator) Create(duration time.Duration) <-chan time.Time {
	args := m.Called(duration)
	return args.Get(0).(chan time.Time)
}

// --- Persistence ---

type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) UpsertRoom(room domain.RoomRecord) {
	m.Called(room)
}

func (m *MockPersistence) DeleteRoom(name string) {
	m.Called(name)
}

func (m *MockPersistence) UpsertUser(user domain.UserRecord) {
	m.Called(user)
}

func (m *MockPersistence) DeleteUser(connID string) {
	m.Called(connID)
}

func (m *MockPersistence) InsertDrawnNumber(roomName string, number, position int) {
	m.Called(roomName, number, position)
}

func (m *MockPersistence) SyncRooms(snapshot []RoomSnapshot) {
	m.Called(snapshot)
}

// --- Store ---

type MockStore struct {
	mock.Mock
}

func (m *MockStore) UpsertRoom(ctx context.Context, room domain.RoomRecord) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockStore) DeleteRoom(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockStore) UpsertUser(ctx context.Context, user domain.UserRecord) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockStore) DeleteUser(ctx context.Context, connID string) error {
	args := m.Called(ctx, connID)
	return args.Error(0)
}

func (m *MockStore) InsertDrawnNumber(ctx context.Context, room string, number, position int) error {
	args := m.Called(ctx, room, number, position)
	return args.Error(0)
}

func (m *MockStore) ListDrawnNumbers(ctx context.Context, room string) ([]int, error) {
	args := m.Called(ctx, room)
	return args.Get(0).([]int), args.Error(1)
}

func (m *MockStore) CountUsersInRoom(ctx context.Context, room string) (int, error) {
	args := m.Called(ctx, room)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// nopPersistence is for tests that only care about the event flow.
type nopPersistence struct{}

func (nopPersistence) UpsertRoom(domain.RoomRecord)       {}
func (nopPersistence) DeleteRoom(string)                  {}
func (nopPersistence) UpsertUser(domain.UserRecord)       {}
func (nopPersistence) DeleteUser(string)                  {}
func (nopPersistence) InsertDrawnNumber(string, int, int) {}
func (nopPersistence) SyncRooms([]RoomSnapshot)           {}

// fakeConn scripts the remote side of a connection: frames pushed into inbox
// come out of Read, frames the server writes land in outbox.
type fakeConn struct {
	inbox     chan []byte
	outbox    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbox:  make(chan []byte, 16),
		outbox: make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (fc *fakeConn) Read() ([]byte, error) {
	select {
	case data := <-fc.inbox:
		return data, nil
	case <-fc.closed:
		return nil, io.EOF
	}
}

func (fc *fakeConn) Write(data []byte) error {
	select {
	case fc.outbox <- data:
		return nil
	case <-fc.closed:
		return io.ErrClosedPipe
	}
}

func (fc *fakeConn) Ping() error { return nil }

func (fc *fakeConn) Close(string) {
	fc.closeOnce.Do(func() { close(fc.closed) })
}
