package domain

import "context"

// UserRecord is the persisted shape of one live session.
type UserRecord struct {
	ConnID   string
	Username string
	Room     string
	IsAdmin  bool
	Progress int
}

// RoomRecord is the persisted shape of one active room.
type RoomRecord struct {
	Name        string
	MemberCount int
	HasStarted  bool
}

// Store is the persistence contract consumed by the core. Every call is
// best-effort: a failing adapter degrades the process to in-memory-only
// operation for that call, it never aborts gameplay. InsertDrawnNumber must
// ignore a number already recorded for its room, so replays of the same
// draw are harmless. DeleteRoom also wipes the room's drawn numbers.
type Store interface {
	UpsertRoom(ctx context.Context, room RoomRecord) error
	DeleteRoom(ctx context.Context, name string) error
	UpsertUser(ctx context.Context, user UserRecord) error
	DeleteUser(ctx context.Context, connID string) error
	InsertDrawnNumber(ctx context.Context, room string, number, position int) error
	ListDrawnNumbers(ctx context.Context, room string) ([]int, error)
	CountUsersInRoom(ctx context.Context, room string) (int, error)
	Close() error
}
