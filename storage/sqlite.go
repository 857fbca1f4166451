package storage

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/s0930s44/BINGO/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rooms (
	name TEXT PRIMARY KEY,
	member_count INTEGER NOT NULL DEFAULT 0,
	has_started INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS users (
	conn_id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	room TEXT NOT NULL,
	is_admin INTEGER NOT NULL DEFAULT 0,
	progress INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS drawn_numbers (
	room TEXT NOT NULL,
	number INTEGER NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (room, number)
);
CREATE INDEX IF NOT EXISTS idx_users_room ON users (room);
`

// SQLiteStore persists to an embedded database file. Single-node
// deployments get durability without running a separate server.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, wrap(err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, wrap(err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) UpsertRoom(ctx context.Context, room domain.RoomRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (name, member_count, has_started) VALUES (?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET member_count = excluded.member_count, has_started = excluded.has_started`,
		room.Name, room.MemberCount, room.HasStarted)
	return wrap(err)
}

// DeleteRoom removes the room together with its draw history.
func (s *SQLiteStore) DeleteRoom(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM drawn_numbers WHERE room = ?`, name); err != nil {
		return wrap(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE name = ?`, name); err != nil {
		return wrap(err)
	}
	return wrap(tx.Commit())
}

func (s *SQLiteStore) UpsertUser(ctx context.Context, user domain.UserRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (conn_id, username, room, is_admin, progress) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (conn_id) DO UPDATE SET username = excluded.username, room = excluded.room,
			is_admin = excluded.is_admin, progress = excluded.progress`,
		user.ConnID, user.Username, user.Room, user.IsAdmin, user.Progress)
	return wrap(err)
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, connID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE conn_id = ?`, connID)
	return wrap(err)
}

func (s *SQLiteStore) InsertDrawnNumber(ctx context.Context, room string, number, position int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO drawn_numbers (room, number, position) VALUES (?, ?, ?)
		 ON CONFLICT (room, number) DO NOTHING`,
		room, number, position)
	return wrap(err)
}

func (s *SQLiteStore) ListDrawnNumbers(ctx context.Context, room string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT number FROM drawn_numbers WHERE room = ? ORDER BY position`, room)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	var drawn []int
	for rows.Next() {
		var number int
		if err := rows.Scan(&number); err != nil {
			return nil, wrap(err)
		}
		drawn = append(drawn, number)
	}
	return drawn, wrap(rows.Err())
}

func (s *SQLiteStore) CountUsersInRoom(ctx context.Context, room string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE room = ?`, room).Scan(&count)
	return count, wrap(err)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
