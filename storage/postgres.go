package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/s0930s44/BINGO/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS rooms (
	name TEXT PRIMARY KEY,
	member_count INTEGER NOT NULL DEFAULT 0,
	has_started BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE IF NOT EXISTS users (
	conn_id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	room TEXT NOT NULL,
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
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

// PostgresStore persists to a shared PostgreSQL server through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, wrapPg(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapPg(err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, wrapPg(err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) UpsertRoom(ctx context.Context, room domain.RoomRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO rooms (name, member_count, has_started) VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE SET member_count = EXCLUDED.member_count, has_started = EXCLUDED.has_started`,
		room.Name, room.MemberCount, room.HasStarted)
	return wrapPg(err)
}

// DeleteRoom removes the room together with its draw history.
func (s *PostgresStore) DeleteRoom(ctx context.Context, name string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrapPg(err)
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `DELETE FROM drawn_numbers WHERE room = $1`, name); err != nil {
		return wrapPg(err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM rooms WHERE name = $1`, name); err != nil {
		return wrapPg(err)
	}
	return wrapPg(tx.Commit(ctx))
}

func (s *PostgresStore) UpsertUser(ctx context.Context, user domain.UserRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (conn_id, username, room, is_admin, progress) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (conn_id) DO UPDATE SET username = EXCLUDED.username, room = EXCLUDED.room,
			is_admin = EXCLUDED.is_admin, progress = EXCLUDED.progress`,
		user.ConnID, user.Username, user.Room, user.IsAdmin, user.Progress)
	return wrapPg(err)
}

func (s *PostgresStore) DeleteUser(ctx context.Context, connID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM users WHERE conn_id = $1`, connID)
	return wrapPg(err)
}

func (s *PostgresStore) InsertDrawnNumber(ctx context.Context, room string, number, position int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO drawn_numbers (room, number, position) VALUES ($1, $2, $3)
		 ON CONFLICT (room, number) DO NOTHING`,
		room, number, position)
	return wrapPg(err)
}

func (s *PostgresStore) ListDrawnNumbers(ctx context.Context, room string) ([]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT number FROM drawn_numbers WHERE room = $1 ORDER BY position`, room)
	if err != nil {
		return nil, wrapPg(err)
	}
	defer rows.Close()

	var drawn []int
	for rows.Next() {
		var number int
		if err := rows.Scan(&number); err != nil {
			return nil, wrapPg(err)
		}
		drawn = append(drawn, number)
	}
	return drawn, wrapPg(rows.Err())
}

func (s *PostgresStore) CountUsersInRoom(ctx context.Context, room string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE room = $1`, room).Scan(&count)
	return count, wrapPg(err)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// wrapPg surfaces the server-side error code when there is one.
func wrapPg(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%w: %s (%s)", domain.ErrStorage, pgErr.Message, pgErr.Code)
	}
	return wrap(err)
}
