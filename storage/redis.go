package storage

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/encoding/json"

	"github.com/s0930s44/BINGO/domain"
)

// Key layout, one namespace per record kind:
//
//	bingo:user:<connID>       user record, JSON
//	bingo:room:<name>         room record, JSON
//	bingo:room:<name>:users   set of member conn ids
//	bingo:room:<name>:drawn   sorted set of drawn numbers scored by draw position
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, wrap(err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) UpsertRoom(ctx context.Context, room domain.RoomRecord) error {
	data, err := json.Marshal(room)
	if err != nil {
		return wrap(err)
	}
	return wrap(s.client.Set(ctx, roomKey(room.Name), data, 0).Err())
}

func (s *RedisStore) DeleteRoom(ctx context.Context, name string) error {
	return wrap(s.client.Del(ctx, roomKey(name), roomUsersKey(name), roomDrawnKey(name)).Err())
}

func (s *RedisStore) UpsertUser(ctx context.Context, user domain.UserRecord) error {
	data, err := json.Marshal(user)
	if err != nil {
		return wrap(err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, userKey(user.ConnID), data, 0)
	pipe.SAdd(ctx, roomUsersKey(user.Room), user.ConnID)
	_, err = pipe.Exec(ctx)
	return wrap(err)
}

// DeleteUser reads the record back first so the membership set it belongs
// to can be cleaned up in the same pipeline.
func (s *RedisStore) DeleteUser(ctx context.Context, connID string) error {
	data, err := s.client.Get(ctx, userKey(connID)).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return wrap(err)
	}
	var user domain.UserRecord
	if err := json.Unmarshal(data, &user); err != nil {
		return wrap(err)
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, userKey(connID))
	pipe.SRem(ctx, roomUsersKey(user.Room), connID)
	_, err = pipe.Exec(ctx)
	return wrap(err)
}

// InsertDrawnNumber records the number at its draw position. ZADD NX keeps
// a single entry per number, so replaying an insert leaves the set unchanged
// the same way the SQL backends swallow a conflicting row.
func (s *RedisStore) InsertDrawnNumber(ctx context.Context, room string, number, position int) error {
	return wrap(s.client.ZAddNX(ctx, roomDrawnKey(room), redis.Z{
		Score:  float64(position),
		Member: number,
	}).Err())
}

func (s *RedisStore) ListDrawnNumbers(ctx context.Context, room string) ([]int, error) {
	values, err := s.client.ZRange(ctx, roomDrawnKey(room), 0, -1).Result()
	if err != nil {
		return nil, wrap(err)
	}
	drawn := make([]int, 0, len(values))
	for _, v := range values {
		number, err := strconv.Atoi(v)
		if err != nil {
			return nil, wrap(err)
		}
		drawn = append(drawn, number)
	}
	return drawn, nil
}

func (s *RedisStore) CountUsersInRoom(ctx context.Context, room string) (int, error) {
	count, err := s.client.SCard(ctx, roomUsersKey(room)).Result()
	return int(count), wrap(err)
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func userKey(connID string) string    { return "bingo:user:" + connID }
func roomKey(name string) string      { return "bingo:room:" + name }
func roomUsersKey(name string) string { return roomKey(name) + ":users" }
func roomDrawnKey(name string) string { return roomKey(name) + ":drawn" }
