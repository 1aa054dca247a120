package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const refreshKeyPrefix = "refresh:"

// RedisTokenStore tracks issued refresh tokens by jti. A token is valid while
// its key exists; Consumir deletes it so each refresh token is single-use.
type RedisTokenStore struct {
	rdb *redis.Client
}

func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb}
}

func (s *RedisTokenStore) Guardar(ctx context.Context, jti string, usuarioID uuid.UUID, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, refreshKeyPrefix+jti, usuarioID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("token store: set: %w", err)
	}
	return nil
}

// Consumir atomically removes jti and returns the owner. ok is false when the
// token was never issued, expired or already used.
func (s *RedisTokenStore) Consumir(ctx context.Context, jti string) (uuid.UUID, bool, error) {
	raw, err := s.rdb.GetDel(ctx, refreshKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("token store: getdel: %w", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, nil
	}
	return id, true, nil
}

func (s *RedisTokenStore) Revocar(ctx context.Context, jti string) error {
	return s.rdb.Del(ctx, refreshKeyPrefix+jti).Err()
}
