package repository

import (
	"context"
	"time"

	"messenger/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const presenceKeyPrefix = "presence:"

// PresenceRepository - быстрый кеш "кто сейчас доступен" в Redis.
// Не является источником истины: после рестарта процесса пуст,
// пользователи выглядят offline до переподключения.
type PresenceRepository interface {
	SetOnline(ctx context.Context, userID uuid.UUID, ttl time.Duration) error
	SetOffline(ctx context.Context, userID uuid.UUID) error
	IsOnline(ctx context.Context, userID uuid.UUID) (bool, error)
}

type presenceRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewPresenceRepository(redis *redis.Client, log logger.Logger) PresenceRepository {
	return &presenceRepository{redis: redis, log: log}
}

func (r *presenceRepository) SetOnline(ctx context.Context, userID uuid.UUID, ttl time.Duration) error {
	err := r.redis.Set(ctx, presenceKeyPrefix+userID.String(), "1", ttl).Err()
	if err != nil {
		r.log.Error("Failed to set presence key", "error", err, "user_id", userID)
	}
	return err
}

func (r *presenceRepository) SetOffline(ctx context.Context, userID uuid.UUID) error {
	err := r.redis.Del(ctx, presenceKeyPrefix+userID.String()).Err()
	if err != nil {
		r.log.Error("Failed to delete presence key", "error", err, "user_id", userID)
	}
	return err
}

func (r *presenceRepository) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := r.redis.Exists(ctx, presenceKeyPrefix+userID.String()).Result()
	if err != nil {
		r.log.Error("Failed to check presence key", "error", err, "user_id", userID)
		return false, err
	}
	return n > 0, nil
}
