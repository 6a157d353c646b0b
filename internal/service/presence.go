package service

import (
	"context"
	"time"

	"messenger/internal/repository"
	"messenger/pkg/logger"

	"github.com/google/uuid"
)

// PresenceService переключает видимый статус пользователя.
// Истина живет в колонке users.is_online; ключ в Redis - быстрый кеш
// доступности, пересобираемый с нуля после рестарта.
type PresenceService interface {
	SetOnline(ctx context.Context, userID uuid.UUID, online bool) error
	IsOnline(ctx context.Context, userID uuid.UUID) (bool, error)
}

type presenceService struct {
	userRepo     repository.UserRepository
	presenceRepo repository.PresenceRepository
	ttl          time.Duration
	log          logger.Logger
}

func NewPresenceService(userRepo repository.UserRepository, presenceRepo repository.PresenceRepository, ttl time.Duration, log logger.Logger) PresenceService {
	return &presenceService{
		userRepo:     userRepo,
		presenceRepo: presenceRepo,
		ttl:          ttl,
		log:          log,
	}
}

// SetOnline идемпотентен; повторные вызовы с тем же значением безвредны.
// Подсчета соединений нет: последний disconnect выигрывает.
func (s *presenceService) SetOnline(ctx context.Context, userID uuid.UUID, online bool) error {
	if err := s.userRepo.SetOnline(ctx, userID, online); err != nil {
		return err
	}

	var err error
	if online {
		err = s.presenceRepo.SetOnline(ctx, userID, s.ttl)
	} else {
		err = s.presenceRepo.SetOffline(ctx, userID)
	}
	if err != nil {
		// Кеш не критичен: колонка в БД уже обновлена
		s.log.Warn("Failed to update presence cache", "error", err, "user_id", userID, "online", online)
	}

	return nil
}

func (s *presenceService) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	online, err := s.presenceRepo.IsOnline(ctx, userID)
	if err == nil {
		return online, nil
	}

	// Redis недоступен - читаем колонку
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsOnline, nil
}
