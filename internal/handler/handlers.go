package handler

import (
	"messenger/internal/config"
	"messenger/internal/realtime"
	"messenger/internal/service"
	"messenger/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	User         *UserHandler
	Conversation *ConversationHandler
	Moderation   *ModerationHandler
	Suggest      *SuggestHandler
	WebSocket    *WebSocketHandler
}

func NewHandlers(
	services *service.Services,
	hub *realtime.Hub,
	db *pgxpool.Pool,
	redisClient *redis.Client,
	cfg *config.Config,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(db, redisClient),
		Auth:         NewAuthHandler(services.Auth, log),
		User:         NewUserHandler(services.User, log),
		Conversation: NewConversationHandler(services.Conversation, log),
		Moderation:   NewModerationHandler(services.Moderation, log),
		Suggest:      NewSuggestHandler(services.Suggest, log),
		WebSocket:    NewWebSocketHandler(hub, services.Conversation, services.Presence, cfg.Realtime, log),
	}
}
