package service

import (
	"messenger/internal/config"
	"messenger/internal/repository"
	"messenger/pkg/logger"
)

type Services struct {
	Auth         AuthService
	User         UserService
	Conversation ConversationService
	Moderation   ModerationService
	Presence     PresenceService
	Suggest      SuggestService
	RateLimit    RateLimitService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, log logger.Logger) *Services {
	suggest := NewSuggestService(repos.Suggest, log)

	return &Services{
		Auth:         NewAuthService(repos.User, cfg.JWT, log),
		User:         NewUserService(repos.User, log),
		Conversation: NewConversationService(repos.Conversation, repos.Message, repos.User, suggest, log),
		Moderation:   NewModerationService(repos.Moderation, repos.Conversation, repos.Message, log),
		Presence:     NewPresenceService(repos.User, repos.Presence, cfg.Realtime.PresenceTTL, log),
		Suggest:      suggest,
		RateLimit:    NewRateLimitService(repos.RateLimit, log),
	}
}
