package service

import (
	"context"
	"strings"

	"messenger/internal/domain"
	"messenger/internal/repository"
	apperrors "messenger/pkg/errors"
	"messenger/pkg/logger"
)

type ModerationService interface {
	FlagRoom(ctx context.Context, actor *domain.User, conversationID int64, reason string) (*domain.Flag, error)
	FlagMessage(ctx context.Context, actor *domain.User, conversationID, messageID int64, reason string) (*domain.Flag, error)
	ListFlags(ctx context.Context, actor *domain.User, filter domain.FlagFilter) ([]*domain.Flag, error)
	ResolveFlag(ctx context.Context, actor *domain.User, flagID int64, action, note string) (*domain.Flag, error)
}

type moderationService struct {
	moderationRepo repository.ModerationRepository
	convRepo       repository.ConversationRepository
	messageRepo    repository.MessageRepository
	log            logger.Logger
}

func NewModerationService(
	moderationRepo repository.ModerationRepository,
	convRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	log logger.Logger,
) ModerationService {
	return &moderationService{
		moderationRepo: moderationRepo,
		convRepo:       convRepo,
		messageRepo:    messageRepo,
		log:            log,
	}
}

// FlagRoom создает жалобу на диалог целиком
func (s *moderationService) FlagRoom(ctx context.Context, actor *domain.User, conversationID int64, reason string) (*domain.Flag, error) {
	if !domain.CanModerate(actor.Role, actor.IsSuperuser) {
		return nil, apperrors.ErrForbidden
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.NewAPIError("reason is required", 400)
	}

	if _, err := s.convRepo.GetByID(ctx, conversationID); err != nil {
		return nil, err
	}

	flag := &domain.Flag{
		Type:           domain.FlagTypeRoom,
		Status:         domain.FlagStatusPending,
		ConversationID: conversationID,
		ReportedBy:     actor.ID,
		Reason:         reason,
	}

	if err := s.moderationRepo.CreateFlag(ctx, flag); err != nil {
		return nil, err
	}

	s.log.Info("Room flagged", "flag_id", flag.ID, "conversation_id", conversationID, "reported_by", actor.ID)
	return flag, nil
}

// FlagMessage создает жалобу на сообщение; жалоба всегда указывает на
// диалог, которому сообщение принадлежит, и он обязан совпасть с путем запроса
func (s *moderationService) FlagMessage(ctx context.Context, actor *domain.User, conversationID, messageID int64, reason string) (*domain.Flag, error) {
	if !domain.CanModerate(actor.Role, actor.IsSuperuser) {
		return nil, apperrors.ErrForbidden
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.NewAPIError("reason is required", 400)
	}

	// Сообщение должно существовать именно в этом диалоге
	message, err := s.messageRepo.GetByIDInConversation(ctx, messageID, conversationID)
	if err != nil {
		return nil, err
	}

	flag := &domain.Flag{
		Type:           domain.FlagTypeMessage,
		Status:         domain.FlagStatusPending,
		ConversationID: message.ConversationID,
		MessageID:      &message.ID,
		ReportedBy:     actor.ID,
		Reason:         reason,
	}

	if err := s.moderationRepo.CreateFlag(ctx, flag); err != nil {
		return nil, err
	}

	s.log.Info("Message flagged", "flag_id", flag.ID, "message_id", messageID, "reported_by", actor.ID)
	return flag, nil
}

func (s *moderationService) ListFlags(ctx context.Context, actor *domain.User, filter domain.FlagFilter) ([]*domain.Flag, error) {
	if !domain.CanModerate(actor.Role, actor.IsSuperuser) {
		return nil, apperrors.ErrForbidden
	}

	// Без явного фильтра статуса показываем очередь ожидающих
	if filter.Status == "" {
		filter.Status = domain.FlagStatusPending
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}

	return s.moderationRepo.ListFlags(ctx, filter)
}

// ResolveFlag проводит резолюцию: одна запись аудита, статус resolved,
// для action=delete - каскадное удаление цели.
// Статус ставится resolved для любого action, включая "dismiss".
func (s *moderationService) ResolveFlag(ctx context.Context, actor *domain.User, flagID int64, action, note string) (*domain.Flag, error) {
	if !domain.CanModerate(actor.Role, actor.IsSuperuser) {
		return nil, apperrors.ErrForbidden
	}
	if strings.TrimSpace(action) == "" {
		return nil, apperrors.NewAPIError("action is required", 400)
	}

	flag, err := s.moderationRepo.GetFlagByID(ctx, flagID)
	if err != nil {
		return nil, err
	}

	flag.Status = domain.FlagStatusResolved
	if note != "" {
		flag.ModeratorNote = &note
	}

	logEntry := &domain.ModerationLog{
		FlagID:      &flag.ID,
		Action:      action,
		Note:        note,
		ModeratorID: actor.ID,
	}

	if err := s.moderationRepo.Resolve(ctx, flag, logEntry); err != nil {
		return nil, err
	}

	s.log.Info("Flag resolved",
		"flag_id", flag.ID, "action", action, "moderator_id", actor.ID, "flag_type", flag.Type)
	return flag, nil
}
