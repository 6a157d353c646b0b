package service

import (
	"context"
	"strings"

	"messenger/internal/domain"
	"messenger/internal/repository"
	apperrors "messenger/pkg/errors"
	"messenger/pkg/logger"

	"github.com/google/uuid"
)

type ConversationService interface {
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.ConversationPreview, error)
	CreateOrGet(ctx context.Context, userID, participantID uuid.UUID) (*domain.Conversation, bool, error)
	Messages(ctx context.Context, conversationID int64, viewerID uuid.UUID, limit, offset int) ([]*domain.Message, error)
	SendMessage(ctx context.Context, conversationID int64, sender *domain.User, content string) (*domain.Message, error)
	AppendMessage(ctx context.Context, conversationID int64, sender *domain.User, content string) (*domain.Message, error)
	MarkRead(ctx context.Context, messageID int64, viewerID uuid.UUID) (*domain.Message, error)
	IsParticipant(ctx context.Context, conversationID int64, userID uuid.UUID) (bool, error)
}

type conversationService struct {
	convRepo    repository.ConversationRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	suggest     SuggestService
	log         logger.Logger
}

func NewConversationService(
	convRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	suggest SuggestService,
	log logger.Logger,
) ConversationService {
	return &conversationService{
		convRepo:    convRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		suggest:     suggest,
		log:         log,
	}
}

func (s *conversationService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.ConversationPreview, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.convRepo.ListByParticipant(ctx, userID, limit, offset)
}

// CreateOrGet возвращает существующий диалог пары или создает новый.
// Второе значение - true, если диалог был создан этим вызовом.
func (s *conversationService) CreateOrGet(ctx context.Context, userID, participantID uuid.UUID) (*domain.Conversation, bool, error) {
	if participantID == userID {
		return nil, false, apperrors.NewAPIError("cannot start a conversation with yourself", 400)
	}

	// Собеседник должен существовать
	participant, err := s.userRepo.GetByID(ctx, participantID)
	if err != nil {
		return nil, false, apperrors.ErrUserNotFound
	}

	requester, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, false, apperrors.ErrUnauthorized
	}

	existing, err := s.convRepo.GetByPairKey(ctx, domain.PairKey(userID, participantID))
	if err == nil {
		existing.Participants = []*domain.User{requester, participant}
		return existing, false, nil
	}

	conv, err := s.convRepo.CreateForPair(ctx, userID, participantID)
	if err != nil {
		s.log.Error("Failed to create conversation", "error", err, "user_id", userID, "participant_id", participantID)
		return nil, false, err
	}

	conv.Participants = []*domain.User{requester, participant}
	return conv, true, nil
}

// Messages для не-участника возвращает пустой список, а не ошибку:
// чтение деградирует молча, чтобы не раскрывать существование диалога
func (s *conversationService) Messages(ctx context.Context, conversationID int64, viewerID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.messageRepo.ListForViewer(ctx, conversationID, viewerID, limit, offset)
}

// SendMessage - REST-путь отправки: пустой после trim контент отклоняется
func (s *conversationService) SendMessage(ctx context.Context, conversationID int64, sender *domain.User, content string) (*domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.ErrEmptyContent
	}

	message, err := s.AppendMessage(ctx, conversationID, sender, content)
	if err != nil {
		return nil, err
	}

	// Пополняем частотную таблицу подсказок; сбой не мешает отправке
	if err := s.suggest.Record(ctx, sender.ID, content); err != nil {
		s.log.Warn("Failed to record suggestion words", "error", err, "user_id", sender.ID)
	}

	return message, nil
}

// AppendMessage - общий путь записи для REST и realtime каналов.
// Контент сохраняется дословно, без trim-валидации.
// Запись в хранилище и подъем updated_at происходят до любой рассылки.
func (s *conversationService) AppendMessage(ctx context.Context, conversationID int64, sender *domain.User, content string) (*domain.Message, error) {
	ok, err := s.convRepo.IsParticipant(ctx, conversationID, sender.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Запись падает жестко, в отличие от чтения
		return nil, apperrors.ErrConversationNotFound
	}

	message := &domain.Message{
		ConversationID: conversationID,
		SenderID:       sender.ID,
		SenderUsername: sender.Username,
		Content:        content,
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	if err := s.convRepo.Touch(ctx, conversationID); err != nil {
		s.log.Warn("Failed to touch conversation", "error", err, "conversation_id", conversationID)
	}

	return message, nil
}

func (s *conversationService) MarkRead(ctx context.Context, messageID int64, viewerID uuid.UUID) (*domain.Message, error) {
	return s.messageRepo.MarkRead(ctx, messageID, viewerID)
}

func (s *conversationService) IsParticipant(ctx context.Context, conversationID int64, userID uuid.UUID) (bool, error) {
	return s.convRepo.IsParticipant(ctx, conversationID, userID)
}
