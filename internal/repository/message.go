package repository

import (
	"context"
	"errors"
	"time"

	"messenger/internal/domain"
	apperrors "messenger/pkg/errors"
	"messenger/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	GetByID(ctx context.Context, id int64) (*domain.Message, error)
	GetByIDInConversation(ctx context.Context, id, conversationID int64) (*domain.Message, error)
	ListForViewer(ctx context.Context, conversationID int64, viewerID uuid.UUID, limit, offset int) ([]*domain.Message, error)
	MarkRead(ctx context.Context, id int64, viewerID uuid.UUID) (*domain.Message, error)
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	query := `
		INSERT INTO messages (conversation_id, sender_id, content, is_read, created_at)
		VALUES ($1, $2, $3, FALSE, $4)
		RETURNING id, is_read, created_at
	`

	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	err := r.db.QueryRow(ctx, query,
		message.ConversationID, message.SenderID, message.Content, message.CreatedAt,
	).Scan(&message.ID, &message.IsRead, &message.CreatedAt)

	if err != nil {
		r.log.Error("Failed to create message", "error", err, "conversation_id", message.ConversationID)
		return err
	}

	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, u.username, m.content, m.is_read, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.id = $1
	`

	message, err := r.scanMessage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMessageNotFound
		}
		r.log.Error("Failed to get message", "error", err, "message_id", id)
		return nil, err
	}

	return message, nil
}

func (r *messageRepository) GetByIDInConversation(ctx context.Context, id, conversationID int64) (*domain.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, u.username, m.content, m.is_read, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.id = $1 AND m.conversation_id = $2
	`

	message, err := r.scanMessage(r.db.QueryRow(ctx, query, id, conversationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMessageNotFound
		}
		r.log.Error("Failed to get message in conversation", "error", err, "message_id", id, "conversation_id", conversationID)
		return nil, err
	}

	return message, nil
}

// ListForViewer отдает историю диалога по возрастанию created_at.
// Проверка участия зашита в JOIN: для постороннего выборка просто пуста,
// существование диалога при этом не раскрывается.
func (r *messageRepository) ListForViewer(ctx context.Context, conversationID int64, viewerID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, u.username, m.content, m.is_read, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		JOIN conversation_participants cp
		  ON cp.conversation_id = m.conversation_id AND cp.user_id = $2
		WHERE m.conversation_id = $1
		ORDER BY m.created_at ASC, m.id ASC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, conversationID, viewerID, limit, offset)
	if err != nil {
		r.log.Error("Failed to list messages", "error", err, "conversation_id", conversationID)
		return nil, err
	}
	defer rows.Close()

	messages := make([]*domain.Message, 0)
	for rows.Next() {
		message := &domain.Message{}
		err := rows.Scan(
			&message.ID, &message.ConversationID, &message.SenderID, &message.SenderUsername,
			&message.Content, &message.IsRead, &message.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, err
		}
		messages = append(messages, message)
	}

	return messages, rows.Err()
}

// MarkRead выполняет переход is_read false->true.
// Не-участник получает тот же not found, что и для несуществующего сообщения.
func (r *messageRepository) MarkRead(ctx context.Context, id int64, viewerID uuid.UUID) (*domain.Message, error) {
	query := `
		UPDATE messages m
		SET is_read = TRUE
		FROM conversation_participants cp, users u
		WHERE m.id = $1
		  AND cp.conversation_id = m.conversation_id AND cp.user_id = $2
		  AND u.id = m.sender_id
		RETURNING m.id, m.conversation_id, m.sender_id, u.username, m.content, m.is_read, m.created_at
	`

	message, err := r.scanMessage(r.db.QueryRow(ctx, query, id, viewerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMessageNotFound
		}
		r.log.Error("Failed to mark message read", "error", err, "message_id", id)
		return nil, err
	}

	return message, nil
}

func (r *messageRepository) scanMessage(row pgx.Row) (*domain.Message, error) {
	message := &domain.Message{}
	err := row.Scan(
		&message.ID, &message.ConversationID, &message.SenderID, &message.SenderUsername,
		&message.Content, &message.IsRead, &message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return message, nil
}
