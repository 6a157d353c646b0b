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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConversationRepository interface {
	CreateForPair(ctx context.Context, a, b uuid.UUID) (*domain.Conversation, error)
	GetByID(ctx context.Context, id int64) (*domain.Conversation, error)
	GetByPairKey(ctx context.Context, pairKey string) (*domain.Conversation, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.ConversationPreview, error)
	IsParticipant(ctx context.Context, conversationID int64, userID uuid.UUID) (bool, error)
	Participants(ctx context.Context, conversationID int64) ([]*domain.User, error)
	Touch(ctx context.Context, conversationID int64) error
	UnreadCount(ctx context.Context, conversationID int64, viewerID uuid.UUID) (int, error)
}

type conversationRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewConversationRepository(db *pgxpool.Pool, log logger.Logger) ConversationRepository {
	return &conversationRepository{db: db, log: log}
}

// CreateForPair создает диалог и обоих участников в одной транзакции.
// Уникальный индекс по pair_key закрывает гонку "lookup потом insert":
// проигравшая сторона получает 23505 и перечитывает существующий диалог.
func (r *conversationRepository) CreateForPair(ctx context.Context, a, b uuid.UUID) (*domain.Conversation, error) {
	pairKey := domain.PairKey(a, b)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin transaction", "error", err)
		return nil, err
	}
	defer tx.Rollback(ctx)

	conv := &domain.Conversation{PairKey: pairKey}
	err = tx.QueryRow(ctx, `
		INSERT INTO conversations (pair_key, created_at, updated_at)
		VALUES ($1, now(), now())
		RETURNING id, created_at, updated_at
	`, pairKey).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Проиграли гонку - диалог уже есть
			return r.GetByPairKey(ctx, pairKey)
		}
		r.log.Error("Failed to create conversation", "error", err, "pair_key", pairKey)
		return nil, err
	}

	for _, userID := range []uuid.UUID{a, b} {
		if _, err := tx.Exec(ctx, `
			INSERT INTO conversation_participants (conversation_id, user_id)
			VALUES ($1, $2)
		`, conv.ID, userID); err != nil {
			r.log.Error("Failed to add participant", "error", err, "conversation_id", conv.ID, "user_id", userID)
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return r.GetByPairKey(ctx, pairKey)
		}
		return nil, err
	}

	return conv, nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	conv := &domain.Conversation{}
	err := r.db.QueryRow(ctx, `
		SELECT id, pair_key, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`, id).Scan(&conv.ID, &conv.PairKey, &conv.CreatedAt, &conv.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConversationNotFound
		}
		r.log.Error("Failed to get conversation", "error", err, "conversation_id", id)
		return nil, err
	}

	return conv, nil
}

func (r *conversationRepository) GetByPairKey(ctx context.Context, pairKey string) (*domain.Conversation, error) {
	conv := &domain.Conversation{}
	err := r.db.QueryRow(ctx, `
		SELECT id, pair_key, created_at, updated_at
		FROM conversations
		WHERE pair_key = $1
	`, pairKey).Scan(&conv.ID, &conv.PairKey, &conv.CreatedAt, &conv.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConversationNotFound
		}
		r.log.Error("Failed to get conversation by pair key", "error", err, "pair_key", pairKey)
		return nil, err
	}

	return conv, nil
}

// ListByParticipant возвращает диалоги пользователя по убыванию активности,
// с последним сообщением и счетчиком непрочитанного в каждой строке
func (r *conversationRepository) ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.ConversationPreview, error) {
	query := `
		SELECT c.id, c.pair_key, c.created_at, c.updated_at,
		       lm.id, lm.sender_id, lm.content, lm.is_read, lm.created_at,
		       (SELECT count(*) FROM messages m
		        WHERE m.conversation_id = c.id AND m.is_read = FALSE AND m.sender_id <> $1)
		FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.id AND cp.user_id = $1
		LEFT JOIN LATERAL (
			SELECT id, sender_id, content, is_read, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		ORDER BY c.updated_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to list conversations", "error", err, "user_id", userID)
		return nil, err
	}
	defer rows.Close()

	var previews []*domain.ConversationPreview
	for rows.Next() {
		p := &domain.ConversationPreview{}
		var (
			lmID      *int64
			lmSender  *uuid.UUID
			lmContent *string
			lmIsRead  *bool
			lmCreated *time.Time
		)
		err := rows.Scan(
			&p.ID, &p.PairKey, &p.CreatedAt, &p.UpdatedAt,
			&lmID, &lmSender, &lmContent, &lmIsRead, &lmCreated,
			&p.UnreadCount,
		)
		if err != nil {
			r.log.Error("Failed to scan conversation row", "error", err)
			return nil, err
		}
		if lmID != nil {
			p.LastMessage = &domain.Message{
				ID:             *lmID,
				ConversationID: p.ID,
				SenderID:       *lmSender,
				Content:        *lmContent,
				IsRead:         *lmIsRead,
				CreatedAt:      *lmCreated,
			}
		}
		previews = append(previews, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Догружаем участников для каждой строки списка
	for _, p := range previews {
		participants, err := r.Participants(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.Participants = participants
	}

	return previews, nil
}

func (r *conversationRepository) IsParticipant(ctx context.Context, conversationID int64, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM conversation_participants
			WHERE conversation_id = $1 AND user_id = $2
		)
	`, conversationID, userID).Scan(&exists)

	if err != nil {
		r.log.Error("Failed to check participant", "error", err, "conversation_id", conversationID, "user_id", userID)
		return false, err
	}

	return exists, nil
}

func (r *conversationRepository) Participants(ctx context.Context, conversationID int64) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.id, u.username, u.role, u.is_superuser, u.is_active, u.is_online, u.last_seen_at, u.created_at, u.updated_at
		FROM users u
		JOIN conversation_participants cp ON cp.user_id = u.id
		WHERE cp.conversation_id = $1
		ORDER BY u.username
	`, conversationID)
	if err != nil {
		r.log.Error("Failed to load participants", "error", err, "conversation_id", conversationID)
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u := &domain.User{}
		err := rows.Scan(
			&u.ID, &u.Username, &u.Role, &u.IsSuperuser, &u.IsActive,
			&u.IsOnline, &u.LastSeenAt, &u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// Touch поднимает диалог наверх списка; вызывается на каждой записи сообщения
func (r *conversationRepository) Touch(ctx context.Context, conversationID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations SET updated_at = now() WHERE id = $1
	`, conversationID)
	if err != nil {
		r.log.Error("Failed to touch conversation", "error", err, "conversation_id", conversationID)
	}
	return err
}

func (r *conversationRepository) UnreadCount(ctx context.Context, conversationID int64, viewerID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM messages
		WHERE conversation_id = $1 AND is_read = FALSE AND sender_id <> $2
	`, conversationID, viewerID).Scan(&count)

	if err != nil {
		r.log.Error("Failed to count unread", "error", err, "conversation_id", conversationID)
		return 0, err
	}

	return count, nil
}
