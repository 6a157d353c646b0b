package repository

import (
	"context"
	"errors"
	"fmt"

	"messenger/internal/domain"
	apperrors "messenger/pkg/errors"
	"messenger/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ModerationRepository interface {
	CreateFlag(ctx context.Context, flag *domain.Flag) error
	GetFlagByID(ctx context.Context, id int64) (*domain.Flag, error)
	ListFlags(ctx context.Context, filter domain.FlagFilter) ([]*domain.Flag, error)
	Resolve(ctx context.Context, flag *domain.Flag, logEntry *domain.ModerationLog) error
}

type moderationRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewModerationRepository(db *pgxpool.Pool, log logger.Logger) ModerationRepository {
	return &moderationRepository{db: db, log: log}
}

func (r *moderationRepository) CreateFlag(ctx context.Context, flag *domain.Flag) error {
	query := `
		INSERT INTO flags (flag_type, status, conversation_id, message_id, reported_by, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		flag.Type, flag.Status, flag.ConversationID, flag.MessageID, flag.ReportedBy, flag.Reason,
	).Scan(&flag.ID, &flag.CreatedAt, &flag.UpdatedAt)

	if err != nil {
		r.log.Error("Failed to create flag", "error", err, "flag_type", flag.Type)
		return err
	}

	return nil
}

func (r *moderationRepository) GetFlagByID(ctx context.Context, id int64) (*domain.Flag, error) {
	query := `
		SELECT id, flag_type, status, conversation_id, message_id, reported_by, reason, moderator_note, created_at, updated_at
		FROM flags
		WHERE id = $1
	`

	flag := &domain.Flag{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&flag.ID, &flag.Type, &flag.Status, &flag.ConversationID, &flag.MessageID,
		&flag.ReportedBy, &flag.Reason, &flag.ModeratorNote, &flag.CreatedAt, &flag.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrFlagNotFound
		}
		r.log.Error("Failed to get flag", "error", err, "flag_id", id)
		return nil, err
	}

	return flag, nil
}

func (r *moderationRepository) ListFlags(ctx context.Context, filter domain.FlagFilter) ([]*domain.Flag, error) {
	query := `
		SELECT id, flag_type, status, conversation_id, message_id, reported_by, reason, moderator_note, created_at, updated_at
		FROM flags
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND flag_type = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.ReportedBy != nil {
		args = append(args, *filter.ReportedBy)
		query += fmt.Sprintf(" AND reported_by = $%d", len(args))
	}

	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list flags", "error", err)
		return nil, err
	}
	defer rows.Close()

	flags := make([]*domain.Flag, 0)
	for rows.Next() {
		flag := &domain.Flag{}
		err := rows.Scan(
			&flag.ID, &flag.Type, &flag.Status, &flag.ConversationID, &flag.MessageID,
			&flag.ReportedBy, &flag.Reason, &flag.ModeratorNote, &flag.CreatedAt, &flag.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan flag", "error", err)
			return nil, err
		}
		flags = append(flags, flag)
	}

	return flags, rows.Err()
}

// Resolve выполняет резолюцию жалобы одной транзакцией: сначала запись
// аудита, затем смена статуса, и только после этого каскадное удаление
// для action=delete. Порядок гарантирует, что лог пишется по еще живой жалобе.
func (r *moderationRepository) Resolve(ctx context.Context, flag *domain.Flag, logEntry *domain.ModerationLog) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin resolve transaction", "error", err)
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO moderation_logs (flag_id, action, note, moderator_id, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, created_at
	`, flag.ID, logEntry.Action, logEntry.Note, logEntry.ModeratorID).Scan(&logEntry.ID, &logEntry.CreatedAt)
	if err != nil {
		r.log.Error("Failed to write moderation log", "error", err, "flag_id", flag.ID)
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE flags SET status = $2, moderator_note = $3, updated_at = now() WHERE id = $1
	`, flag.ID, flag.Status, flag.ModeratorNote)
	if err != nil {
		r.log.Error("Failed to update flag status", "error", err, "flag_id", flag.ID)
		return err
	}

	if logEntry.Action == domain.ActionDelete {
		switch flag.Type {
		case domain.FlagTypeMessage:
			if flag.MessageID != nil {
				if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE id = $1`, *flag.MessageID); err != nil {
					r.log.Error("Failed to delete flagged message", "error", err, "message_id", *flag.MessageID)
					return err
				}
			}
		case domain.FlagTypeRoom:
			// FK ON DELETE CASCADE удаляет сообщения диалога
			if _, err := tx.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, flag.ConversationID); err != nil {
				r.log.Error("Failed to delete flagged conversation", "error", err, "conversation_id", flag.ConversationID)
				return err
			}
		}
	}

	return tx.Commit(ctx)
}
