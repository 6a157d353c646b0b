package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"messenger/internal/domain"
	apperrors "messenger/pkg/errors"
	"messenger/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres-тесты гоняют реальные миграции против живой БД,
// чтобы дрейф SQL-запросов и схемы ловился до продакшена.
// Без TEST_DATABASE_DSN пропускаются целиком.
func newTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN is not set, skipping postgres tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect to postgres: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("postgres is not available: %v", err)
	}

	applyMigration(t, pool, "001_init.down.sql")
	applyMigration(t, pool, "001_init.up.sql")

	t.Cleanup(func() {
		applyMigration(t, pool, "001_init.down.sql")
		pool.Close()
	})
	return pool
}

func applyMigration(t *testing.T, pool *pgxpool.Pool, name string) {
	t.Helper()

	sqlBytes, err := os.ReadFile(filepath.Join("..", "..", "migrations", name))
	if err != nil {
		t.Fatalf("read migration %s: %v", name, err)
	}
	// Простой протокол: в файле несколько statements
	if _, err := pool.Exec(context.Background(), string(sqlBytes), pgx.QueryExecModeSimpleProtocol); err != nil {
		t.Fatalf("apply migration %s: %v", name, err)
	}
}

func createDBUser(t *testing.T, repo UserRepository, username, role string) *domain.User {
	t.Helper()

	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: "irrelevant",
		Role:         role,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func TestModerationRepositoryFlagLifecycle(t *testing.T) {
	pool := newTestDB(t)
	log := logger.New("error")
	userRepo := NewUserRepository(pool, log)
	convRepo := NewConversationRepository(pool, log)
	moderationRepo := NewModerationRepository(pool, log)
	ctx := context.Background()

	alice := createDBUser(t, userRepo, "alice", domain.RoleUser)
	bob := createDBUser(t, userRepo, "bob", domain.RoleUser)
	mod := createDBUser(t, userRepo, "mod", domain.RoleModerator)

	conv, err := convRepo.CreateForPair(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("CreateForPair: %v", err)
	}

	flag := &domain.Flag{
		Type:           domain.FlagTypeRoom,
		Status:         domain.FlagStatusPending,
		ConversationID: conv.ID,
		ReportedBy:     mod.ID,
		Reason:         "spam",
	}
	if err := moderationRepo.CreateFlag(ctx, flag); err != nil {
		t.Fatalf("CreateFlag: %v", err)
	}
	if flag.ID == 0 {
		t.Fatal("CreateFlag did not assign an ID")
	}

	fetched, err := moderationRepo.GetFlagByID(ctx, flag.ID)
	if err != nil {
		t.Fatalf("GetFlagByID: %v", err)
	}
	if fetched.Type != domain.FlagTypeRoom || fetched.Status != domain.FlagStatusPending || fetched.Reason != "spam" {
		t.Fatalf("fetched flag = %+v, want room/pending/spam", fetched)
	}

	flags, err := moderationRepo.ListFlags(ctx, domain.FlagFilter{Status: domain.FlagStatusPending, Limit: 10})
	if err != nil {
		t.Fatalf("ListFlags: %v", err)
	}
	if len(flags) != 1 || flags[0].ID != flag.ID {
		t.Fatalf("ListFlags = %+v, want the created flag", flags)
	}

	note := "checked"
	fetched.Status = domain.FlagStatusResolved
	fetched.ModeratorNote = &note
	logEntry := &domain.ModerationLog{
		FlagID:      &fetched.ID,
		Action:      "warn",
		Note:        note,
		ModeratorID: mod.ID,
	}
	if err := moderationRepo.Resolve(ctx, fetched, logEntry); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if logEntry.ID == 0 {
		t.Fatal("Resolve did not assign an audit row ID")
	}

	resolved, err := moderationRepo.GetFlagByID(ctx, flag.ID)
	if err != nil {
		t.Fatalf("GetFlagByID after resolve: %v", err)
	}
	if resolved.Status != domain.FlagStatusResolved {
		t.Fatalf("status = %q, want resolved", resolved.Status)
	}
	if resolved.ModeratorNote == nil || *resolved.ModeratorNote != note {
		t.Fatalf("moderator_note = %v, want %q", resolved.ModeratorNote, note)
	}

	var auditRows int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM moderation_logs WHERE flag_id = $1`, flag.ID).Scan(&auditRows); err != nil {
		t.Fatalf("count audit rows: %v", err)
	}
	if auditRows != 1 {
		t.Fatalf("audit rows = %d, want 1", auditRows)
	}
}

func TestModerationRepositoryResolveDeleteMessage(t *testing.T) {
	pool := newTestDB(t)
	log := logger.New("error")
	userRepo := NewUserRepository(pool, log)
	convRepo := NewConversationRepository(pool, log)
	messageRepo := NewMessageRepository(pool, log)
	moderationRepo := NewModerationRepository(pool, log)
	ctx := context.Background()

	alice := createDBUser(t, userRepo, "alice", domain.RoleUser)
	bob := createDBUser(t, userRepo, "bob", domain.RoleUser)
	mod := createDBUser(t, userRepo, "mod", domain.RoleModerator)

	conv, err := convRepo.CreateForPair(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("CreateForPair: %v", err)
	}

	message := &domain.Message{ConversationID: conv.ID, SenderID: alice.ID, Content: "offensive"}
	if err := messageRepo.Create(ctx, message); err != nil {
		t.Fatalf("create message: %v", err)
	}

	flag := &domain.Flag{
		Type:           domain.FlagTypeMessage,
		Status:         domain.FlagStatusPending,
		ConversationID: conv.ID,
		MessageID:      &message.ID,
		ReportedBy:     mod.ID,
		Reason:         "abuse",
	}
	if err := moderationRepo.CreateFlag(ctx, flag); err != nil {
		t.Fatalf("CreateFlag: %v", err)
	}

	flag.Status = domain.FlagStatusResolved
	logEntry := &domain.ModerationLog{
		FlagID:      &flag.ID,
		Action:      domain.ActionDelete,
		ModeratorID: mod.ID,
	}
	if err := moderationRepo.Resolve(ctx, flag, logEntry); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if _, err := messageRepo.GetByID(ctx, message.ID); !errors.Is(err, apperrors.ErrMessageNotFound) {
		t.Fatalf("err = %v, want ErrMessageNotFound after delete", err)
	}

	// Жалоба переживает удаление сообщения, ссылка обнуляется
	survived, err := moderationRepo.GetFlagByID(ctx, flag.ID)
	if err != nil {
		t.Fatalf("GetFlagByID after delete: %v", err)
	}
	if survived.MessageID != nil {
		t.Fatalf("message_id = %v, want NULL after message deletion", *survived.MessageID)
	}
}

func TestMessageRepositoryListOrderedByCreation(t *testing.T) {
	pool := newTestDB(t)
	log := logger.New("error")
	userRepo := NewUserRepository(pool, log)
	convRepo := NewConversationRepository(pool, log)
	messageRepo := NewMessageRepository(pool, log)
	ctx := context.Background()

	alice := createDBUser(t, userRepo, "alice", domain.RoleUser)
	bob := createDBUser(t, userRepo, "bob", domain.RoleUser)

	conv, err := convRepo.CreateForPair(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("CreateForPair: %v", err)
	}

	// Отправители чередуются, created_at задан явно по возрастанию
	base := time.Now().Add(-time.Hour).Truncate(time.Microsecond)
	senders := []*domain.User{alice, bob, alice, bob, alice}
	for i, sender := range senders {
		message := &domain.Message{
			ConversationID: conv.ID,
			SenderID:       sender.ID,
			Content:        fmt.Sprintf("message %d", i),
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}
		if err := messageRepo.Create(ctx, message); err != nil {
			t.Fatalf("create message %d: %v", i, err)
		}
	}

	messages, err := messageRepo.ListForViewer(ctx, conv.ID, bob.ID, 50, 0)
	if err != nil {
		t.Fatalf("ListForViewer: %v", err)
	}
	if len(messages) != len(senders) {
		t.Fatalf("messages = %d, want %d", len(messages), len(senders))
	}

	for i, message := range messages {
		if want := fmt.Sprintf("message %d", i); message.Content != want {
			t.Fatalf("messages[%d].Content = %q, want %q", i, message.Content, want)
		}
		if i > 0 && message.CreatedAt.Before(messages[i-1].CreatedAt) {
			t.Fatalf("created_at order violated at index %d: %v < %v", i, message.CreatedAt, messages[i-1].CreatedAt)
		}
	}

	// Посторонний наблюдатель получает пустой список
	outsider := createDBUser(t, userRepo, "mallory", domain.RoleUser)
	empty, err := messageRepo.ListForViewer(ctx, conv.ID, outsider.ID, 50, 0)
	if err != nil {
		t.Fatalf("ListForViewer outsider: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("outsider messages = %d, want 0", len(empty))
	}
}
