package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"messenger/internal/config"
	"messenger/internal/domain"
	"messenger/internal/middleware"
	"messenger/internal/realtime"
	"messenger/internal/service"
	apperrors "messenger/pkg/errors"
	"messenger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type stubAuthService struct {
	user *domain.User
}

func (s *stubAuthService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	return nil, apperrors.ErrInternalServer
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (*service.LoginResponse, error) {
	return nil, apperrors.ErrInvalidCredentials
}

func (s *stubAuthService) RefreshToken(ctx context.Context, refreshToken string) (*service.TokenResponse, error) {
	return nil, apperrors.ErrInvalidToken
}

func (s *stubAuthService) ValidateToken(ctx context.Context, tokenString string) (*domain.User, error) {
	if tokenString == "valid" && s.user != nil {
		return s.user, nil
	}
	return nil, apperrors.ErrInvalidToken
}

type stubConversationService struct {
	participant bool
}

func (s *stubConversationService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.ConversationPreview, error) {
	return nil, nil
}

func (s *stubConversationService) CreateOrGet(ctx context.Context, userID, participantID uuid.UUID) (*domain.Conversation, bool, error) {
	return nil, false, apperrors.ErrInternalServer
}

func (s *stubConversationService) Messages(ctx context.Context, conversationID int64, viewerID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	return nil, nil
}

func (s *stubConversationService) SendMessage(ctx context.Context, conversationID int64, sender *domain.User, content string) (*domain.Message, error) {
	return nil, apperrors.ErrInternalServer
}

func (s *stubConversationService) AppendMessage(ctx context.Context, conversationID int64, sender *domain.User, content string) (*domain.Message, error) {
	return nil, apperrors.ErrInternalServer
}

func (s *stubConversationService) MarkRead(ctx context.Context, messageID int64, viewerID uuid.UUID) (*domain.Message, error) {
	return nil, apperrors.ErrMessageNotFound
}

func (s *stubConversationService) IsParticipant(ctx context.Context, conversationID int64, userID uuid.UUID) (bool, error) {
	return s.participant, nil
}

type stubPresenceService struct{}

func (s *stubPresenceService) SetOnline(ctx context.Context, userID uuid.UUID, online bool) error {
	return nil
}

func (s *stubPresenceService) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	return false, nil
}

func newWebSocketTestRouter(t *testing.T, participant bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New("error")
	user := &domain.User{ID: uuid.New(), Username: "alice", Role: domain.RoleUser, IsActive: true}

	cfg := config.RealtimeConfig{
		SendQueueSize:    1,
		AuthorizeTimeout: time.Second,
		WriteTimeout:     time.Second,
		PongTimeout:      time.Second,
		PingInterval:     time.Second,
		MaxMessageSize:   1024,
	}

	wsHandler := NewWebSocketHandler(
		realtime.NewHub(log),
		&stubConversationService{participant: participant},
		&stubPresenceService{},
		cfg,
		log,
	)
	authMiddleware := middleware.NewAuthMiddleware(&stubAuthService{user: user}, log)

	router := gin.New()
	router.GET("/ws/conversations/:id", authMiddleware.RequireAuthSilent(), wsHandler.HandleConversation)
	return router
}

// Отказ неаутентифицированному соединению и отказ не-участнику
// должны быть неразличимы: одинаковый статус, одинаковое пустое тело
func TestWebSocketRejectionsIndistinguishable(t *testing.T) {
	anonymous := httptest.NewRecorder()
	newWebSocketTestRouter(t, true).ServeHTTP(anonymous,
		httptest.NewRequest(http.MethodGet, "/ws/conversations/1", nil))

	outsider := httptest.NewRecorder()
	newWebSocketTestRouter(t, false).ServeHTTP(outsider,
		httptest.NewRequest(http.MethodGet, "/ws/conversations/1?token=valid", nil))

	if anonymous.Code != http.StatusForbidden {
		t.Fatalf("anonymous status = %d, want %d", anonymous.Code, http.StatusForbidden)
	}
	if outsider.Code != anonymous.Code {
		t.Fatalf("statuses differ: anonymous %d, outsider %d", anonymous.Code, outsider.Code)
	}
	if anonymous.Body.String() != outsider.Body.String() {
		t.Fatalf("bodies differ: anonymous %q, outsider %q", anonymous.Body.String(), outsider.Body.String())
	}
	if outsider.Body.Len() != 0 {
		t.Fatalf("rejection body = %q, want empty", outsider.Body.String())
	}
}

func TestWebSocketRejectsInvalidToken(t *testing.T) {
	rec := httptest.NewRecorder()
	newWebSocketTestRouter(t, true).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/ws/conversations/1?token=forged", nil))

	if rec.Code != http.StatusForbidden || rec.Body.Len() != 0 {
		t.Fatalf("response = %d %q, want bare %d", rec.Code, rec.Body.String(), http.StatusForbidden)
	}
}
