package handler

import (
	"context"
	"net/http"
	"strconv"

	"messenger/internal/config"
	"messenger/internal/middleware"
	"messenger/internal/realtime"
	"messenger/internal/service"
	"messenger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // В продакшене нужно проверять origin
	},
}

type WebSocketHandler struct {
	hub                 *realtime.Hub
	conversationService service.ConversationService
	presenceService     service.PresenceService
	cfg                 config.RealtimeConfig
	log                 logger.Logger
}

func NewWebSocketHandler(
	hub *realtime.Hub,
	conversationService service.ConversationService,
	presenceService service.PresenceService,
	cfg config.RealtimeConfig,
	log logger.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:                 hub,
		conversationService: conversationService,
		presenceService:     presenceService,
		cfg:                 cfg,
		log:                 log,
	}
}

// HandleConversation ведет соединение по пути
// Connecting -> Authorizing -> Joined. Любой отказ до Joined отвечает
// обычным HTTP-статусом без upgrade, в Hub такое соединение не попадает.
func (h *WebSocketHandler) HandleConversation(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation ID"})
		return
	}

	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	// Авторизация ограничена таймаутом: зависший запрос к БД не должен
	// держать рукопожатие бесконечно
	authCtx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.AuthorizeTimeout)
	defer cancel()

	isParticipant, err := h.conversationService.IsParticipant(authCtx, conversationID, user.ID)
	if err != nil {
		h.log.Error("Participant check failed", "error", err, "conversation_id", conversationID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if !isParticipant {
		// Тот же ответ, что и для неаутентифицированного соединения:
		// два вида отказа неразличимы снаружи
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	h.log.Info("WebSocket connection joined",
		"conversation_id", conversationID,
		"user_id", user.ID,
		"username", user.Username,
	)

	client := realtime.NewClient(
		h.hub,
		conversationID,
		user,
		conn,
		h.conversationService,
		h.presenceService,
		h.cfg,
		h.log,
	)

	// Контекст запроса умирает вместе с handler, а teardown соединения
	// (presence off) должен пережить его
	client.Run(context.Background())
}
