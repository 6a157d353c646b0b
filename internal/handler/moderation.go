package handler

import (
	"net/http"
	"strconv"

	"messenger/internal/domain"
	"messenger/internal/middleware"
	"messenger/internal/service"
	apperrors "messenger/pkg/errors"
	"messenger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ModerationHandler struct {
	moderationService service.ModerationService
	log               logger.Logger
}

func NewModerationHandler(moderationService service.ModerationService, log logger.Logger) *ModerationHandler {
	return &ModerationHandler{
		moderationService: moderationService,
		log:               log,
	}
}

type FlagRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *ModerationHandler) FlagRoom(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("roomId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room ID"})
		return
	}

	actor, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	flag, err := h.moderationService.FlagRoom(c.Request.Context(), actor, conversationID, req.Reason)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	h.log.Info("Room flagged", "flag_id", flag.ID, "room_id", conversationID, "moderator_id", actor.ID)
	c.JSON(http.StatusCreated, flag)
}

func (h *ModerationHandler) FlagMessage(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("roomId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room ID"})
		return
	}

	messageID, err := strconv.ParseInt(c.Param("messageId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message ID"})
		return
	}

	actor, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	flag, err := h.moderationService.FlagMessage(c.Request.Context(), actor, conversationID, messageID, req.Reason)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	h.log.Info("Message flagged", "flag_id", flag.ID, "message_id", messageID, "moderator_id", actor.ID)
	c.JSON(http.StatusCreated, flag)
}

func (h *ModerationHandler) ListFlags(c *gin.Context) {
	actor, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := domain.FlagFilter{
		Type:   c.Query("type"),
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	}

	if raw := c.Query("reported_by"); raw != "" {
		reportedBy, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reported_by"})
			return
		}
		filter.ReportedBy = &reportedBy
	}

	flags, err := h.moderationService.ListFlags(c.Request.Context(), actor, filter)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, flags)
}

type ResolveFlagRequest struct {
	Action string `json:"action" binding:"required"`
	Note   string `json:"note"`
}

func (h *ModerationHandler) ResolveFlag(c *gin.Context) {
	flagID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flag ID"})
		return
	}

	actor, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req ResolveFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action is required"})
		return
	}

	flag, err := h.moderationService.ResolveFlag(c.Request.Context(), actor, flagID, req.Action, req.Note)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	h.log.Info("Flag resolved", "flag_id", flag.ID, "action", req.Action, "moderator_id", actor.ID)
	c.JSON(http.StatusOK, flag)
}
