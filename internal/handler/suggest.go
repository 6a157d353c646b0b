package handler

import (
	"net/http"
	"strconv"

	"messenger/internal/middleware"
	"messenger/internal/service"
	apperrors "messenger/pkg/errors"
	"messenger/pkg/logger"

	"github.com/gin-gonic/gin"
)

type SuggestHandler struct {
	suggestService service.SuggestService
	log            logger.Logger
}

func NewSuggestHandler(suggestService service.SuggestService, log logger.Logger) *SuggestHandler {
	return &SuggestHandler{
		suggestService: suggestService,
		log:            log,
	}
}

func (h *SuggestHandler) Suggestions(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	prefix := c.Query("prefix")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	suggestions, err := h.suggestService.Suggest(c.Request.Context(), user.ID, prefix, limit)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}
