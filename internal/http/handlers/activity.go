package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lessonforge-backend/internal/http/response"
	"github.com/yungbote/lessonforge-backend/internal/modules/activity"
	"github.com/yungbote/lessonforge-backend/internal/platform/apierr"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

type ActivityGenerator interface {
	Generate(ctx context.Context, req activity.Request) (*activity.Activity, error)
}

type ActivityHandler struct {
	log        *logger.Logger
	activities ActivityGenerator
}

func NewActivityHandler(log *logger.Logger, activities ActivityGenerator) *ActivityHandler {
	return &ActivityHandler{
		log:        log.With("handler", "ActivityHandler"),
		activities: activities,
	}
}

// POST /api/generate-activity
func (h *ActivityHandler) GenerateActivity(c *gin.Context) {
	var req activity.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	act, err := h.activities.Generate(c.Request.Context(), req)
	if err != nil {
		h.log.Error("GenerateActivity failed", "error", err, "topic", req.Topic)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, act)
}
