package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lessonforge-backend/internal/http/response"
	"github.com/yungbote/lessonforge-backend/internal/modules/textbook"
	"github.com/yungbote/lessonforge-backend/internal/platform/apierr"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

type IndexParser interface {
	ParseIndex(ctx context.Context, req textbook.Request) (*textbook.Index, error)
}

type TextbookHandler struct {
	log    *logger.Logger
	parser IndexParser
}

func NewTextbookHandler(log *logger.Logger, parser IndexParser) *TextbookHandler {
	return &TextbookHandler{
		log:    log.With("handler", "TextbookHandler"),
		parser: parser,
	}
}

// POST /api/parse-index
func (h *TextbookHandler) ParseIndex(c *gin.Context) {
	var req textbook.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	idx, err := h.parser.ParseIndex(c.Request.Context(), req)
	if err != nil {
		h.log.Error("ParseIndex failed", "error", err, "subject", req.Subject)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, idx)
}
