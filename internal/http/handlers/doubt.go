package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lessonforge-backend/internal/http/response"
	"github.com/yungbote/lessonforge-backend/internal/modules/doubt"
	"github.com/yungbote/lessonforge-backend/internal/platform/apierr"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

type DoubtSolver interface {
	SolveText(ctx context.Context, req doubt.Request) (*doubt.Response, error)
	FollowUp(ctx context.Context, req doubt.FollowUpRequest) (*doubt.FollowUpResponse, error)
	SolveImage(ctx context.Context, req doubt.MediaRequest) (*doubt.Response, error)
	SolveVoice(ctx context.Context, req doubt.MediaRequest) (*doubt.Response, error)
}

// maxUploadBytes matches the inline content limit of the OCR and speech APIs.
const maxUploadBytes = 10 << 20

type DoubtHandler struct {
	log    *logger.Logger
	solver DoubtSolver
}

func NewDoubtHandler(log *logger.Logger, solver DoubtSolver) *DoubtHandler {
	return &DoubtHandler{
		log:    log.With("handler", "DoubtHandler"),
		solver: solver,
	}
}

// POST /api/solve-doubt/text
func (h *DoubtHandler) SolveText(c *gin.Context) {
	var req doubt.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	res, err := h.solver.SolveText(c.Request.Context(), req)
	if err != nil {
		h.log.Error("SolveText failed", "error", err, "subject", req.Subject)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// POST /api/doubt/follow-up
func (h *DoubtHandler) FollowUp(c *gin.Context) {
	var req doubt.FollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	res, err := h.solver.FollowUp(c.Request.Context(), req)
	if err != nil {
		h.log.Error("FollowUp failed", "error", err)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// POST /api/solve-doubt/image (multipart: image, subject, gradeLevel)
func (h *DoubtHandler) SolveImage(c *gin.Context) {
	req, err := readMediaForm(c, "image")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	res, err := h.solver.SolveImage(c.Request.Context(), req)
	if err != nil {
		h.log.Error("SolveImage failed", "error", err, "subject", req.Subject)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// POST /api/solve-doubt/voice (multipart: audio, subject, gradeLevel, languageCode)
func (h *DoubtHandler) SolveVoice(c *gin.Context) {
	req, err := readMediaForm(c, "audio")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	res, err := h.solver.SolveVoice(c.Request.Context(), req)
	if err != nil {
		h.log.Error("SolveVoice failed", "error", err, "subject", req.Subject)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}

func readMediaForm(c *gin.Context, field string) (doubt.MediaRequest, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+1<<20)
	fh, err := c.FormFile(field)
	if err != nil {
		return doubt.MediaRequest{}, fmt.Errorf("%s file is required: %w", field, err)
	}
	if fh.Size > maxUploadBytes {
		return doubt.MediaRequest{}, fmt.Errorf("%s exceeds %d bytes", field, maxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return doubt.MediaRequest{}, fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return doubt.MediaRequest{}, fmt.Errorf("read %s: %w", field, err)
	}
	return doubt.MediaRequest{
		Data:         data,
		MimeType:     fh.Header.Get("Content-Type"),
		Subject:      c.PostForm("subject"),
		GradeLevel:   c.PostForm("gradeLevel"),
		LanguageCode: c.PostForm("languageCode"),
	}, nil
}
