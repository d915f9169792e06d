package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lessonforge-backend/internal/domain/lesson"
	"github.com/yungbote/lessonforge-backend/internal/http/response"
	"github.com/yungbote/lessonforge-backend/internal/modules/deck"
	"github.com/yungbote/lessonforge-backend/internal/modules/visuals"
	"github.com/yungbote/lessonforge-backend/internal/platform/apierr"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
	"github.com/yungbote/lessonforge-backend/internal/realtime"
)

// DeckService is the slice of *deck.Service the HTTP surface uses.
type DeckService interface {
	GenerateStructured(ctx context.Context, req deck.Request) (*deck.Result, error)
	Stream(ctx context.Context, req deck.Request, emit deck.EmitFunc) error
	Modify(ctx context.Context, req deck.ModifyRequest) (*deck.Result, error)
	Differentiate(ctx context.Context, core lesson.Deck, level lesson.DifferentiationLevel) lesson.Deck
	RouteVisuals(ctx context.Context, texts []visuals.SlideText, subject string, paid bool) []visuals.RoutingDecision
	Export(ctx context.Context, d lesson.Deck, w io.Writer) (string, error)
}

type DeckHandler struct {
	log  *logger.Logger
	deck DeckService
}

func NewDeckHandler(log *logger.Logger, deck DeckService) *DeckHandler {
	return &DeckHandler{
		log:  log.With("handler", "DeckHandler"),
		deck: deck,
	}
}

// POST /api/generate-deck
func (h *DeckHandler) GenerateDeck(c *gin.Context) {
	var req deck.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	res, err := h.deck.GenerateStructured(c.Request.Context(), req)
	if err != nil {
		h.log.Error("GenerateDeck failed", "error", err, "subject", req.Subject, "grade", req.GradeLevel)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// POST /api/generate-deck-advanced
//
// Streams newline-delimited JSON events. Validation errors are returned as a
// regular JSON error before the stream starts; later failures arrive as an error event.
func (h *DeckHandler) GenerateDeckAdvanced(c *gin.Context) {
	var req deck.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.RespondAPIError(c, err)
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	w := realtime.NewNDJSONWriter(c.Writer)
	emit := func(ev realtime.Event) error {
		_, err := w.Write(ev)
		return err
	}
	if err := h.deck.Stream(c.Request.Context(), req, emit); err != nil {
		if errors.Is(err, context.Canceled) {
			h.log.Info("GenerateDeckAdvanced client went away", "subject", req.Subject)
			return
		}
		h.log.Error("GenerateDeckAdvanced failed", "error", err, "subject", req.Subject)
	}
}

// POST /api/modify-deck
func (h *DeckHandler) ModifyDeck(c *gin.Context) {
	var req deck.ModifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	res, err := h.deck.Modify(c.Request.Context(), req)
	if err != nil {
		h.log.Error("ModifyDeck failed", "error", err)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}

type differentiateRequest struct {
	Deck  lesson.Deck `json:"deck"`
	Level string      `json:"level"`
}

// POST /api/differentiate-deck
func (h *DeckHandler) DifferentiateDeck(c *gin.Context) {
	var req differentiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	level, ok := lesson.ParseDifferentiationLevel(req.Level)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest,
			fmt.Errorf("level must be SUPPORT, CORE or EXTENSION, got %q", req.Level))
		return
	}
	if len(req.Deck.Slides) == 0 {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, errors.New("deck has no slides"))
		return
	}
	out := h.deck.Differentiate(c.Request.Context(), req.Deck, level)
	response.RespondOK(c, gin.H{
		"level": level,
		"deck":  out,
	})
}

type routeVisualsRequest struct {
	Slides      []visuals.SlideText `json:"slides"`
	Subject     string              `json:"subject"`
	PaidEnabled bool                `json:"paidEnabled"`
}

// POST /api/route-visuals
func (h *DeckHandler) RouteVisuals(c *gin.Context) {
	var req routeVisualsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	if len(req.Slides) == 0 {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, errors.New("no slides provided"))
		return
	}
	decisions := h.deck.RouteVisuals(c.Request.Context(), req.Slides, req.Subject, req.PaidEnabled)
	response.RespondOK(c, gin.H{
		"decisions": decisions,
		"totalCost": visuals.TotalCost(decisions),
	})
}

// POST /api/export-deck
func (h *DeckHandler) ExportDeck(c *gin.Context) {
	var d lesson.Deck
	if err := c.ShouldBindJSON(&d); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	if len(d.Slides) == 0 {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, errors.New("deck has no slides"))
		return
	}
	var buf bytes.Buffer
	contentType, err := h.deck.Export(c.Request.Context(), d, &buf)
	if err != nil {
		h.log.Error("ExportDeck failed", "error", err, "title", d.Title)
		response.RespondAPIError(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
