package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lessonforge-backend/internal/http/response"
	"github.com/yungbote/lessonforge-backend/internal/modules/lessonplan"
	"github.com/yungbote/lessonforge-backend/internal/platform/apierr"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

type LessonPlanner interface {
	Generate(ctx context.Context, req lessonplan.Request) (*lessonplan.Plan, error)
	Modify(ctx context.Context, req lessonplan.ModifyRequest) (*lessonplan.Plan, error)
	CurriculumPlan(ctx context.Context, req lessonplan.CurriculumRequest) (*lessonplan.CurriculumPlan, error)
}

type LessonPlanHandler struct {
	log     *logger.Logger
	planner LessonPlanner
}

func NewLessonPlanHandler(log *logger.Logger, planner LessonPlanner) *LessonPlanHandler {
	return &LessonPlanHandler{
		log:     log.With("handler", "LessonPlanHandler"),
		planner: planner,
	}
}

// POST /api/generate-lesson-plan
func (h *LessonPlanHandler) GenerateLessonPlan(c *gin.Context) {
	var req lessonplan.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	plan, err := h.planner.Generate(c.Request.Context(), req)
	if err != nil {
		h.log.Error("GenerateLessonPlan failed", "error", err, "subject", req.Subject)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, plan)
}

// POST /api/modify-lesson-plan
func (h *LessonPlanHandler) ModifyLessonPlan(c *gin.Context) {
	var req lessonplan.ModifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	plan, err := h.planner.Modify(c.Request.Context(), req)
	if err != nil {
		h.log.Error("ModifyLessonPlan failed", "error", err)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, plan)
}

// POST /api/generate-curriculum-plan
func (h *LessonPlanHandler) GenerateCurriculumPlan(c *gin.Context) {
	var req lessonplan.CurriculumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	plan, err := h.planner.CurriculumPlan(c.Request.Context(), req)
	if err != nil {
		h.log.Error("GenerateCurriculumPlan failed", "error", err, "subject", req.Subject)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, plan)
}
