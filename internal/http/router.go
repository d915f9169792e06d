package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/lessonforge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/lessonforge-backend/internal/http/middleware"
	"github.com/yungbote/lessonforge-backend/internal/observability"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string
	// ServiceName enables otelgin spans when set.
	ServiceName string

	DeckHandler       *httpH.DeckHandler
	LessonPlanHandler *httpH.LessonPlanHandler
	TextbookHandler   *httpH.TextbookHandler
	ActivityHandler   *httpH.ActivityHandler
	DoubtHandler      *httpH.DoubtHandler
	ImageHandler      *httpH.ImageHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Decks
		if cfg.DeckHandler != nil {
			api.POST("/generate-deck", cfg.DeckHandler.GenerateDeck)
			api.POST("/generate-deck-advanced", cfg.DeckHandler.GenerateDeckAdvanced)
			api.POST("/modify-deck", cfg.DeckHandler.ModifyDeck)
			api.POST("/differentiate-deck", cfg.DeckHandler.DifferentiateDeck)
			api.POST("/route-visuals", cfg.DeckHandler.RouteVisuals)
			api.POST("/export-deck", cfg.DeckHandler.ExportDeck)
		}

		// Lesson plans
		if cfg.LessonPlanHandler != nil {
			api.POST("/generate-lesson-plan", cfg.LessonPlanHandler.GenerateLessonPlan)
			api.POST("/modify-lesson-plan", cfg.LessonPlanHandler.ModifyLessonPlan)
			api.POST("/generate-curriculum-plan", cfg.LessonPlanHandler.GenerateCurriculumPlan)
		}

		if cfg.TextbookHandler != nil {
			api.POST("/parse-index", cfg.TextbookHandler.ParseIndex)
		}

		if cfg.ActivityHandler != nil {
			api.POST("/generate-activity", cfg.ActivityHandler.GenerateActivity)
		}

		// Doubts
		if cfg.DoubtHandler != nil {
			api.POST("/solve-doubt/text", cfg.DoubtHandler.SolveText)
			api.POST("/solve-doubt/image", cfg.DoubtHandler.SolveImage)
			api.POST("/solve-doubt/voice", cfg.DoubtHandler.SolveVoice)
			api.POST("/doubt/follow-up", cfg.DoubtHandler.FollowUp)
		}

		// Images
		if cfg.ImageHandler != nil {
			api.GET("/images/search", cfg.ImageHandler.Search)
			api.GET("/images/placeholder", cfg.ImageHandler.Placeholder)
		}
	}

	return r
}
