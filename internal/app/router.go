package app

import (
	"github.com/yungbote/lessonforge-backend/internal/http"
	"github.com/yungbote/lessonforge-backend/internal/observability"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:               log,
		Metrics:           metrics,
		CORSOrigins:       cfg.CORSOrigins,
		ServiceName:       cfg.ServiceName,
		HealthHandler:     handlers.Health,
		DeckHandler:       handlers.Deck,
		LessonPlanHandler: handlers.LessonPlan,
		TextbookHandler:   handlers.Textbook,
		ActivityHandler:   handlers.Activity,
		DoubtHandler:      handlers.Doubt,
		ImageHandler:      handlers.Image,
	})
}
