package app

import (
	httpH "github.com/yungbote/lessonforge-backend/internal/http/handlers"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

type Handlers struct {
	Health     *httpH.HealthHandler
	Deck       *httpH.DeckHandler
	LessonPlan *httpH.LessonPlanHandler
	Textbook   *httpH.TextbookHandler
	Activity   *httpH.ActivityHandler
	Doubt      *httpH.DoubtHandler
	Image      *httpH.ImageHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(cfg.Version),
		Deck:       httpH.NewDeckHandler(log, services.Deck),
		LessonPlan: httpH.NewLessonPlanHandler(log, services.LessonPlans),
		Textbook:   httpH.NewTextbookHandler(log, services.Textbook),
		Activity:   httpH.NewActivityHandler(log, services.Activities),
		Doubt:      httpH.NewDoubtHandler(log, services.Doubts),
		Image:      httpH.NewImageHandler(log, clients.Photos, services.Placeholder, services.Processor),
	}
}
