package app

import (
	"context"
	"fmt"

	"github.com/yungbote/lessonforge-backend/internal/modules/activity"
	"github.com/yungbote/lessonforge-backend/internal/modules/deck"
	"github.com/yungbote/lessonforge-backend/internal/modules/doubt"
	"github.com/yungbote/lessonforge-backend/internal/modules/lessonplan"
	"github.com/yungbote/lessonforge-backend/internal/modules/standards"
	"github.com/yungbote/lessonforge-backend/internal/modules/textbook"
	"github.com/yungbote/lessonforge-backend/internal/observability"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
	"github.com/yungbote/lessonforge-backend/internal/realtime/bus"
	"github.com/yungbote/lessonforge-backend/internal/services"
)

type Services struct {
	Deck        *deck.Service
	LessonPlans *lessonplan.Planner
	Textbook    *textbook.Parser
	Activities  *activity.Generator
	Doubts      *doubt.Solver
	Standards   standards.Service
	Bus         bus.Bus

	Placeholder services.PlaceholderImageService
	Processor   services.ImageProcessor
}

func wireServices(ctx context.Context, log *logger.Logger, cfg Config, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	stds, err := resolveStandards(ctx, log, clients.Embedder, metrics)
	if err != nil {
		return Services{}, err
	}
	if stds != nil && cfg.StandardsFile != "" {
		items, err := standards.LoadFile(cfg.StandardsFile)
		if err != nil {
			return Services{}, err
		}
		n, err := stds.Seed(ctx, items)
		if err != nil {
			return Services{}, fmt.Errorf("seed standards: %w", err)
		}
		log.Info("standards seeded at startup", "file", cfg.StandardsFile, "count", n)
	}

	// Progress bus: redis when configured so other replicas can follow a stream.
	var progress bus.Bus
	if clients.Redis != nil {
		progress, err = bus.NewRedisBus(log, clients.Redis, cfg.RedisChannel)
		if err != nil {
			return Services{}, fmt.Errorf("init progress bus: %w", err)
		}
	} else {
		progress = bus.NewMemoryBus()
	}

	if cfg.PaidVisuals && clients.Images == nil {
		log.Warn("PAID_VISUALS_ENABLED set but no image generator configured; illustrations will fail to render")
	}
	deckSvc, err := deck.NewService(deck.ServiceDeps{
		Log:         log,
		LLM:         clients.LLM,
		Standards:   stds,
		Images:      clients.Images,
		Metrics:     metrics,
		Bus:         progress,
		Renderer:    deck.MarkdownRenderer{},
		PaidVisuals: cfg.PaidVisuals,
		Concurrency: cfg.SlideConcurrency,
	})
	if err != nil {
		return Services{}, err
	}

	placeholder, err := services.NewPlaceholderImageService(log)
	if err != nil {
		return Services{}, fmt.Errorf("init placeholder images: %w", err)
	}

	return Services{
		Deck:        deckSvc,
		LessonPlans: lessonplan.New(log, clients.LLM),
		Textbook:    textbook.New(log, clients.LLM),
		Activities:  activity.New(log, clients.LLM),
		Doubts:      doubtSolver(log, clients),
		Standards:   stds,
		Bus:         progress,
		Placeholder: placeholder,
		Processor:   services.NewImageProcessor(log),
	}, nil
}

func doubtSolver(log *logger.Logger, clients Clients) *doubt.Solver {
	s := doubt.New(log, clients.LLM)
	var ocr doubt.TextExtractor
	if clients.Vision != nil {
		ocr = clients.Vision
	}
	var stt doubt.Transcriber
	if clients.Speech != nil {
		stt = clients.Speech
	}
	return s.WithMedia(ocr, stt)
}

func (s *Services) Close() {
	if s == nil || s.Bus == nil {
		return
	}
	_ = s.Bus.Close()
}
