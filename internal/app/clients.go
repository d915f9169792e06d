package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/lessonforge-backend/internal/observability"
	"github.com/yungbote/lessonforge-backend/internal/platform/gcp"
	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
	"github.com/yungbote/lessonforge-backend/internal/platform/stockphoto"
)

type Clients struct {
	Redis    *goredis.Client
	LLM      llm.Client
	Embedder llm.Embedder
	Images   llm.ImageGenerator
	Photos   stockphoto.Service
	// Vision and Speech are nil unless GCP media is enabled and the clients started.
	Vision gcp.Vision
	Speech gcp.Speech
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	var rdb *goredis.Client
	if cfg.RedisAddr != "" {
		rdb = goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		log.Info("redis connected", "addr", cfg.RedisAddr)
	}

	// LLM
	var obs llm.Observer
	if metrics != nil {
		obs = metrics
	}
	var cmdable goredis.Cmdable
	if rdb != nil {
		cmdable = rdb
	}
	provider, err := llm.NewProvider(ctx, log, cfg.LLM, cmdable, obs)
	if err != nil {
		closeRedis(rdb)
		return Clients{}, fmt.Errorf("init llm provider: %w", err)
	}
	embedder, err := llm.NewEmbedder(cfg.LLM)
	if err != nil {
		closeRedis(rdb)
		return Clients{}, fmt.Errorf("init embedder: %w", err)
	}
	images, err := llm.NewImageGenerator(cfg.LLM)
	if err != nil {
		closeRedis(rdb)
		return Clients{}, fmt.Errorf("init image generator: %w", err)
	}
	log.Info("llm provider ready", "provider", cfg.LLM.Provider, "model", provider.ModelID())

	out := Clients{
		Redis:    rdb,
		LLM:      llm.NewClient(provider, cfg.LLM.Timeout),
		Embedder: embedder,
		Images:   images,
		Photos:   stockphoto.New(log, stockphoto.ConfigFromEnv()),
	}

	// GCP media: a failed client leaves that question type unavailable instead of failing startup.
	if cfg.GCPMedia {
		if v, err := gcp.NewVision(ctx, log); err != nil {
			log.Warn("vision client unavailable; image questions disabled", "error", err)
		} else {
			out.Vision = v
		}
		if sp, err := gcp.NewSpeech(ctx, log); err != nil {
			log.Warn("speech client unavailable; voice questions disabled", "error", err)
		} else {
			out.Speech = sp
		}
	}
	return out, nil
}

func closeRedis(rdb *goredis.Client) {
	if rdb != nil {
		_ = rdb.Close()
	}
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	closeRedis(c.Redis)
	if c.Vision != nil {
		_ = c.Vision.Close()
	}
	if c.Speech != nil {
		_ = c.Speech.Close()
	}
}
