package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

const cacheKeyPrefix = "llm:resp:"

// CachedProvider serves identical requests from redis for TTL.
// Streaming calls bypass the cache.
type CachedProvider struct {
	inner Provider
	rdb   goredis.Cmdable
	ttl   time.Duration
	log   *logger.Logger
}

func WithCache(p Provider, rdb goredis.Cmdable, ttl time.Duration, log *logger.Logger) *CachedProvider {
	if log == nil {
		log = logger.NewNop()
	}
	return &CachedProvider{inner: p, rdb: rdb, ttl: ttl, log: log}
}

func (c *CachedProvider) ModelID() string { return c.inner.ModelID() }

func (c *CachedProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	key, err := cacheKey(c.inner.ModelID(), req)
	if err != nil {
		return c.inner.Generate(ctx, req)
	}

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var resp Response
		if json.Unmarshal(raw, &resp) == nil {
			return &resp, nil
		}
	case !errors.Is(err, goredis.Nil):
		c.log.Warn("llm cache read failed", "error", err)
	}

	resp, err := c.inner.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if b, mErr := json.Marshal(resp); mErr == nil {
		if sErr := c.rdb.Set(ctx, key, b, c.ttl).Err(); sErr != nil {
			c.log.Warn("llm cache write failed", "error", sErr)
		}
	}
	return resp, nil
}

func (c *CachedProvider) Stream(ctx context.Context, req Request, onDelta func(string)) (*Response, error) {
	if s, ok := c.inner.(Streamer); ok {
		return s.Stream(ctx, req, onDelta)
	}
	return streamFallback(ctx, c.inner, req, onDelta)
}

func cacheKey(model string, req Request) (string, error) {
	b, err := json.Marshal(struct {
		Model string
		Req   Request
	}{model, req})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return cacheKeyPrefix + hex.EncodeToString(sum[:]), nil
}
