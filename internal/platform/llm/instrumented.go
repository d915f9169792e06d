package llm

import (
	"context"
	"time"

	"github.com/yungbote/lessonforge-backend/internal/platform/ctxutil"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

// Observer receives one record per provider call. observability.Metrics implements it.
type Observer interface {
	ObserveLLMCall(provider, purpose, status string, latency time.Duration, inputTokens, outputTokens int, costUSD float64)
}

// InstrumentedProvider logs and records every call made through it.
type InstrumentedProvider struct {
	inner    Provider
	name     string
	log      *logger.Logger
	observer Observer
}

func WithInstrumentation(p Provider, name string, log *logger.Logger, obs Observer) *InstrumentedProvider {
	if log == nil {
		log = logger.NewNop()
	}
	return &InstrumentedProvider{inner: p, name: name, log: log.With("component", "llm"), observer: obs}
}

func (p *InstrumentedProvider) ModelID() string { return p.inner.ModelID() }

func (p *InstrumentedProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := p.inner.Generate(ctx, req)
	p.record(ctx, req, resp, err, time.Since(start), false)
	return resp, err
}

func (p *InstrumentedProvider) Stream(ctx context.Context, req Request, onDelta func(string)) (*Response, error) {
	start := time.Now()
	var resp *Response
	var err error
	if s, ok := p.inner.(Streamer); ok {
		resp, err = s.Stream(ctx, req, onDelta)
	} else {
		resp, err = streamFallback(ctx, p.inner, req, onDelta)
	}
	p.record(ctx, req, resp, err, time.Since(start), true)
	return resp, err
}

func (p *InstrumentedProvider) record(ctx context.Context, req Request, resp *Response, err error, latency time.Duration, stream bool) {
	model := p.inner.ModelID()
	in, out := 0, 0
	if resp != nil {
		in, out = resp.Usage.InputTokens, resp.Usage.OutputTokens
		if resp.Model != "" {
			model = resp.Model
		}
		if in == 0 {
			in = EstimateRequestTokens(model, req)
		}
		if out == 0 {
			out = EstimateTokens(model, resp.Content)
		}
	}
	cost := 0.0
	if c := LookupCost(model); c != nil {
		cost = c.Cost(in, out)
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	purpose := req.Purpose
	if purpose == "" {
		purpose = "unlabeled"
	}
	if p.observer != nil {
		p.observer.ObserveLLMCall(p.name, purpose, status, latency, in, out, cost)
	}

	fields := append([]interface{}{
		"provider", p.name,
		"model", model,
		"purpose", purpose,
		"stream", stream,
		"latency_ms", latency.Milliseconds(),
		"input_tokens", in,
		"output_tokens", out,
		"cost_usd", cost,
	}, ctxutil.LogFields(ctx)...)
	if err != nil {
		p.log.Warn("llm call failed", append(fields, "error", err)...)
		return
	}
	p.log.Debug("llm call", fields...)
}
