package llm

import (
	"context"
	"sync"
)

type MockResponse struct {
	Content string
	Usage   Usage
	Err     error
}

// MockProvider returns canned responses in FIFO order and records all requests.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request
}

func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// Generate returns ErrProviderUnavailable once the queue is empty.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)
	if len(m.responses) == 0 {
		return nil, &ErrProviderUnavailable{}
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	if resp.Err != nil {
		return nil, resp.Err
	}
	if err := validateResponse(req.Schema, resp.Content); err != nil {
		return nil, err
	}
	return &Response{Content: resp.Content, Usage: resp.Usage, Model: "mock", StopReason: "end"}, nil
}

func (m *MockProvider) ModelID() string { return "mock" }

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// FuncClient is a Client backed by plain functions. Unset functions fail the call.
// It is meant for tests where concurrent callers need prompt-dependent answers.
type FuncClient struct {
	CompleteFn func(ctx context.Context, p Prompt) (string, error)

	mu    sync.Mutex
	calls []Prompt
}

func (f *FuncClient) Complete(ctx context.Context, p Prompt) (string, error) {
	f.record(p)
	if f.CompleteFn == nil {
		return "", &ErrProviderUnavailable{}
	}
	return f.CompleteFn(ctx, p)
}

func (f *FuncClient) CompleteJSON(ctx context.Context, p Prompt) (map[string]any, error) {
	f.record(p)
	if f.CompleteFn == nil {
		return nil, &ErrProviderUnavailable{}
	}
	raw, err := f.CompleteFn(ctx, p)
	if err != nil {
		return nil, err
	}
	return ParseJSONObject(raw)
}

// StreamText emits the completion in two halves to exercise chunk handling.
func (f *FuncClient) StreamText(ctx context.Context, p Prompt, onDelta func(string)) (string, error) {
	f.record(p)
	if f.CompleteFn == nil {
		return "", &ErrProviderUnavailable{}
	}
	raw, err := f.CompleteFn(ctx, p)
	if err != nil {
		return "", err
	}
	if onDelta != nil && raw != "" {
		mid := len(raw) / 2
		if mid > 0 {
			onDelta(raw[:mid])
		}
		onDelta(raw[mid:])
	}
	return raw, nil
}

func (f *FuncClient) Calls() []Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Prompt(nil), f.calls...)
}

func (f *FuncClient) record(p Prompt) {
	f.mu.Lock()
	f.calls = append(f.calls, p)
	f.mu.Unlock()
}
