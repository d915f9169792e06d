package llm

import "context"

// Provider is a single LLM backend. Implementations must be safe for concurrent use.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	ModelID() string
}

// Streamer is implemented by providers that can emit incremental text.
type Streamer interface {
	Stream(ctx context.Context, req Request, onDelta func(delta string)) (*Response, error)
}

// Embedder turns texts into vectors. Output order matches input order.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type Request struct {
	System   string
	Messages []Message

	// Schema, when set, asks the provider for JSON conforming to it; the result is validated.
	Schema *Schema

	// JSON asks for a bare JSON object without a schema.
	JSON bool

	MaxTokens   int
	Temperature float64

	// Purpose labels the call for logs and metrics ("outline", "slide_content", ...).
	Purpose string
}

type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

type Response struct {
	Content    string
	Usage      Usage
	Model      string
	StopReason string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// UserRequest is the common single-turn shape.
func UserRequest(system, user string) Request {
	return Request{
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: user}},
	}
}

// ImageGenerator produces illustrations. Only the OpenAI provider implements it.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*Image, error)
}

type Image struct {
	URL           string
	RevisedPrompt string
}
