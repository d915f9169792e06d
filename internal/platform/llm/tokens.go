package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encMu    sync.Mutex
	encCache = map[string]*tiktoken.Tiktoken{}
)

// EstimateTokens counts tokens with the model's tiktoken encoding, falling back to
// cl100k_base and then to len/4 when no encoding can be loaded.
func EstimateTokens(model, text string) int {
	if text == "" {
		return 0
	}
	if enc := encodingFor(model); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}

func encodingFor(model string) *tiktoken.Tiktoken {
	encMu.Lock()
	defer encMu.Unlock()
	if enc, ok := encCache[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			enc = nil
		}
	}
	encCache[model] = enc
	return enc
}

// EstimateRequestTokens sums the system prompt and every message.
func EstimateRequestTokens(model string, req Request) int {
	n := EstimateTokens(model, req.System)
	for _, m := range req.Messages {
		n += EstimateTokens(model, m.Content)
	}
	return n
}
