package llm

import (
	"context"
)

// replyMaxTokens bounds every provider's reply; a country code needs only a
// few tokens.
const replyMaxTokens = 16

// LLMClient sends a single prompt and returns the model's raw text reply.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
