package llm

import (
	"context"
	"errors"

	"github.com/liushuangls/go-anthropic/v2"
)

var errNoContent = errors.New("no response content")

type ClaudeClient struct {
	client *anthropic.Client
	model  string
}

func NewClaudeClient(apiKey string, model string, baseURL string) *ClaudeClient {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &ClaudeClient{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

func (c *ClaudeClient) Generate(ctx context.Context, prompt string) (string, error) {
	req := anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
		MaxTokens: replyMaxTokens,
	}
	req.SetTemperature(0)

	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		return "", err
	}
	for _, content := range resp.Content {
		if content.Type == anthropic.MessagesContentTypeText && content.Text != nil {
			return *content.Text, nil
		}
	}
	return "", errNoContent
}
