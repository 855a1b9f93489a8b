package enrichment

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/liushuangls/go-anthropic/v2"
)

const defaultClaudeModel = "claude-3-5-haiku-latest"

type ClaudeDescriber struct {
	client *anthropic.Client
	model  string
}

func NewClaudeDescriber(apiKey, model, baseURL string) *ClaudeDescriber {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	if model == "" {
		model = defaultClaudeModel
	}
	return &ClaudeDescriber{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

func (c *ClaudeDescriber) Describe(ctx context.Context, image []byte, prompt string) (string, error) {
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
						anthropic.MessagesContentSourceTypeBase64,
						"image/jpeg",
						base64.StdEncoding.EncodeToString(image),
					)),
					anthropic.NewTextMessageContent(prompt),
				},
			},
		},
		MaxTokens: 2048,
	})
	if err != nil {
		return "", err
	}

	for _, content := range resp.Content {
		if content.Text != nil {
			return *content.Text, nil
		}
	}
	return "", errors.New("no response content")
}
