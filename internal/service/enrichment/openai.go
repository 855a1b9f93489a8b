package enrichment

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/sashabaranov/go-openai"
)

// OpenAIDescriber works with OpenAI and any OpenAI-compatible endpoint set via baseURL.
type OpenAIDescriber struct {
	client *openai.Client
	model  string
}

func NewOpenAIDescriber(apiKey, model, baseURL string) *OpenAIDescriber {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIDescriber{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (o *OpenAIDescriber) Describe(ctx context.Context, image []byte, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response choices")
	}
	return resp.Choices[0].Message.Content, nil
}
