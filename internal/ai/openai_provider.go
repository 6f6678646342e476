package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

const maxTokens = 2048

// OpenAIProvider calls the OpenAI chat completions endpoint with structured outputs.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a provider targeting baseURL (empty for the public API).
func NewOpenAIProvider(baseURL, apiKey, model string, httpClient *http.Client) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// GenerateStructured sends the image as a data URL and requests a strict
// json_schema response.
func (p *OpenAIProvider) GenerateStructured(ctx context.Context, req StructuredRequest) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", req.Image.MIMEType, req.Image.Data)
	return p.complete(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.SchemaName,
				Schema: req.Schema,
				Strict: true,
			},
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailAuto},
					},
					{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
				},
			},
		},
	})
}

// GenerateText sends a single user prompt.
func (p *OpenAIProvider) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	return p.complete(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
}

func (p *OpenAIProvider) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
