package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"smart-nutrition/internal/shared"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = openai.GPT4oMini

// OpenAIAnalyzer analyzes photos with an OpenAI compatible chat completion
// endpoint.
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
}

// NewOpenAIAnalyzer creates the client. An empty baseURL keeps the public API.
func NewOpenAIAnalyzer(apiKey, model, baseURL string) *OpenAIAnalyzer {
	if model == "" {
		model = DefaultOpenAIModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIAnalyzer{client: openai.NewClientWithConfig(cfg), model: model}
}

// Analyze sends the downscaled photo inline as a data URL and parses the
// answer.
func (o *OpenAIAnalyzer) Analyze(ctx context.Context, image []byte, mimeType string) (Result, error) {
	image, mimeType, err := prepareUpload(image, mimeType)
	if err != nil {
		return Result{}, err
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: Prompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailAuto},
					},
				},
			},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to create chat completion: %w", err)
	}
	latency := time.Since(start)

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return Result{}, ErrNoContent
	}
	analysis, err := ParseAnalysis(resp.Choices[0].Message.Content)
	if err != nil {
		return Result{}, err
	}

	model := resp.Model
	if model == "" {
		model = o.model
	}
	return Result{
		Analysis: analysis,
		Meta: shared.CallMeta{
			Component: Component,
			Usage: shared.TokenUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
				Model:            model,
			},
			Latency: latency,
		},
	}, nil
}
