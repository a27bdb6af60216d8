package vision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"smart-nutrition/internal/shared"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiAnalyzer analyzes photos with the Gemini API.
type GeminiAnalyzer struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

// NewGeminiAnalyzer creates a Gemini client configured for JSON answers.
func NewGeminiAnalyzer(ctx context.Context, apiKey, modelName string) (*GeminiAnalyzer, error) {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.1)

	return &GeminiAnalyzer{client: client, model: model, modelName: modelName}, nil
}

// Analyze sends the prompt and the downscaled photo and parses the answer.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, image []byte, mimeType string) (Result, error) {
	image, mimeType, err := prepareUpload(image, mimeType)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	resp, err := g.model.GenerateContent(ctx, genai.Text(Prompt), genai.Blob{MIMEType: mimeType, Data: image})
	if err != nil {
		return Result{}, fmt.Errorf("failed to generate content: %w", err)
	}
	latency := time.Since(start)

	text, err := responseText(resp)
	if err != nil {
		return Result{}, err
	}
	analysis, err := ParseAnalysis(text)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Analysis: analysis,
		Meta: shared.CallMeta{
			Component: Component,
			Usage:     geminiUsage(resp, g.modelName),
			Latency:   latency,
		},
	}, nil
}

// Close closes the underlying Gemini client.
func (g *GeminiAnalyzer) Close() error {
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoContent
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: answer has no text part", ErrNoContent)
	}
	return sb.String(), nil
}

func geminiUsage(resp *genai.GenerateContentResponse, model string) shared.TokenUsage {
	usage := shared.TokenUsage{Model: model}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return usage
}
