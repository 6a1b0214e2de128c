package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

var errNoCandidates = errors.New("no candidates returned from gemini")

// GeminiClient implements repository.LLMClient.
type GeminiClient struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	logger    *zap.Logger
}

func NewGeminiClient(ctx context.Context, apiKey, modelName string, logger *zap.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key must not be empty")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	// Cypher generation wants deterministic output.
	model.SetTemperature(0)

	return &GeminiClient{
		client:    client,
		model:     model,
		modelName: modelName,
		logger:    logger.Named("gemini"),
	}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug("Sending request", zap.String("model", c.modelName), zap.Int("prompt_chars", len(prompt)))

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	return extractText(resp)
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errNoCandidates
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("unexpected response format from gemini")
	}
	return sb.String(), nil
}

func (c *GeminiClient) Name() string {
	return fmt.Sprintf("Gemini (%s) [Cloud]", c.modelName)
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}
