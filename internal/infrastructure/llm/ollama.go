package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// LocalOllamaClient implements repository.LLMClient against an Ollama server.
type LocalOllamaClient struct {
	client *api.Client
	model  string
	logger *zap.Logger
}

// NewLocalOllamaClient initializes a client for the Ollama server at host.
func NewLocalOllamaClient(host, model string, timeout time.Duration, logger *zap.Logger) (*LocalOllamaClient, error) {
	if host == "" {
		host = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	return &LocalOllamaClient{
		client: api.NewClient(u, &http.Client{Timeout: timeout}),
		model:  model,
		logger: logger.Named("ollama"),
	}, nil
}

// Generate sends a single-turn chat request and returns the assistant text.
func (c *LocalOllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug("Sending request", zap.String("model", c.model), zap.Int("prompt_chars", len(prompt)))

	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
		Options:  map[string]any{"temperature": 0},
	}

	var sb strings.Builder
	if err := c.client.Chat(ctx, req, func(cr api.ChatResponse) error {
		sb.WriteString(cr.Message.Content)
		return nil
	}); err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	return sb.String(), nil
}

// Name returns the descriptive name of the client.
func (c *LocalOllamaClient) Name() string {
	return fmt.Sprintf("Ollama (%s) [Local]", c.model)
}

// PullModel makes sure the configured model is available on the server.
func (c *LocalOllamaClient) PullModel(ctx context.Context) error {
	c.logger.Info("Pulling model", zap.String("model", c.model))
	stream := false
	err := c.client.Pull(ctx, &api.PullRequest{Model: c.model, Stream: &stream}, func(api.ProgressResponse) error {
		return nil
	})
	if err != nil {
		return fmt.Errorf("ollama pull of %s failed: %w", c.model, err)
	}
	return nil
}
