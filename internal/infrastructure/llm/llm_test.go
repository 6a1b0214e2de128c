package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/repository"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/infrastructure/resilience"
)

type mockClient struct {
	name string
	err  error
}

func (m *mockClient) Generate(context.Context, string) (string, error) { return m.name, m.err }
func (m *mockClient) Name() string { return m.name }

func TestRouter(t *testing.T) {
	local := &mockClient{name: "local"}
	cloud := &mockClient{name: "cloud"}

	tests := []struct {
		name   string
		router *Router
		task   repository.TaskType
		want   repository.LLMClient
	}{
		{"cypher goes to cloud", NewRouter(local, cloud, nil), repository.TaskCypher, cloud},
		{"answer stays local", NewRouter(local, cloud, nil), repository.TaskAnswer, local},
		{"unknown stays local", NewRouter(local, cloud, nil), repository.TaskType("other"), local},
		{"local only", NewRouter(local, nil, nil), repository.TaskCypher, local},
		{"cloud only", NewRouter(nil, cloud, nil), repository.TaskAnswer, cloud},
		{"nothing configured", NewRouter(nil, nil, nil), repository.TaskCypher, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.router.RouteLLMTask(tt.task))
		})
	}
}

func TestRouter_FallsBackWhenCircuitOpen(t *testing.T) {
	local := &mockClient{name: "local"}
	cloud := NewGuardedClient(&mockClient{name: "cloud", err: errors.New("quota exceeded")}, resilience.NewCircuitBreaker(2, time.Hour), nil)
	r := NewRouter(local, cloud, nil)

	assert.Equal(t, cloud, r.RouteLLMTask(repository.TaskCypher))
	for i := 0; i < 2; i++ {
		_, err := cloud.Generate(context.Background(), "q")
		require.Error(t, err)
	}
	assert.False(t, cloud.Available())
	assert.Equal(t, local, r.RouteLLMTask(repository.TaskCypher))

	_, err := cloud.Generate(context.Background(), "q")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)

	// Without a local client the open cloud client is still returned.
	assert.Equal(t, cloud, NewRouter(nil, cloud, nil).RouteLLMTask(repository.TaskCypher))
}

func TestOllamaGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = jsoniter.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"model":"llama3","message":{"role":"assistant","content":"MATCH (s:IfcSpace) RETURN s"},"done":true}`)
	}))
	defer srv.Close()

	c, err := NewLocalOllamaClient(srv.URL, "llama3", 5*time.Second, nil)
	require.NoError(t, err)
	out, err := c.Generate(context.Background(), "list spaces")
	require.NoError(t, err)

	assert.Equal(t, "MATCH (s:IfcSpace) RETURN s", out)
	assert.Equal(t, "llama3", got["model"])
	assert.Equal(t, false, got["stream"])
	assert.Equal(t, "Ollama (llama3) [Local]", c.Name())
}

func TestOllamaGenerateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"model not loaded"}`)
	}))
	defer srv.Close()

	c, err := NewLocalOllamaClient(srv.URL, "", time.Second, nil)
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "q")
	assert.Error(t, err)
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "", "", nil)
	assert.Error(t, err)
}

func TestExtractText(t *testing.T) {
	_, err := extractText(nil)
	assert.ErrorIs(t, err, errNoCandidates)

	_, err = extractText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}})
	assert.ErrorIs(t, err, errNoCandidates)

	text, err := extractText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("MATCH (n) "), genai.Text("RETURN n")}},
	}}})
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n) RETURN n", text)

	_, err = extractText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}}},
	}}})
	assert.Error(t, err)
}
