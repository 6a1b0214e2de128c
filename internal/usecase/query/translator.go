package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/repository"
)

var ErrNoLLM = errors.New("no LLM client available")

// maxSummaryRows caps the rows shown to the LLM when phrasing an answer.
const maxSummaryRows = 50

// Answer is the result of a natural-language question.
type Answer struct {
	Question string           `json:"question"`
	Cypher   string           `json:"cypher"`
	Rows     []map[string]any `json:"rows"`
	Summary  string           `json:"summary,omitempty"`
}

// Translator turns building questions into read-only Cypher and runs them.
type Translator struct {
	router repository.LLMRouter
	reader repository.GraphReader
	logger *zap.Logger
}

func NewTranslator(router repository.LLMRouter, reader repository.GraphReader, logger *zap.Logger) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Translator{router: router, reader: reader, logger: logger.Named("query")}
}

// Schema returns the static schema merged with whatever the store reports.
// A failing store falls back to the static schema.
func (t *Translator) Schema(ctx context.Context) Schema {
	schema := DescribeSchema()
	if t.reader == nil {
		return schema
	}
	live, err := t.reader.FetchSchema(ctx)
	if err != nil {
		t.logger.Warn("Live schema unavailable, using static schema", zap.Error(err))
		return schema
	}
	return schema.Merge(live)
}

func cypherPrompt(schema Schema, question string) string {
	return fmt.Sprintf(`You translate questions about a building model into a single read-only Neo4j Cypher query.
Use only the labels, relationship types and properties listed below. Match elements by GlobalId or Name.
Never write to the graph. Respond ONLY with the Cypher query.

Schema:
%s
Question: %s`, schema, question)
}

// CleanCypher strips markdown fences and surrounding prose markers from an
// LLM response.
func CleanCypher(resp string) string {
	resp = strings.TrimSpace(resp)
	if i := strings.Index(resp, "```"); i >= 0 {
		resp = resp[i+3:]
		if j := strings.Index(resp, "```"); j >= 0 {
			resp = resp[:j]
		}
		resp = strings.TrimPrefix(resp, "cypher")
		resp = strings.TrimPrefix(resp, "Cypher")
	}
	return strings.TrimSpace(resp)
}

// Translate asks the routed LLM for a Cypher query and checks that it is
// read-only.
func (t *Translator) Translate(ctx context.Context, question string) (string, error) {
	client := t.route(repository.TaskCypher)
	if client == nil {
		return "", ErrNoLLM
	}

	resp, err := client.Generate(ctx, cypherPrompt(t.Schema(ctx), question))
	if err != nil {
		return "", fmt.Errorf("cypher generation with %s failed: %w", client.Name(), err)
	}
	cypher := CleanCypher(resp)
	if err := CheckReadOnly(cypher); err != nil {
		t.logger.Warn("Rejected generated query", zap.String("cypher", cypher), zap.Error(err))
		return cypher, err
	}
	t.logger.Debug("Translated question", zap.String("client", client.Name()), zap.String("cypher", cypher))
	return cypher, nil
}

// Ask translates question, runs the query and, when an answer model is
// available, phrases the rows as a short answer.
func (t *Translator) Ask(ctx context.Context, question string) (*Answer, error) {
	if t.reader == nil {
		return nil, fmt.Errorf("no graph reader configured")
	}
	cypher, err := t.Translate(ctx, question)
	if err != nil {
		return nil, err
	}
	rows, err := t.reader.RunReadQuery(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}

	answer := &Answer{Question: question, Cypher: cypher, Rows: rows}
	if summary, err := t.summarize(ctx, question, rows); err != nil {
		t.logger.Warn("Answer summary failed", zap.Error(err))
	} else {
		answer.Summary = summary
	}
	return answer, nil
}

func (t *Translator) summarize(ctx context.Context, question string, rows []map[string]any) (string, error) {
	client := t.route(repository.TaskAnswer)
	if client == nil {
		return "", nil
	}
	if len(rows) > maxSummaryRows {
		rows = rows[:maxSummaryRows]
	}
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(rows)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf(`Answer the question about the building in one or two sentences using only these query results.

Question: %s
Results: %s`, question, data)
	resp, err := client.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

func (t *Translator) route(task repository.TaskType) repository.LLMClient {
	if t.router == nil {
		return nil
	}
	return t.router.RouteLLMTask(task)
}
