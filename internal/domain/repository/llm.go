package repository

import (
	"context"
)

// LLMClient generates a completion for a single prompt.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// TaskType names the kind of work handed to an LLM so that a router can
// pick a model for it.
type TaskType string

const (
	// TaskCypher turns a building question into a read-only Cypher query.
	TaskCypher TaskType = "cypher_translation"
	// TaskAnswer phrases query rows as a natural-language answer.
	TaskAnswer TaskType = "answer_summary"
)

// LLMRouter selects the client serving a task.
type LLMRouter interface {
	RouteLLMTask(task TaskType) LLMClient
}
