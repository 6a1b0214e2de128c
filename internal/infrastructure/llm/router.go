package llm

import (
	"go.uber.org/zap"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/repository"
)

// Router picks the client serving a task. Cypher translation goes to the
// cloud model when one is configured; everything else stays local.
type Router struct {
	localClient repository.LLMClient
	cloudClient repository.LLMClient
	logger      *zap.Logger
}

var _ repository.LLMRouter = (*Router)(nil)

// NewRouter initializes the router. cloud may be nil in local-only mode.
func NewRouter(local, cloud repository.LLMClient, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{localClient: local, cloudClient: cloud, logger: logger.Named("router")}
}

// RouteLLMTask returns the client for task, or nil when none is configured.
func (r *Router) RouteLLMTask(task repository.TaskType) repository.LLMClient {
	selected := r.localClient
	if task == repository.TaskCypher && r.cloudClient != nil {
		if available(r.cloudClient) || r.localClient == nil {
			selected = r.cloudClient
		} else {
			r.logger.Info("Cloud client unavailable, falling back to local", zap.String("client", r.cloudClient.Name()))
		}
	}
	if selected == nil {
		selected = r.cloudClient
	}
	if selected == nil {
		r.logger.Warn("No LLM client configured", zap.String("task", string(task)))
		return nil
	}
	r.logger.Debug("Routing task", zap.String("task", string(task)), zap.String("client", selected.Name()))
	return selected
}

func available(c repository.LLMClient) bool {
	if a, ok := c.(interface{ Available() bool }); ok {
		return a.Available()
	}
	return true
}
