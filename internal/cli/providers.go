package cli

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/config"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/database"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/database/bunstore"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/repository"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/infrastructure/llm"
	neo4jpkg "github.com/ismail-codar/IFC-GraphRAG-System/internal/infrastructure/neo4j"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/infrastructure/resilience"
)

// GraphBackend is everything the commands need from the graph database.
type GraphBackend interface {
	repository.GraphStore
	repository.GraphReader
	FindPath(ctx context.Context, start, end string, kinds []model.RelationshipKind, maxDepth int) (model.Path, error)
}

// Providers open external resources. Each returns a cleanup function that
// must be called once the resource is no longer needed.
type Providers struct {
	Graph func(ctx context.Context, cfg config.Neo4jConfig, logger *zap.Logger) (GraphBackend, func(), error)
	Runs  func(ctx context.Context, cfg config.StoreConfig) (database.RunRepository, func(), error)
	LLM   func(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (repository.LLMRouter, func(), error)
}

func (p Providers) withDefaults() Providers {
	if p.Graph == nil {
		p.Graph = openNeo4j
	}
	if p.Runs == nil {
		p.Runs = openRunStore
	}
	if p.LLM == nil {
		p.LLM = openLLMRouter
	}
	return p
}

func openNeo4j(ctx context.Context, cfg config.Neo4jConfig, logger *zap.Logger) (GraphBackend, func(), error) {
	client, err := neo4jpkg.NewClient(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return client, func() {
		if err := client.Close(context.Background()); err != nil {
			logger.Warn("Failed to close Neo4j driver", zap.Error(err))
		}
	}, nil
}

func openRunStore(ctx context.Context, cfg config.StoreConfig) (database.RunRepository, func(), error) {
	store, err := bunstore.Open(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

// Breaker settings for the cloud model: three consecutive failures switch
// Cypher translation to the local model for a minute.
const (
	cloudFailThreshold = 3
	cloudOpenTimeout   = time.Minute
)

func openLLMRouter(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (repository.LLMRouter, func(), error) {
	local, err := llm.NewLocalOllamaClient(cfg.OllamaHost, cfg.OllamaModel, cfg.Timeout, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.UseLocalOnlyLLM {
		logger.Info("Local-only mode, all LLM tasks use Ollama", zap.String("client", local.Name()))
		return llm.NewRouter(local, nil, logger), func() {}, nil
	}

	gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	if err != nil {
		return nil, nil, err
	}
	cloud := llm.NewGuardedClient(gemini, resilience.NewCircuitBreaker(cloudFailThreshold, cloudOpenTimeout), logger)
	logger.Info("LLM router initialized", zap.String("cloud", cloud.Name()), zap.String("local", local.Name()))
	return llm.NewRouter(local, cloud, logger), func() {
		if err := gemini.Close(); err != nil {
			logger.Warn("Failed to close Gemini client", zap.Error(err))
		}
	}, nil
}
