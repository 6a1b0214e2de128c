package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/repository"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/infrastructure/resilience"
)

// GuardedClient runs an LLMClient behind a circuit breaker.
type GuardedClient struct {
	inner   repository.LLMClient
	breaker *resilience.CircuitBreaker
}

func NewGuardedClient(inner repository.LLMClient, breaker *resilience.CircuitBreaker, logger *zap.Logger) *GuardedClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	name := inner.Name()
	breaker.OnStateChange(func(from, to resilience.State) {
		logger.Warn("LLM circuit changed", zap.String("client", name), zap.Stringer("from", from), zap.Stringer("to", to))
	})
	return &GuardedClient{inner: inner, breaker: breaker}
}

func (g *GuardedClient) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := g.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.Generate(ctx, prompt)
		return err
	})
	return out, err
}

func (g *GuardedClient) Name() string { return g.inner.Name() }

// Available reports whether the breaker would let a call through.
func (g *GuardedClient) Available() bool { return g.breaker.Allow() }
