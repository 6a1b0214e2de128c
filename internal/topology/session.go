package topology

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/geometry"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/observability"
)

// ErrNoModel is returned when a session is created without a parsed model.
var ErrNoModel = errors.New("topology: no element model configured")

// Session owns every derived structure of one analysis pass: the
// conversion cache, the per-tolerance detector results and the assembled
// graph. It is not safe for concurrent use.
type Session struct {
	model   *model.Model
	kernel  Kernel
	tol     float64
	workers int
	logger  *zap.Logger
	metrics *observability.Metrics

	cache       *Cache
	adjacency   map[float64]*RelationSet
	containment map[float64]*RelationSet
	boundaries  *RelationSet
	graph       *model.ConnectivityGraph
	dropped     int
	runs        []StrategyRun
}

// Option configures a Session.
type Option func(*Session)

// WithTolerance sets the distance tolerance used by Analyze and Assemble.
func WithTolerance(tol float64) Option {
	return func(s *Session) {
		if tol > 0 {
			s.tol = tol
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records phase durations and strategy yields on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithWorkers sets the number of goroutines used to warm the cache.
func WithWorkers(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewSession starts an analysis session over m. A nil kernel is accepted:
// every detector then runs its structural strategies only.
func NewSession(m *model.Model, k Kernel, opts ...Option) (*Session, error) {
	if m == nil {
		return nil, ErrNoModel
	}
	s := &Session{
		model:   m,
		kernel:  k,
		tol:     geometry.DefaultTolerance,
		workers: 1,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("topology")
	s.reset()
	if k == nil {
		s.logger.Warn("Geometry kernel unavailable, using structural relationships only")
	}
	return s, nil
}

func (s *Session) reset() {
	s.cache = NewCache(s.kernel, s.tol, s.logger)
	s.adjacency = make(map[float64]*RelationSet)
	s.containment = make(map[float64]*RelationSet)
	s.boundaries = nil
	s.graph = nil
	s.dropped = 0
	s.runs = nil
}

// Invalidate discards every cached handle, detector result and the graph.
func (s *Session) Invalidate() { s.reset() }

// Tolerance returns the session tolerance.
func (s *Session) Tolerance() float64 { return s.tol }

// Model returns the model under analysis.
func (s *Session) Model() *model.Model { return s.model }

// Cache returns the session's conversion cache.
func (s *Session) Cache() *Cache { return s.cache }

// KernelAvailable reports whether geometric strategies can run.
func (s *Session) KernelAvailable() bool { return s.kernel != nil }

// Report summarizes a completed analysis.
type Report struct {
	Elements        int                            `json:"elements"`
	Nodes           int                            `json:"nodes"`
	Edges           int                            `json:"edges"`
	EdgesByKind     map[model.RelationshipKind]int `json:"edges_by_kind"`
	Conversion      ConversionStats                `json:"conversion"`
	Strategies      []StrategyRun                  `json:"strategies"`
	DroppedPairs    int                            `json:"dropped_pairs"`
	KernelAvailable bool                           `json:"kernel_available"`
	Tolerance       float64                        `json:"tolerance"`
	Duration        time.Duration                  `json:"duration"`
}

// Analyze runs the full pass: cache warm-up, the three detectors and graph
// assembly. Per-element failures never fail the pass; only cancellation does.
func (s *Session) Analyze(ctx context.Context) (*model.ConnectivityGraph, *Report, error) {
	start := time.Now()
	if err := s.cache.Warm(ctx, s.model.Elements, s.workers); err != nil {
		return nil, nil, err
	}
	s.metrics.ObservePhase("warm", start)

	assembled := time.Now()
	g, err := s.Assemble(ctx)
	if err != nil {
		return nil, nil, err
	}
	s.metrics.ObservePhase("assemble", assembled)
	s.metrics.ObservePhase("total", start)
	r := &Report{
		Elements:        len(s.model.Elements),
		Nodes:           len(g.Nodes),
		Edges:           len(g.Edges),
		EdgesByKind:     g.CountByKind(),
		Conversion:      s.cache.Stats(),
		Strategies:      append([]StrategyRun(nil), s.runs...),
		DroppedPairs:    s.dropped,
		KernelAvailable: s.KernelAvailable(),
		Tolerance:       s.tol,
		Duration:        time.Since(start),
	}
	s.logger.Info("Analysis completed",
		zap.Int("elements", r.Elements),
		zap.Int("nodes", r.Nodes),
		zap.Int("edges", r.Edges),
		zap.Int("conversion_failures", r.Conversion.ByStatus[StatusFailed.String()]),
		zap.Duration("duration", r.Duration))
	return g, r, nil
}

// handles converts elements and returns the available handles in order.
func (s *Session) handles(elements []model.Element) []*Handle {
	var out []*Handle
	for _, el := range elements {
		if conv := s.cache.Convert(el); conv.OK() {
			out = append(out, conv.Handle)
		}
	}
	return out
}

