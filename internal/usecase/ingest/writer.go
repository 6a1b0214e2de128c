package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/config"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/repository"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/observability"
)

const (
	DefaultBatchSize    = 500
	DefaultBatchTimeout = 30 * time.Second
)

// Options tunes the writer.
type Options struct {
	BatchSize    int
	Concurrency  int
	BatchTimeout time.Duration
	// WritesPerSecond throttles batch submission. Zero disables throttling.
	WritesPerSecond float64
	// Metrics receives per-batch timings and outcomes when set.
	Metrics *observability.Metrics
}

// OptionsFromConfig maps the ingest config section onto writer options.
func OptionsFromConfig(cfg config.IngestConfig) Options {
	return Options{
		BatchSize:       cfg.BatchSize,
		Concurrency:     cfg.Concurrency,
		BatchTimeout:    cfg.BatchTimeout,
		WritesPerSecond: cfg.WritesPerSecond,
	}
}

// PhaseStats counts the work done by one write phase.
type PhaseStats struct {
	Batches  int                      `json:"batches"`
	Written  int                      `json:"written"`
	Retries  int                      `json:"retries"`
	Counters repository.WriteCounters `json:"counters"`
}

func (p *PhaseStats) add(rows, retries int, c repository.WriteCounters) {
	p.Batches++
	p.Written += rows
	p.Retries += retries
	p.Counters.Add(c)
}

// Stats summarizes an ingest.
type Stats struct {
	Cleared     int64         `json:"cleared,omitempty"`
	Constraints int           `json:"constraints"`
	Nodes       PhaseStats    `json:"nodes"`
	Edges       PhaseStats    `json:"edges"`
	Duration    time.Duration `json:"duration"`
}

// BatchError reports a batch that failed after its retry. Stats holds what
// was written before the failure.
type BatchError struct {
	Phase string
	Group string
	Index int
	Err   error
	Stats Stats
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s batch %d of %s failed after retry: %v", e.Phase, e.Index, e.Group, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Writer pushes a connectivity graph into a GraphStore in concurrent
// batches.
type Writer struct {
	store   repository.GraphStore
	opts    Options
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewWriter(store repository.GraphStore, opts Options, logger *zap.Logger) *Writer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = DefaultBatchTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Writer{store: store, opts: opts, logger: logger.Named("ingest")}
	if opts.WritesPerSecond > 0 {
		w.limiter = rate.NewLimiter(rate.Limit(opts.WritesPerSecond), 1)
	}
	return w
}

// Ingest writes constraints, then nodes, then edges. Rerunning it on the
// same graph creates nothing new.
func (w *Writer) Ingest(ctx context.Context, g *model.ConnectivityGraph) (Stats, error) {
	start := time.Now()
	var stats Stats

	n, err := w.EnsureConstraints(ctx, g)
	stats.Constraints = n
	if err != nil {
		return stats, err
	}

	stats.Nodes, err = w.WriteNodes(ctx, g)
	if err != nil {
		return stats, withStats(err, stats)
	}

	stats.Edges, err = w.WriteEdges(ctx, g)
	if err != nil {
		return stats, withStats(err, stats)
	}

	stats.Duration = time.Since(start)
	w.logger.Info("Ingest completed",
		zap.Int("nodes", stats.Nodes.Written),
		zap.Int("edges", stats.Edges.Written),
		zap.Int("nodes_created", stats.Nodes.Counters.NodesCreated),
		zap.Int("relationships_created", stats.Edges.Counters.RelationshipsCreated),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}

func withStats(err error, stats Stats) error {
	var be *BatchError
	if errors.As(err, &be) {
		be.Stats = stats
	}
	return err
}

// Clear removes previously written analysis relationships.
func (w *Writer) Clear(ctx context.Context) (int64, error) {
	return w.store.ClearTopological(ctx)
}

// ConstraintLabels returns every node label of g plus Element, sorted.
func ConstraintLabels(g *model.ConnectivityGraph) []string {
	set := map[string]struct{}{"Element": {}}
	for _, n := range g.Nodes {
		for _, l := range n.Labels {
			set[l] = struct{}{}
		}
	}
	labels := make([]string, 0, len(set))
	for l := range set {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// EnsureConstraints creates the GlobalId constraints and returns how many
// labels were covered.
func (w *Writer) EnsureConstraints(ctx context.Context, g *model.ConnectivityGraph) (int, error) {
	labels := ConstraintLabels(g)
	if err := w.store.EnsureConstraints(ctx, labels); err != nil {
		return 0, fmt.Errorf("ensure constraints: %w", err)
	}
	return len(labels), nil
}

// NodeBatches groups the nodes of g by label set and splits every group into
// batches of size. Order is deterministic.
func NodeBatches(g *model.ConnectivityGraph, size int) []repository.NodeBatch {
	groups := make(map[string][]model.Node)
	for _, n := range g.Nodes {
		key := strings.Join(n.Labels, ":")
		groups[key] = append(groups[key], n)
	}

	var out []repository.NodeBatch
	for _, key := range sortedKeys(groups) {
		nodes := groups[key]
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
		for lo := 0; lo < len(nodes); lo += size {
			hi := min(lo+size, len(nodes))
			batch := repository.NodeBatch{Labels: nodes[lo].Labels, Rows: make([]repository.NodeRow, 0, hi-lo)}
			for _, n := range nodes[lo:hi] {
				batch.Rows = append(batch.Rows, repository.NodeRow{GlobalID: n.ID, Name: n.Name, IFCType: string(n.Type)})
			}
			out = append(out, batch)
		}
	}
	return out
}

// EdgeBatches groups edges by kind and endpoint primary labels so that every
// batch can MATCH its endpoints through the GlobalId index.
func EdgeBatches(g *model.ConnectivityGraph, size int) []repository.EdgeBatch {
	type groupKey struct{ kind, src, dst string }
	groups := make(map[groupKey][]repository.EdgeRow)
	for _, e := range g.Edges {
		src, okS := g.Nodes[e.Source]
		dst, okT := g.Nodes[e.Target]
		if !okS || !okT {
			continue
		}
		k := groupKey{string(e.Kind), src.PrimaryLabel(), dst.PrimaryLabel()}
		groups[k] = append(groups[k], repository.EdgeRow{Source: e.Source, Target: e.Target, Properties: e.Properties})
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.kind != b.kind {
			return a.kind < b.kind
		}
		if a.src != b.src {
			return a.src < b.src
		}
		return a.dst < b.dst
	})

	var out []repository.EdgeBatch
	for _, k := range keys {
		rows := groups[k]
		for lo := 0; lo < len(rows); lo += size {
			hi := min(lo+size, len(rows))
			out = append(out, repository.EdgeBatch{Type: k.kind, SourceLabel: k.src, TargetLabel: k.dst, Rows: rows[lo:hi]})
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteNodes merges every node of g.
func (w *Writer) WriteNodes(ctx context.Context, g *model.ConnectivityGraph) (PhaseStats, error) {
	batches := NodeBatches(g, w.opts.BatchSize)
	jobs := make([]batchJob, len(batches))
	for i, b := range batches {
		jobs[i] = batchJob{
			group: strings.Join(b.Labels, ":"),
			rows:  len(b.Rows),
			run: func(ctx context.Context) (repository.WriteCounters, error) {
				return w.store.MergeNodes(ctx, b)
			},
		}
	}
	return w.runPhase(ctx, "nodes", jobs)
}

// WriteEdges merges every edge of g. Nodes must already exist.
func (w *Writer) WriteEdges(ctx context.Context, g *model.ConnectivityGraph) (PhaseStats, error) {
	batches := EdgeBatches(g, w.opts.BatchSize)
	jobs := make([]batchJob, len(batches))
	for i, b := range batches {
		jobs[i] = batchJob{
			group: fmt.Sprintf("%s(%s->%s)", b.Type, b.SourceLabel, b.TargetLabel),
			rows:  len(b.Rows),
			run: func(ctx context.Context) (repository.WriteCounters, error) {
				return w.store.MergeEdges(ctx, b)
			},
		}
	}
	return w.runPhase(ctx, "edges", jobs)
}

type batchJob struct {
	group string
	rows  int
	run   func(ctx context.Context) (repository.WriteCounters, error)
}

func (w *Writer) runPhase(ctx context.Context, phase string, jobs []batchJob) (PhaseStats, error) {
	var (
		mu    sync.Mutex
		stats PhaseStats
	)
	w.logger.Debug("Writing batches", zap.String("phase", phase), zap.Int("batches", len(jobs)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Concurrency)
	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			started := time.Now()
			counters, retries, err := w.runBatch(gctx, job)
			w.opts.Metrics.ObserveBatch(phase, started, job.rows, retries, err)
			if err != nil {
				mu.Lock()
				stats.Retries += retries
				mu.Unlock()
				return &BatchError{Phase: phase, Group: job.group, Index: i, Err: err}
			}
			mu.Lock()
			stats.add(job.rows, retries, counters)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return stats, err
}

// runBatch executes one batch with a timeout and retries it once unless the
// parent context is done.
func (w *Writer) runBatch(ctx context.Context, job batchJob) (repository.WriteCounters, int, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				return repository.WriteCounters{}, attempt, err
			}
		}
		bctx, cancel := context.WithTimeout(ctx, w.opts.BatchTimeout)
		counters, err := job.run(bctx)
		cancel()
		if err == nil {
			return counters, attempt, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return repository.WriteCounters{}, attempt, err
		}
		if attempt == 0 {
			w.logger.Warn("Batch failed, retrying", zap.String("group", job.group), zap.Error(err))
		}
	}
	return repository.WriteCounters{}, 1, lastErr
}
