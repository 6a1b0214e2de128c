package topology

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// MinGeometricResults is the floor below which a detector supplements (or
// replaces) its geometric results with structural ones.
const MinGeometricResults = 10

// strategy is one step of a detector. Strategies run in order against a
// shared accumulator; when decides, given the accumulator so far, whether
// the step runs at all.
type strategy struct {
	name string
	when func(acc *RelationSet) bool
	run  func(ctx context.Context, acc *RelationSet) error
}

// StrategyRun records the outcome of one strategy in the analysis report.
type StrategyRun struct {
	Detector string `json:"detector"`
	Strategy string `json:"strategy"`
	Ran      bool   `json:"ran"`
	Added    int    `json:"added"`
}

func (s *Session) runStrategies(ctx context.Context, detector string, steps []strategy) (*RelationSet, error) {
	defer s.metrics.ObservePhase(detector, time.Now())
	acc := newRelationSet()
	var runs []StrategyRun
	for _, st := range steps {
		if st.when != nil && !st.when(acc) {
			runs = append(runs, StrategyRun{Detector: detector, Strategy: st.name})
			continue
		}
		before := acc.Len()
		if err := st.run(ctx, acc); err != nil {
			return nil, fmt.Errorf("%s/%s: %w", detector, st.name, err)
		}
		added := acc.Len() - before
		s.metrics.AddRelations(detector, st.name, added)
		runs = append(runs, StrategyRun{Detector: detector, Strategy: st.name, Ran: true, Added: added})
		s.logger.Debug("Strategy finished",
			zap.String("detector", detector),
			zap.String("strategy", st.name),
			zap.Int("added", added))
	}
	s.runs = append(s.runs, runs...)
	return acc, nil
}

// guard evaluates a pairwise predicate, turning a panicking kernel into a
// skipped pair.
func (s *Session) guard(a, b string, pred func() bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("Predicate failed, skipping pair",
				zap.String("a", a), zap.String("b", b), zap.Any("panic", r))
			ok = false
		}
	}()
	return pred()
}
