package aoa

import (
	"context"
	"math"
	"runtime"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hed1ad/goaoa/pkg/detectors"
	"github.com/hed1ad/goaoa/pkg/features"
)

// Score computes DI and applicability for every query row, in row order.
// No-data rows come back as NaN DI with NoData applicability.
//
// Rows are split into chunks scored concurrently; each worker writes only
// its own rows of the pre-allocated result. The first failing chunk cancels
// the rest and its error is returned.
func (e *Estimator) Score(ctx context.Context, query *features.Matrix) (*detectors.Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.trained {
		return nil, eris.Wrap(detectors.ErrNotFitted, "aoa: score")
	}
	if query == nil {
		return nil, eris.Wrap(detectors.ErrEmptyData, "aoa: nil query matrix")
	}
	if err := query.CheckFeatures(e.names); err != nil {
		return nil, err
	}

	start := time.Now()
	n := query.NumRows()
	result := detectors.NewResult(n)

	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := e.cfg.ChunkSize
	if chunk <= 0 {
		chunk = detectors.DefaultConfig().ChunkSize
	}

	log := zap.L().With(zap.String("component", "aoa"))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for lo := 0; lo < n; lo += chunk {
		lo := lo
		hi := min(lo+chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			buf := make([]float64, len(e.names))
			for i := lo; i < hi; i++ {
				if query.IsNoData(i) {
					continue
				}
				result.Set(i, e.scoreProjected(e.project(buf, query.Row(i))))
			}
			log.Debug("scored chunk", zap.Int("from", lo), zap.Int("to", hi))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "aoa: score")
	}

	observeResult(result, time.Since(start))
	return result, nil
}

// ScoreOne scores a single raw sample. Samples with NaN or infinite values
// are reported as no-data.
func (e *Estimator) ScoreOne(sample []float64) (detectors.Score, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.checkSample(sample); err != nil {
		return detectors.Score{}, err
	}
	if !finite(sample) {
		return noDataScore(sample), nil
	}

	s := e.scoreProjected(e.project(nil, sample))
	s.Features = sample
	return s, nil
}

// ScoreOneOutsideGroup scores a raw sample against the training samples that
// do not belong to group. Scoring a training sample with its own group gives
// back its training distance. The estimator must have been fitted with
// groups; otherwise ErrNoGroups is returned.
func (e *Estimator) ScoreOneOutsideGroup(sample []float64, group string) (detectors.Score, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.checkSample(sample); err != nil {
		return detectors.Score{}, err
	}
	if e.groups == nil {
		return detectors.Score{}, eris.Wrap(detectors.ErrNoGroups, "aoa: score outside group")
	}
	if !finite(sample) {
		return noDataScore(sample), nil
	}

	keep := func(j int) bool { return e.groups[j] != group }

	d, ok := e.brute.NearestWhere(e.project(nil, sample), keep)
	if !ok {
		return detectors.Score{}, eris.Wrapf(detectors.ErrDegenerateTrainingSet,
			"aoa: no training samples outside group %q", group)
	}

	s := e.scoreDistance(d)
	s.Features = sample
	s.Metadata = map[string]any{"excluded_group": group}
	return s, nil
}

// ScoreStream scores samples from input until it is closed or ctx is done.
func (e *Estimator) ScoreStream(ctx context.Context, input <-chan []float64, output chan<- detectors.Score) error {
	if !e.Fitted() {
		return eris.Wrap(detectors.ErrNotFitted, "aoa: score stream")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample, ok := <-input:
			if !ok {
				return nil
			}

			score, err := e.ScoreOne(sample)
			if err != nil {
				return err
			}

			select {
			case output <- score:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (e *Estimator) checkSample(sample []float64) error {
	if !e.trained {
		return eris.Wrap(detectors.ErrNotFitted, "aoa: score")
	}
	if len(sample) != len(e.names) {
		return eris.Wrapf(detectors.ErrFeatureMismatch,
			"aoa: sample has %d features, want %d", len(sample), len(e.names))
	}
	return nil
}

// project normalizes a raw sample with the training stats and applies the
// weights, reusing dst when it is non-nil.
func (e *Estimator) project(dst, sample []float64) []float64 {
	dst = e.stats.NormalizeRow(dst, sample)
	return e.metric.Project(dst, dst)
}

func (e *Estimator) scoreProjected(p []float64) detectors.Score {
	return e.scoreDistance(e.index.Nearest(p))
}

func (e *Estimator) scoreDistance(d float64) detectors.Score {
	s := detectors.Score{
		DI:            e.threshold.DI(d),
		Distance:      d,
		Applicability: detectors.Outside,
	}
	if e.threshold.Inside(d) {
		s.Applicability = detectors.Inside
	}
	return s
}

func noDataScore(sample []float64) detectors.Score {
	return detectors.Score{
		DI:            math.NaN(),
		Distance:      math.NaN(),
		Applicability: detectors.NoData,
		Features:      sample,
	}
}

func finite(sample []float64) bool {
	for _, v := range sample {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
