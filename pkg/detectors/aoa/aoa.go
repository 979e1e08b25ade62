// Package aoa implements the Area of Applicability estimator.
//
// Fit standardizes the training features, weights them by model importance
// and measures how far every training sample lies from its nearest
// neighbour in a different group. An IQR fence over those distances is the
// applicability threshold. Score then measures each query sample's distance
// to the whole training set: the distance divided by the typical training
// distance is the dissimilarity index (DI), and samples within the fence are
// inside the area of applicability.
package aoa

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hed1ad/goaoa/pkg/detectors"
	"github.com/hed1ad/goaoa/pkg/distance"
	"github.com/hed1ad/goaoa/pkg/features"
	"github.com/hed1ad/goaoa/pkg/threshold"
)

var _ detectors.StreamDetector = (*Estimator)(nil)

// Estimator fits and scores the area of applicability.
type Estimator struct {
	mu sync.RWMutex

	cfg detectors.Config

	// Fitted state
	names     []string
	stats     *features.Stats
	weights   *features.Weights
	metric    *distance.Metric
	points    [][]float64
	groups    []string
	selfDist  []float64
	threshold threshold.Threshold
	index     distance.Index
	brute     *distance.BruteForce
	trained   bool
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithConfig replaces the whole configuration.
func WithConfig(cfg detectors.Config) Option {
	return func(e *Estimator) {
		e.cfg = cfg
	}
}

// WithFenceMultiplier sets k in the outlier fence Q3 + k*IQR.
func WithFenceMultiplier(k float64) Option {
	return func(e *Estimator) {
		e.cfg.FenceMultiplier = k
	}
}

// WithCentral sets the central value used as DI divisor.
func WithCentral(c threshold.Central) Option {
	return func(e *Estimator) {
		e.cfg.Central = c
	}
}

// WithWorkers bounds the number of scoring goroutines.
func WithWorkers(n int) Option {
	return func(e *Estimator) {
		e.cfg.Workers = n
	}
}

// WithChunkSize sets the number of query rows per worker task.
func WithChunkSize(n int) Option {
	return func(e *Estimator) {
		e.cfg.ChunkSize = n
	}
}

// WithIndex selects the nearest-neighbour search strategy for scoring.
func WithIndex(kind distance.IndexKind) Option {
	return func(e *Estimator) {
		e.cfg.Index = kind
	}
}

// New creates a new Estimator with the given options.
func New(opts ...Option) *Estimator {
	e := &Estimator{
		cfg: detectors.DefaultConfig(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ValidateConfig checks a configuration before it is used for fitting.
func ValidateConfig(cfg detectors.Config) error {
	if !(cfg.FenceMultiplier >= 0) {
		return eris.Errorf("aoa: fence multiplier must be non-negative, got %v", cfg.FenceMultiplier)
	}
	if cfg.Central != "" && !cfg.Central.Valid() {
		return eris.Errorf("aoa: unknown central value %q", cfg.Central)
	}
	if cfg.Index != "" && !cfg.Index.Valid() {
		return eris.Errorf("aoa: unknown index %q", cfg.Index)
	}
	if cfg.Workers < 0 {
		return eris.Errorf("aoa: workers must be >= 0, got %d", cfg.Workers)
	}
	if cfg.ChunkSize < 0 {
		return eris.Errorf("aoa: chunk size must be >= 0, got %d", cfg.ChunkSize)
	}
	return nil
}

// Fit derives weights from the model's importance scores and fits the
// estimator on the training matrix.
func (e *Estimator) Fit(train *features.Matrix, model features.TrainedModel) error {
	if train == nil {
		return eris.Wrap(detectors.ErrEmptyData, "aoa: nil training matrix")
	}
	weights, err := features.WeightsFromModel(train.Names(), model)
	if err != nil {
		return eris.Wrap(err, "aoa: derive weights")
	}
	return e.FitWeights(train, weights)
}

// FitWeights fits the estimator with explicit weights, used as given.
func (e *Estimator) FitWeights(train *features.Matrix, weights *features.Weights) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if train == nil {
		return eris.Wrap(detectors.ErrEmptyData, "aoa: nil training matrix")
	}
	if weights == nil {
		return eris.Wrap(detectors.ErrInvalidWeights, "aoa: nil weights")
	}
	if err := ValidateConfig(e.cfg); err != nil {
		return err
	}
	names := train.Names()
	if err := weights.CheckFeatures(names); err != nil {
		return err
	}
	if weights.Max() <= 0 {
		return eris.Wrap(detectors.ErrInvalidWeights, "aoa: all weights are zero")
	}

	stats, err := features.FitStats(train)
	if err != nil {
		return err
	}

	metric := distance.NewMetric(weights)
	points := make([][]float64, train.NumRows())
	for i := range points {
		p := stats.NormalizeRow(nil, train.Row(i))
		points[i] = metric.Project(p, p)
	}

	selfDist, err := distance.SelfDistances(context.Background(), points, train.Groups(), e.cfg.Workers)
	if err != nil {
		return err
	}

	th, err := threshold.Estimate(selfDist, e.cfg.FenceMultiplier, e.cfg.Central)
	if err != nil {
		return err
	}

	index, err := distance.NewIndex(e.cfg.Index, points)
	if err != nil {
		return err
	}

	e.names = names
	e.stats = stats
	e.weights = weights
	e.metric = metric
	e.points = points
	e.groups = train.Groups()
	e.selfDist = selfDist
	e.threshold = th
	e.index = index
	e.brute = distance.NewBruteForce(points)
	e.trained = true

	zap.L().Info("fitted area of applicability",
		zap.String("component", "aoa"),
		zap.Int("samples", train.NumRows()),
		zap.Int("features", train.NumFeatures()),
		zap.Int("groups", train.NumGroups()),
		zap.Float64("cutoff", th.Cutoff),
		zap.Float64("cutoff_di", th.CutoffDI()),
		zap.Float64("divisor", th.Divisor),
	)

	return nil
}

// Fitted reports whether Fit or Load has completed.
func (e *Estimator) Fitted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.trained
}

// Config returns the estimator configuration.
func (e *Estimator) Config() detectors.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// Names returns the fitted feature order.
func (e *Estimator) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.names...)
}

// Threshold returns the fitted threshold.
func (e *Estimator) Threshold() threshold.Threshold {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.threshold
}

// Weights returns the fitted feature weights.
func (e *Estimator) Weights() *features.Weights {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.weights
}

// Stats returns the training normalization statistics.
func (e *Estimator) Stats() *features.Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

// TrainingDistances returns a copy of each training sample's distance to its
// nearest neighbour outside its group.
func (e *Estimator) TrainingDistances() []float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]float64(nil), e.selfDist...)
}

// TrainingDI returns the training distances expressed as DI.
func (e *Estimator) TrainingDI() []float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]float64, len(e.selfDist))
	for i, d := range e.selfDist {
		out[i] = e.threshold.DI(d)
	}
	return out
}

// SetFenceMultiplier re-derives the threshold from the stored training
// distances with a new multiplier. Distances are not recomputed.
func (e *Estimator) SetFenceMultiplier(k float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.trained {
		return detectors.ErrNotFitted
	}
	th, err := threshold.Estimate(e.selfDist, k, e.cfg.Central)
	if err != nil {
		return err
	}
	e.cfg.FenceMultiplier = k
	e.threshold = th
	return nil
}
