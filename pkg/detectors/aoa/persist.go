package aoa

import (
	"bytes"
	"encoding/gob"

	"github.com/rotisserie/eris"

	"github.com/hed1ad/goaoa/pkg/detectors"
	"github.com/hed1ad/goaoa/pkg/distance"
	"github.com/hed1ad/goaoa/pkg/features"
	"github.com/hed1ad/goaoa/pkg/threshold"
)

// Save serializes the fitted state.
func (e *Estimator) Save() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.trained {
		return nil, eris.Wrap(detectors.ErrNotFitted, "aoa: save")
	}

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	if err := enc.Encode(e.cfg); err != nil {
		return nil, eris.Wrap(err, "aoa: encode config")
	}
	if err := enc.Encode(e.stats); err != nil {
		return nil, eris.Wrap(err, "aoa: encode stats")
	}
	if err := enc.Encode(e.weights.Map()); err != nil {
		return nil, eris.Wrap(err, "aoa: encode weights")
	}
	if err := enc.Encode(e.points); err != nil {
		return nil, eris.Wrap(err, "aoa: encode training points")
	}
	if err := enc.Encode(e.groups); err != nil {
		return nil, eris.Wrap(err, "aoa: encode groups")
	}
	if err := enc.Encode(e.selfDist); err != nil {
		return nil, eris.Wrap(err, "aoa: encode training distances")
	}
	if err := enc.Encode(e.threshold); err != nil {
		return nil, eris.Wrap(err, "aoa: encode threshold")
	}

	return buf.Bytes(), nil
}

// Load deserializes a fitted state. The stored configuration replaces the
// estimator's own.
func (e *Estimator) Load(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	dec := gob.NewDecoder(bytes.NewBuffer(data))

	var (
		cfg      detectors.Config
		stats    features.Stats
		weightBy map[string]float64
		points   [][]float64
		groups   []string
		selfDist []float64
		th       threshold.Threshold
	)

	if err := dec.Decode(&cfg); err != nil {
		return eris.Wrap(err, "aoa: decode config")
	}
	if err := dec.Decode(&stats); err != nil {
		return eris.Wrap(err, "aoa: decode stats")
	}
	if err := dec.Decode(&weightBy); err != nil {
		return eris.Wrap(err, "aoa: decode weights")
	}
	if err := dec.Decode(&points); err != nil {
		return eris.Wrap(err, "aoa: decode training points")
	}
	if err := dec.Decode(&groups); err != nil {
		return eris.Wrap(err, "aoa: decode groups")
	}
	if err := dec.Decode(&selfDist); err != nil {
		return eris.Wrap(err, "aoa: decode training distances")
	}
	if err := dec.Decode(&th); err != nil {
		return eris.Wrap(err, "aoa: decode threshold")
	}

	if len(groups) == 0 {
		groups = nil
	}
	if err := checkState(&stats, points, groups, selfDist); err != nil {
		return err
	}

	weights, err := features.NewWeights(stats.Names, weightBy)
	if err != nil {
		return err
	}
	index, err := distance.NewIndex(cfg.Index, points)
	if err != nil {
		return err
	}

	e.cfg = cfg
	e.names = append([]string(nil), stats.Names...)
	e.stats = &stats
	e.weights = weights
	e.metric = distance.NewMetric(weights)
	e.points = points
	e.groups = groups
	e.selfDist = selfDist
	e.threshold = th
	e.index = index
	e.brute = distance.NewBruteForce(points)
	e.trained = true

	return nil
}

// checkState verifies that decoded slices agree with each other before they
// are used for scoring.
func checkState(stats *features.Stats, points [][]float64, groups []string, selfDist []float64) error {
	dims := len(stats.Names)
	if dims == 0 {
		return eris.Wrap(detectors.ErrEmptyData, "aoa: load: no features")
	}
	if len(stats.Mean) != dims || len(stats.StdDev) != dims {
		return eris.Wrapf(detectors.ErrFeatureMismatch,
			"aoa: load: stats for %d/%d features, want %d", len(stats.Mean), len(stats.StdDev), dims)
	}
	if len(points) == 0 {
		return eris.Wrap(detectors.ErrEmptyData, "aoa: load: no training points")
	}
	for i, p := range points {
		if len(p) != dims {
			return eris.Wrapf(detectors.ErrFeatureMismatch,
				"aoa: load: training point %d has %d features, want %d", i, len(p), dims)
		}
	}
	if len(selfDist) != len(points) {
		return eris.Wrapf(detectors.ErrFeatureMismatch,
			"aoa: load: %d training distances for %d points", len(selfDist), len(points))
	}
	if groups != nil && len(groups) != len(points) {
		return eris.Wrapf(detectors.ErrFeatureMismatch,
			"aoa: load: %d groups for %d points", len(groups), len(points))
	}
	return nil
}
