// Package detectors defines the fit/score contract for area-of-applicability
// estimators and the results they produce.
package detectors

import (
	"context"
	"math"

	"github.com/hed1ad/goaoa/pkg/distance"
	"github.com/hed1ad/goaoa/pkg/features"
	"github.com/hed1ad/goaoa/pkg/threshold"
)

// Detector is the common interface for applicability estimators.
type Detector interface {
	// Fit learns normalization, weights and the threshold from training data
	// and the model trained on it. Fit runs once per (training set, model).
	Fit(train *features.Matrix, model features.TrainedModel) error

	// Score computes the dissimilarity index and applicability of every
	// query row. It may be called any number of times after Fit.
	Score(ctx context.Context, query *features.Matrix) (*Result, error)

	// ScoreOne scores a single raw sample.
	ScoreOne(sample []float64) (Score, error)

	// Save serializes the fitted state to bytes.
	Save() ([]byte, error)

	// Load deserializes a fitted state from bytes.
	Load(data []byte) error
}

// StreamDetector extends Detector with streaming capabilities.
type StreamDetector interface {
	Detector

	// ScoreStream scores samples from a channel until it is closed.
	ScoreStream(ctx context.Context, input <-chan []float64, output chan<- Score) error
}

// Score is the result for a single sample.
type Score struct {
	// DI is the dissimilarity index; NaN for no-data samples.
	DI float64
	// Distance is the raw weighted distance to the nearest training sample.
	Distance float64
	// Applicability tells whether the sample lies inside the AOA.
	Applicability Applicability
	// Features contains the original input features.
	Features []float64
	// Metadata contains additional information.
	Metadata map[string]any
}

// Inside reports whether the sample lies within the area of applicability.
func (s Score) Inside() bool { return s.Applicability == Inside }

// Config holds common configuration for estimators.
type Config struct {
	// FenceMultiplier scales the IQR in the outlier fence Q3 + k*IQR.
	FenceMultiplier float64
	// Central selects the divisor turning distances into DI.
	Central threshold.Central
	// Workers bounds scoring parallelism; 0 means GOMAXPROCS.
	Workers int
	// ChunkSize is the number of query rows handed to a worker at once.
	ChunkSize int
	// Index selects the nearest-neighbour search used when scoring.
	Index distance.IndexKind
}

// DefaultConfig returns sensible defaults for estimator configuration.
func DefaultConfig() Config {
	return Config{
		FenceMultiplier: threshold.DefaultMultiplier,
		Central:         threshold.Median,
		Workers:         0,
		ChunkSize:       4096,
		Index:           distance.IndexBrute,
	}
}

// Applicability is the per-sample AOA mask value.
type Applicability int8

const (
	// NoData marks samples excluded upstream.
	NoData Applicability = -1
	// Outside marks samples beyond the threshold.
	Outside Applicability = 0
	// Inside marks samples within the threshold.
	Inside Applicability = 1
)

func (a Applicability) String() string {
	switch a {
	case Inside:
		return "inside"
	case Outside:
		return "outside"
	default:
		return "nodata"
	}
}

// Result holds per-row outputs aligned with the query matrix row order.
type Result struct {
	DI       []float64
	Distance []float64
	AOA      []Applicability
}

// NewResult allocates a result for n rows, all set to no-data.
func NewResult(n int) *Result {
	r := &Result{
		DI:       make([]float64, n),
		Distance: make([]float64, n),
		AOA:      make([]Applicability, n),
	}
	for i := 0; i < n; i++ {
		r.SetNoData(i)
	}
	return r
}

// Len returns the number of rows.
func (r *Result) Len() int { return len(r.AOA) }

// SetNoData marks row i as no-data.
func (r *Result) SetNoData(i int) {
	r.DI[i] = math.NaN()
	r.Distance[i] = math.NaN()
	r.AOA[i] = NoData
}

// Set stores a score in row i.
func (r *Result) Set(i int, s Score) {
	r.DI[i] = s.DI
	r.Distance[i] = s.Distance
	r.AOA[i] = s.Applicability
}

// Counts returns the number of inside, outside and no-data rows.
func (r *Result) Counts() (inside, outside, nodata int) {
	for _, a := range r.AOA {
		switch a {
		case Inside:
			inside++
		case Outside:
			outside++
		default:
			nodata++
		}
	}
	return inside, outside, nodata
}

// InsideFraction returns the share of valid rows inside the AOA, or NaN if
// every row is no-data.
func (r *Result) InsideFraction() float64 {
	inside, outside, _ := r.Counts()
	if inside+outside == 0 {
		return math.NaN()
	}
	return float64(inside) / float64(inside+outside)
}
