// Package distance computes importance-weighted Euclidean distances between
// normalized samples.
//
// Samples are projected once into weighted space, z_f = sqrt(w_f) * x_f, so
// that the weighted distance sqrt(sum_f w_f (a_f - b_f)^2) becomes a plain
// Euclidean distance there. Every search strategy in this package (brute
// force, k-d tree) works on projected points and yields the same minimum.
package distance

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/hed1ad/goaoa/pkg/features"
)

// Metric projects normalized samples into weighted space.
type Metric struct {
	scale []float64
}

// NewMetric builds a Metric from feature weights.
func NewMetric(w *features.Weights) *Metric {
	values := w.Values()
	scale := make([]float64, len(values))
	for j, v := range values {
		scale[j] = math.Sqrt(v)
	}
	return &Metric{scale: scale}
}

// Dims returns the number of features the metric expects.
func (m *Metric) Dims() int { return len(m.scale) }

// Project writes the weighted projection of a normalized sample into dst and
// returns it. dst is allocated when nil.
func (m *Metric) Project(dst, normalized []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(normalized))
	}
	floats.MulTo(dst, m.scale, normalized)
	return dst
}

// Weighted returns sqrt(sum_f w_f (a_f - b_f)^2) for two normalized samples.
func Weighted(w, a, b []float64) float64 {
	var sum float64
	for f := range a {
		d := a[f] - b[f]
		sum += w[f] * d * d
	}
	return math.Sqrt(sum)
}

// Euclidean returns the L2 distance between two projected samples.
func Euclidean(a, b []float64) float64 {
	return math.Sqrt(squared(a, b))
}

func squared(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
