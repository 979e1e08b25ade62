// Package threshold derives the applicability cutoff from the training
// self-distance distribution using an interquartile-range outlier fence.
package threshold

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"

	"github.com/hed1ad/goaoa/pkg/features"
)

// DefaultMultiplier is the conventional Tukey fence multiplier.
const DefaultMultiplier = 1.5

// Central selects the central value used to turn distances into a
// dissimilarity index.
type Central string

const (
	// Median divides by the median training self-distance.
	Median Central = "median"
	// Mean divides by the mean training self-distance.
	Mean Central = "mean"
)

// Valid reports whether c names a known central value.
func (c Central) Valid() bool {
	return c == Median || c == Mean
}

// Threshold is the fitted outlier fence. Cutoff and Divisor are in raw
// weighted-distance units.
type Threshold struct {
	Q1         float64
	Q3         float64
	IQR        float64
	Multiplier float64
	Cutoff     float64
	Central    Central
	Divisor    float64
}

// CutoffDI returns the cutoff expressed as a dissimilarity index.
func (t Threshold) CutoffDI() float64 {
	return t.Cutoff / t.Divisor
}

// DI converts a raw distance into a dissimilarity index.
func (t Threshold) DI(dist float64) float64 {
	return dist / t.Divisor
}

// Inside reports whether a raw distance lies within the fence.
func (t Threshold) Inside(dist float64) bool {
	return dist <= t.Cutoff
}

// Estimate computes Q1, Q3, the fence Q3 + multiplier*IQR and the central
// divisor from training self-distances. The input slice is not modified.
func Estimate(selfDist []float64, multiplier float64, central Central) (Threshold, error) {
	if len(selfDist) == 0 {
		return Threshold{}, eris.Wrap(features.ErrDegenerateTrainingSet, "threshold: no training distances")
	}
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier < 0 {
		return Threshold{}, eris.Errorf("threshold: invalid fence multiplier %v", multiplier)
	}
	if central == "" {
		central = Median
	}
	if !central.Valid() {
		return Threshold{}, eris.Errorf("threshold: unknown central value %q", central)
	}

	sorted := append([]float64(nil), selfDist...)
	sort.Float64s(sorted)

	t := Threshold{
		Q1:         Quantile(sorted, 0.25),
		Q3:         Quantile(sorted, 0.75),
		Multiplier: multiplier,
		Central:    central,
	}
	t.IQR = t.Q3 - t.Q1
	t.Cutoff = t.Q3 + multiplier*t.IQR

	switch central {
	case Mean:
		t.Divisor = stat.Mean(sorted, nil)
	default:
		t.Divisor = Quantile(sorted, 0.5)
	}

	if !(t.Divisor > 0) || math.IsInf(t.Divisor, 0) {
		return Threshold{}, eris.Wrapf(features.ErrDegenerateTrainingSet,
			"threshold: %s training distance is %v", central, t.Divisor)
	}

	return t, nil
}

// Quantile returns the p-quantile of ascending sorted data by linear
// interpolation between closest ranks (h = (n-1)p).
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
