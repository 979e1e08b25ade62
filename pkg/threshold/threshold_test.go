package threshold

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/goaoa/pkg/features"
)

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.25, 2},
		{0.5, 3},
		{0.75, 4},
		{1, 5},
		{0.1, 1.4},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, Quantile(sorted, tt.p), 1e-12, "p=%v", tt.p)
	}

	assert.InDelta(t, 2.5, Quantile([]float64{1, 2, 3, 4}, 0.5), 1e-12)
	assert.InDelta(t, 1.75, Quantile([]float64{1, 2, 3, 4}, 0.25), 1e-12)
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestEstimate(t *testing.T) {
	dists := []float64{4, 1, 3, 2, 5}

	th, err := Estimate(dists, DefaultMultiplier, Median)
	require.NoError(t, err)

	assert.Equal(t, 2.0, th.Q1)
	assert.Equal(t, 4.0, th.Q3)
	assert.Equal(t, 2.0, th.IQR)
	assert.Equal(t, 7.0, th.Cutoff)
	assert.Equal(t, 3.0, th.Divisor)
	assert.InDelta(t, 7.0/3.0, th.CutoffDI(), 1e-12)
	assert.Equal(t, []float64{4, 1, 3, 2, 5}, dists, "input must not be reordered")

	assert.True(t, th.Inside(7))
	assert.False(t, th.Inside(7.0001))
	assert.Equal(t, 0.0, th.DI(0))
}

func TestEstimateMultiplier(t *testing.T) {
	dists := []float64{1, 2, 3, 4, 5}

	th, err := Estimate(dists, 3, Median)
	require.NoError(t, err)
	assert.Equal(t, 10.0, th.Cutoff)

	th, err = Estimate(dists, 0, Median)
	require.NoError(t, err)
	assert.Equal(t, th.Q3, th.Cutoff)

	_, err = Estimate(dists, -1, Median)
	assert.Error(t, err)
}

func TestEstimateMean(t *testing.T) {
	th, err := Estimate([]float64{1, 1, 1, 5}, DefaultMultiplier, Mean)
	require.NoError(t, err)
	assert.Equal(t, 2.0, th.Divisor)
	assert.Equal(t, Mean, th.Central)

	_, err = Estimate([]float64{1, 2}, DefaultMultiplier, "mode")
	assert.Error(t, err)
}

func TestEstimateDegenerate(t *testing.T) {
	_, err := Estimate(nil, DefaultMultiplier, Median)
	assert.ErrorIs(t, err, features.ErrDegenerateTrainingSet)

	_, err = Estimate([]float64{0, 0, 0}, DefaultMultiplier, Median)
	assert.ErrorIs(t, err, features.ErrDegenerateTrainingSet)

	_, err = Estimate([]float64{0, 0, 0, 9}, DefaultMultiplier, Median)
	assert.ErrorIs(t, err, features.ErrDegenerateTrainingSet)
}

func TestEstimateScalesLinearly(t *testing.T) {
	dists := []float64{0.4, 1.3, 0.9, 2.2, 1.1, 0.7}
	scaled := make([]float64, len(dists))
	for i, d := range dists {
		scaled[i] = 3 * d
	}

	a, err := Estimate(dists, DefaultMultiplier, Median)
	require.NoError(t, err)
	b, err := Estimate(scaled, DefaultMultiplier, Median)
	require.NoError(t, err)

	assert.InDelta(t, 3*a.Cutoff, b.Cutoff, 1e-12)
	assert.InDelta(t, a.CutoffDI(), b.CutoffDI(), 1e-12)
}
