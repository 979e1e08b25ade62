package detectors

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hed1ad/goaoa/pkg/distance"
	"github.com/hed1ad/goaoa/pkg/threshold"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 1.5, cfg.FenceMultiplier)
	assert.Equal(t, threshold.Median, cfg.Central)
	assert.Equal(t, distance.IndexBrute, cfg.Index)
	assert.Positive(t, cfg.ChunkSize)
}

func TestResult(t *testing.T) {
	r := NewResult(4)
	assert.Equal(t, 4, r.Len())
	assert.True(t, math.IsNaN(r.InsideFraction()))

	r.Set(0, Score{DI: 0, Distance: 0, Applicability: Inside})
	r.Set(1, Score{DI: 0.5, Distance: 1, Applicability: Inside})
	r.Set(2, Score{DI: 9, Distance: 18, Applicability: Outside})

	inside, outside, nodata := r.Counts()
	assert.Equal(t, 2, inside)
	assert.Equal(t, 1, outside)
	assert.Equal(t, 1, nodata)
	assert.InDelta(t, 2.0/3.0, r.InsideFraction(), 1e-12)
	assert.True(t, math.IsNaN(r.DI[3]))
}

func TestApplicabilityString(t *testing.T) {
	assert.Equal(t, "inside", Inside.String())
	assert.Equal(t, "outside", Outside.String())
	assert.Equal(t, "nodata", NoData.String())
	assert.True(t, Score{Applicability: Inside}.Inside())
}
