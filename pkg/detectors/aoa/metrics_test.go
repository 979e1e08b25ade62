package aoa

import (
	"context"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreMetrics(t *testing.T) {
	train := generateTraining(t, 40, 2, 4, 11)
	e := New()
	require.NoError(t, e.Fit(train, nil))

	query := mustMatrix(t, train.Names(), [][]float64{
		train.Row(0),
		{1e6, 1e6},
		{math.NaN(), 0},
	}, nil)

	inside := testutil.ToFloat64(scorePoints.WithLabelValues("inside"))
	outside := testutil.ToFloat64(scorePoints.WithLabelValues("outside"))
	nodata := testutil.ToFloat64(scorePoints.WithLabelValues("nodata"))

	_, err := e.Score(context.Background(), query)
	require.NoError(t, err)

	assert.Equal(t, inside+1, testutil.ToFloat64(scorePoints.WithLabelValues("inside")))
	assert.Equal(t, outside+1, testutil.ToFloat64(scorePoints.WithLabelValues("outside")))
	assert.Equal(t, nodata+1, testutil.ToFloat64(scorePoints.WithLabelValues("nodata")))
}
