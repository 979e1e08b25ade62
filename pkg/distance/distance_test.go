package distance

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/goaoa/pkg/features"
)

func TestMetricProjectMatchesWeighted(t *testing.T) {
	w, err := features.NewWeights([]string{"a", "b", "c"}, map[string]float64{"a": 1, "b": 0.25, "c": 0})
	require.NoError(t, err)
	m := NewMetric(w)

	a := []float64{0.3, -1.2, 7}
	b := []float64{-0.5, 2.0, -3}

	want := Weighted(w.Values(), a, b)
	got := Euclidean(m.Project(nil, a), m.Project(nil, b))
	assert.InDelta(t, want, got, 1e-12)
	assert.InDelta(t, math.Sqrt(0.64+0.25*10.24), want, 1e-12)
}

func TestSelfDistancesExcludesGroup(t *testing.T) {
	points := [][]float64{
		{0, 0},
		{0, 0.1}, // same group as 0, very close
		{3, 0},
		{3, 4},
	}
	groups := []string{"A", "A", "B", "B"}

	d, err := SelfDistances(context.Background(), points, groups, 2)
	require.NoError(t, err)

	assert.InDelta(t, 3.0, d[0], 1e-12)
	assert.InDelta(t, math.Sqrt(9+0.01), d[1], 1e-12)
	assert.InDelta(t, 3.0, d[2], 1e-12)
	assert.InDelta(t, math.Sqrt(9+(4-0.1)*(4-0.1)), d[3], 1e-12)
}

func TestSelfDistancesWithoutGroups(t *testing.T) {
	points := [][]float64{{0}, {1}, {5}}

	d, err := SelfDistances(context.Background(), points, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 4}, d)
}

func TestSelfDistancesDegenerate(t *testing.T) {
	tests := []struct {
		name   string
		points [][]float64
		groups []string
	}{
		{
			name:   "single sample",
			points: [][]float64{{1, 2}},
		},
		{
			name:   "single group",
			points: [][]float64{{1, 2}, {3, 4}, {5, 6}},
			groups: []string{"g", "g", "g"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SelfDistances(context.Background(), tt.points, tt.groups, 1)
			assert.ErrorIs(t, err, features.ErrDegenerateTrainingSet)
		})
	}
}

func TestSelfDistancesWorkerIndependent(t *testing.T) {
	points := generatePoints(300, 4)
	groups := make([]string, len(points))
	for i := range groups {
		groups[i] = string(rune('a' + i%7))
	}

	one, err := SelfDistances(context.Background(), points, groups, 1)
	require.NoError(t, err)
	many, err := SelfDistances(context.Background(), points, groups, 8)
	require.NoError(t, err)
	assert.Equal(t, one, many)
}

func TestSelfDistancesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := SelfDistances(ctx, generatePoints(50, 2), nil, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndexesAgree(t *testing.T) {
	train := generatePoints(500, 5)
	queries := generatePoints(200, 5)

	brute, err := NewIndex(IndexBrute, train)
	require.NoError(t, err)
	tree, err := NewIndex(IndexKDTree, train)
	require.NoError(t, err)

	for _, q := range queries {
		assert.InDelta(t, brute.Nearest(q), tree.Nearest(q), 1e-9)
	}
}

func TestIndexExactMatch(t *testing.T) {
	train := [][]float64{{1, 2}, {3, 4}, {-1, 0}}

	for _, kind := range []IndexKind{IndexBrute, IndexKDTree} {
		t.Run(string(kind), func(t *testing.T) {
			idx, err := NewIndex(kind, train)
			require.NoError(t, err)
			assert.Equal(t, 0.0, idx.Nearest([]float64{3, 4}))
		})
	}
}

func TestNewIndexErrors(t *testing.T) {
	_, err := NewIndex(IndexBrute, nil)
	assert.Error(t, err)

	_, err = NewIndex("ball", [][]float64{{1}})
	assert.Error(t, err)

	assert.True(t, IndexKDTree.Valid())
	assert.False(t, IndexKind("ball").Valid())
}

func TestNearestWhere(t *testing.T) {
	b := NewBruteForce([][]float64{{0}, {1}, {2}})

	d, ok := b.NearestWhere([]float64{0}, func(j int) bool { return j == 2 })
	require.True(t, ok)
	assert.Equal(t, 2.0, d)

	_, ok = b.NearestWhere([]float64{0}, func(int) bool { return false })
	assert.False(t, ok)
}

func BenchmarkSelfDistances(b *testing.B) {
	points := generatePoints(2000, 8)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SelfDistances(context.Background(), points, nil, 0)
	}
}

func BenchmarkKDTreeNearest(b *testing.B) {
	tree := NewKDTree(generatePoints(5000, 6))
	q := generatePoints(1, 6)[0]

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.Nearest(q)
	}
}

func generatePoints(n, dims int) [][]float64 {
	rng := rand.New(rand.NewSource(7))
	data := make([][]float64, n)
	for i := range data {
		data[i] = make([]float64, dims)
		for j := range data[i] {
			data[i][j] = rng.NormFloat64()
		}
	}
	return data
}
