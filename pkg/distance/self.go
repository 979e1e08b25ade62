package distance

import (
	"context"
	"math"
	"runtime"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/hed1ad/goaoa/pkg/features"
)

// SelfDistances returns, for every projected training point, the distance to
// its nearest neighbour outside its own group.
//
// With nil groups every point is its own group, so only the point itself is
// excluded. Rows are split across up to workers goroutines; workers <= 0
// means GOMAXPROCS. The result does not depend on the worker count.
func SelfDistances(ctx context.Context, points [][]float64, groups []string, workers int) ([]float64, error) {
	n := len(points)
	if n < 2 {
		return nil, eris.Wrapf(features.ErrDegenerateTrainingSet,
			"distance: %d training samples, need at least 2", n)
	}
	if groups != nil && len(groups) != n {
		return nil, eris.Errorf("distance: %d groups for %d points", len(groups), n)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]float64, n)
	brute := NewBruteForce(points)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	block := (n + workers - 1) / workers
	for start := 0; start < n; start += block {
		start := start
		end := min(start+block, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				keep := func(j int) bool { return j != i }
				if groups != nil {
					keep = func(j int) bool { return groups[j] != groups[i] }
				}
				d, ok := brute.NearestWhere(points[i], keep)
				if !ok {
					return eris.Wrapf(features.ErrDegenerateTrainingSet,
						"distance: sample %d (group %q) has no neighbour outside its group", i, groupOf(groups, i))
				}
				out[i] = d
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func groupOf(groups []string, i int) string {
	if groups == nil {
		return ""
	}
	return groups[i]
}

// BruteForce searches every point. It is safe for concurrent use.
type BruteForce struct {
	points [][]float64
}

// NewBruteForce wraps projected points without copying them.
func NewBruteForce(points [][]float64) *BruteForce {
	return &BruteForce{points: points}
}

// Nearest returns the distance from q to the closest point.
func (b *BruteForce) Nearest(q []float64) float64 {
	d, _ := b.NearestWhere(q, nil)
	return d
}

// NearestWhere returns the distance from q to the closest point j with keep(j)
// true. A nil keep accepts every point. ok is false when no point qualifies.
func (b *BruteForce) NearestWhere(q []float64, keep func(j int) bool) (dist float64, ok bool) {
	best := math.Inf(1)
	for j, p := range b.points {
		if keep != nil && !keep(j) {
			continue
		}
		if d := squared(q, p); d < best {
			best = d
			ok = true
		}
	}
	if !ok {
		return math.NaN(), false
	}
	return math.Sqrt(best), true
}
