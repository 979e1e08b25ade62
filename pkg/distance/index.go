package distance

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// IndexKind selects the nearest-neighbour search strategy.
type IndexKind string

const (
	// IndexBrute scans all training points for every query.
	IndexBrute IndexKind = "brute"
	// IndexKDTree uses a k-d tree over the projected training points.
	IndexKDTree IndexKind = "kdtree"
)

// Valid reports whether k names a known strategy.
func (k IndexKind) Valid() bool {
	return k == IndexBrute || k == IndexKDTree
}

// Index answers nearest-neighbour distance queries over projected training
// points. Implementations are read-only after construction and safe for
// concurrent use.
type Index interface {
	Nearest(q []float64) float64
}

// NewIndex builds an Index of the given kind over projected points.
func NewIndex(kind IndexKind, points [][]float64) (Index, error) {
	if len(points) == 0 {
		return nil, eris.New("distance: index over zero points")
	}
	switch kind {
	case IndexBrute, "":
		return NewBruteForce(points), nil
	case IndexKDTree:
		return NewKDTree(points), nil
	default:
		return nil, eris.Errorf("distance: unknown index kind %q", kind)
	}
}

// KDTree is an Index backed by gonum's k-d tree.
type KDTree struct {
	tree *kdtree.Tree
}

// NewKDTree copies points into a balanced k-d tree.
func NewKDTree(points [][]float64) *KDTree {
	pts := make(kdtree.Points, len(points))
	for i, p := range points {
		pts[i] = append(kdtree.Point(nil), p...)
	}
	return &KDTree{tree: kdtree.New(pts, false)}
}

// Nearest returns the distance from q to the closest training point.
func (t *KDTree) Nearest(q []float64) float64 {
	_, d := t.tree.Nearest(kdtree.Point(q))
	// kdtree.Point distances are squared.
	return math.Sqrt(d)
}
