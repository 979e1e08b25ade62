// Package features holds feature matrices and the per-feature statistics and
// weights used to compare samples in predictor space.
package features

import (
	"math"

	"github.com/rotisserie/eris"
)

// Matrix is an immutable table of samples over a fixed, ordered set of named
// numeric features.
//
// Training matrices usually carry a group label per row (for example the
// polygon a pixel was sampled from). Query matrices may flag rows as no-data;
// such rows are carried through scoring untouched.
type Matrix struct {
	names  []string
	rows   [][]float64
	groups []string
	nodata []bool
}

// MatrixOption configures a Matrix.
type MatrixOption func(*Matrix)

// WithGroups attaches one group label per row.
func WithGroups(groups []string) MatrixOption {
	return func(m *Matrix) {
		m.groups = append([]string(nil), groups...)
	}
}

// WithNoData flags rows that carry no valid data.
func WithNoData(nodata []bool) MatrixOption {
	return func(m *Matrix) {
		m.nodata = append([]bool(nil), nodata...)
	}
}

// NewMatrix builds a Matrix, copying names and rows.
func NewMatrix(names []string, rows [][]float64, opts ...MatrixOption) (*Matrix, error) {
	if len(names) == 0 {
		return nil, eris.Wrap(ErrEmptyData, "features: no feature names")
	}

	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			return nil, eris.New("features: empty feature name")
		}
		if _, ok := seen[name]; ok {
			return nil, eris.Errorf("features: duplicate feature %q", name)
		}
		seen[name] = struct{}{}
	}

	m := &Matrix{
		names: append([]string(nil), names...),
		rows:  make([][]float64, len(rows)),
	}
	for i, row := range rows {
		if len(row) != len(names) {
			return nil, eris.Wrapf(ErrFeatureMismatch,
				"features: row %d has %d values, want %d", i, len(row), len(names))
		}
		m.rows[i] = append([]float64(nil), row...)
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.groups != nil && len(m.groups) != len(m.rows) {
		return nil, eris.Errorf("features: %d group labels for %d rows", len(m.groups), len(m.rows))
	}
	if m.nodata != nil && len(m.nodata) != len(m.rows) {
		return nil, eris.Errorf("features: %d no-data flags for %d rows", len(m.nodata), len(m.rows))
	}

	return m, nil
}

// Names returns a copy of the feature names in column order.
func (m *Matrix) Names() []string {
	return append([]string(nil), m.names...)
}

// NumRows returns the number of samples.
func (m *Matrix) NumRows() int { return len(m.rows) }

// NumFeatures returns the number of feature columns.
func (m *Matrix) NumFeatures() int { return len(m.names) }

// Row returns the i-th sample. The slice is shared and must not be modified.
func (m *Matrix) Row(i int) []float64 { return m.rows[i] }

// At returns the value of feature j in sample i.
func (m *Matrix) At(i, j int) float64 { return m.rows[i][j] }

// HasGroups reports whether group labels are attached.
func (m *Matrix) HasGroups() bool { return m.groups != nil }

// Group returns the group label of sample i, or "" if no groups are attached.
func (m *Matrix) Group(i int) string {
	if m.groups == nil {
		return ""
	}
	return m.groups[i]
}

// Groups returns a copy of the group labels, or nil.
func (m *Matrix) Groups() []string {
	if m.groups == nil {
		return nil
	}
	return append([]string(nil), m.groups...)
}

// NumGroups returns the number of distinct group labels. Without labels every
// sample counts as its own group.
func (m *Matrix) NumGroups() int {
	if m.groups == nil {
		return len(m.rows)
	}
	distinct := make(map[string]struct{})
	for _, g := range m.groups {
		distinct[g] = struct{}{}
	}
	return len(distinct)
}

// IsNoData reports whether sample i is flagged no-data or holds a non-finite value.
func (m *Matrix) IsNoData(i int) bool {
	if m.nodata != nil && m.nodata[i] {
		return true
	}
	return !finite(m.rows[i])
}

// CheckFeatures returns ErrFeatureMismatch unless names equals the matrix's
// feature names in the same order.
func (m *Matrix) CheckFeatures(names []string) error {
	if len(names) != len(m.names) {
		return eris.Wrapf(ErrFeatureMismatch, "features: got %d features, want %d", len(m.names), len(names))
	}
	for j, name := range names {
		if m.names[j] != name {
			return eris.Wrapf(ErrFeatureMismatch, "features: column %d is %q, want %q", j, m.names[j], name)
		}
	}
	return nil
}

// ValidateTraining rejects rows that cannot take part in fitting.
func (m *Matrix) ValidateTraining() error {
	if len(m.rows) == 0 {
		return eris.Wrap(ErrEmptyData, "features: no training samples")
	}
	for i, row := range m.rows {
		if m.nodata != nil && m.nodata[i] {
			return eris.Wrapf(ErrMalformedTrainingData, "features: sample %d is flagged no-data", i)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return eris.Wrapf(ErrMalformedTrainingData,
					"features: sample %d feature %q has value %v", i, m.names[j], v)
			}
		}
	}
	return nil
}

func finite(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
