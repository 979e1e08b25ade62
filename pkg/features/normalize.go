package features

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ConstantTolerance is the relative standard deviation below which a feature
// is treated as constant.
const ConstantTolerance = 1e-12

// Stats holds per-feature training mean and standard deviation.
// Query data is always normalized with the training Stats.
type Stats struct {
	Names  []string
	Mean   []float64
	StdDev []float64
}

// FitStats computes normalization statistics from a training matrix.
// The standard deviation is the sample (n-1) estimate.
func FitStats(train *Matrix) (*Stats, error) {
	if err := train.ValidateTraining(); err != nil {
		return nil, err
	}

	n, f := train.NumRows(), train.NumFeatures()
	s := &Stats{
		Names:  train.Names(),
		Mean:   make([]float64, f),
		StdDev: make([]float64, f),
	}

	col := make([]float64, n)
	for j := 0; j < f; j++ {
		for i := 0; i < n; i++ {
			col[i] = train.At(i, j)
		}
		if n < 2 {
			s.Mean[j] = col[0]
			continue
		}
		s.Mean[j], s.StdDev[j] = stat.MeanStdDev(col, nil)
	}

	return s, nil
}

// IsConstant reports whether feature j has (numerically) zero spread.
func (s *Stats) IsConstant(j int) bool {
	sd := s.StdDev[j]
	if math.IsNaN(sd) {
		return true
	}
	return sd <= ConstantTolerance*math.Max(1, math.Abs(s.Mean[j]))
}

// NormalizeRow writes (x - mean) / std for each feature of src into dst and
// returns dst. Constant features normalize to 0. dst is allocated when nil.
func (s *Stats) NormalizeRow(dst, src []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(src))
	}
	for j, v := range src {
		if s.IsConstant(j) {
			dst[j] = 0
			continue
		}
		dst[j] = (v - s.Mean[j]) / s.StdDev[j]
	}
	return dst
}

// Transform returns a normalized copy of m. Group labels and no-data flags
// are preserved.
func (s *Stats) Transform(m *Matrix) (*Matrix, error) {
	if err := m.CheckFeatures(s.Names); err != nil {
		return nil, err
	}

	out := &Matrix{
		names:  append([]string(nil), m.names...),
		rows:   make([][]float64, len(m.rows)),
		groups: m.groups,
		nodata: m.nodata,
	}
	for i, row := range m.rows {
		out.rows[i] = s.NormalizeRow(nil, row)
	}
	return out, nil
}
