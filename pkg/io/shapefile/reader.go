// Package shapefile reads training samples from point shapefiles, where each
// point is a sampled pixel and its attribute table holds the predictor values.
package shapefile

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/hed1ad/goaoa/pkg/features"
)

// Reader loads a training matrix from a point shapefile.
//
// By default every numeric attribute except the group field is a feature.
type Reader struct {
	reader *shp.Reader

	groupField string
	fields     []string
	exclude    map[string]struct{}

	locations []*geom.Point
	extent    *geom.Bounds
}

// Option configures a Reader.
type Option func(*Reader)

// WithGroupField names the attribute holding the group label (e.g. polygon id).
func WithGroupField(name string) Option {
	return func(r *Reader) {
		r.groupField = name
	}
}

// WithFields selects feature attributes explicitly, in the given order.
func WithFields(names ...string) Option {
	return func(r *Reader) {
		r.fields = append([]string(nil), names...)
	}
}

// WithExcludeFields drops numeric attributes that are not predictors.
func WithExcludeFields(names ...string) Option {
	return func(r *Reader) {
		for _, n := range names {
			r.exclude[strings.ToLower(n)] = struct{}{}
		}
	}
}

// NewReader opens a point shapefile.
func NewReader(path string, opts ...Option) (*Reader, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}

	r := &Reader{
		reader:  reader,
		exclude: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// FieldNames returns the attribute names of the shapefile.
func (r *Reader) FieldNames() []string {
	fields := r.reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}
	return names
}

// Read returns all points as a training matrix. Point locations are kept and
// available through Locations and Extent.
func (r *Reader) Read() (*features.Matrix, error) {
	fieldIdx := make(map[string]int)
	var numeric []string
	for i, f := range r.reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
		if f.Fieldtype == 'N' || f.Fieldtype == 'F' {
			numeric = append(numeric, name)
		}
	}

	groupIdx := -1
	if r.groupField != "" {
		idx, ok := fieldIdx[strings.ToLower(r.groupField)]
		if !ok {
			return nil, eris.Errorf("shapefile: group field %q not found", r.groupField)
		}
		groupIdx = idx
	}

	names := r.fields
	if len(names) == 0 {
		for _, n := range numeric {
			lower := strings.ToLower(n)
			if _, skip := r.exclude[lower]; skip || lower == strings.ToLower(r.groupField) {
				continue
			}
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return nil, eris.Wrap(features.ErrEmptyData, "shapefile: no numeric feature fields")
	}

	cols := make([]int, len(names))
	for k, n := range names {
		idx, ok := fieldIdx[strings.ToLower(n)]
		if !ok {
			return nil, eris.Errorf("shapefile: field %q not found", n)
		}
		cols[k] = idx
	}

	var (
		rows   [][]float64
		groups []string
	)
	r.locations = nil
	r.extent = geom.NewBounds(geom.XY)

	for r.reader.Next() {
		n, shape := r.reader.Shape()

		pt, err := toPoint(shape)
		if err != nil {
			return nil, eris.Wrapf(err, "shapefile: record %d", n)
		}

		row := make([]float64, len(cols))
		for k, idx := range cols {
			val := strings.TrimSpace(strings.TrimRight(r.reader.Attribute(idx), "\x00"))
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, eris.Wrapf(features.ErrMalformedTrainingData,
					"shapefile: record %d field %q has value %q", n, names[k], val)
			}
			row[k] = f
		}
		rows = append(rows, row)

		if groupIdx >= 0 {
			groups = append(groups, strings.TrimSpace(strings.TrimRight(r.reader.Attribute(groupIdx), "\x00")))
		}

		r.locations = append(r.locations, pt)
		r.extent.Extend(pt)
	}

	zap.L().Debug("read training shapefile",
		zap.String("component", "io.shapefile"),
		zap.Int("samples", len(rows)),
		zap.Strings("features", names),
	)

	var opts []features.MatrixOption
	if groupIdx >= 0 {
		opts = append(opts, features.WithGroups(groups))
	}
	return features.NewMatrix(names, rows, opts...)
}

// Locations returns the sample points read by the last Read, in row order.
func (r *Reader) Locations() []*geom.Point {
	return r.locations
}

// Extent returns the bounding box of the samples read by the last Read.
func (r *Reader) Extent() *geom.Bounds {
	return r.extent
}

// Close releases resources.
func (r *Reader) Close() error {
	return r.reader.Close()
}

func toPoint(shape shp.Shape) (*geom.Point, error) {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), nil
	case *shp.PointZ:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), nil
	case *shp.PointM:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), nil
	case nil:
		return nil, eris.New("null shape")
	default:
		return nil, eris.Errorf("unsupported shape type %T, want point", shape)
	}
}
