// Package csv provides CSV reading and writing for feature tables and results.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hed1ad/goaoa/pkg/features"
)

// Reader reads feature matrices from CSV files.
//
// Every column except the group column and excluded columns is a numeric
// feature. Empty cells and cells equal to the no-data token are missing:
// in a training file that is an error, in a query file the row is kept and
// flagged no-data so the output stays aligned with the input.
type Reader struct {
	file      *os.File
	reader    *csv.Reader
	hasHeader bool
	headers   []string

	groupColumn string
	columns     []string
	exclude     map[string]struct{}
	nodata      string
	training    bool

	// resolved from the header
	featureIdx []int
	groupIdx   int
	line       int

	mu  sync.Mutex
	err error
}

// Option configures a CSV reader.
type Option func(*Reader)

// WithHeader indicates the CSV has a header row.
func WithHeader(has bool) Option {
	return func(r *Reader) {
		r.hasHeader = has
	}
}

// WithGroupColumn names the column holding group labels.
func WithGroupColumn(name string) Option {
	return func(r *Reader) {
		r.groupColumn = name
	}
}

// WithExclude lists columns that are neither features nor groups, such as
// class labels or coordinates.
func WithExclude(columns ...string) Option {
	return func(r *Reader) {
		for _, c := range columns {
			r.exclude[c] = struct{}{}
		}
	}
}

// WithColumns selects the feature columns by name, in the given order. All
// other columns are ignored.
func WithColumns(names ...string) Option {
	return func(r *Reader) {
		r.columns = append([]string(nil), names...)
	}
}

// WithNoData sets the token marking missing cells, in addition to empty cells.
func WithNoData(token string) Option {
	return func(r *Reader) {
		r.nodata = token
	}
}

// WithTraining makes missing cells an error instead of a no-data row.
func WithTraining(training bool) Option {
	return func(r *Reader) {
		r.training = training
	}
}

// NewReader creates a new CSV reader.
func NewReader(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: open %s", filename)
	}

	r, err := newReader(file, opts...)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.file = file
	return r, nil
}

// NewReaderFrom creates a CSV reader over an arbitrary stream.
func NewReaderFrom(src io.Reader, opts ...Option) (*Reader, error) {
	return newReader(src, opts...)
}

func newReader(src io.Reader, opts ...Option) (*Reader, error) {
	r := &Reader{
		reader:    csv.NewReader(src),
		hasHeader: true,
		exclude:   make(map[string]struct{}),
		groupIdx:  -1,
	}
	// Field counts are checked per line in parseRow.
	r.reader.FieldsPerRecord = -1

	for _, opt := range opts {
		opt(r)
	}

	// Read header if present
	if r.hasHeader {
		headers, err := r.reader.Read()
		if err != nil {
			return nil, eris.Wrap(err, "csv: read header")
		}
		r.line++
		for i := range headers {
			headers[i] = strings.TrimSpace(headers[i])
		}
		r.headers = headers
		if err := r.resolveColumns(); err != nil {
			return nil, err
		}
	} else if r.groupColumn != "" {
		return nil, eris.New("csv: group column requires a header row")
	}

	return r, nil
}

func (r *Reader) resolveColumns() error {
	r.featureIdx = r.featureIdx[:0]
	index := make(map[string]int, len(r.headers))
	for i, h := range r.headers {
		index[h] = i
		if h == r.groupColumn && r.groupColumn != "" {
			r.groupIdx = i
			continue
		}
		if _, ok := r.exclude[h]; ok || len(r.columns) > 0 {
			continue
		}
		r.featureIdx = append(r.featureIdx, i)
	}
	if r.groupColumn != "" && r.groupIdx < 0 {
		return eris.Errorf("csv: group column %q not found", r.groupColumn)
	}
	for _, name := range r.columns {
		i, ok := index[name]
		if !ok {
			return eris.Wrapf(features.ErrFeatureMismatch, "csv: column %q not found", name)
		}
		r.featureIdx = append(r.featureIdx, i)
	}
	if len(r.featureIdx) == 0 {
		return eris.Wrap(features.ErrEmptyData, "csv: no feature columns")
	}
	return nil
}

// Headers returns the column headers.
func (r *Reader) Headers() []string {
	return r.headers
}

// FeatureNames returns the names of the feature columns.
func (r *Reader) FeatureNames() []string {
	names := make([]string, len(r.featureIdx))
	for k, i := range r.featureIdx {
		names[k] = r.headers[i]
	}
	return names
}

// Read returns all rows as a feature matrix.
func (r *Reader) Read() (*features.Matrix, error) {
	var (
		rows    [][]float64
		groups  []string
		nodata  []bool
		missing int
	)

	for {
		record, err := r.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read record")
		}
		r.line++

		if r.headers == nil {
			r.synthesizeHeaders(len(record))
		}

		row, isNoData, err := r.parseRow(record)
		if err != nil {
			return nil, err
		}
		if isNoData {
			missing++
		}
		rows = append(rows, row)
		nodata = append(nodata, isNoData)
		if r.groupIdx >= 0 {
			groups = append(groups, strings.TrimSpace(record[r.groupIdx]))
		}
	}

	if r.headers == nil {
		return nil, eris.Wrap(features.ErrEmptyData, "csv: no rows")
	}

	zap.L().Debug("read csv feature table",
		zap.String("component", "io.csv"),
		zap.Int("rows", len(rows)),
		zap.Int("features", len(r.featureIdx)),
		zap.Int("nodata_rows", missing),
	)

	opts := []features.MatrixOption{features.WithNoData(nodata)}
	if r.groupIdx >= 0 {
		opts = append(opts, features.WithGroups(groups))
	}
	return features.NewMatrix(r.FeatureNames(), rows, opts...)
}

// Stream returns a channel of feature rows for incremental processing.
// Missing cells come through as NaN so rows stay aligned. A read or parse
// error stops the stream; the channel is closed and Err reports the error.
func (r *Reader) Stream(ctx context.Context) (<-chan []float64, error) {
	if r.training {
		return nil, eris.New("csv: streaming is only supported for query files")
	}
	out := make(chan []float64, 100)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				record, err := r.reader.Read()
				if err == io.EOF {
					return
				}
				if err != nil {
					r.setErr(eris.Wrap(err, "csv: read record"))
					return
				}
				r.line++
				if r.headers == nil {
					r.synthesizeHeaders(len(record))
				}

				row, _, err := r.parseRow(record)
				if err != nil {
					r.setErr(err)
					return
				}

				select {
				case out <- row:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Err returns the error that stopped the last Stream, if any. It is only
// meaningful once the stream channel has been closed.
func (r *Reader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Reader) setErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

func (r *Reader) synthesizeHeaders(n int) {
	r.headers = make([]string, n)
	for i := range r.headers {
		r.headers[i] = fmt.Sprintf("f%d", i)
	}
	// Without a header every column is a feature.
	_ = r.resolveColumns()
}

// parseRow converts the feature cells of a record to floats.
func (r *Reader) parseRow(record []string) ([]float64, bool, error) {
	if len(record) != len(r.headers) {
		return nil, false, eris.Wrapf(features.ErrFeatureMismatch,
			"csv: line %d has %d fields, want %d", r.line, len(record), len(r.headers))
	}

	row := make([]float64, len(r.featureIdx))
	isNoData := false
	for k, i := range r.featureIdx {
		val := strings.TrimSpace(record[i])
		if val == "" || (r.nodata != "" && val == r.nodata) {
			if r.training {
				return nil, false, eris.Wrapf(features.ErrMalformedTrainingData,
					"csv: line %d column %q is missing", r.line, r.headers[i])
			}
			row[k] = math.NaN()
			isNoData = true
			continue
		}

		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			if r.training {
				return nil, false, eris.Wrapf(features.ErrMalformedTrainingData,
					"csv: line %d column %q: invalid number %q", r.line, r.headers[i], val)
			}
			return nil, false, eris.Wrapf(err, "csv: line %d column %q", r.line, r.headers[i])
		}
		row[k] = f
	}
	return row, isNoData, nil
}
