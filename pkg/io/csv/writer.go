package csv

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/hed1ad/goaoa/pkg/detectors"
)

// NA is written for no-data cells.
const NA = "NA"

// Writer writes applicability results as CSV with columns row, di,
// distance and aoa. The aoa column holds 1 (inside), 0 (outside) or NA.
type Writer struct {
	closer io.Closer
	writer *csv.Writer
}

// NewWriter writes results to a new file, truncating an existing one.
func NewWriter(filename string) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: create %s", filename)
	}
	return &Writer{closer: file, writer: csv.NewWriter(file)}, nil
}

// NewWriterTo writes results to dst. Close flushes but does not close dst.
func NewWriterTo(dst io.Writer) *Writer {
	return &Writer{writer: csv.NewWriter(dst)}
}

// Write outputs one record per result row, preceded by a header.
func (w *Writer) Write(result *detectors.Result) error {
	if err := w.writer.Write([]string{"row", "di", "distance", "aoa"}); err != nil {
		return eris.Wrap(err, "csv: write header")
	}

	record := make([]string, 4)
	for i := 0; i < result.Len(); i++ {
		record[0] = strconv.Itoa(i)
		record[1] = formatFloat(result.DI[i])
		record[2] = formatFloat(result.Distance[i])
		switch result.AOA[i] {
		case detectors.Inside:
			record[3] = "1"
		case detectors.Outside:
			record[3] = "0"
		default:
			record[3] = NA
		}
		if err := w.writer.Write(record); err != nil {
			return eris.Wrapf(err, "csv: write row %d", i)
		}
	}

	w.writer.Flush()
	return eris.Wrap(w.writer.Error(), "csv: flush")
}

// Close flushes buffered output and releases resources.
func (w *Writer) Close() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return eris.Wrap(err, "csv: flush")
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return NA
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
