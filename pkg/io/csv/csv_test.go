package csv

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/goaoa/pkg/detectors"
	"github.com/hed1ad/goaoa/pkg/features"
)

const trainingCSV = `B04,B08,polygon,class
0.10,0.40,p1,forest
0.12,0.42,p1,forest
0.30,0.20,p2,urban
0.31,0.22,p2,urban
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadTraining(t *testing.T) {
	r, err := NewReader(writeFile(t, trainingCSV),
		WithGroupColumn("polygon"), WithExclude("class"), WithTraining(true))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"B04", "B08"}, r.FeatureNames())

	m, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, 4, m.NumRows())
	assert.Equal(t, []string{"B04", "B08"}, m.Names())
	assert.Equal(t, []string{"p1", "p1", "p2", "p2"}, m.Groups())
	assert.Equal(t, 0.31, m.At(3, 0))
}

func TestReadTrainingMissingCell(t *testing.T) {
	content := "a,b,g\n1,2,x\n3,,y\n"
	r, err := NewReaderFrom(strings.NewReader(content), WithGroupColumn("g"), WithTraining(true))
	require.NoError(t, err)

	_, err = r.Read()
	require.ErrorIs(t, err, features.ErrMalformedTrainingData)
	assert.Contains(t, err.Error(), "line 3")
	assert.Contains(t, err.Error(), `"b"`)
}

func TestReadTrainingBadNumber(t *testing.T) {
	r, err := NewReaderFrom(strings.NewReader("a\n1\nabc\n"), WithTraining(true))
	require.NoError(t, err)

	_, err = r.Read()
	assert.ErrorIs(t, err, features.ErrMalformedTrainingData)
}

func TestReadQueryNoData(t *testing.T) {
	content := "x,y,a,b\n10,20,1,2\n11,20,-9999,2\n12,20,,3\n13,20,4,5\n"
	r, err := NewReaderFrom(strings.NewReader(content), WithExclude("x", "y"), WithNoData("-9999"))
	require.NoError(t, err)

	m, err := r.Read()
	require.NoError(t, err)
	require.Equal(t, 4, m.NumRows())
	assert.False(t, m.IsNoData(0))
	assert.True(t, m.IsNoData(1))
	assert.True(t, m.IsNoData(2))
	assert.False(t, m.IsNoData(3))
	assert.False(t, m.HasGroups())
}

func TestReadQueryBadNumber(t *testing.T) {
	r, err := NewReaderFrom(strings.NewReader("a,b\n1,two\n"))
	require.NoError(t, err)

	_, err = r.Read()
	assert.Error(t, err)
}

func TestReadFieldCountMismatch(t *testing.T) {
	r, err := NewReaderFrom(strings.NewReader("a,b\n1,2\n3\n"))
	require.NoError(t, err)

	_, err = r.Read()
	assert.ErrorIs(t, err, features.ErrFeatureMismatch)
}

func TestReaderOptions(t *testing.T) {
	t.Run("missing group column", func(t *testing.T) {
		_, err := NewReaderFrom(strings.NewReader("a,b\n1,2\n"), WithGroupColumn("poly"))
		assert.Error(t, err)
	})

	t.Run("no feature columns", func(t *testing.T) {
		_, err := NewReaderFrom(strings.NewReader("g\nx\n"), WithGroupColumn("g"))
		assert.ErrorIs(t, err, features.ErrEmptyData)
	})

	t.Run("no header", func(t *testing.T) {
		r, err := NewReaderFrom(strings.NewReader("1,2\n3,4\n"), WithHeader(false))
		require.NoError(t, err)
		m, err := r.Read()
		require.NoError(t, err)
		assert.Equal(t, []string{"f0", "f1"}, m.Names())
		assert.Equal(t, 2, m.NumRows())
	})

	t.Run("selected columns", func(t *testing.T) {
		r, err := NewReaderFrom(strings.NewReader("x,b,a,y\n0,2,1,0\n"), WithColumns("a", "b"))
		require.NoError(t, err)
		m, err := r.Read()
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, m.Names())
		assert.Equal(t, []float64{1, 2}, m.Row(0))
	})

	t.Run("selected column missing", func(t *testing.T) {
		_, err := NewReaderFrom(strings.NewReader("a,b\n1,2\n"), WithColumns("a", "c"))
		assert.ErrorIs(t, err, features.ErrFeatureMismatch)
	})

	t.Run("group without header", func(t *testing.T) {
		_, err := NewReaderFrom(strings.NewReader("1,2\n"), WithHeader(false), WithGroupColumn("g"))
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewReader(filepath.Join(t.TempDir(), "nope.csv"))
		assert.Error(t, err)
	})
}

func drain(ch <-chan []float64) [][]float64 {
	var rows [][]float64
	for row := range ch {
		rows = append(rows, row)
	}
	return rows
}

func TestStream(t *testing.T) {
	r, err := NewReaderFrom(strings.NewReader("a,b\n1,2\n,3\n5,6\n"))
	require.NoError(t, err)

	ch, err := r.Stream(context.Background())
	require.NoError(t, err)
	rows := drain(ch)

	require.NoError(t, r.Err())
	require.Len(t, rows, 3)
	assert.Equal(t, []float64{1, 2}, rows[0])
	assert.True(t, math.IsNaN(rows[1][0]))
	assert.Equal(t, 3.0, rows[1][1])
	assert.Equal(t, []float64{5, 6}, rows[2])

	tr, err := NewReaderFrom(strings.NewReader("a\n1\n"), WithTraining(true))
	require.NoError(t, err)
	_, err = tr.Stream(context.Background())
	assert.Error(t, err)
}

func TestStreamStopsOnError(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantRows int
	}{
		{"bad number", "a,b\n1,2\n4,x\n5,6\n", 1},
		{"bare quote", "a,b\n1,2\n3,4\"x\n5,6\n", 1},
		{"field count", "a,b\n1,2\n3,4\n5\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReaderFrom(strings.NewReader(tt.content))
			require.NoError(t, err)

			ch, err := r.Stream(context.Background())
			require.NoError(t, err)

			assert.Len(t, drain(ch), tt.wantRows)
			assert.Error(t, r.Err())

			// Read fails on the same input.
			batch, err := NewReaderFrom(strings.NewReader(tt.content))
			require.NoError(t, err)
			_, err = batch.Read()
			assert.Error(t, err)
		})
	}
}

func TestWriter(t *testing.T) {
	result := detectors.NewResult(3)
	result.Set(0, detectors.Score{DI: 0, Distance: 0, Applicability: detectors.Inside})
	result.Set(1, detectors.Score{DI: 2.5, Distance: 5, Applicability: detectors.Outside})

	var buf bytes.Buffer
	w := NewWriterTo(&buf)
	require.NoError(t, w.Write(result))
	require.NoError(t, w.Close())

	want := "row,di,distance,aoa\n0,0,0,1\n1,2.5,5,0\n2,NA,NA,NA\n"
	assert.Equal(t, want, buf.String())
}

func TestWriterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := NewWriter(path)
	require.NoError(t, err)

	result := detectors.NewResult(1)
	result.Set(0, detectors.Score{DI: 0.5, Distance: 1, Applicability: detectors.Inside})
	require.NoError(t, w.Write(result))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "row,di,distance,aoa\n0,0.5,1,1\n", string(data))
}
