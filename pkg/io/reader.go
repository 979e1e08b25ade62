// Package io provides input/output utilities for feature tables and
// applicability results.
package io

import (
	"context"

	"github.com/hed1ad/goaoa/pkg/detectors"
	"github.com/hed1ad/goaoa/pkg/features"
)

// Reader is the interface for reading feature matrices from various sources.
type Reader interface {
	// Read returns the complete matrix.
	Read() (*features.Matrix, error)

	// Close releases resources.
	Close() error
}

// StreamReader is a Reader that can also emit samples one at a time.
type StreamReader interface {
	Reader

	// Stream returns a channel of samples for incremental scoring.
	Stream(ctx context.Context) (<-chan []float64, error)

	// Err returns the error that ended the stream early, or nil.
	Err() error
}

// Writer is the interface for writing applicability results.
type Writer interface {
	// Write outputs a result, one record per query row.
	Write(result *detectors.Result) error

	// Close releases resources.
	Close() error
}
