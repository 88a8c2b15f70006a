package views

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
)

// CSVWriter is a buffered, append-only CSV file for one sensor.
//
// Rows are encoded into a bufio.Writer; nothing reaches the file until Flush
// or Close. The converter writes from a single goroutine, so there is no lock.
type CSVWriter struct {
	path   string
	file   *os.File
	buf    *bufio.Writer
	csv    *csv.Writer
	rows   uint64
	closed bool
}

// ErrWriterClosed is returned by writes after Close.
var ErrWriterClosed = errors.New("csv writer closed")

// NewCSVWriter creates (truncating) a file and writes the CSV header row.
func NewCSVWriter(path string, bufSizeBytes int, header []string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv create %s: %w", path, err)
	}

	if bufSizeBytes <= 0 {
		bufSizeBytes = 256 * 1024 // 256 KB default
	}

	bw := bufio.NewWriterSize(f, bufSizeBytes)
	cw := csv.NewWriter(bw)

	w := &CSVWriter{
		path: path,
		file: f,
		buf:  bw,
		csv:  cw,
	}

	if len(header) > 0 {
		if err := cw.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("csv write header %s: %w", path, err)
		}
	}

	return w, nil
}

// Path returns the file path the writer was opened on.
func (w *CSVWriter) Path() string { return w.path }

// WriteRow appends a single CSV row.
func (w *CSVWriter) WriteRow(row []string) error {
	if w.closed {
		return ErrWriterClosed
	}
	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("csv write %s: %w", w.path, err)
	}
	w.rows++
	return nil
}

// Flush pushes the buffered data to the OS.
func (w *CSVWriter) Flush() error {
	if w.closed {
		return ErrWriterClosed
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("csv flush %s: %w", w.path, err)
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("csv flush %s: %w", w.path, err)
	}
	return nil
}

// Close flushes remaining data and closes the file. Calls after the first
// are no-ops.
func (w *CSVWriter) Close() error {
	if w.closed {
		return nil
	}
	flushErr := w.Flush()
	w.closed = true
	if err := w.file.Close(); err != nil && flushErr == nil {
		return fmt.Errorf("csv close %s: %w", w.path, err)
	}
	return flushErr
}

// Rows returns the number of data rows written (excludes header).
func (w *CSVWriter) Rows() uint64 {
	return w.rows
}
