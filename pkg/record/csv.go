package record

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// header is written once at the top of every CSV log.
var header = []string{
	"timestamp", "time_ms", "temperature", "setpoint", "dac", "period", "u1", "u2", "u3",
}

// Writer appends telemetry samples to a CSV stream.
type Writer struct {
	csv         *csv.Writer
	closer      io.Closer
	wroteHeader bool
}

// NewWriter wraps an existing stream. The header is written before the
// first sample.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// Create opens (or truncates) a CSV log file.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	w := NewWriter(f)
	w.closer = f
	return w, nil
}

// Write appends one sample.
func (w *Writer) Write(s Sample) error {
	if !w.wroteHeader {
		if err := w.csv.Write(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		w.wroteHeader = true
	}

	row := []string{
		s.Timestamp.Format(time.RFC3339Nano),
		strconv.FormatFloat(s.Data.TimeMS, 'f', 0, 64),
		strconv.FormatFloat(s.Data.Temperature, 'f', 2, 64),
		strconv.FormatFloat(s.Data.Setpoint, 'f', 2, 64),
		strconv.FormatFloat(s.Data.DAC, 'f', 0, 64),
		strconv.FormatFloat(s.Data.Period, 'f', 0, 64),
		strconv.FormatFloat(s.Data.U1, 'f', 4, 64),
		strconv.FormatFloat(s.Data.U2, 'f', 4, 64),
		strconv.FormatFloat(s.Data.U3, 'f', 4, 64),
	}
	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("failed to write sample: %w", err)
	}

	return nil
}

// Close flushes buffered rows and closes the underlying file, if any.
func (w *Writer) Close() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("failed to flush log: %w", err)
	}

	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
