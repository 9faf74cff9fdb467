package feeder

import (
	"errors"
	"fmt"

	"hydronom-sim/internal/telemetry"
)

// WriterError ties a failed write to the writer that produced it.
type WriterError struct {
	Writer TelemetryWriter
	Err    error
}

func (e *WriterError) Error() string { return fmt.Sprintf("%T: %v", e.Writer, e.Err) }

func (e *WriterError) Unwrap() error { return e.Err }

// MultiWriter fans records out to multiple writers.
// Every writer is attempted, even after one fails.
type MultiWriter struct {
	writers []TelemetryWriter
}

// NewMultiWriter creates a new MultiWriter. Nil writers are skipped.
func NewMultiWriter(ws ...TelemetryWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range ws {
		mw.Add(w)
	}
	return mw
}

// Add appends w to the fan-out. Nil is ignored.
func (mw *MultiWriter) Add(w TelemetryWriter) {
	if w != nil {
		mw.writers = append(mw.writers, w)
	}
}

// Len reports how many writers receive records.
func (mw *MultiWriter) Len() int { return len(mw.writers) }

// Write sends a record to all writers. Failures are joined, one *WriterError each.
func (mw *MultiWriter) Write(row telemetry.Record) error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.Write(row); err != nil {
			errs = append(errs, &WriterError{Writer: w, Err: err})
		}
	}
	return errors.Join(errs...)
}

// WriterErrors splits an error returned by MultiWriter.Write into its per-writer failures.
func WriterErrors(err error) []*WriterError {
	if err == nil {
		return nil
	}
	var out []*WriterError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, WriterErrors(e)...)
		}
		return out
	}
	var we *WriterError
	if errors.As(err, &we) {
		out = append(out, we)
	}
	return out
}
