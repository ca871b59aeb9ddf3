package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const unmatchedFileName = "unmatched.jsonl"

// Writer appends telemetry records as JSON Lines under a single
// directory. Completed runs land in month-bucketed files named after the
// UTC month the record is written in (for example 2026-08.jsonl);
// unmatched stops land in a shared side-log.
//
// Appends rely on O_APPEND write atomicity for the small single-line
// payloads involved, so concurrent hook processes can share a file
// without a lock.
type Writer struct {
	dir string
	now func() time.Time
}

// NewWriter returns a Writer that stores records under dir. The
// directory is created on first write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// Write appends rec to the current UTC month's file.
func (w *Writer) Write(rec *Record) error {
	name := MonthlyFileName(w.now())
	if err := w.appendLine(name, rec); err != nil {
		return fmt.Errorf("failed to write telemetry record: %w", err)
	}
	return nil
}

// WriteUnmatched appends stop to the unmatched side-log.
func (w *Writer) WriteUnmatched(stop *UnmatchedStop) error {
	if err := w.appendLine(unmatchedFileName, stop); err != nil {
		return fmt.Errorf("failed to write unmatched stop: %w", err)
	}
	return nil
}

// Dir returns the directory records are written under.
func (w *Writer) Dir() string {
	return w.dir
}

func (w *Writer) appendLine(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create telemetry directory: %w", err)
	}

	path := filepath.Join(w.dir, name)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return nil
}

// MonthlyFileName returns the telemetry file name for the UTC month
// containing t.
func MonthlyFileName(t time.Time) string {
	return t.UTC().Format("2006-01") + ".jsonl"
}
