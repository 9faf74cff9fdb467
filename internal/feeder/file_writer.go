package feeder

import (
	"encoding/json"
	"errors"

	"gopkg.in/natefinch/lumberjack.v2"

	"hydronom-sim/internal/telemetry"
)

// FileWriter appends records to a size-rotated JSONL log.
type FileWriter struct {
	log *lumberjack.Logger
	enc *json.Encoder
}

// NewFileWriter creates a FileWriter for path. maxSizeMB and maxBackups
// bound the rotation; zero keeps the lumberjack defaults.
func NewFileWriter(path string, maxSizeMB, maxBackups int) (*FileWriter, error) {
	if path == "" {
		return nil, errors.New("file writer: path required")
	}
	l := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}
	return &FileWriter{log: l, enc: json.NewEncoder(l)}, nil
}

// Write logs a single record.
func (f *FileWriter) Write(row telemetry.Record) error {
	return f.enc.Encode(row)
}

// Close closes the underlying log file.
func (f *FileWriter) Close() error {
	return f.log.Close()
}
