package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"
)

// ErrSchemaMismatch reports a record whose field set differs from the
// one the header was derived from. Field lists are static per mode, so
// this is a defensive invariant, not a recoverable path.
var ErrSchemaMismatch = errors.New("record schema mismatch")

// CSVSink streams records into a single UTF-8 CSV file. The column list
// is derived from the first record; until then the file holds no header,
// so a run that produces zero records leaves an empty file behind.
type CSVSink struct {
	path   string
	file   *os.File
	w      *csv.Writer
	header []string
	rows   int64
	logger *zap.Logger
}

// NewCSVSink opens (and truncates) the output file, creating parent
// directories as needed.
func NewCSVSink(path string, logger *zap.Logger) (*CSVSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create output dir for %s: %w", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file %s: %w", path, err)
	}
	return &CSVSink{
		path:   path,
		file:   file,
		w:      csv.NewWriter(file),
		logger: logger,
	}, nil
}

// Accept writes one record as one physical CSV line, emitting the
// header first if this is the first record seen.
func (s *CSVSink) Accept(rec Record) error {
	fields := rec.Fields()
	if s.header == nil {
		if err := s.w.Write(fields); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		s.header = slices.Clone(fields)
		s.logger.Debug("csv header written",
			zap.String("path", s.path),
			zap.Int("columns", len(fields)),
		)
	} else if !slices.Equal(s.header, fields) {
		return fmt.Errorf("%w: got %d fields, header has %d", ErrSchemaMismatch, len(fields), len(s.header))
	}

	row := make([]string, len(fields))
	for i, v := range rec.Values() {
		row[i] = v.CellText()
	}
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	s.rows++
	return nil
}

// Rows returns the number of records written so far.
func (s *CSVSink) Rows() int64 { return s.rows }

// Path returns the output file path.
func (s *CSVSink) Path() string { return s.path }

// Close flushes buffered rows and closes the file. Rows accepted before
// a failure elsewhere stay on disk.
func (s *CSVSink) Close() error {
	s.w.Flush()
	flushErr := s.w.Error()
	closeErr := s.file.Close()
	if flushErr != nil {
		return fmt.Errorf("flush %s: %w", s.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", s.path, closeErr)
	}
	return nil
}
