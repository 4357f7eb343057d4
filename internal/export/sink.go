package export

import (
	"errors"
)

// Sink consumes records one at a time, in production order. Close
// flushes and releases the output resource; callers run it via defer so
// it executes even when record production fails partway through.
type Sink interface {
	Accept(rec Record) error
	Close() error
}

// MultiSink fans every record out to several sinks, e.g. the CSV file
// plus an optional database store.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks. A single sink is returned unwrapped.
func NewMultiSink(sinks ...Sink) Sink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return &MultiSink{sinks: sinks}
}

// Accept forwards the record to every sink and reports all failures.
func (m *MultiSink) Accept(rec Record) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Accept(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink, keeping the first error of each.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
