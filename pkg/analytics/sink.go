package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sink persists analytics rows. Implementations must be safe for concurrent use.
type Sink interface {
	Name() string
	Record(ctx context.Context, row Row) error
}

// MultiSink fans a row out to every configured sink. One failing sink does not stop the others.
type MultiSink []Sink

func (m MultiSink) Name() string { return "multi" }

func (m MultiSink) Record(ctx context.Context, row Row) error {
	var errs []error
	for _, s := range m {
		start := time.Now()
		err := s.Record(ctx, row)
		observeWrite(s.Name(), start, err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// NopSink discards rows; used when no analytics store is configured.
type NopSink struct{}

func (NopSink) Name() string                      { return "nop" }
func (NopSink) Record(context.Context, Row) error { return nil }
