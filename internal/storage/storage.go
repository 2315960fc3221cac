package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fydeScope/internal/model"
	"fydeScope/internal/observability"
)

// Sink persists reconciled user actions. Whether a repeated write replaces or
// duplicates an action is up to the sink: Postgres upserts by log position,
// JSONL and Kafka append.
type Sink interface {
	PutUserActions(ctx context.Context, actions []model.UserAction) error
}

// Named labels a sink for logs and metrics.
type Named struct {
	Name string
	Sink Sink
}

// Multi writes every batch to each sink in order. It keeps going after a
// failed sink and returns the joined errors.
type Multi []Named

func (m Multi) PutUserActions(ctx context.Context, actions []model.UserAction) error {
	var errs []error
	for _, s := range m {
		start := time.Now()
		err := s.Sink.PutUserActions(ctx, actions)
		observability.RecordSinkWrite(s.Name, time.Since(start).Seconds(), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
