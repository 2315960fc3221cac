package multicall

import (
	"context"

	"go.uber.org/zap"

	"fydeScope/internal/model"
	"fydeScope/internal/observability"
)

// Batch stages calls for one round trip. It is not safe for concurrent use.
// Strict and Tolerant consume the staged calls, so a batch executes once.
type Batch struct {
	reader *Reader
	calls  []Call
}

// Add stages a call and returns its position in the result.
func (b *Batch) Add(call Call) int {
	b.calls = append(b.calls, call)
	return len(b.calls) - 1
}

// Len returns the number of staged calls.
func (b *Batch) Len() int {
	return len(b.calls)
}

func (b *Batch) take() []Call {
	calls := b.calls
	b.calls = nil
	return calls
}

// Strict executes the batch and fails if any call reverts or fails to decode.
// Results are positionally aligned with Add order.
func (b *Batch) Strict(ctx context.Context) ([][]interface{}, error) {
	calls := b.take()
	if len(calls) == 0 {
		return [][]interface{}{}, nil
	}

	results, err := b.reader.aggregate(ctx, calls, false)
	if err != nil {
		observability.RecordBatch("strict", len(calls), 0, err)
		return nil, err
	}

	out := make([][]interface{}, len(calls))
	for i, res := range results {
		values, err := decodeResult(calls[i], res)
		if err != nil {
			callErr := &model.CallError{Index: i, Method: calls[i].Method, Err: err}
			observability.RecordBatch("strict", len(calls), 1, callErr)
			return nil, callErr
		}
		out[i] = values
	}
	observability.RecordBatch("strict", len(calls), 0, nil)
	return out, nil
}

// Tolerant executes the batch and reports each call's outcome independently.
// Only transport and outer decoding failures are returned as an error.
func (b *Batch) Tolerant(ctx context.Context) ([]model.Outcome, error) {
	calls := b.take()
	if len(calls) == 0 {
		return []model.Outcome{}, nil
	}

	results, err := b.reader.aggregate(ctx, calls, true)
	if err != nil {
		observability.RecordBatch("tolerant", len(calls), 0, err)
		return nil, err
	}

	out := make([]model.Outcome, len(calls))
	failed := 0
	for i, res := range results {
		values, err := decodeResult(calls[i], res)
		if err != nil {
			failed++
			out[i] = model.Outcome{Err: &model.CallError{Index: i, Method: calls[i].Method, Err: err}}
			continue
		}
		out[i] = model.Outcome{Values: values}
	}
	if failed > 0 {
		b.reader.logger.Debug("tolerant batch partial failure",
			zap.Int("calls", len(calls)),
			zap.Int("failed", failed),
		)
	}
	observability.RecordBatch("tolerant", len(calls), failed, nil)
	return out, nil
}
