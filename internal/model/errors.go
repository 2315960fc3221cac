package model

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks provider failures (unreachable, rate limited, timed out).
	// Callers may retry these with backoff.
	ErrTransport = errors.New("transport failure")

	// ErrNotFound marks a transaction or block the provider does not have,
	// typically after pruning or a reorg at query time.
	ErrNotFound = errors.New("not found")

	// ErrIntegrity matches every *IntegrityError via errors.Is.
	ErrIntegrity = errors.New("history integrity violation")
)

// Transport wraps err so that both ErrTransport and err match via errors.Is.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}

// NotFound wraps a lookup miss.
func NotFound(op string, what string) error {
	return fmt.Errorf("%s: %s: %w", op, what, ErrNotFound)
}

// IntegrityReason classifies reconciliation faults.
type IntegrityReason string

const (
	ReasonMissingSettlement   IntegrityReason = "missing_settlement"
	ReasonOrphanSettlement    IntegrityReason = "orphan_settlement"
	ReasonDuplicateSettlement IntegrityReason = "duplicate_settlement"
	ReasonDuplicateRequest    IntegrityReason = "duplicate_request"
	ReasonKindMismatch        IntegrityReason = "kind_mismatch"
	ReasonShapeMismatch       IntegrityReason = "shape_mismatch"
)

// IntegrityError reports inconsistent request/settlement history for a range.
type IntegrityError struct {
	Reason    IntegrityReason
	RequestID uint64
	Detail    string
}

func (e *IntegrityError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("request %d: %s", e.RequestID, e.Reason)
	}
	return fmt.Sprintf("request %d: %s: %s", e.RequestID, e.Reason, e.Detail)
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}

// CallError reports the failure of a single call inside a batch.
type CallError struct {
	Index  int
	Method string
	Err    error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("call %d (%s): %v", e.Index, e.Method, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Outcome is the per-call result of a tolerant batch.
type Outcome struct {
	Values []interface{}
	Err    error
}

// OK reports whether the call succeeded and decoded.
func (o Outcome) OK() bool {
	return o.Err == nil
}
