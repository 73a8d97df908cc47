package orchestrator

import (
	"errors"
	"fmt"
)

// ErrUsage matches every UsageError.
var ErrUsage = errors.New("usage violation")

// Usage violation kinds, one per precondition.
var (
	ErrAlreadyStarted    = errors.New("orchestrator already started")
	ErrStartInProgress   = errors.New("orchestrator start already in progress")
	ErrStartAborted      = errors.New("orchestrator start was aborted during init")
	ErrAlreadyRegistered = errors.New("modules already registered")
	ErrNotCollection     = errors.New("batch is not a collection")
	ErrInvalidModule     = errors.New("invalid module")
	ErrDuplicateName     = errors.New("duplicate module name in batch")
	ErrNotStarted        = errors.New("orchestrator not started")
	ErrNotDiscovered     = errors.New("remote services not discovered yet")
	ErrNotFound          = errors.New("no module with that name")
)

// UsageError reports a violated precondition of the orchestrator API. These
// are programming errors in the caller, never module failures.
type UsageError struct {
	Op     string
	Kind   error
	Detail string
}

func (e *UsageError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Detail)
}

func (e *UsageError) Unwrap() error {
	return e.Kind
}

func (e *UsageError) Is(target error) bool {
	return target == ErrUsage
}

func usage(op string, kind error, detailFmt string, args ...interface{}) error {
	detail := detailFmt
	if len(args) > 0 {
		detail = fmt.Sprintf(detailFmt, args...)
	}
	return &UsageError{Op: op, Kind: kind, Detail: detail}
}
