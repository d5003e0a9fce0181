package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy for the optimization engine. These are sentinels, not a
// type hierarchy: callers classify failures with errors.Is/errors.As rather
// than switching on concrete types.
var (
	// Raised at startup while validating an engine configuration. Fatal —
	// the engine never starts a run.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrNoStopCondition      = errors.New("no stop condition configured")
	ErrInvalidSelectorName  = errors.New("invalid selector or sampler name")

	// Raised by a StateStore on load or save. Fatal on load; logged and
	// retried on a periodic save.
	ErrPersistence     = errors.New("persistence error")
	ErrSchemaTooNew    = errors.New("state schema version is newer than supported")
	ErrMigrationFailed = errors.New("state schema migration failed")

	// Raised by State.Admit when the caller passes a data id the loader
	// never produced. Indicates a bug in the caller or the loader; fatal.
	ErrUnknownDataID = errors.New("unknown data id")

	// Raised by State.Admit when a parent program index falls outside
	// [0, len(candidates)). Indicates a bug in a proposer; fatal.
	ErrInvalidParent = errors.New("invalid parent program index")

	// Raised by the adapter boundary: Evaluate, MakeReflectiveDataset, or a
	// custom propose_new_texts hook. Whether this aborts the run or is
	// logged-and-skipped is controlled by the engine's raise_on_exception
	// setting.
	ErrAdapter  = errors.New("adapter error")
	ErrProposal = errors.New("proposal error")

	// Not a failure: a cooperative signal that a stop condition fired.
	ErrStopRequested = errors.New("stop requested")
)

// GEPAError wraps one of the sentinels above with additional context, the
// way a caller needs to log or report it.
type GEPAError struct {
	Err     error
	Message string
	Code    string
}

func (e *GEPAError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *GEPAError) Unwrap() error {
	return e.Err
}

func NewGEPAError(err error, message string) *GEPAError {
	return &GEPAError{Err: err, Message: message}
}

func NewGEPAErrorWithCode(err error, message, code string) *GEPAError {
	return &GEPAError{Err: err, Message: message, Code: code}
}

// WrapAdapterError tags err as having originated across the adapter
// boundary, so the engine can decide whether to propagate or swallow it.
func WrapAdapterError(err error) error {
	if err == nil {
		return nil
	}
	return &GEPAError{Err: fmt.Errorf("%w: %w", ErrAdapter, err)}
}

// WrapProposalError tags err as a failed text proposal (no fenced block
// found, or a custom hook returned the wrong key set). Treated as a kind of
// AdapterError by callers that only check errors.Is(err, ErrAdapter).
func WrapProposalError(err error) error {
	if err == nil {
		return nil
	}
	return &GEPAError{Err: fmt.Errorf("%w: %w: %w", ErrProposal, ErrAdapter, err)}
}
