package llmclient

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrInvalidJSON is returned when a provider answers with something that is
// not a JSON object, even after cleanup.
var ErrInvalidJSON = errors.New("invalid json from LLM")

// ErrTransient marks failures worth retrying: timeouts, network errors,
// throttling and 5xx answers.
var ErrTransient = errors.New("transient LLM failure")

// LLMClient defines the interface for LLM providers.
type LLMClient interface {
	Name() string
	Close() error
	GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error)
}

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err (or anything it wraps) is a PermanentError.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}
