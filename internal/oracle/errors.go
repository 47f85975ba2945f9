package oracle

import (
	"fmt"

	llmclient "kgbuilder/internal/llmClient"
)

// ErrTransient matches timeouts, network failures and non-2xx answers.
var ErrTransient = llmclient.ErrTransient

// ParseError reports a reply that is JSON but not an expansion record.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "oracle: unparseable expansion: " + e.Reason + ": " + e.Err.Error()
	}
	return "oracle: unparseable expansion: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExhaustedError is returned once every attempt for a topic has failed, or a
// permanent failure cut the attempts short.
type ExhaustedError struct {
	Topic    string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("oracle: %q failed after %d attempt(s): %v", e.Topic, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }
