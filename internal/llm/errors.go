package llm

import (
	"errors"
	"fmt"

	"github.com/nickcecere/lrag/internal/search"
)

// ErrGenerationFailed marks failures of the answer-generation collaborator,
// as opposed to retrieval failures.
var ErrGenerationFailed = errors.New("generation failed")

// GenerationError reports a failed generation call. It keeps the passages that
// were retrieved for the question so they can still be logged or shown.
type GenerationError struct {
	Question string
	Sources  []search.Result
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrGenerationFailed, e.Err)
}

// Unwrap exposes both ErrGenerationFailed and the underlying cause.
func (e *GenerationError) Unwrap() []error {
	return []error{ErrGenerationFailed, e.Err}
}
