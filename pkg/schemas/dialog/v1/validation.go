package dialog

import "errors"

var (
	ErrInvalidPrompt          = errors.New("invalid prompt")
	ErrInvalidRoutingStrategy = errors.New("invalid routing strategy")
	ErrInvalidBilling         = errors.New("invalid billing entry")
	ErrNoMessages             = errors.New("dialog has no messages")
	ErrNoReplyAddress         = errors.New("dialog does not support replies")
	ErrMalformedPayload       = errors.New("malformed dialog payload")
)

type ValidationIssue struct{ Field, Reason string }

// ValidationError collects field-level issues behind one of the sentinel
// kinds above, so callers can discriminate with errors.Is.
type ValidationError struct {
	kind   error
	Issues []ValidationIssue
}

func newValidationError(kind error) *ValidationError { return &ValidationError{kind: kind} }

func (e *ValidationError) Error() string { return e.kind.Error() }
func (e *ValidationError) add(f, r string) {
	e.Issues = append(e.Issues, ValidationIssue{Field: f, Reason: r})
}
func (e *ValidationError) Is(target error) bool { return target == e.kind }

// orNil returns nil when no issues were recorded.
func (e *ValidationError) orNil() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}
