package catalog

import "errors"

var (
	// ErrNotFound is returned when a book id does not resolve.
	ErrNotFound = errors.New("book not found")

	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateTitle is returned when a title is already used by another book.
	ErrDuplicateTitle = errors.New("title already exists")
)

// Messages shown to the user when a book form is rejected.
const (
	MsgTitleRequired   = "Title is required!"
	MsgCountInvalid    = "Count must be 0 or higher"
	MsgContentRequired = "Content is required!"
	MsgTitleExists     = "Title already exists!"
)

// ValidationError describes a rejected form field. Message is safe to show
// to the user.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Unwrap lets errors.Is match both ErrValidation and the specific cause.
func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Err}
}

// UserMessage returns the user-visible message carried by err, or "" when err
// is not a validation failure.
func UserMessage(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return ""
}
