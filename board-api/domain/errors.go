package domain

import "errors"

var (
	ErrBoardNotFound = errors.New("board not found")
	ErrTaskNotFound  = errors.New("task not found")
)

// ValidationError reports a request field that failed boundary checks. Message
// is safe to show to users.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// IsNotFound reports whether err refers to a missing board or task.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBoardNotFound) || errors.Is(err, ErrTaskNotFound)
}
