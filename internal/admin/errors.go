package admin

import (
	"errors"
	"fmt"
)

// ValidationError is malformed admin input. Its text is shown to the admin.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func isValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
