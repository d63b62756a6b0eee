package model

import (
	"errors"
	"fmt"
)

// ReferenceError reports a request for something that cannot exist, such as
// a category index outside 0-7. It is a hard error; callers never default.
type ReferenceError struct {
	Kind  string
	Value string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Kind, e.Value)
}

// IsReferenceError returns true if err is or wraps a *ReferenceError.
func IsReferenceError(err error) bool {
	var re *ReferenceError
	return errors.As(err, &re)
}
