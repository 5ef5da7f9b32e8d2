package transform

import (
	"errors"
	"fmt"
)

// ErrInvalidStructure is wrapped by every ValidationError.
var ErrInvalidStructure = errors.New("invalid content structure")

// ValidationError reports the first structural problem found in a tree.
// Path locates the offending node, e.g. "root.children[2].children[0]".
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidStructure, e.Reason)
	}
	return fmt.Sprintf("%s at %s: %s", ErrInvalidStructure, e.Path, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidStructure
}
