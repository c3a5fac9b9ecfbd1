package metamodel

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateEntity = errors.New("duplicate entity")
	ErrUnknownEntity   = errors.New("unknown entity")
	ErrAmbiguousEntity = errors.New("ambiguous entity reference")
	ErrColumnMismatch  = errors.New("column count mismatch")
	ErrDuplicateColumn = errors.New("repeated column")
	ErrUnresolved      = errors.New("unresolvable association")
)

// BindError reports a binding problem of one attribute, or of a whole entity
// when Attribute is empty.
type BindError struct {
	Entity    string
	Attribute string
	Err       error
}

func (e *BindError) Error() string {
	if e.Attribute == "" {
		return fmt.Sprintf("entity %s: %s", e.Entity, e.Err)
	}

	return fmt.Sprintf("entity %s, attribute %s: %s", e.Entity, e.Attribute, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
