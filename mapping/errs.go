package mapping

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported mapping document format")
	ErrInvalidMapping    = errors.New("invalid mapping")
)

// Error reports a problem in a mapping source together with its origin.
type Error struct {
	Origin Origin
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Origin, e.Msg)
}

func (e *Error) Unwrap() error {
	return ErrInvalidMapping
}

func mappingErrorf(origin Origin, format string, args ...any) error {
	return &Error{Origin: origin, Msg: fmt.Sprintf(format, args...)}
}
