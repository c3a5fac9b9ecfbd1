package store

import "errors"

var (
	ErrKeyAlreadyExists    = errors.New("key already exists")
	ErrKeyNotFound         = errors.New("key not found")
	ErrNoRow               = errors.New("no row")
	ErrForeignKeyViolation = errors.New("foreign key violation")
	ErrNotSupported        = errors.New("operation not supported")
	ErrUnknownField        = errors.New("unknown field")
	ErrInvalidModel        = errors.New("invalid model")
	ErrInvalidKey          = errors.New("invalid key")
	ErrSchemaMismatch      = errors.New("table does not match mapping")
)
