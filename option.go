package store

import (
	"github.com/rs/zerolog"

	"github.com/likearthian/ormstore/metamodel"
)

type RepositoryOption func(o *option)

type option struct {
	initValues  any
	name        string
	logger      *zerolog.Logger
	metadata    *metamodel.Metadata
	naming      metamodel.NamingStrategy
	schemaCheck bool
}

// InitWith inserts values when the repository is created. Values whose key
// already exists are skipped.
func InitWith(values any) RepositoryOption {
	return func(o *option) {
		o.initValues = values
	}
}

// WithName picks the entity to bind by name instead of by the Go type name.
func WithName(name string) RepositoryOption {
	return func(o *option) {
		o.name = name
	}
}

func WithLogger(logger *zerolog.Logger) RepositoryOption {
	return func(o *option) {
		o.logger = logger
	}
}

// WithMetadata binds the repository to an entity of md. Without it the model
// type's struct tags are bound on their own.
func WithMetadata(md *metamodel.Metadata) RepositoryOption {
	return func(o *option) {
		o.metadata = md
	}
}

// WithNamingStrategy sets the naming used when the model is bound from its
// struct tags. It is ignored together with WithMetadata.
func WithNamingStrategy(naming metamodel.NamingStrategy) RepositoryOption {
	return func(o *option) {
		o.naming = naming
	}
}

// WithSchemaCheck makes the repository compare the mapped columns with the
// database table on creation.
func WithSchemaCheck() RepositoryOption {
	return func(o *option) {
		o.schemaCheck = true
	}
}

type QueryOption func(o *queryOption)

type queryOption struct {
	Tx              Transaction
	Limit           int
	Offset          int64
	Sorter          []string
	IgnoreDuplicate bool
}

func makeQueryOption(options []QueryOption) *queryOption {
	opt := &queryOption{}
	for _, op := range options {
		op(opt)
	}

	return opt
}

// WithTransaction returns a QueryOption that sets the transaction
// to use for the query.
func WithTransaction(tx Transaction) QueryOption {
	return func(o *queryOption) {
		o.Tx = tx
	}
}

// WithLimit returns a QueryOption that sets the limit for the
// number of rows to return.
func WithLimit(limit int) QueryOption {
	return func(o *queryOption) {
		o.Limit = limit
	}
}

// WithOffset returns a QueryOption that sets the offset for the
// rows returned.
func WithOffset(offset int64) QueryOption {
	return func(o *queryOption) {
		o.Offset = offset
	}
}

// WithSorter returns a QueryOption that sets the sorting order for the query.
// The sorter parameter is a variadic slice of field names to sort by, prefixed by "-" for descending order, and prefixed by "+" for ascending order.
//
// example:
//
//	WithSorter("-name", "+age")
func WithSorter(sorter ...string) QueryOption {
	return func(o *queryOption) {
		o.Sorter = sorter
	}
}

// WithIgnoreDuplicate returns a QueryOption that sets IgnoreDuplicate
// to true. To be used with Insert operation. When set to true, duplicate rows will be discarded
func WithIgnoreDuplicate() QueryOption {
	return func(o *queryOption) {
		o.IgnoreDuplicate = true
	}
}
