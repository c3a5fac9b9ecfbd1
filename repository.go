package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/rs/zerolog"

	"github.com/likearthian/ormstore/mapping"
	"github.com/likearthian/ormstore/metamodel"
	"github.com/likearthian/ormstore/result"
)

// Repository stores values of T, identified by keys of type K, in the table
// of the entity T is bound to.
//
// K is the identifier type for single column identifiers. Composite
// identifiers take a struct whose fields are named after the identifier
// attributes, T itself included, or an array of the column values such as
// [2]any.
type Repository[K comparable, T any] interface {
	Get(ctx context.Context, id K, dest *T, options ...QueryOption) error
	Select(ctx context.Context, filter map[string]any, dest *[]T, options ...QueryOption) error
	Insert(ctx context.Context, value T, options ...QueryOption) (K, error)
	InsertAll(ctx context.Context, values []T, options ...QueryOption) ([]K, error)
	Update(ctx context.Context, id K, keyvals map[string]any, options ...QueryOption) error
	Upsert(ctx context.Context, id K, value T, options ...QueryOption) error
	Delete(ctx context.Context, id []K, options ...QueryOption) error
	SQLQuery(ctx context.Context, dest any, sqlStr string, args []any, options ...QueryOption) error
	SQLExec(ctx context.Context, sqlStr string, args []any, options ...QueryOption) error
	// Execute runs statements in order and returns their outputs, read as
	// the caller advances.
	Execute(ctx context.Context, statements []result.Statement, options ...QueryOption) (result.Outputs, error)
	Begin(ctx context.Context) (Transaction, error)
	GetTableDef() TableDef
}

type repository struct {
	Name     string
	tableDef TableDef
	model    *entityModel
	logger   *zerolog.Logger
}

func makeOption(options []RepositoryOption) *option {
	nop := zerolog.Nop()
	opt := &option{logger: &nop}
	for _, op := range options {
		op(opt)
	}

	return opt
}

// bindModel finds the entity typ is stored as, binding typ's struct tags
// when no metadata is given.
func bindModel(typ reflect.Type, opt *option) (*entityModel, error) {
	md := opt.metadata
	if md == nil {
		doc, err := mapping.FromTypes(typ)
		if err != nil {
			return nil, err
		}

		bindOpts := []metamodel.BindOption{metamodel.WithLogger(opt.logger)}
		if opt.naming != nil {
			bindOpts = append(bindOpts, metamodel.WithNamingStrategy(opt.naming))
		}

		md, err = metamodel.Bind([]*mapping.Document{doc}, bindOpts...)
		if err != nil {
			return nil, err
		}
	}

	name := opt.name
	if name == "" {
		name = indirectType(typ).Name()
	}

	entity, err := md.Resolve(name)
	if err != nil {
		return nil, err
	}

	return newEntityModel(entity, typ, opt.logger)
}

func newRepository[T any](opt *option, dialect Dialect) (repository, error) {
	var entity T
	model, err := bindModel(reflect.TypeOf(&entity).Elem(), opt)
	if err != nil {
		return repository{}, err
	}

	return repository{
		Name:     model.entity.EntityName,
		tableDef: createTableDef(model, dialect),
		model:    model,
		logger:   opt.logger,
	}, nil
}

func (r repository) GetTableDef() TableDef {
	return r.tableDef
}

// sortFieldMap validates the sorter fields and maps them to columns.
func (r repository) sortFieldMap(sorter []string) (map[string]string, error) {
	fieldMap := make(map[string]string)
	for _, s := range sorter {
		field := strings.TrimLeft(s, "+-")
		if field == "" {
			continue
		}

		col, err := r.model.column(field)
		if err != nil {
			return nil, err
		}
		fieldMap[strings.ToLower(field)] = col
	}

	return fieldMap, nil
}

// updateColumns validates keyvals against the updatable columns.
func (r repository) updateColumns(keyvals map[string]any) (map[string]any, error) {
	if len(keyvals) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrUnknownField)
	}

	updates := make(map[string]any, len(keyvals))
	for k, v := range keyvals {
		col, err := r.model.column(k)
		if err != nil {
			return nil, err
		}

		updatable := false
		for _, src := range r.model.updates {
			if src.column == col {
				updatable = true
				break
			}
		}

		if !updatable {
			return nil, fmt.Errorf("%w: %s is not updatable", ErrUnknownField, k)
		}

		updates[col] = v
	}

	return updates, nil
}

func initValues[K comparable, T any](ctx context.Context, repo Repository[K, T], values any) error {
	list, ok := values.([]T)
	if !ok {
		var zero T
		return fmt.Errorf("values to init should be []%T, got %T", zero, values)
	}

	for _, v := range list {
		if _, err := repo.Insert(ctx, v); err != nil && !errors.Is(err, ErrKeyAlreadyExists) {
			return err
		}
	}

	return nil
}
