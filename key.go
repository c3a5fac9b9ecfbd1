package store

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// keyCodec converts repository keys from and to identifier column values.
// A key is either a scalar for single column identifiers, a struct whose
// fields are named after the identifier attributes, or an array holding the
// identifier column values in order, e.g. [2]any{orderID, lineNo}.
type keyCodec[K comparable] struct {
	model   *entityModel
	sources sync.Map // reflect.Type -> []columnSource
}

func newKeyCodec[K comparable](m *entityModel) *keyCodec[K] {
	return &keyCodec[K]{model: m}
}

func (c *keyCodec[K]) structSources(t reflect.Type) ([]columnSource, error) {
	if s, ok := c.sources.Load(t); ok {
		return s.([]columnSource), nil
	}

	srcs, err := attributeSources(c.model.entity.Identifier.Attributes, t)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKey, err)
	}

	c.sources.Store(t, srcs)
	return srcs, nil
}

// args returns the identifier column values of id.
func (c *keyCodec[K]) args(id K) ([]any, error) {
	keys := c.model.keys
	v := reflect.ValueOf(id)
	if !v.IsValid() {
		return nil, fmt.Errorf("%w: nil key", ErrInvalidKey)
	}

	t := indirectType(v.Type())
	switch {
	case t.Kind() == reflect.Array:
		for v.Kind() == reflect.Ptr {
			v = v.Elem()
		}
		if v.Len() != len(keys) {
			return nil, fmt.Errorf("%w: %d key values for %d columns", ErrInvalidKey, v.Len(), len(keys))
		}

		args := make([]any, v.Len())
		for i := range args {
			val, err := driver.DefaultParameterConverter.ConvertValue(v.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("%w: %s", ErrInvalidKey, err)
			}
			args[i] = val
		}
		return args, nil
	case t.Kind() == reflect.Struct && !isValueStruct(t):
		srcs, err := c.structSources(t)
		if err != nil {
			return nil, err
		}

		args, err := c.model.values(id, srcs)
		if err != nil {
			return nil, err
		}
		return c.reorder(srcs, args), nil
	}

	if len(keys) != 1 {
		return nil, fmt.Errorf("%w: %s has a composite identifier, got %s", ErrInvalidKey, c.model.entity.EntityName, v.Type())
	}

	val, err := driver.DefaultParameterConverter.ConvertValue(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKey, err)
	}

	return []any{val}, nil
}

// reorder puts values read through srcs in identifier column order.
func (c *keyCodec[K]) reorder(srcs []columnSource, vals []any) []any {
	out := make([]any, len(c.model.keys))
	for i, key := range c.model.keys {
		for j, src := range srcs {
			if strings.EqualFold(src.column, key.column) {
				out[i] = vals[j]
				break
			}
		}
	}

	return out
}

// fromValues builds a key from identifier column values.
func (c *keyCodec[K]) fromValues(vals []any) (K, error) {
	var key K
	kv := reflect.New(reflect.TypeOf(&key).Elem()).Elem()
	t := kv.Type()

	switch {
	case t.Kind() == reflect.Interface:
		if len(vals) != 1 {
			return key, fmt.Errorf("%w: cannot hold %d key values in %s", ErrInvalidKey, len(vals), t)
		}
		if vals[0] != nil {
			v := reflect.ValueOf(vals[0])
			if !v.Type().AssignableTo(t) {
				return key, fmt.Errorf("%w: %T is not a %s", ErrInvalidKey, vals[0], t)
			}
			kv.Set(v)
		}
	case t.Kind() == reflect.Array:
		if t.Len() != len(vals) {
			return key, fmt.Errorf("%w: %d key values for %s", ErrInvalidKey, len(vals), t)
		}
		for i, val := range vals {
			if err := assignValue(kv.Index(i), val); err != nil {
				return key, err
			}
		}
	case t.Kind() == reflect.Struct && !isValueStruct(t):
		srcs, err := c.structSources(t)
		if err != nil {
			return key, err
		}
		for i, k := range c.model.keys {
			for _, src := range srcs {
				if strings.EqualFold(src.column, k.column) {
					if err := src.path.set(kv, vals[i]); err != nil {
						return key, err
					}
					break
				}
			}
		}
	default:
		if len(vals) != 1 {
			return key, fmt.Errorf("%w: cannot hold %d key values in %s", ErrInvalidKey, len(vals), t)
		}
		if err := assignValue(kv, vals[0]); err != nil {
			return key, err
		}
	}

	return kv.Interface().(K), nil
}

// of returns the key of an entity value.
func (c *keyCodec[K]) of(value any) (K, error) {
	vals, err := c.model.values(value, c.model.keys)
	if err != nil {
		var zero K
		return zero, err
	}

	return c.fromValues(vals)
}
