package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

type sqlTransaction struct {
	Tx *sqlx.Tx
}

func (st *sqlTransaction) Rollback(_ context.Context) error {
	return st.Tx.Rollback()
}

func (st *sqlTransaction) Commit(_ context.Context) error {
	return st.Tx.Commit()
}

func MakeSortClause(sorter []string, sortFieldMap map[string]string) string {
	if len(sorter) == 0 {
		return ""
	}

	var srt []string
	for _, s := range sorter {
		if s == "" {
			continue
		}

		op := ""
		field := strings.ToLower(s)
		if s[:1] == "-" || s[:1] == "+" {
			op = s[:1]
			field = strings.ToLower(s[1:])
		}

		if op == "-" {
			op = "DESC"
		} else {
			op = "ASC"
		}

		if sortFieldMap != nil {
			if mf, ok := sortFieldMap[field]; ok {
				field = mf
			}
		}

		srt = append(srt, fmt.Sprintf("%s %s", field, op))
	}

	return strings.Join(srt, ",")
}

type FilterNull interface {
	IsNull() bool
}

type filterNull bool

func (fn filterNull) IsNull() bool {
	return bool(fn)
}

func FilterNullFrom(isNull bool) FilterNull {
	return filterNull(isNull)
}

type FilterStringContains interface {
	Contains() string
}

type filterStringContains string

func (fs filterStringContains) Contains() string {
	return fmt.Sprintf("%%%s%%", fs)
}

func FilterStringContainsFrom(str string) FilterStringContains {
	return filterStringContains(str)
}

// ParseFilterMapIntoWhereClause turns a filter map into a where clause with
// ? placeholders. Slice values become IN lists, FilterNull and
// FilterStringContains values IS NULL and LIKE conditions.
func ParseFilterMapIntoWhereClause(filterMap map[string]any) (whereClause string, args []any, err error) {
	return parseFilterMap(filterMap, func(name string) (string, error) { return name, nil })
}

func parseFilterMap(filterMap map[string]any, column func(name string) (string, error)) (string, []any, error) {
	keys := make([]string, 0, len(filterMap))
	for k := range filterMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var conds []string
	var args []any
	for _, k := range keys {
		col, err := column(k)
		if err != nil {
			return "", nil, err
		}

		val := filterMap[k]
		if val == nil {
			conds = append(conds, col+" IS NULL")
			continue
		}

		if fnull, ok := val.(FilterNull); ok {
			isNot := ""
			if !fnull.IsNull() {
				isNot = "NOT "
			}
			conds = append(conds, fmt.Sprintf("%s IS %sNULL", col, isNot))
			continue
		}

		if fcontain, ok := val.(FilterStringContains); ok {
			conds = append(conds, fmt.Sprintf("%s LIKE ?", col))
			args = append(args, fcontain.Contains())
			continue
		}

		vval := reflect.ValueOf(val)
		if vval.Kind() != reflect.Slice || vval.Type().Elem().Kind() == reflect.Uint8 {
			conds = append(conds, col+" = ?")
			args = append(args, val)
			continue
		}

		f, arg, err := parameterizedFilterCriteriaSlice(col, val)
		if err != nil {
			return "", nil, fmt.Errorf("filter %s: %w", k, err)
		}

		conds = append(conds, f)
		args = append(args, arg)
	}

	return sqlx.In(strings.Join(conds, " AND "), args...)
}

func parameterizedFilterCriteriaSlice(fieldname string, values any) (string, any, error) {
	where := fieldname
	vtype := reflect.TypeOf(values)
	if vtype.Kind() == reflect.Ptr {
		vtype = vtype.Elem()
	}

	if vtype.Kind() != reflect.Slice {
		return "", nil, fmt.Errorf("expecting slice as values, got %s", vtype.Kind().String())
	}

	s := reflect.ValueOf(values)
	if s.Len() == 0 {
		return "", nil, fmt.Errorf("cannot use empty slice to parameterized")
	}

	var value any
	if s.Len() > 1 {
		where += " IN (?)"
		value = values
	} else {
		where += " = ?"
		value = s.Index(0).Interface()
	}

	return where, value, nil
}
