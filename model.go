package store

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/likearthian/ormstore/metamodel"
)

// fieldPath leads from a struct value to one of its fields, possibly through
// pointers to referenced entities.
type fieldPath []int

// get returns the field, false when a pointer on the way is nil.
func (p fieldPath) get(v reflect.Value) (reflect.Value, bool) {
	for _, i := range p {
		for v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}

	return v, true
}

// set stores src into the field, allocating nil pointers on the way. A nil
// src leaves v untouched, so an association without key stays nil.
func (p fieldPath) set(v reflect.Value, src any) error {
	if src == nil {
		return nil
	}

	for _, i := range p {
		for v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}

	return assignValue(v, src)
}

type columnSource struct {
	column string
	class  typeClass
	path   fieldPath
}

type columnTarget struct {
	column  string
	formula string
	paths   []fieldPath
}

// entityModel maps the columns of an entity binding onto the fields of a Go
// struct type.
type entityModel struct {
	entity *metamodel.EntityBinding
	typ    reflect.Type

	tableColumns []string
	selects      []columnTarget
	inserts      []columnSource
	updates      []columnSource
	keys         []columnSource
	generated    bool

	// lower case attribute and column names to column names
	fieldColumns map[string]string
}

func newEntityModel(entity *metamodel.EntityBinding, typ reflect.Type, logger *zerolog.Logger) (*entityModel, error) {
	typ = indirectType(typ)
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrInvalidModel, typ)
	}

	m := &entityModel{
		entity:       entity,
		typ:          typ,
		tableColumns: entity.Table.ColumnNames(),
		generated:    entity.Identifier.IsGenerated(),
		fieldColumns: make(map[string]string),
	}

	keys, err := attributeSources(entity.Identifier.Attributes, typ)
	if err != nil {
		return nil, fmt.Errorf("%s identifier: %w", entity.EntityName, err)
	}
	m.keys = keys

	selectIdx := make(map[string]int)
	addSelect := func(column, formula string, path fieldPath) {
		key := strings.ToUpper(column)
		if i, ok := selectIdx[key]; ok {
			m.selects[i].paths = append(m.selects[i].paths, path)
			return
		}
		selectIdx[key] = len(m.selects)
		m.selects = append(m.selects, columnTarget{column: column, formula: formula, paths: []fieldPath{path}})
	}

	inserted := make(map[string]bool)
	for _, attr := range entity.AllAttributes() {
		if _, ok := findField(typ, attr.Name); !ok {
			logger.Warn().Str("entity", entity.EntityName).Str("attribute", attr.Name).
				Str("type", typ.String()).Msg("attribute has no field, skipped")
			continue
		}

		if attr.IsDerived() {
			field, _ := findField(typ, attr.Name)
			addSelect(strings.ToUpper(attr.Name), attr.Formula, fieldPath(field.Index))
			continue
		}

		sources, err := attributeSources([]*metamodel.AttributeBinding{attr}, typ)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", entity.EntityName, attr.Name, err)
		}

		if len(sources) == 1 {
			m.fieldColumns[strings.ToLower(attr.Name)] = sources[0].column
		}

		for _, src := range sources {
			m.fieldColumns[strings.ToLower(src.column)] = src.column
			addSelect(src.column, "", src.path)

			if attr.Identifier && m.generated {
				continue
			}

			if attr.Insertable && !inserted[strings.ToUpper(src.column)] {
				inserted[strings.ToUpper(src.column)] = true
				m.inserts = append(m.inserts, src)
			}

			if attr.Updatable && !attr.Identifier {
				m.updates = append(m.updates, src)
			}
		}
	}

	return m, nil
}

// attributeSources lists, per column, where the attributes read their value
// in a value of typ. A to-one attribute reads the identifier of the
// referenced entity, or the referenced property, from the pointed struct; a
// scalar field holds the foreign key itself.
func attributeSources(attrs []*metamodel.AttributeBinding, typ reflect.Type) ([]columnSource, error) {
	var sources []columnSource
	for _, attr := range attrs {
		field, ok := findField(typ, attr.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no field %s", ErrInvalidModel, typ, attr.Name)
		}

		if attr.Kind == metamodel.AttributeBasic || indirectType(field.Type).Kind() != reflect.Struct || isValueStruct(field.Type) {
			if len(attr.Columns) != 1 {
				return nil, fmt.Errorf("%w: field %s cannot hold %d columns", ErrInvalidModel, field.Name, len(attr.Columns))
			}

			sources = append(sources, columnSource{
				column: attr.Columns[0].Name,
				class:  classifyType(attr.Columns[0].TypeName),
				path:   fieldPath(field.Index),
			})
			continue
		}

		refs, err := referencedSources(attr, indirectType(field.Type))
		if err != nil {
			return nil, err
		}

		if len(refs) != len(attr.Columns) {
			return nil, fmt.Errorf("%w: %s references %d columns, mapped to %d", ErrInvalidModel, attr.Name, len(refs), len(attr.Columns))
		}

		for i, ref := range refs {
			path := append(fieldPath{}, field.Index...)
			sources = append(sources, columnSource{
				column: attr.Columns[i].Name,
				class:  ref.class,
				path:   append(path, ref.path...),
			})
		}
	}

	return sources, nil
}

// referencedSources returns the sources of the columns a to-one attribute
// points at, in the referenced struct type.
func referencedSources(attr *metamodel.AttributeBinding, target reflect.Type) ([]columnSource, error) {
	entity := attr.Target
	if entity == nil {
		return nil, fmt.Errorf("%w: %s is not resolved", ErrInvalidModel, attr.Name)
	}

	referenced := entity.Identifier.Columns()
	if attr.ForeignKey != nil && len(attr.ForeignKey.ReferencedColumns) > 0 {
		referenced = attr.ForeignKey.ReferencedColumns
	}

	// identifier attributes may nest further associations, other attributes
	// are only needed for property references
	candidates := append([]*metamodel.AttributeBinding{}, entity.Identifier.Attributes...)
	for _, a := range entity.Attributes {
		if a.Kind == metamodel.AttributeBasic && !a.IsDerived() {
			if _, ok := findField(target, a.Name); ok {
				candidates = append(candidates, a)
			}
		}
	}

	sources, err := attributeSources(candidates, target)
	if err != nil {
		return nil, err
	}

	refs := make([]columnSource, 0, len(referenced))
	for _, col := range referenced {
		found := false
		for _, src := range sources {
			if strings.EqualFold(src.column, col.Name) {
				refs = append(refs, src)
				found = true
				break
			}
		}

		if !found {
			return nil, fmt.Errorf("%w: %s has no field for column %s", ErrInvalidModel, target, col.Name)
		}
	}

	return refs, nil
}

// column resolves a filter, sort or update field name, given as attribute or
// column name, into a column name.
func (m *entityModel) column(name string) (string, error) {
	if col, ok := m.fieldColumns[strings.ToLower(strings.TrimSpace(name))]; ok {
		return col, nil
	}

	return "", fmt.Errorf("%w: %s has no field or column %q", ErrUnknownField, m.entity.EntityName, name)
}

func (m *entityModel) selectList() string {
	cols := make([]string, len(m.selects))
	for i, s := range m.selects {
		if s.formula != "" {
			cols[i] = fmt.Sprintf("(%s) AS %s", s.formula, s.column)
			continue
		}
		cols[i] = s.column
	}

	return strings.Join(cols, ",")
}

func (m *entityModel) keyColumns() []string {
	return Map(m.keys, func(s columnSource) string { return s.column })
}

// values reads the columns of sources from value, converted to driver values.
func (m *entityModel) values(value any, sources []columnSource) ([]any, error) {
	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, fmt.Errorf("%w: nil %s", ErrInvalidModel, m.typ)
		}
		v = v.Elem()
	}

	vals := make([]any, len(sources))
	for i, src := range sources {
		field, ok := src.path.get(v)
		if !ok {
			continue
		}

		val, err := driver.DefaultParameterConverter.ConvertValue(field.Interface())
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", src.column, err)
		}

		vals[i] = val
	}

	return vals, nil
}

// hydrate copies one selected row into dest, a pointer to the model struct.
func (m *entityModel) hydrate(dest reflect.Value, row []any) error {
	for i, target := range m.selects {
		if i >= len(row) {
			break
		}

		for _, path := range target.paths {
			if err := path.set(dest, row[i]); err != nil {
				return fmt.Errorf("column %s: %w", target.column, err)
			}
		}
	}

	return nil
}

// hydrateRecord is hydrate for a record keyed by column name.
func (m *entityModel) hydrateRecord(dest reflect.Value, record map[string]any) error {
	row := make([]any, len(m.selects))
	for i, target := range m.selects {
		row[i] = record[target.column]
	}

	return m.hydrate(dest, row)
}

var (
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
	bytesType   = reflect.TypeOf([]byte(nil))
)

// assignValue stores a database value into dst, converting between the
// numeric, string and time representations drivers return.
func assignValue(dst reflect.Value, src any) error {
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	if dst.CanAddr() && dst.Addr().Type().Implements(scannerType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(src)
	}

	if dst.Kind() == reflect.Ptr {
		elem := reflect.New(dst.Type().Elem())
		if err := assignValue(elem.Elem(), src); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	switch v := src.(type) {
	case primitive.DateTime:
		src = v.Time()
	case primitive.Decimal128:
		src = v.String()
	case primitive.ObjectID:
		if dst.Kind() == reflect.String {
			dst.SetString(v.Hex())
			return nil
		}
	case []byte:
		if dst.Kind() == reflect.String {
			dst.SetString(string(v))
			return nil
		}
		if dst.Type() == bytesType {
			dst.SetBytes(append([]byte(nil), v...))
			return nil
		}
	case string:
		if dst.Type() == timeType {
			t, err := parseTime(v)
			if err != nil {
				return err
			}
			dst.Set(reflect.ValueOf(t))
			return nil
		}
	}

	sv := reflect.ValueOf(src)
	switch {
	case sv.Type().AssignableTo(dst.Type()):
		dst.Set(sv)
		return nil
	case dst.Kind() == reflect.Bool && isNumberKind(sv.Kind()):
		dst.SetBool(!sv.IsZero())
		return nil
	case isNumberKind(dst.Kind()) && sv.Kind() == reflect.Bool:
		if sv.Bool() {
			dst.Set(reflect.ValueOf(1).Convert(dst.Type()))
		} else {
			dst.Set(reflect.Zero(dst.Type()))
		}
		return nil
	case isNumberKind(dst.Kind()) && isNumberKind(sv.Kind()),
		dst.Kind() == reflect.String && sv.Kind() == reflect.String:
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T into %s", src, dst.Type())
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	// strip a trailing monotonic clock reading left by time.Time.String
	if i := strings.Index(s, " m="); i >= 0 {
		s = s[:i]
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Parse("2006-01-02 15:04:05.999999999 -0700 MST", s)
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}

	return false
}

// isValueStruct reports struct types that hold a single column value.
func isValueStruct(t reflect.Type) bool {
	t = indirectType(t)
	return t == timeType || reflect.PointerTo(t).Implements(scannerType)
}

func findField(t reflect.Type, name string) (reflect.StructField, bool) {
	t = indirectType(t)
	if t.Kind() != reflect.Struct {
		return reflect.StructField{}, false
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.IsExported() && strings.EqualFold(field.Name, name) {
			return field, true
		}
	}

	return reflect.StructField{}, false
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return t
}
