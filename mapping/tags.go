package mapping

import (
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"gopkg.in/guregu/null.v4"
)

// TableMarkerField is the name of the marker field whose tags carry the
// table and schema of a tagged struct:
//
//	type OrderLine struct {
//		DBTable  `schema:"sales" name:"order_line"`
//		Order    *Order `db:"ORDER_ID,key" rel:"many-to-one,fk=fk_line_order,on-delete=cascade"`
//		LineNo   int    `db:"LINE_NO,key"`
//		Quantity int    `db:"QUANTITY"`
//	}
const TableMarkerField = "DBTable"

// FromTypes builds a mapping document from tagged struct types. Struct types
// referenced through rel tags are added too.
func FromTypes(types ...reflect.Type) (*Document, error) {
	doc := &Document{origin: Origin{Kind: OriginStruct}}
	seen := make(map[reflect.Type]bool)
	queue := make([]reflect.Type, 0, len(types))
	for _, t := range types {
		queue = append(queue, indirectType(t))
	}

	var names []string
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		if seen[t] {
			continue
		}
		seen[t] = true

		if t.Kind() != reflect.Struct {
			return nil, fmt.Errorf("%w: %s is not a struct type", ErrInvalidMapping, t)
		}

		cls, refs, err := classFromType(t)
		if err != nil {
			return nil, err
		}

		doc.Classes = append(doc.Classes, cls)
		names = append(names, t.Name())
		queue = append(queue, refs...)
	}

	doc.origin.Name = strings.Join(names, ",")
	applyDefaults(doc)

	return doc, nil
}

// FromValues is FromTypes for example values, e.g. FromValues(OrderLine{}).
func FromValues(values ...any) (*Document, error) {
	types := make([]reflect.Type, len(values))
	for i, v := range values {
		types[i] = reflect.TypeOf(v)
	}

	return FromTypes(types...)
}

type fieldTag struct {
	column    string
	size      int
	isAuto    bool
	isKey     bool
	allowNull bool
}

type relTag struct {
	kind       string
	foreignKey string
	onDelete   string
	lazy       string
	fetch      string
	cascade    string
	entityName string
}

func classFromType(t reflect.Type) (Class, []reflect.Type, error) {
	cls := Class{Name: t.Name()}
	origin := Origin{Kind: OriginStruct, Name: t.String()}

	var (
		refs    []reflect.Type
		keys    []KeyProperty
		keyRefs []KeyManyToOne
		idField *ID
	)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Name == TableMarkerField {
			cls.Schema = field.Tag.Get("schema")
			cls.Table = field.Tag.Get("name")
			continue
		}

		if !field.IsExported() {
			continue
		}

		dbTag, hasDB := field.Tag.Lookup("db")
		if dbTag == "-" {
			continue
		}

		ft := parseDBTag(dbTag)
		rel, hasRel := field.Tag.Lookup("rel")
		if hasRel {
			rt, err := parseRelTag(rel)
			if err != nil {
				return cls, nil, mappingErrorf(origin, "field %s: %s", field.Name, err)
			}

			target := indirectType(field.Type)
			if target.Kind() != reflect.Struct {
				return cls, nil, mappingErrorf(origin, "field %s: rel target must be a struct, got %s", field.Name, field.Type)
			}
			refs = append(refs, target)

			if ft.isKey {
				keyRefs = append(keyRefs, KeyManyToOne{
					Name:       field.Name,
					Class:      target.Name(),
					EntityName: rt.entityName,
					Column:     ft.column,
					ForeignKey: rt.foreignKey,
					OnDelete:   rt.onDelete,
					Lazy:       rt.lazy,
				})
				continue
			}

			cls.ManyToOnes = append(cls.ManyToOnes, ManyToOne{
				Name:       field.Name,
				Class:      target.Name(),
				EntityName: rt.entityName,
				Column:     ft.column,
				ForeignKey: rt.foreignKey,
				Lazy:       rt.lazy,
				Fetch:      rt.fetch,
				Cascade:    rt.cascade,
				NotNull:    strconv.FormatBool(!ft.allowNull && field.Type.Kind() != reflect.Ptr),
			})
			continue
		}

		column := ft.column
		if column == "" {
			column = strcase.ToScreamingSnake(field.Name)
		}

		typeName := goTypeName(field.Type)
		if typeName == "" {
			if !hasDB {
				continue
			}

			return cls, nil, mappingErrorf(origin, "field %s: unsupported type %s", field.Name, field.Type)
		}

		length := ""
		if ft.size > 0 {
			length = strconv.Itoa(ft.size)
		}

		if ft.isKey {
			keys = append(keys, KeyProperty{Name: field.Name, Column: column, Type: typeName, Length: length})
			if ft.isAuto {
				idField = &ID{Name: field.Name, Column: column, Type: typeName, Length: length, Generator: &Generator{Class: "identity"}}
			}
			continue
		}

		cls.Properties = append(cls.Properties, Property{
			Name:    field.Name,
			Column:  column,
			Type:    typeName,
			Length:  length,
			NotNull: strconv.FormatBool(!ft.allowNull),
			Insert:  strconv.FormatBool(!ft.isAuto),
			Update:  strconv.FormatBool(!ft.isAuto),
		})
	}

	switch {
	case len(keys) == 1 && len(keyRefs) == 0:
		if idField == nil {
			k := keys[0]
			idField = &ID{Name: k.Name, Column: k.Column, Type: k.Type, Length: k.Length, Generator: &Generator{Class: "assigned"}}
		}
		cls.ID = idField
	case len(keys)+len(keyRefs) > 0:
		if idField != nil {
			return cls, nil, mappingErrorf(origin, "auto key field %s cannot be part of a composite key", idField.Name)
		}
		cls.CompositeID = &CompositeID{KeyProperties: keys, KeyManyToOnes: keyRefs}
	default:
		return cls, nil, mappingErrorf(origin, "no key field")
	}

	return cls, refs, nil
}

// parseDBTag reads `db:"NAME,key size=10 allownull auto"`.
func parseDBTag(value string) (ft fieldTag) {
	tagArr := strings.Split(value, ",")
	if len(tagArr) == 0 {
		return
	}

	checkBool := func(key string, tagarr []string) bool {
		bval := false
		skey := strings.TrimSpace(tagarr[0])
		if strings.EqualFold(skey, key) {
			bval = true
		}

		if bval && len(tagarr) > 1 {
			sval := strings.TrimSpace(tagarr[1])
			if strings.EqualFold(sval, "false") {
				bval = false
			}
		}

		return bval
	}

	ft.column = strings.TrimSpace(tagArr[0])
	if len(tagArr) > 1 {
		det := strings.Fields(strings.Join(tagArr[1:], " "))
		for _, v := range det {
			varr := strings.Split(v, "=")
			key := strings.TrimSpace(varr[0])

			if checkBool("auto", varr) {
				ft.isAuto = true
				continue
			}

			if checkBool("key", varr) {
				ft.isKey = true
				ft.allowNull = false
				continue
			}

			if checkBool("allownull", varr) {
				ft.allowNull = !ft.isKey
				continue
			}

			if len(varr) > 1 && strings.EqualFold(key, "size") {
				ft.size, _ = strconv.Atoi(varr[1])
			}
		}
	}

	return
}

// parseRelTag reads `rel:"many-to-one,fk=NAME,on-delete=cascade,lazy=false"`.
func parseRelTag(value string) (rt relTag, err error) {
	parts := strings.Split(value, ",")
	rt.kind = strings.ToLower(strings.TrimSpace(parts[0]))
	switch rt.kind {
	case "many-to-one", "many_to_one", "belongs_to":
	default:
		return rt, fmt.Errorf("unsupported relation %q", rt.kind)
	}

	for _, p := range parts[1:] {
		kv := strings.SplitN(strings.TrimSpace(p), "=", 2)
		if len(kv) != 2 {
			kv = strings.SplitN(strings.TrimSpace(p), ":", 2)
		}
		if len(kv) != 2 {
			return rt, fmt.Errorf("malformed rel option %q", p)
		}

		val := strings.TrimSpace(kv[1])
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "fk", "foreign_key", "foreign-key":
			rt.foreignKey = val
		case "on-delete", "on_delete":
			rt.onDelete = val
		case "lazy":
			rt.lazy = val
		case "fetch":
			rt.fetch = val
		case "cascade":
			rt.cascade = val
		case "entity", "entity-name":
			rt.entityName = val
		default:
			return rt, fmt.Errorf("unknown rel option %q", kv[0])
		}
	}

	return rt, nil
}

var (
	timeType       = reflect.TypeOf(time.Time{})
	nullStringType = reflect.TypeOf(sql.NullString{})
	nullInt64Type  = reflect.TypeOf(sql.NullInt64{})
	nullInt32Type  = reflect.TypeOf(sql.NullInt32{})
	nullFloatType  = reflect.TypeOf(sql.NullFloat64{})
	nullBoolType   = reflect.TypeOf(sql.NullBool{})
	nullTimeType   = reflect.TypeOf(sql.NullTime{})
	gNullString    = reflect.TypeOf(null.String{})
	gNullInt       = reflect.TypeOf(null.Int{})
	gNullFloat     = reflect.TypeOf(null.Float{})
	gNullBool      = reflect.TypeOf(null.Bool{})
	gNullTime      = reflect.TypeOf(null.Time{})
)

// goTypeName maps a Go field type to the mapping type vocabulary, empty when
// the type has no column representation.
func goTypeName(t reflect.Type) string {
	t = indirectType(t)
	switch t {
	case timeType, nullTimeType, gNullTime:
		return "timestamp"
	case nullStringType, gNullString:
		return "string"
	case nullInt64Type, gNullInt:
		return "long"
	case nullInt32Type:
		return "integer"
	case nullFloatType, gNullFloat:
		return "double"
	case nullBoolType, gNullBool:
		return "boolean"
	}

	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return "integer"
	case reflect.Int64, reflect.Uint64:
		return "long"
	case reflect.Float32:
		return "float"
	case reflect.Float64:
		return "double"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return "binary"
		}
	}

	return ""
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return t
}
