package mapping

import "encoding/xml"

// Document is the root hibernate-mapping element.
type Document struct {
	XMLName        xml.Name `xml:"hibernate-mapping" yaml:"-"`
	Package        string   `xml:"package,attr,omitempty" yaml:"package,omitempty"`
	Schema         string   `xml:"schema,attr,omitempty" yaml:"schema,omitempty"`
	DefaultAccess  string   `xml:"default-access,attr,omitempty" yaml:"default_access,omitempty"`
	DefaultLazy    string   `xml:"default-lazy,attr,omitempty" yaml:"default_lazy,omitempty"`
	DefaultCascade string   `xml:"default-cascade,attr,omitempty" yaml:"default_cascade,omitempty"`
	Classes        []Class  `xml:"class" yaml:"classes"`
	Meta           []Meta   `xml:"meta" yaml:"meta,omitempty"`

	origin Origin
}

// Origin returns where the document was read from.
func (d *Document) Origin() Origin {
	return d.origin
}

type Class struct {
	Name        string       `xml:"name,attr,omitempty" yaml:"name"`
	EntityName  string       `xml:"entity-name,attr,omitempty" yaml:"entity_name,omitempty"`
	Table       string       `xml:"table,attr,omitempty" yaml:"table,omitempty"`
	Schema      string       `xml:"schema,attr,omitempty" yaml:"schema,omitempty"`
	ID          *ID          `xml:"id" yaml:"id,omitempty"`
	CompositeID *CompositeID `xml:"composite-id" yaml:"composite_id,omitempty"`
	NaturalID   *NaturalID   `xml:"natural-id" yaml:"natural_id,omitempty"`
	Properties  []Property   `xml:"property" yaml:"properties,omitempty"`
	ManyToOnes  []ManyToOne  `xml:"many-to-one" yaml:"many_to_one,omitempty"`
	Meta        []Meta       `xml:"meta" yaml:"meta,omitempty"`
}

type ID struct {
	Name      string     `xml:"name,attr,omitempty" yaml:"name"`
	Column    string     `xml:"column,attr,omitempty" yaml:"column,omitempty"`
	Type      string     `xml:"type,attr,omitempty" yaml:"type,omitempty"`
	Length    string     `xml:"length,attr,omitempty" yaml:"length,omitempty"`
	Access    string     `xml:"access,attr,omitempty" yaml:"access,omitempty"`
	Columns   []Column   `xml:"column" yaml:"columns,omitempty"`
	Generator *Generator `xml:"generator" yaml:"generator,omitempty"`
	Meta      []Meta     `xml:"meta" yaml:"meta,omitempty"`
}

type Generator struct {
	Class string `xml:"class,attr,omitempty" yaml:"class"`
}

type CompositeID struct {
	Name          string         `xml:"name,attr,omitempty" yaml:"name,omitempty"`
	Class         string         `xml:"class,attr,omitempty" yaml:"class,omitempty"`
	Access        string         `xml:"access,attr,omitempty" yaml:"access,omitempty"`
	KeyProperties []KeyProperty  `xml:"key-property" yaml:"key_properties,omitempty"`
	KeyManyToOnes []KeyManyToOne `xml:"key-many-to-one" yaml:"key_many_to_one,omitempty"`
	Meta          []Meta         `xml:"meta" yaml:"meta,omitempty"`
}

type KeyProperty struct {
	Name    string   `xml:"name,attr,omitempty" yaml:"name"`
	Column  string   `xml:"column,attr,omitempty" yaml:"column,omitempty"`
	Type    string   `xml:"type,attr,omitempty" yaml:"type,omitempty"`
	Length  string   `xml:"length,attr,omitempty" yaml:"length,omitempty"`
	Access  string   `xml:"access,attr,omitempty" yaml:"access,omitempty"`
	Columns []Column `xml:"column" yaml:"columns,omitempty"`
	Meta    []Meta   `xml:"meta" yaml:"meta,omitempty"`
}

// KeyManyToOne is a many-to-one association that is part of a composite
// identifier.
type KeyManyToOne struct {
	Name       string   `xml:"name,attr,omitempty" yaml:"name"`
	Class      string   `xml:"class,attr,omitempty" yaml:"class,omitempty"`
	EntityName string   `xml:"entity-name,attr,omitempty" yaml:"entity_name,omitempty"`
	Column     string   `xml:"column,attr,omitempty" yaml:"column,omitempty"`
	ForeignKey string   `xml:"foreign-key,attr,omitempty" yaml:"foreign_key,omitempty"`
	OnDelete   string   `xml:"on-delete,attr,omitempty" yaml:"on_delete,omitempty"`
	Lazy       string   `xml:"lazy,attr,omitempty" yaml:"lazy,omitempty"`
	Access     string   `xml:"access,attr,omitempty" yaml:"access,omitempty"`
	Columns    []Column `xml:"column" yaml:"columns,omitempty"`
	Meta       []Meta   `xml:"meta" yaml:"meta,omitempty"`
}

type Property struct {
	Name           string   `xml:"name,attr,omitempty" yaml:"name"`
	Column         string   `xml:"column,attr,omitempty" yaml:"column,omitempty"`
	Type           string   `xml:"type,attr,omitempty" yaml:"type,omitempty"`
	Length         string   `xml:"length,attr,omitempty" yaml:"length,omitempty"`
	NotNull        string   `xml:"not-null,attr,omitempty" yaml:"not_null,omitempty"`
	Unique         string   `xml:"unique,attr,omitempty" yaml:"unique,omitempty"`
	Insert         string   `xml:"insert,attr,omitempty" yaml:"insert,omitempty"`
	Update         string   `xml:"update,attr,omitempty" yaml:"update,omitempty"`
	Formula        string   `xml:"formula,attr,omitempty" yaml:"formula,omitempty"`
	Lazy           string   `xml:"lazy,attr,omitempty" yaml:"lazy,omitempty"`
	Access         string   `xml:"access,attr,omitempty" yaml:"access,omitempty"`
	OptimisticLock string   `xml:"optimistic-lock,attr,omitempty" yaml:"optimistic_lock,omitempty"`
	Columns        []Column `xml:"column" yaml:"columns,omitempty"`
	Formulas       []string `xml:"formula" yaml:"formulas,omitempty"`
	Meta           []Meta   `xml:"meta" yaml:"meta,omitempty"`
}

type ManyToOne struct {
	Name           string   `xml:"name,attr,omitempty" yaml:"name"`
	Class          string   `xml:"class,attr,omitempty" yaml:"class,omitempty"`
	EntityName     string   `xml:"entity-name,attr,omitempty" yaml:"entity_name,omitempty"`
	Column         string   `xml:"column,attr,omitempty" yaml:"column,omitempty"`
	ForeignKey     string   `xml:"foreign-key,attr,omitempty" yaml:"foreign_key,omitempty"`
	PropertyRef    string   `xml:"property-ref,attr,omitempty" yaml:"property_ref,omitempty"`
	Cascade        string   `xml:"cascade,attr,omitempty" yaml:"cascade,omitempty"`
	Fetch          string   `xml:"fetch,attr,omitempty" yaml:"fetch,omitempty"`
	Lazy           string   `xml:"lazy,attr,omitempty" yaml:"lazy,omitempty"`
	OuterJoin      string   `xml:"outer-join,attr,omitempty" yaml:"outer_join,omitempty"`
	NotNull        string   `xml:"not-null,attr,omitempty" yaml:"not_null,omitempty"`
	Unique         string   `xml:"unique,attr,omitempty" yaml:"unique,omitempty"`
	Insert         string   `xml:"insert,attr,omitempty" yaml:"insert,omitempty"`
	Update         string   `xml:"update,attr,omitempty" yaml:"update,omitempty"`
	Formula        string   `xml:"formula,attr,omitempty" yaml:"formula,omitempty"`
	Access         string   `xml:"access,attr,omitempty" yaml:"access,omitempty"`
	OptimisticLock string   `xml:"optimistic-lock,attr,omitempty" yaml:"optimistic_lock,omitempty"`
	Columns        []Column `xml:"column" yaml:"columns,omitempty"`
	Formulas       []string `xml:"formula" yaml:"formulas,omitempty"`
	Meta           []Meta   `xml:"meta" yaml:"meta,omitempty"`
}

type NaturalID struct {
	Mutable    string      `xml:"mutable,attr,omitempty" yaml:"mutable,omitempty"`
	Properties []Property  `xml:"property" yaml:"properties,omitempty"`
	ManyToOnes []ManyToOne `xml:"many-to-one" yaml:"many_to_one,omitempty"`
}

type Column struct {
	Name      string `xml:"name,attr,omitempty" yaml:"name"`
	SQLType   string `xml:"sql-type,attr,omitempty" yaml:"sql_type,omitempty"`
	Length    string `xml:"length,attr,omitempty" yaml:"length,omitempty"`
	Precision string `xml:"precision,attr,omitempty" yaml:"precision,omitempty"`
	Scale     string `xml:"scale,attr,omitempty" yaml:"scale,omitempty"`
	NotNull   string `xml:"not-null,attr,omitempty" yaml:"not_null,omitempty"`
	Unique    string `xml:"unique,attr,omitempty" yaml:"unique,omitempty"`
	Default   string `xml:"default,attr,omitempty" yaml:"default,omitempty"`
	Check     string `xml:"check,attr,omitempty" yaml:"check,omitempty"`
	Read      string `xml:"read,attr,omitempty" yaml:"read,omitempty"`
	Write     string `xml:"write,attr,omitempty" yaml:"write,omitempty"`
}

// Meta is a free-form tooling hint.
type Meta struct {
	Attribute string `xml:"attribute,attr,omitempty" yaml:"attribute"`
	Inherit   string `xml:"inherit,attr,omitempty" yaml:"inherit,omitempty"`
	Value     string `xml:",chardata" yaml:"value"`
}
