package metamodel

import (
	"fmt"
	"strings"

	"github.com/likearthian/ormstore/mapping"
)

// Metadata is the bound metamodel of a set of mapping documents.
type Metadata struct {
	entities []*EntityBinding
	byEntity map[string]*EntityBinding
	byClass  map[string]*EntityBinding
	bySimple map[string][]*EntityBinding
}

func newMetadata() *Metadata {
	return &Metadata{
		byEntity: make(map[string]*EntityBinding),
		byClass:  make(map[string]*EntityBinding),
		bySimple: make(map[string][]*EntityBinding),
	}
}

func (m *Metadata) add(e *EntityBinding) {
	m.entities = append(m.entities, e)
	m.byEntity[e.EntityName] = e
	if e.ClassName != "" {
		m.byClass[e.ClassName] = e
		simple := simpleName(e.ClassName)
		m.bySimple[simple] = append(m.bySimple[simple], e)
	}
}

// Entities returns the bound entities in mapping order.
func (m *Metadata) Entities() []*EntityBinding {
	return m.entities
}

// Entity returns the binding of an entity by its entity name.
func (m *Metadata) Entity(name string) (*EntityBinding, bool) {
	e, ok := m.byEntity[name]
	return e, ok
}

// Resolve finds an entity by entity name, then by qualified class name, then
// by unqualified class name. An unqualified name matching several classes is
// ambiguous.
func (m *Metadata) Resolve(name string) (*EntityBinding, error) {
	if e, ok := m.byEntity[name]; ok {
		return e, nil
	}

	if e, ok := m.byClass[name]; ok {
		return e, nil
	}

	candidates := m.bySimple[simpleName(name)]
	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	case 1:
		return candidates[0], nil
	default:
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.EntityName
		}

		return nil, fmt.Errorf("%w: %s matches %s", ErrAmbiguousEntity, name, strings.Join(names, ", "))
	}
}

// Tables returns every entity table ordered so that referenced tables come
// before the tables holding foreign keys to them.
func (m *Metadata) Tables() []*Table {
	var (
		ordered []*Table
		state   = make(map[*Table]int)
		visit   func(t *Table)
	)

	visit = func(t *Table) {
		if state[t] != 0 {
			return
		}

		state[t] = 1
		for _, fk := range t.ForeignKeys {
			if fk.ReferencedTable != t {
				visit(fk.ReferencedTable)
			}
		}

		state[t] = 2
		ordered = append(ordered, t)
	}

	for _, e := range m.entities {
		visit(e.Table)
	}

	return ordered
}

type EntityBinding struct {
	EntityName string
	ClassName  string
	Table      *Table
	Identifier *IdentifierBinding
	Attributes []*AttributeBinding
	Hints      []mapping.ToolingHint

	source *mapping.EntitySource
}

func (e *EntityBinding) Source() *mapping.EntitySource {
	return e.source
}

// Attribute looks an attribute up by name, identifier attributes included.
func (e *EntityBinding) Attribute(name string) *AttributeBinding {
	for _, a := range e.AllAttributes() {
		if a.Name == name {
			return a
		}
	}

	return nil
}

// AllAttributes returns the identifier attributes followed by the others.
func (e *EntityBinding) AllAttributes() []*AttributeBinding {
	attrs := make([]*AttributeBinding, 0, len(e.Identifier.Attributes)+len(e.Attributes))
	attrs = append(attrs, e.Identifier.Attributes...)
	return append(attrs, e.Attributes...)
}

func (e *EntityBinding) String() string {
	return e.EntityName
}

type IdentifierBinding struct {
	Nature     mapping.IdentifierNature
	Name       string
	ClassName  string
	Generator  string
	Attributes []*AttributeBinding
}

// Columns returns the identifier columns in attribute order.
func (i *IdentifierBinding) Columns() []*Column {
	var cols []*Column
	for _, a := range i.Attributes {
		cols = append(cols, a.Columns...)
	}

	return cols
}

// IsComposite reports whether the identifier spans several attributes or
// several columns.
func (i *IdentifierBinding) IsComposite() bool {
	return i.Nature != mapping.IdentifierSimple || len(i.Columns()) > 1
}

// IsGenerated reports whether the database assigns the identifier.
func (i *IdentifierBinding) IsGenerated() bool {
	switch i.Generator {
	case "identity", "native", "sequence", "increment":
		return true
	}

	return false
}

type AttributeKind int

const (
	AttributeBasic AttributeKind = iota
	AttributeToOne
)

func (k AttributeKind) String() string {
	return [...]string{"basic", "to-one"}[k]
}

type AttributeBinding struct {
	Name       string
	Role       string
	Path       string
	Kind       AttributeKind
	TypeName   string
	Columns    []*Column
	Formula    string
	Insertable bool
	Updatable  bool
	Nullable   bool
	Identifier bool
	Lazy       bool

	// to-one only
	Target        *EntityBinding
	ForeignKey    *ForeignKey
	FetchTiming   mapping.FetchTiming
	FetchStyle    mapping.FetchStyle
	CascadeStyles []mapping.CascadeStyle

	Source mapping.SingularAttributeSource
}

// ColumnNames returns the names of the attribute columns.
func (a *AttributeBinding) ColumnNames() []string {
	names := make([]string, len(a.Columns))
	for i, c := range a.Columns {
		names[i] = c.Name
	}

	return names
}

// IsDerived reports whether the attribute is computed from a formula.
func (a *AttributeBinding) IsDerived() bool {
	return a.Formula != ""
}

type Table struct {
	Schema      string
	Name        string
	Columns     []*Column
	PrimaryKey  *PrimaryKey
	ForeignKeys []*ForeignKey
}

// QualifiedName is the table name prefixed with its schema, if any.
func (t *Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}

	return t.Schema + "." + t.Name
}

// Column looks a column up by name, case-insensitively.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}

	return nil
}

func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}

	return names
}

func (t *Table) String() string {
	return t.QualifiedName()
}

type Column struct {
	Name      string
	TypeName  string
	SQLType   string
	Length    int
	Precision int
	Scale     int
	Nullable  bool
	Unique    bool
	Default   string
	Check     string
	Identity  bool
	Table     *Table
}

type PrimaryKey struct {
	Name    string
	Columns []*Column
}

type ForeignKey struct {
	Name              string
	Table             *Table
	Columns           []*Column
	ReferencedEntity  *EntityBinding
	ReferencedTable   *Table
	ReferencedColumns []*Column
	Direction         mapping.ForeignKeyDirection
	CascadeDelete     bool
}

func simpleName(className string) string {
	if i := strings.LastIndex(className, "."); i >= 0 {
		return className[i+1:]
	}

	return className
}
