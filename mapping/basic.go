package mapping

import "strings"

// BasicAttributeSource is the metadata source of id, key-property and
// property mappings.
type BasicAttributeSource struct {
	name              string
	access            string
	typeSource        TypeSource
	valueSources      []RelationalValueSource
	hints             []ToolingHint
	attributePath     AttributePath
	attributeRole     AttributeRole
	naturalID         NaturalIDMutability
	optimisticLock    bool
	insertByDefault   bool
	updateByDefault   bool
	nullableByDefault bool
	lazy              bool
	generatorClass    string
}

var _ SingularAttributeSource = (*BasicAttributeSource)(nil)

func newBasicSource(doc *DocumentSource, container AttributeSourceContainer, name, typeName string) (*BasicAttributeSource, error) {
	if strings.TrimSpace(name) == "" {
		return nil, mappingErrorf(doc.Origin(), "attribute without name in %s", container.AttributeRoleBase())
	}

	return &BasicAttributeSource{
		name:          name,
		typeSource:    TypeSource{Name: typeName},
		attributePath: container.AttributePathBase().Append(name),
		attributeRole: container.AttributeRoleBase().Append(name),
	}, nil
}

// NewIDSource builds the source of a simple <id/>.
func NewIDSource(doc *DocumentSource, container AttributeSourceContainer, element *ID) (*BasicAttributeSource, error) {
	b, err := newBasicSource(doc, container, element.Name, element.Type)
	if err != nil {
		return nil, err
	}

	owner := "id " + element.Name
	b.access = doc.accessOr(element.Access)
	b.hints = toolingHints(element.Meta)
	b.insertByDefault = true
	b.updateByDefault = false
	if element.Generator != nil {
		b.generatorClass = element.Generator.Class
	}

	if b.typeSource.Length, err = parseInt(doc, owner, "length", element.Length); err != nil {
		return nil, err
	}

	b.valueSources, err = buildValueSources(doc, owner, valueSourcesAdapter{
		ColumnAttribute:           element.Column,
		Columns:                   element.Columns,
		Length:                    element.Length,
		IncludedInInsertByDefault: true,
		IncludedInUpdateByDefault: false,
	})
	if err != nil {
		return nil, err
	}

	return b, nil
}

// NewKeyPropertySource builds the source of a <key-property/>.
func NewKeyPropertySource(doc *DocumentSource, container AttributeSourceContainer, element *KeyProperty) (*BasicAttributeSource, error) {
	b, err := newBasicSource(doc, container, element.Name, element.Type)
	if err != nil {
		return nil, err
	}

	owner := "key-property " + element.Name
	b.access = doc.accessOr(element.Access)
	b.hints = toolingHints(element.Meta)
	b.insertByDefault = true
	b.updateByDefault = false

	if b.typeSource.Length, err = parseInt(doc, owner, "length", element.Length); err != nil {
		return nil, err
	}

	b.valueSources, err = buildValueSources(doc, owner, valueSourcesAdapter{
		ColumnAttribute:           element.Column,
		Columns:                   element.Columns,
		Length:                    element.Length,
		IncludedInInsertByDefault: true,
		IncludedInUpdateByDefault: false,
	})
	if err != nil {
		return nil, err
	}

	return b, nil
}

// NewPropertySource builds the source of a <property/>.
func NewPropertySource(doc *DocumentSource, container AttributeSourceContainer, element *Property, naturalID NaturalIDMutability) (*BasicAttributeSource, error) {
	b, err := newBasicSource(doc, container, element.Name, element.Type)
	if err != nil {
		return nil, err
	}

	owner := "property " + element.Name
	b.access = doc.accessOr(element.Access)
	b.hints = toolingHints(element.Meta)
	b.naturalID = naturalID
	b.optimisticLock = parseTruth(element.OptimisticLock).Or(true)
	b.insertByDefault = parseTruth(element.Insert).Or(true)
	b.updateByDefault = parseTruth(element.Update).Or(true)
	b.nullableByDefault = parseTruth(element.NotNull) != True
	b.lazy = parseTruth(element.Lazy).Or(false)

	// immutable natural ids are never part of an UPDATE
	if naturalID == NaturalIDImmutable {
		b.updateByDefault = false
	}

	if b.typeSource.Length, err = parseInt(doc, owner, "length", element.Length); err != nil {
		return nil, err
	}

	b.valueSources, err = buildValueSources(doc, owner, valueSourcesAdapter{
		ColumnAttribute:           element.Column,
		FormulaAttribute:          element.Formula,
		Columns:                   element.Columns,
		Formulas:                  element.Formulas,
		Length:                    element.Length,
		NotNull:                   element.NotNull,
		Unique:                    element.Unique,
		IncludedInInsertByDefault: b.insertByDefault,
		IncludedInUpdateByDefault: b.updateByDefault,
	})
	if err != nil {
		return nil, err
	}

	return b, nil
}

func (b *BasicAttributeSource) Name() string {
	return b.name
}

func (b *BasicAttributeSource) AttributePath() AttributePath {
	return b.attributePath
}

func (b *BasicAttributeSource) AttributeRole() AttributeRole {
	return b.attributeRole
}

func (b *BasicAttributeSource) TypeInformation() TypeSource {
	return b.typeSource
}

func (b *BasicAttributeSource) PropertyAccessorName() string {
	return b.access
}

func (b *BasicAttributeSource) IsIncludedInOptimisticLocking() bool {
	return b.optimisticLock
}

func (b *BasicAttributeSource) ToolingHintSources() []ToolingHint {
	return b.hints
}

func (b *BasicAttributeSource) SingularAttributeNature() SingularAttributeNature {
	return NatureBasic
}

func (b *BasicAttributeSource) IsVirtualAttribute() bool {
	return false
}

func (b *BasicAttributeSource) NaturalIDMutability() NaturalIDMutability {
	return b.naturalID
}

func (b *BasicAttributeSource) AreValuesIncludedInInsertByDefault() bool {
	return b.insertByDefault
}

func (b *BasicAttributeSource) AreValuesIncludedInUpdateByDefault() bool {
	return b.updateByDefault
}

func (b *BasicAttributeSource) AreValuesNullableByDefault() bool {
	return b.nullableByDefault
}

func (b *BasicAttributeSource) ContainingTableName() string {
	return ""
}

func (b *BasicAttributeSource) RelationalValueSources() []RelationalValueSource {
	return b.valueSources
}

func (b *BasicAttributeSource) IsLazy() bool {
	return b.lazy
}

// GeneratorClass is the identifier generator of a simple id, empty otherwise.
func (b *BasicAttributeSource) GeneratorClass() string {
	return b.generatorClass
}
