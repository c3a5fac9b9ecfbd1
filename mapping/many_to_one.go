package mapping

import "strings"

// ManyToOneSource is the metadata source of a <many-to-one/> mapping.
type ManyToOneSource struct {
	toOneSource

	element       *ManyToOne
	typeSource    TypeSource
	valueSources  []RelationalValueSource
	cascadeStyles []CascadeStyle
	attributePath AttributePath
	attributeRole AttributeRole
}

var _ ToOneAttributeSource = (*ManyToOneSource)(nil)

func NewManyToOneSource(doc *DocumentSource, container AttributeSourceContainer, element *ManyToOne, naturalID NaturalIDMutability) (*ManyToOneSource, error) {
	owner := "many-to-one " + element.Name
	if strings.TrimSpace(element.Name) == "" {
		return nil, mappingErrorf(doc.Origin(), "many-to-one without name")
	}

	if !validLazy(element.Lazy) {
		return nil, mappingErrorf(doc.Origin(), "%s: invalid lazy value %q", owner, element.Lazy)
	}

	switch element.Fetch {
	case "", "join", "select":
	default:
		return nil, mappingErrorf(doc.Origin(), "%s: invalid fetch value %q", owner, element.Fetch)
	}

	cascade := element.Cascade
	if cascade == "" {
		cascade = doc.DefaultCascade()
	}

	styles, err := ParseCascadeStyles(cascade)
	if err != nil {
		return nil, mappingErrorf(doc.Origin(), "%s: %s", owner, err)
	}

	var ts TypeSource
	if element.Class != "" {
		ts.ReferencedClass = doc.QualifyClassName(element.Class)
	}

	valueSources, err := buildValueSources(doc, owner, valueSourcesAdapter{
		ColumnAttribute:           element.Column,
		FormulaAttribute:          element.Formula,
		Columns:                   element.Columns,
		Formulas:                  element.Formulas,
		NotNull:                   element.NotNull,
		Unique:                    element.Unique,
		IncludedInInsertByDefault: parseTruth(element.Insert).Or(true),
		IncludedInUpdateByDefault: parseTruth(element.Update).Or(true),
	})
	if err != nil {
		return nil, err
	}

	return &ManyToOneSource{
		toOneSource: toOneSource{
			document:            doc,
			naturalIDMutability: naturalID,
			propertyRef:         element.PropertyRef,
			fetchSelection:      element.Fetch,
			lazySelection:       element.Lazy,
			outerJoinSelection:  element.OuterJoin,
		},
		element:       element,
		typeSource:    ts,
		valueSources:  valueSources,
		cascadeStyles: styles,
		attributePath: container.AttributePathBase().Append(element.Name),
		attributeRole: container.AttributeRoleBase().Append(element.Name),
	}, nil
}

func (m *ManyToOneSource) Name() string {
	return m.element.Name
}

func (m *ManyToOneSource) AttributePath() AttributePath {
	return m.attributePath
}

func (m *ManyToOneSource) AttributeRole() AttributeRole {
	return m.attributeRole
}

func (m *ManyToOneSource) TypeInformation() TypeSource {
	return m.typeSource
}

func (m *ManyToOneSource) PropertyAccessorName() string {
	return m.document.accessOr(m.element.Access)
}

func (m *ManyToOneSource) IsIncludedInOptimisticLocking() bool {
	return parseTruth(m.element.OptimisticLock).Or(true)
}

func (m *ManyToOneSource) SingularAttributeNature() SingularAttributeNature {
	return NatureManyToOne
}

func (m *ManyToOneSource) IsVirtualAttribute() bool {
	return false
}

func (m *ManyToOneSource) AreValuesIncludedInInsertByDefault() bool {
	return parseTruth(m.element.Insert).Or(true)
}

func (m *ManyToOneSource) AreValuesIncludedInUpdateByDefault() bool {
	return parseTruth(m.element.Update).Or(true)
}

func (m *ManyToOneSource) AreValuesNullableByDefault() bool {
	return parseTruth(m.element.NotNull) != True
}

func (m *ManyToOneSource) ContainingTableName() string {
	return ""
}

func (m *ManyToOneSource) RelationalValueSources() []RelationalValueSource {
	return m.valueSources
}

func (m *ManyToOneSource) ToolingHintSources() []ToolingHint {
	return toolingHints(m.element.Meta)
}

func (m *ManyToOneSource) ReferencedEntityName() string {
	return m.element.EntityName
}

func (m *ManyToOneSource) IsUnique() bool {
	return parseTruth(m.element.Unique) == True
}

func (m *ManyToOneSource) ForeignKeyDirection() ForeignKeyDirection {
	return ToParent
}

func (m *ManyToOneSource) CascadeStyles() []CascadeStyle {
	return m.cascadeStyles
}

func (m *ManyToOneSource) ExplicitForeignKeyName() string {
	return m.element.ForeignKey
}

func (m *ManyToOneSource) IsCascadeDeleteEnabled() bool {
	return false
}

func (m *ManyToOneSource) ClassName() string {
	return m.element.Class
}
