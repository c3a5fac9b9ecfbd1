package mapping

import "strings"

// KeyManyToOneSource is the metadata source of a <key-many-to-one/> mapping.
type KeyManyToOneSource struct {
	toOneSource

	element       *KeyManyToOne
	typeSource    TypeSource
	valueSources  []RelationalValueSource
	attributePath AttributePath
	attributeRole AttributeRole
}

var _ ToOneAttributeSource = (*KeyManyToOneSource)(nil)

func NewKeyManyToOneSource(doc *DocumentSource, container AttributeSourceContainer, element *KeyManyToOne, naturalID NaturalIDMutability) (*KeyManyToOneSource, error) {
	owner := "key-many-to-one " + element.Name
	if strings.TrimSpace(element.Name) == "" {
		return nil, mappingErrorf(doc.Origin(), "key-many-to-one without name")
	}

	if !validLazy(element.Lazy) {
		return nil, mappingErrorf(doc.Origin(), "%s: invalid lazy value %q", owner, element.Lazy)
	}

	switch element.OnDelete {
	case "", OnDeleteNoAction, OnDeleteCascade:
	default:
		return nil, mappingErrorf(doc.Origin(), "%s: invalid on-delete value %q", owner, element.OnDelete)
	}

	var ts TypeSource
	if element.Class != "" {
		ts.ReferencedClass = doc.QualifyClassName(element.Class)
	}

	valueSources, err := buildValueSources(doc, owner, valueSourcesAdapter{
		ColumnAttribute:           element.Column,
		Columns:                   element.Columns,
		IncludedInInsertByDefault: true,
		IncludedInUpdateByDefault: false,
	})
	if err != nil {
		return nil, err
	}

	return &KeyManyToOneSource{
		toOneSource: toOneSource{
			document:            doc,
			naturalIDMutability: naturalID,
			lazySelection:       element.Lazy,
		},
		element:       element,
		typeSource:    ts,
		valueSources:  valueSources,
		attributePath: container.AttributePathBase().Append(element.Name),
		attributeRole: container.AttributeRoleBase().Append(element.Name),
	}, nil
}

func (k *KeyManyToOneSource) Name() string {
	return k.element.Name
}

func (k *KeyManyToOneSource) AttributePath() AttributePath {
	return k.attributePath
}

func (k *KeyManyToOneSource) AttributeRole() AttributeRole {
	return k.attributeRole
}

func (k *KeyManyToOneSource) TypeInformation() TypeSource {
	return k.typeSource
}

func (k *KeyManyToOneSource) PropertyAccessorName() string {
	return k.document.accessOr(k.element.Access)
}

func (k *KeyManyToOneSource) IsIncludedInOptimisticLocking() bool {
	return false
}

func (k *KeyManyToOneSource) SingularAttributeNature() SingularAttributeNature {
	return NatureManyToOne
}

func (k *KeyManyToOneSource) IsVirtualAttribute() bool {
	return false
}

func (k *KeyManyToOneSource) AreValuesIncludedInInsertByDefault() bool {
	return true
}

func (k *KeyManyToOneSource) AreValuesIncludedInUpdateByDefault() bool {
	return true
}

func (k *KeyManyToOneSource) AreValuesNullableByDefault() bool {
	return false
}

// ContainingTableName is always empty: key columns live in the primary table.
func (k *KeyManyToOneSource) ContainingTableName() string {
	return ""
}

func (k *KeyManyToOneSource) RelationalValueSources() []RelationalValueSource {
	return k.valueSources
}

func (k *KeyManyToOneSource) ToolingHintSources() []ToolingHint {
	return toolingHints(k.element.Meta)
}

func (k *KeyManyToOneSource) ReferencedEntityName() string {
	return k.element.EntityName
}

func (k *KeyManyToOneSource) IsUnique() bool {
	return false
}

func (k *KeyManyToOneSource) ForeignKeyDirection() ForeignKeyDirection {
	return ToParent
}

func (k *KeyManyToOneSource) CascadeStyles() []CascadeStyle {
	return []CascadeStyle{CascadeNone}
}

func (k *KeyManyToOneSource) ExplicitForeignKeyName() string {
	return k.element.ForeignKey
}

func (k *KeyManyToOneSource) IsCascadeDeleteEnabled() bool {
	return k.element.OnDelete == OnDeleteCascade
}

func (k *KeyManyToOneSource) ClassName() string {
	return k.element.Class
}
