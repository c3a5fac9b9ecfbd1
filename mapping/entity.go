package mapping

import (
	"errors"
	"strings"
)

type IdentifierNature int

const (
	IdentifierSimple IdentifierNature = iota
	IdentifierAggregatedComposite
	IdentifierNonAggregatedComposite
)

func (n IdentifierNature) String() string {
	return [...]string{"SIMPLE", "AGGREGATED_COMPOSITE", "NON_AGGREGATED_COMPOSITE"}[n]
}

// IdentifierSource describes an entity identifier. A simple id has exactly
// one attribute; a composite id has key-property and key-many-to-one
// attributes. A composite-id without a name is non-aggregated: its attributes
// sit directly on the entity.
type IdentifierSource struct {
	Nature     IdentifierNature
	Name       string
	ClassName  string
	Access     string
	Attributes []SingularAttributeSource
	Generator  string

	pathBase AttributePath
	roleBase AttributeRole
}

func (i *IdentifierSource) AttributePathBase() AttributePath {
	return i.pathBase
}

func (i *IdentifierSource) AttributeRoleBase() AttributeRole {
	return i.roleBase
}

// EntitySource is the metadata source of a <class/> mapping.
type EntitySource struct {
	document   *DocumentSource
	element    *Class
	className  string
	entityName string
	identifier *IdentifierSource
	attributes []SingularAttributeSource
	hints      []ToolingHint
}

func newEntitySource(doc *DocumentSource, cls *Class) (*EntitySource, error) {
	if strings.TrimSpace(cls.Name) == "" && strings.TrimSpace(cls.EntityName) == "" {
		return nil, mappingErrorf(doc.Origin(), "class without name or entity-name")
	}

	es := &EntitySource{
		document:  doc,
		element:   cls,
		className: doc.QualifyClassName(cls.Name),
		hints:     toolingHints(cls.Meta),
	}

	es.entityName = cls.EntityName
	if es.entityName == "" {
		es.entityName = es.className
	}

	var errs []error

	id, err := es.buildIdentifier()
	if err != nil {
		errs = append(errs, err)
	}
	es.identifier = id

	if cls.NaturalID != nil {
		mutability := NaturalIDImmutable
		if parseTruth(cls.NaturalID.Mutable) == True {
			mutability = NaturalIDMutable
		}

		errs = append(errs, es.addProperties(cls.NaturalID.Properties, mutability)...)
		errs = append(errs, es.addManyToOnes(cls.NaturalID.ManyToOnes, mutability)...)
	}

	errs = append(errs, es.addProperties(cls.Properties, NotNaturalID)...)
	errs = append(errs, es.addManyToOnes(cls.ManyToOnes, NotNaturalID)...)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return es, nil
}

func (e *EntitySource) buildIdentifier() (*IdentifierSource, error) {
	cls := e.element
	doc := e.document

	switch {
	case cls.ID != nil && cls.CompositeID != nil:
		return nil, mappingErrorf(doc.Origin(), "class %s: id and composite-id are mutually exclusive", e.entityName)
	case cls.ID != nil:
		attr, err := NewIDSource(doc, e, cls.ID)
		if err != nil {
			return nil, err
		}

		return &IdentifierSource{
			Nature:     IdentifierSimple,
			Name:       cls.ID.Name,
			Attributes: []SingularAttributeSource{attr},
			Generator:  attr.GeneratorClass(),
			pathBase:   e.AttributePathBase(),
			roleBase:   e.AttributeRoleBase(),
		}, nil
	case cls.CompositeID != nil:
		return e.buildCompositeIdentifier(cls.CompositeID)
	default:
		return nil, mappingErrorf(doc.Origin(), "class %s: no identifier mapped", e.entityName)
	}
}

func (e *EntitySource) buildCompositeIdentifier(cid *CompositeID) (*IdentifierSource, error) {
	doc := e.document
	id := &IdentifierSource{
		Nature:    IdentifierAggregatedComposite,
		Name:      cid.Name,
		ClassName: doc.QualifyClassName(cid.Class),
		Access:    doc.accessOr(cid.Access),
		pathBase:  e.AttributePathBase().Append(cid.Name),
		roleBase:  e.AttributeRoleBase().Append(cid.Name),
	}

	if cid.Name == "" {
		id.Nature = IdentifierNonAggregatedComposite
		id.pathBase = e.AttributePathBase()
		id.roleBase = e.AttributeRoleBase()
	}

	if len(cid.KeyProperties)+len(cid.KeyManyToOnes) == 0 {
		return nil, mappingErrorf(doc.Origin(), "class %s: composite-id without key attributes", e.entityName)
	}

	var errs []error
	for i := range cid.KeyManyToOnes {
		src, err := NewKeyManyToOneSource(doc, id, &cid.KeyManyToOnes[i], NotNaturalID)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		id.Attributes = append(id.Attributes, src)
	}

	for i := range cid.KeyProperties {
		src, err := NewKeyPropertySource(doc, id, &cid.KeyProperties[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}

		id.Attributes = append(id.Attributes, src)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return id, nil
}

func (e *EntitySource) addProperties(props []Property, naturalID NaturalIDMutability) []error {
	var errs []error
	for i := range props {
		src, err := NewPropertySource(e.document, e, &props[i], naturalID)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		e.attributes = append(e.attributes, src)
	}

	return errs
}

func (e *EntitySource) addManyToOnes(m2os []ManyToOne, naturalID NaturalIDMutability) []error {
	var errs []error
	for i := range m2os {
		src, err := NewManyToOneSource(e.document, e, &m2os[i], naturalID)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		e.attributes = append(e.attributes, src)
	}

	return errs
}

func (e *EntitySource) Document() *DocumentSource {
	return e.document
}

func (e *EntitySource) Origin() Origin {
	return e.document.Origin()
}

// ClassName is the package qualified class name.
func (e *EntitySource) ClassName() string {
	return e.className
}

// EntityName is the entity-name attribute, or the class name when absent.
func (e *EntitySource) EntityName() string {
	return e.entityName
}

func (e *EntitySource) ExplicitTableName() string {
	return e.element.Table
}

func (e *EntitySource) ExplicitSchemaName() string {
	if e.element.Schema != "" {
		return e.element.Schema
	}

	return e.document.Schema()
}

func (e *EntitySource) Identifier() *IdentifierSource {
	return e.identifier
}

// Attributes returns the non identifier attributes.
func (e *EntitySource) Attributes() []SingularAttributeSource {
	return e.attributes
}

func (e *EntitySource) ToolingHintSources() []ToolingHint {
	return e.hints
}

func (e *EntitySource) AttributePathBase() AttributePath {
	return AttributePath{}
}

func (e *EntitySource) AttributeRoleBase() AttributeRole {
	return NewAttributeRole(e.entityName)
}
