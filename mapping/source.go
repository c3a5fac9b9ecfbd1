package mapping

import (
	"fmt"
	"strings"
)

type SingularAttributeNature int

const (
	NatureBasic SingularAttributeNature = iota
	NatureComposite
	NatureManyToOne
	NatureOneToOne
	NatureAny
)

func (n SingularAttributeNature) String() string {
	return [...]string{"BASIC", "COMPOSITE", "MANY_TO_ONE", "ONE_TO_ONE", "ANY"}[n]
}

type NaturalIDMutability int

const (
	NotNaturalID NaturalIDMutability = iota
	NaturalIDMutable
	NaturalIDImmutable
)

func (m NaturalIDMutability) String() string {
	return [...]string{"NOT_NATURAL_ID", "MUTABLE", "IMMUTABLE"}[m]
}

// ForeignKeyDirection tells on which side of an association the foreign key
// lives.
type ForeignKeyDirection int

const (
	ToParent ForeignKeyDirection = iota
	FromParent
)

func (d ForeignKeyDirection) String() string {
	return [...]string{"TO_PARENT", "FROM_PARENT"}[d]
}

type FetchTiming int

const (
	FetchImmediate FetchTiming = iota
	FetchDelayed
)

func (t FetchTiming) String() string {
	return [...]string{"IMMEDIATE", "DELAYED"}[t]
}

type FetchStyle int

const (
	FetchSelect FetchStyle = iota
	FetchJoin
)

func (s FetchStyle) String() string {
	return [...]string{"SELECT", "JOIN"}[s]
}

type CascadeStyle string

const (
	CascadeNone       CascadeStyle = "none"
	CascadeAll        CascadeStyle = "all"
	CascadeSaveUpdate CascadeStyle = "save-update"
	CascadePersist    CascadeStyle = "persist"
	CascadeMerge      CascadeStyle = "merge"
	CascadeDelete     CascadeStyle = "delete"
	CascadeRefresh    CascadeStyle = "refresh"
	CascadeEvict      CascadeStyle = "evict"
	CascadeLock       CascadeStyle = "lock"
	CascadeReplicate  CascadeStyle = "replicate"
)

var cascadeStyles = map[string]CascadeStyle{
	"none":        CascadeNone,
	"all":         CascadeAll,
	"save-update": CascadeSaveUpdate,
	"persist":     CascadePersist,
	"merge":       CascadeMerge,
	"delete":      CascadeDelete,
	"refresh":     CascadeRefresh,
	"evict":       CascadeEvict,
	"lock":        CascadeLock,
	"replicate":   CascadeReplicate,
}

// ParseCascadeStyles parses a comma separated cascade attribute such as
// "save-update, delete".
func ParseCascadeStyles(value string) ([]CascadeStyle, error) {
	var styles []CascadeStyle
	for _, s := range strings.Split(value, ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}

		style, ok := cascadeStyles[s]
		if !ok {
			return nil, fmt.Errorf("unknown cascade style %q", s)
		}

		styles = append(styles, style)
	}

	if len(styles) == 0 {
		styles = []CascadeStyle{CascadeNone}
	}

	return styles, nil
}

const (
	OnDeleteNoAction = "noaction"
	OnDeleteCascade  = "cascade"
)

// TruthValue is a tri-state flag; Unknown defers to a container default.
type TruthValue int

const (
	Unknown TruthValue = iota
	True
	False
)

func (t TruthValue) Or(def bool) bool {
	switch t {
	case True:
		return true
	case False:
		return false
	default:
		return def
	}
}

// AttributePath is the dotted navigation path of an attribute from its
// entity, e.g. "id.order".
type AttributePath struct {
	parent   string
	property string
}

func (p AttributePath) Append(property string) AttributePath {
	return AttributePath{parent: p.String(), property: property}
}

func (p AttributePath) Property() string {
	return p.property
}

func (p AttributePath) IsRoot() bool {
	return p.parent == "" && p.property == ""
}

func (p AttributePath) String() string {
	switch {
	case p.parent == "":
		return p.property
	case p.property == "":
		return p.parent
	default:
		return p.parent + "." + p.property
	}
}

// AttributeRole is like AttributePath but rooted at the entity name, so it is
// unique across the whole metamodel, e.g. "shop.OrderLine.id.order".
type AttributeRole struct {
	base     string
	property string
}

func NewAttributeRole(base string) AttributeRole {
	return AttributeRole{base: base}
}

func (r AttributeRole) Append(property string) AttributeRole {
	return AttributeRole{base: r.String(), property: property}
}

func (r AttributeRole) Property() string {
	return r.property
}

func (r AttributeRole) String() string {
	switch {
	case r.base == "":
		return r.property
	case r.property == "":
		return r.base
	default:
		return r.base + "." + r.property
	}
}

// ToolingHint is a meta element attached to a mapping element.
type ToolingHint struct {
	Name        string
	Value       string
	Inheritable bool
}

func toolingHints(meta []Meta) []ToolingHint {
	if len(meta) == 0 {
		return nil
	}

	hints := make([]ToolingHint, 0, len(meta))
	for _, m := range meta {
		hints = append(hints, ToolingHint{
			Name:        m.Attribute,
			Value:       strings.TrimSpace(m.Value),
			Inheritable: !strings.EqualFold(m.Inherit, "false"),
		})
	}

	return hints
}

// TypeSource describes the declared type of an attribute. For associations
// ReferencedClass holds the package qualified class name.
type TypeSource struct {
	Name            string
	Length          int
	ReferencedClass string
}

// AttributeSourceContainer is anything attributes can live in: an entity or
// an aggregated composite identifier.
type AttributeSourceContainer interface {
	AttributePathBase() AttributePath
	AttributeRoleBase() AttributeRole
}

type AttributeSource interface {
	Name() string
	AttributePath() AttributePath
	AttributeRole() AttributeRole
	TypeInformation() TypeSource
	PropertyAccessorName() string
	IsIncludedInOptimisticLocking() bool
	ToolingHintSources() []ToolingHint
}

// RelationalValueSourceContainer owns the columns and formulas an attribute
// maps to, and the defaults those values fall back to.
type RelationalValueSourceContainer interface {
	AreValuesIncludedInInsertByDefault() bool
	AreValuesIncludedInUpdateByDefault() bool
	AreValuesNullableByDefault() bool
	ContainingTableName() string
	RelationalValueSources() []RelationalValueSource
}

type SingularAttributeSource interface {
	AttributeSource
	RelationalValueSourceContainer
	SingularAttributeNature() SingularAttributeNature
	IsVirtualAttribute() bool
	NaturalIDMutability() NaturalIDMutability
}

type ToOneAttributeSource interface {
	SingularAttributeSource
	ReferencedEntityName() string
	ReferencedEntityAttributeName() string
	ClassName() string
	IsUnique() bool
	ForeignKeyDirection() ForeignKeyDirection
	CascadeStyles() []CascadeStyle
	ExplicitForeignKeyName() string
	IsCascadeDeleteEnabled() bool
	FetchTiming() FetchTiming
	FetchStyle() FetchStyle
	IsUnwrapProxy() bool
}
