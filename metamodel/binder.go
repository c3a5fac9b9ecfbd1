package metamodel

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/likearthian/ormstore/mapping"
)

type BindOption func(b *binder)

func WithLogger(logger *zerolog.Logger) BindOption {
	return func(b *binder) {
		b.logger = logger
	}
}

func WithNamingStrategy(naming NamingStrategy) BindOption {
	return func(b *binder) {
		b.naming = naming
	}
}

type binder struct {
	logger   *zerolog.Logger
	naming   NamingStrategy
	md       *Metadata
	resolved map[*AttributeBinding]bool
	errs     []error
}

type pendingToOne struct {
	entity *EntityBinding
	attr   *AttributeBinding
	src    mapping.ToOneAttributeSource
}

// Bind turns mapping documents into a Metadata. Basic attributes are bound
// first; to-one attributes are then resolved repeatedly until every target
// identifier is known, since a key-many-to-one may point at an entity whose
// own key holds another association. Every problem found is returned.
func Bind(docs []*mapping.Document, options ...BindOption) (*Metadata, error) {
	nop := zerolog.Nop()
	b := &binder{
		logger:   &nop,
		naming:   SnakeCaseNaming{},
		md:       newMetadata(),
		resolved: make(map[*AttributeBinding]bool),
	}

	for _, opt := range options {
		opt(b)
	}

	var pending []pendingToOne
	for _, doc := range docs {
		entities, err := mapping.NewDocumentSource(doc).Entities()
		if err != nil {
			b.errs = append(b.errs, err)
			continue
		}

		for _, es := range entities {
			pending = append(pending, b.bindEntity(es)...)
		}
	}

	b.resolveToOnes(pending)

	for _, e := range b.md.entities {
		e.Table.Columns = orderColumns(e)
		e.Table.PrimaryKey = &PrimaryKey{
			Name:    b.naming.PrimaryKeyName(e.Table.Name),
			Columns: e.Identifier.Columns(),
		}

		b.logger.Debug().
			Str("entity", e.EntityName).
			Str("table", e.Table.QualifiedName()).
			Int("columns", len(e.Table.Columns)).
			Int("foreign_keys", len(e.Table.ForeignKeys)).
			Msg("entity bound")
	}

	if err := errors.Join(b.errs...); err != nil {
		b.logger.Error().Err(err).Msg("failed to bind mapping metadata")
		return nil, err
	}

	return b.md, nil
}

// orderColumns lays the table columns out in attribute order, identifier
// first, whatever order they were bound in.
func orderColumns(e *EntityBinding) []*Column {
	seen := make(map[*Column]bool, len(e.Table.Columns))
	cols := make([]*Column, 0, len(e.Table.Columns))
	for _, a := range e.AllAttributes() {
		for _, c := range a.Columns {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}

	for _, c := range e.Table.Columns {
		if !seen[c] {
			cols = append(cols, c)
		}
	}

	return cols
}

func (b *binder) fail(entity, attribute string, err error) {
	b.errs = append(b.errs, &BindError{Entity: entity, Attribute: attribute, Err: err})
}

func (b *binder) bindEntity(es *mapping.EntitySource) []pendingToOne {
	if _, exists := b.md.byEntity[es.EntityName()]; exists {
		b.fail(es.EntityName(), "", fmt.Errorf("%w, also mapped in %s", ErrDuplicateEntity, es.Origin()))
		return nil
	}

	tableName := es.ExplicitTableName()
	if tableName == "" {
		base := es.ClassName()
		if base == "" {
			base = es.EntityName()
		}
		tableName = b.naming.TableName(base)
	}

	e := &EntityBinding{
		EntityName: es.EntityName(),
		ClassName:  es.ClassName(),
		Table:      &Table{Schema: es.ExplicitSchemaName(), Name: tableName},
		Hints:      es.ToolingHintSources(),
		source:     es,
	}

	id := es.Identifier()
	e.Identifier = &IdentifierBinding{
		Nature:    id.Nature,
		Name:      id.Name,
		ClassName: id.ClassName,
		Generator: id.Generator,
	}

	var pending []pendingToOne
	bind := func(src mapping.SingularAttributeSource, identifier bool) *AttributeBinding {
		if toOne, ok := src.(mapping.ToOneAttributeSource); ok {
			a := newAttribute(src, identifier)
			a.Kind = AttributeToOne
			pending = append(pending, pendingToOne{entity: e, attr: a, src: toOne})
			return a
		}

		return b.bindBasic(e, src, identifier)
	}

	for _, src := range id.Attributes {
		e.Identifier.Attributes = append(e.Identifier.Attributes, bind(src, true))
	}

	for _, src := range es.Attributes() {
		e.Attributes = append(e.Attributes, bind(src, false))
	}

	b.md.add(e)

	return pending
}

func newAttribute(src mapping.SingularAttributeSource, identifier bool) *AttributeBinding {
	return &AttributeBinding{
		Name:       src.Name(),
		Role:       src.AttributeRole().String(),
		Path:       src.AttributePath().String(),
		TypeName:   src.TypeInformation().Name,
		Identifier: identifier,
		Nullable:   !identifier && src.AreValuesNullableByDefault(),
		Source:     src,
	}
}

func (b *binder) bindBasic(e *EntityBinding, src mapping.SingularAttributeSource, identifier bool) *AttributeBinding {
	a := newAttribute(src, identifier)
	a.Kind = AttributeBasic
	if bs, ok := src.(*mapping.BasicAttributeSource); ok {
		a.Lazy = bs.IsLazy()
	}

	values := src.RelationalValueSources()
	if len(values) == 0 {
		values = []mapping.RelationalValueSource{&mapping.ColumnSource{Name: b.naming.ColumnName(src.Name())}}
	}

	for _, v := range values {
		switch v := v.(type) {
		case *mapping.DerivedValueSource:
			a.Formula = v.Expression
		case *mapping.ColumnSource:
			length := v.Length
			if length == 0 {
				length = src.TypeInformation().Length
			}

			col := &Column{
				Name:      v.Name,
				TypeName:  a.TypeName,
				SQLType:   v.SQLType,
				Length:    length,
				Precision: v.Precision,
				Scale:     v.Scale,
				Nullable:  !identifier && v.Nullable.Or(src.AreValuesNullableByDefault()),
				Unique:    v.Unique,
				Default:   v.Default,
				Check:     v.Check,
				Identity:  identifier && e.Identifier.IsGenerated() && e.Identifier.Nature == mapping.IdentifierSimple,
			}

			a.Insertable = a.Insertable || v.Insertable.Or(src.AreValuesIncludedInInsertByDefault())
			a.Updatable = a.Updatable || v.Updatable.Or(src.AreValuesIncludedInUpdateByDefault())
			if col.Identity {
				a.Insertable = false
			}

			col, _ = b.addColumn(e, a, col)
			a.Columns = append(a.Columns, col)
		}
	}

	b.resolved[a] = true

	return a
}

// addColumn registers col in the entity table. A column name may only be
// mapped twice when the later attribute is read-only; it then shares the
// existing column.
func (b *binder) addColumn(e *EntityBinding, a *AttributeBinding, col *Column) (*Column, bool) {
	if existing := e.Table.Column(col.Name); existing != nil {
		if !a.Insertable && !a.Updatable {
			return existing, true
		}

		b.fail(e.EntityName, a.Name, fmt.Errorf("%w %s in table %s (mark one mapping insert=\"false\" update=\"false\")", ErrDuplicateColumn, col.Name, e.Table))
		return existing, true
	}

	col.Table = e.Table
	e.Table.Columns = append(e.Table.Columns, col)

	return col, false
}

func (b *binder) resolveToOnes(pending []pendingToOne) {
	for len(pending) > 0 {
		var (
			next     []pendingToOne
			progress bool
		)

		for _, p := range pending {
			done, err := b.bindToOne(p)
			if err != nil {
				b.fail(p.entity.EntityName, p.attr.Name, err)
				b.resolved[p.attr] = true
				progress = true
				continue
			}

			if !done {
				next = append(next, p)
				continue
			}

			progress = true
		}

		if !progress {
			for _, p := range next {
				b.fail(p.entity.EntityName, p.attr.Name, fmt.Errorf("%w: circular key references", ErrUnresolved))
			}

			return
		}

		pending = next
	}
}

func (b *binder) resolveTarget(src mapping.ToOneAttributeSource) (*EntityBinding, error) {
	if name := src.ReferencedEntityName(); name != "" {
		if e, ok := b.md.byEntity[name]; ok {
			return e, nil
		}

		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}

	if class := src.TypeInformation().ReferencedClass; class != "" {
		return b.md.Resolve(class)
	}

	if class := src.ClassName(); class != "" {
		return b.md.Resolve(class)
	}

	return nil, fmt.Errorf("%w: neither class nor entity-name given", ErrUnknownEntity)
}

// targetColumns returns the referenced columns, or ok=false while the target
// attributes are not bound yet.
func (b *binder) targetColumns(target *EntityBinding, src mapping.ToOneAttributeSource) (cols []*Column, ok bool, err error) {
	if ref := src.ReferencedEntityAttributeName(); ref != "" {
		attr := target.Attribute(ref)
		if attr == nil {
			return nil, false, fmt.Errorf("%w: %s has no attribute %s", ErrUnknownEntity, target, ref)
		}

		if !b.resolved[attr] {
			return nil, false, nil
		}

		return attr.Columns, true, nil
	}

	for _, attr := range target.Identifier.Attributes {
		if !b.resolved[attr] {
			return nil, false, nil
		}
	}

	return target.Identifier.Columns(), true, nil
}

func (b *binder) bindToOne(p pendingToOne) (bool, error) {
	e, a, src := p.entity, p.attr, p.src

	target, err := b.resolveTarget(src)
	if err != nil {
		return true, err
	}

	targetCols, ready, err := b.targetColumns(target, src)
	if err != nil {
		return true, err
	}

	if !ready {
		return false, nil
	}

	a.Target = target
	a.FetchTiming = src.FetchTiming()
	a.FetchStyle = src.FetchStyle()
	a.CascadeStyles = src.CascadeStyles()
	if a.TypeName == "" {
		a.TypeName = target.ClassName
	}

	var columns []*mapping.ColumnSource
	for _, v := range src.RelationalValueSources() {
		switch v := v.(type) {
		case *mapping.ColumnSource:
			columns = append(columns, v)
		case *mapping.DerivedValueSource:
			a.Formula = v.Expression
		}
	}

	if a.Formula != "" {
		b.resolved[a] = true
		return true, nil
	}

	if len(columns) == 0 {
		for _, tc := range targetCols {
			columns = append(columns, &mapping.ColumnSource{Name: b.naming.ForeignKeyColumnName(a.Name, tc.Name)})
		}
	}

	if len(columns) != len(targetCols) {
		return true, fmt.Errorf("%w: %d columns mapped, %s has %d key columns", ErrColumnMismatch, len(columns), target, len(targetCols))
	}

	shared := true
	for i, cs := range columns {
		tc := targetCols[i]
		sqlType := cs.SQLType
		if sqlType == "" {
			sqlType = tc.SQLType
		}

		a.Insertable = a.Insertable || cs.Insertable.Or(src.AreValuesIncludedInInsertByDefault())
		a.Updatable = !a.Identifier && (a.Updatable || cs.Updatable.Or(src.AreValuesIncludedInUpdateByDefault()))

		col := &Column{
			Name:      cs.Name,
			TypeName:  tc.TypeName,
			SQLType:   sqlType,
			Length:    tc.Length,
			Precision: tc.Precision,
			Scale:     tc.Scale,
			Nullable:  !a.Identifier && cs.Nullable.Or(src.AreValuesNullableByDefault()),
			Unique:    cs.Unique || (src.IsUnique() && len(columns) == 1),
		}

		col, existed := b.addColumn(e, a, col)
		shared = shared && existed
		a.Columns = append(a.Columns, col)
	}

	fkName := src.ExplicitForeignKeyName()
	if fkName == "" {
		fkName = b.naming.ForeignKeyName(e.Table.Name, a.Name)
	}

	a.ForeignKey = &ForeignKey{
		Name:              fkName,
		Table:             e.Table,
		Columns:           a.Columns,
		ReferencedEntity:  target,
		ReferencedTable:   target.Table,
		ReferencedColumns: targetCols,
		Direction:         src.ForeignKeyDirection(),
		CascadeDelete:     src.IsCascadeDeleteEnabled(),
	}
	// a read-only association over columns another attribute already
	// constrains needs no second constraint
	if !shared {
		e.Table.ForeignKeys = append(e.Table.ForeignKeys, a.ForeignKey)
	}
	b.resolved[a] = true

	return true, nil
}
