package mapping

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderLineXML = `<?xml version="1.0"?>
<!DOCTYPE hibernate-mapping PUBLIC "-//Hibernate/Hibernate Mapping DTD 3.0//EN" "http://www.hibernate.org/dtd/hibernate-mapping-3.0.dtd">
<hibernate-mapping package="shop" schema="sales">
  <class name="Order" table="orders">
    <id name="id" column="order_id" type="long">
      <generator class="identity"/>
    </id>
    <property name="customer" column="customer" type="string" length="64" not-null="true"/>
  </class>
  <class name="OrderLine" table="order_line">
    <meta attribute="doc">a line of an order</meta>
    <composite-id name="id" class="OrderLineID">
      <key-many-to-one name="order" class="Order" column="order_id" foreign-key="fk_line_order" on-delete="cascade" lazy="false">
        <meta attribute="scope" inherit="false">internal</meta>
      </key-many-to-one>
      <key-property name="lineNo" column="line_no" type="integer"/>
    </composite-id>
    <property name="quantity" type="integer"/>
  </class>
</hibernate-mapping>`

func loadOrderLine(t *testing.T) *KeyManyToOneSource {
	t.Helper()

	doc, err := ParseXML(Origin{Kind: OriginInput, Name: "order_line"}, []byte(orderLineXML))
	require.NoError(t, err)

	entities, err := NewDocumentSource(doc).Entities()
	require.NoError(t, err)
	require.Len(t, entities, 2)

	id := entities[1].Identifier()
	require.Equal(t, IdentifierAggregatedComposite, id.Nature)
	require.Len(t, id.Attributes, 2)

	src, ok := id.Attributes[0].(*KeyManyToOneSource)
	require.True(t, ok)

	return src
}

func TestKeyManyToOneSource_Accessors(t *testing.T) {
	src := loadOrderLine(t)

	assert.Equal(t, "order", src.Name())
	assert.Equal(t, "id.order", src.AttributePath().String())
	assert.Equal(t, "shop.OrderLine.id.order", src.AttributeRole().String())
	assert.Equal(t, "shop.Order", src.TypeInformation().ReferencedClass)
	assert.Equal(t, "property", src.PropertyAccessorName())
	assert.False(t, src.IsIncludedInOptimisticLocking())
	assert.Equal(t, NatureManyToOne, src.SingularAttributeNature())
	assert.False(t, src.IsVirtualAttribute())
	assert.Equal(t, NotNaturalID, src.NaturalIDMutability())
	assert.True(t, src.AreValuesIncludedInInsertByDefault())
	assert.True(t, src.AreValuesIncludedInUpdateByDefault())
	assert.False(t, src.AreValuesNullableByDefault())
	assert.Empty(t, src.ContainingTableName())
	assert.Empty(t, src.ReferencedEntityName())
	assert.Empty(t, src.ReferencedEntityAttributeName())
	assert.False(t, src.IsUnique())
	assert.Equal(t, ToParent, src.ForeignKeyDirection())
	assert.Equal(t, []CascadeStyle{CascadeNone}, src.CascadeStyles())
	assert.Equal(t, "fk_line_order", src.ExplicitForeignKeyName())
	assert.True(t, src.IsCascadeDeleteEnabled())
	assert.Equal(t, "Order", src.ClassName())
	assert.Equal(t, "false", src.LazySelection())

	hints := src.ToolingHintSources()
	require.Len(t, hints, 1)
	assert.Equal(t, ToolingHint{Name: "scope", Value: "internal", Inheritable: false}, hints[0])
}

func TestKeyManyToOneSource_ValueSources(t *testing.T) {
	src := loadOrderLine(t)

	values := src.RelationalValueSources()
	require.Len(t, values, 1)

	col, ok := values[0].(*ColumnSource)
	require.True(t, ok)
	assert.Equal(t, ValueColumn, col.Nature())
	assert.Equal(t, "order_id", col.Name)
	assert.Equal(t, True, col.Insertable)
	assert.Equal(t, False, col.Updatable)
	assert.Empty(t, col.ContainingTableName())
}

func TestKeyManyToOneSource_Fetch(t *testing.T) {
	tests := []struct {
		name        string
		lazy        string
		defaultLazy string
		timing      FetchTiming
		unwrap      bool
	}{
		{name: "eager", lazy: "false", timing: FetchImmediate},
		{name: "proxy", lazy: "proxy", timing: FetchDelayed},
		{name: "no-proxy", lazy: "no-proxy", timing: FetchDelayed, unwrap: true},
		{name: "document default lazy", timing: FetchDelayed},
		{name: "document default eager", defaultLazy: "false", timing: FetchImmediate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &Document{Package: "shop", DefaultLazy: tt.defaultLazy}
			applyDefaults(doc)
			ds := NewDocumentSource(doc)

			src, err := NewKeyManyToOneSource(ds, &EntitySource{document: ds, entityName: "shop.OrderLine"},
				&KeyManyToOne{Name: "order", Class: "Order", Column: "order_id", Lazy: tt.lazy}, NotNaturalID)
			require.NoError(t, err)

			assert.Equal(t, tt.timing, src.FetchTiming())
			assert.Equal(t, FetchSelect, src.FetchStyle())
			assert.Equal(t, tt.unwrap, src.IsUnwrapProxy())
		})
	}
}

func TestKeyManyToOneSource_Defaults(t *testing.T) {
	doc := &Document{DefaultAccess: "field"}
	applyDefaults(doc)
	ds := NewDocumentSource(doc)
	container := &EntitySource{document: ds, entityName: "Line"}

	element := &KeyManyToOne{
		Name:       "order",
		Class:      "com.acme.Order",
		EntityName: "PurchaseOrder",
		Columns:    []Column{{Name: "order_region"}, {Name: "order_no"}},
	}

	src, err := NewKeyManyToOneSource(ds, container, element, NaturalIDImmutable)
	require.NoError(t, err)

	assert.Equal(t, "com.acme.Order", src.TypeInformation().ReferencedClass)
	assert.Equal(t, "field", src.PropertyAccessorName())
	assert.Equal(t, "PurchaseOrder", src.ReferencedEntityName())
	assert.Equal(t, NaturalIDImmutable, src.NaturalIDMutability())
	assert.False(t, src.IsCascadeDeleteEnabled())
	assert.Empty(t, src.ExplicitForeignKeyName())
	assert.Empty(t, src.LazySelection())
	assert.Equal(t, "order", src.AttributePath().String())
	assert.Equal(t, "Line.order", src.AttributeRole().String())

	values := src.RelationalValueSources()
	require.Len(t, values, 2)
	assert.Equal(t, "order_region", values[0].(*ColumnSource).Name)
	assert.Equal(t, "order_no", values[1].(*ColumnSource).Name)
}

func TestKeyManyToOneSource_NoColumns(t *testing.T) {
	ds := NewDocumentSource(&Document{})
	src, err := NewKeyManyToOneSource(ds, &EntitySource{document: ds, entityName: "Line"},
		&KeyManyToOne{Name: "order", Class: "Order"}, NotNaturalID)
	require.NoError(t, err)

	assert.Empty(t, src.RelationalValueSources())
	assert.Nil(t, src.ToolingHintSources())
}

func TestKeyManyToOneSource_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		element KeyManyToOne
		msg     string
	}{
		{
			name:    "column attribute and nested columns",
			element: KeyManyToOne{Name: "order", Column: "order_id", Columns: []Column{{Name: "order_id"}}},
			msg:     "mutually exclusive",
		},
		{
			name:    "on-delete",
			element: KeyManyToOne{Name: "order", OnDelete: "restrict"},
			msg:     "invalid on-delete",
		},
		{
			name:    "lazy",
			element: KeyManyToOne{Name: "order", Lazy: "extra"},
			msg:     "invalid lazy",
		},
		{
			name:    "missing name",
			element: KeyManyToOne{Column: "order_id"},
			msg:     "without name",
		},
		{
			name:    "unnamed nested column",
			element: KeyManyToOne{Name: "order", Columns: []Column{{SQLType: "int"}}},
			msg:     "column element without name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := NewDocumentSource(&Document{origin: Origin{Kind: OriginFile, Name: "line.hbm.xml"}})
			_, err := NewKeyManyToOneSource(ds, &EntitySource{document: ds, entityName: "Line"}, &tt.element, NotNaturalID)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidMapping))
			assert.Contains(t, err.Error(), tt.msg)
			assert.Contains(t, err.Error(), "file line.hbm.xml")
		})
	}
}
