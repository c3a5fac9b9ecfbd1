// Package mapping reads declarative entity-to-table mapping metadata and
// exposes it as metadata sources for the binder in package metamodel.
//
// Metadata comes from two places:
//
//   - mapping documents, XML (".xml", ".hbm.xml") or YAML (".yaml", ".yml"),
//     rooted at a hibernate-mapping element;
//   - struct tags on Go types, the Go counterpart of mapping annotations
//     (see FromTypes).
//
// Both are turned into the same Document model, so everything downstream
// works on one representation.
//
// # Document overview
//
//	<hibernate-mapping package="shop" schema="sales">
//	  <class name="OrderLine" table="order_line">
//	    <composite-id name="id">
//	      <key-many-to-one name="order" class="Order" column="order_id"
//	                       foreign-key="fk_line_order" on-delete="cascade"/>
//	      <key-property name="lineNo" column="line_no" type="integer"/>
//	    </composite-id>
//	    <property name="quantity" type="integer" not-null="true"/>
//	    <many-to-one name="product" class="Product"/>
//	  </class>
//	</hibernate-mapping>
//
// # Sources
//
// A DocumentSource wraps one Document and acts as its binding context
// (package qualification, default access, default laziness). It yields
// EntitySource values, which in turn expose an IdentifierSource and a list of
// SingularAttributeSource values:
//
//   - BasicAttributeSource for id, key-property and property;
//   - KeyManyToOneSource for key-many-to-one;
//   - ManyToOneSource for many-to-one.
//
// The to-one sources additionally implement ToOneAttributeSource.
package mapping
