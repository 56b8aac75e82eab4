// Package metadata describes entity types at runtime.
//
// The serializer in pkg/serde never inspects Go types. Every decision it takes
// (which attributes exist, which one is the primary key, whether a value is a
// scalar, an enum, a nested entity or a collection) comes from the
// descriptors defined here.
//
// # Overview
//
// A [MetaClass] lists its [MetaProperty] values in declaration order. The
// order is significant: it is the order attributes appear in serialized JSON.
// Each property carries a [RangeKind] that classifies its value domain:
//
//   - [RangeDatatype]: a scalar handled by a codec from pkg/datatype
//   - [RangeEnum]: a constant of an [Enum]
//   - [RangeEntity]: a single nested entity (association, composition or embedding)
//   - [RangeCollection]: a list or set of entities
//
// # Building Classes
//
// Classes are built in code with property constructors and decorator options:
//
//	status := metadata.NewEnum("OrderStatus", "NEW", "PAID", "SHIPPED")
//	customer := metadata.NewMetaClass("Customer", metadata.Key("id"))
//	order := metadata.NewMetaClass("Order", metadata.Key("id"), metadata.NamePattern("{number}"))
//	order.Add(
//	    metadata.Scalar("id", "uuid"),
//	    metadata.Scalar("number", "string"),
//	    metadata.Scalar("total", "decimal"),
//	    metadata.EnumOf("status", status),
//	    metadata.Reference("customer", customer),
//	    metadata.Scalar("summary", "string", metadata.Transient(), metadata.ReadOnly()),
//	)
//
//	reg := metadata.NewRegistry()
//	_ = reg.DefineEnum(status)
//	_ = reg.Define(customer, order)
//
// or loaded from a TOML schema with [LoadSchema] / [LoadSchemaFile].
//
// # Key Shapes
//
// A class identifies its instances in one of three ways ([IDKind]):
//
//   - [SimpleID]: the primary-key attribute holds a scalar
//   - [GeneratedID]: the key is generated by the database and may be paired
//     with a natural id attribute (for example a UUID) known before insert
//   - [CompositeID]: the key attribute references an embeddable class whose
//     attributes together form the key
package metadata
