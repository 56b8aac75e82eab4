package metadata

// PropertyOption decorates a MetaProperty.
type PropertyOption func(*MetaProperty)

// ReadOnly marks the property as never written by the deserializer.
func ReadOnly() PropertyOption {
	return func(p *MetaProperty) { p.ReadOnly = true }
}

// Transient marks the property as non-persistent (computed or in-memory only).
func Transient() PropertyOption {
	return func(p *MetaProperty) { p.Persistent = false }
}

// Embedded marks an entity property as embedded in its owner.
func Embedded() PropertyOption {
	return func(p *MetaProperty) { p.Embedded = true }
}

// ListOf turns a scalar property into an ordered list of scalars.
func ListOf() PropertyOption {
	return func(p *MetaProperty) { p.Collection = List }
}

// SetOf turns a scalar property into a set of scalars.
func SetOf() PropertyOption {
	return func(p *MetaProperty) { p.Collection = Set }
}

func newProperty(name string, kind RangeKind, opts []PropertyOption) *MetaProperty {
	p := &MetaProperty{Name: name, Kind: kind, Persistent: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Scalar declares a property handled by the named datatype codec.
func Scalar(name, datatype string, opts ...PropertyOption) *MetaProperty {
	p := newProperty(name, RangeDatatype, opts)
	p.Datatype = datatype
	return p
}

// EnumOf declares an enum-valued property.
func EnumOf(name string, enum *Enum, opts ...PropertyOption) *MetaProperty {
	p := newProperty(name, RangeEnum, opts)
	p.Enum = enum
	return p
}

// Reference declares a single-valued entity property.
func Reference(name string, target *MetaClass, opts ...PropertyOption) *MetaProperty {
	p := newProperty(name, RangeEntity, opts)
	p.Target = target
	return p
}

// Collection declares a collection of entities. NoCollection defaults to List.
func Collection(name string, target *MetaClass, kind CollectionKind, opts ...PropertyOption) *MetaProperty {
	p := newProperty(name, RangeCollection, opts)
	p.Target = target
	if kind == NoCollection {
		kind = List
	}
	p.Collection = kind
	return p
}
