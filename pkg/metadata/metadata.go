package metadata

import (
	"slices"
	"strings"

	"github.com/matzehuels/entitygraph/pkg/errors"
)

// =============================================================================
// Ranges
// =============================================================================

// RangeKind classifies the value domain of a property.
type RangeKind int

const (
	RangeDatatype RangeKind = iota
	RangeEnum
	RangeEntity
	RangeCollection
)

func (k RangeKind) String() string {
	switch k {
	case RangeDatatype:
		return "datatype"
	case RangeEnum:
		return "enum"
	case RangeEntity:
		return "entity"
	case RangeCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// CollectionKind is the declared container type of a multi-valued property.
type CollectionKind int

const (
	NoCollection CollectionKind = iota
	List                        // ordered, duplicates allowed
	Set                         // unique, insertion ordered
	Map                         // declared by some schemas, not supported by the codec
)

func (k CollectionKind) String() string {
	switch k {
	case List:
		return "list"
	case Set:
		return "set"
	case Map:
		return "map"
	default:
		return ""
	}
}

// ParseCollectionKind maps a schema keyword to a CollectionKind.
func ParseCollectionKind(s string) (CollectionKind, error) {
	switch strings.ToLower(s) {
	case "":
		return NoCollection, nil
	case "list":
		return List, nil
	case "set":
		return Set, nil
	case "map":
		return Map, nil
	default:
		return NoCollection, errors.New(errors.ErrCodeInvalidMetadata, "unknown collection kind %q", s)
	}
}

// =============================================================================
// Enums
// =============================================================================

// ErrUnknownConstant is wrapped by Enum.Constant for names the enum does not
// declare.
var ErrUnknownConstant = errors.New(errors.ErrCodeInvalidInput, "unknown enum constant")

// Enum is a closed set of named constants.
type Enum struct {
	Name   string
	Values []string
}

// NewEnum creates an enum with the given constants.
func NewEnum(name string, values ...string) *Enum {
	return &Enum{Name: name, Values: values}
}

// Constant returns the constant with the given name.
func (e *Enum) Constant(name string) (EnumValue, error) {
	if slices.Contains(e.Values, name) {
		return EnumValue{Enum: e, Name: name}, nil
	}
	return EnumValue{}, errors.Wrap(errors.ErrCodeInvalidInput, ErrUnknownConstant,
		"%s has no constant %q", e.Name, name)
}

// MustConstant is like Constant but panics on unknown names.
func (e *Enum) MustConstant(name string) EnumValue {
	v, err := e.Constant(name)
	if err != nil {
		panic(err)
	}
	return v
}

// EnumValue is one constant of an enum.
type EnumValue struct {
	Enum *Enum
	Name string
}

func (v EnumValue) String() string { return v.Name }

// =============================================================================
// Properties
// =============================================================================

// MetaProperty describes one attribute of a meta-class.
type MetaProperty struct {
	Name string
	Kind RangeKind

	Datatype   string         // codec name, RangeDatatype only
	Enum       *Enum          // RangeEnum only
	Target     *MetaClass     // RangeEntity and RangeCollection
	Collection CollectionKind // RangeCollection, or scalar lists

	Persistent bool
	ReadOnly   bool
	Embedded   bool
}

// IsScalarCollection reports whether the property holds a sequence of scalars.
func (p *MetaProperty) IsScalarCollection() bool {
	return p.Kind == RangeDatatype && p.Collection != NoCollection
}

// IsEmbedded reports whether nested values are embedded rather than
// referenced. Properties targeting an embeddable class are always embedded.
func (p *MetaProperty) IsEmbedded() bool {
	return p.Embedded || (p.Target != nil && p.Target.Embeddable)
}

// =============================================================================
// Classes
// =============================================================================

// IDKind describes how a meta-class identifies its instances.
type IDKind int

const (
	SimpleID IDKind = iota
	GeneratedID
	CompositeID
)

func (k IDKind) String() string {
	switch k {
	case GeneratedID:
		return "generated"
	case CompositeID:
		return "composite"
	default:
		return "simple"
	}
}

// MetaClass is the runtime descriptor of an entity type.
type MetaClass struct {
	Name        string
	Properties  []*MetaProperty // declaration order
	PrimaryKey  string
	IDKind      IDKind
	NaturalID   string // GeneratedID only, optional
	Embeddable  bool
	NamePattern string // e.g. "{name} ({code})"

	byName map[string]*MetaProperty
}

// ClassOption configures a MetaClass.
type ClassOption func(*MetaClass)

// Key sets a simple primary key.
func Key(name string) ClassOption {
	return func(mc *MetaClass) {
		mc.PrimaryKey = name
		mc.IDKind = SimpleID
	}
}

// GeneratedKey sets a database-generated primary key. naturalID names the
// attribute carrying the natural identifier and may be empty.
func GeneratedKey(name, naturalID string) ClassOption {
	return func(mc *MetaClass) {
		mc.PrimaryKey = name
		mc.IDKind = GeneratedID
		mc.NaturalID = naturalID
	}
}

// CompositeKey sets a primary key whose value is an embeddable entity.
func CompositeKey(name string) ClassOption {
	return func(mc *MetaClass) {
		mc.PrimaryKey = name
		mc.IDKind = CompositeID
	}
}

// Embeddable marks the class as having no identity of its own.
func Embeddable() ClassOption {
	return func(mc *MetaClass) { mc.Embeddable = true }
}

// NamePattern sets the instance name pattern.
func NamePattern(p string) ClassOption {
	return func(mc *MetaClass) { mc.NamePattern = p }
}

// NewMetaClass creates an empty meta-class. Properties are added with Add,
// which allows a class to reference itself.
func NewMetaClass(name string, opts ...ClassOption) *MetaClass {
	mc := &MetaClass{Name: name, byName: map[string]*MetaProperty{}}
	for _, opt := range opts {
		opt(mc)
	}
	return mc
}

// Add appends properties in order. A property with an existing name replaces
// the earlier declaration in place.
func (mc *MetaClass) Add(props ...*MetaProperty) *MetaClass {
	if mc.byName == nil {
		mc.byName = map[string]*MetaProperty{}
	}
	for _, p := range props {
		if _, ok := mc.byName[p.Name]; ok {
			for i, existing := range mc.Properties {
				if existing.Name == p.Name {
					mc.Properties[i] = p
				}
			}
		} else {
			mc.Properties = append(mc.Properties, p)
		}
		mc.byName[p.Name] = p
	}
	return mc
}

// Property returns the property with the given name.
func (mc *MetaClass) Property(name string) (*MetaProperty, bool) {
	p, ok := mc.byName[name]
	return p, ok
}

// PrimaryKeyProperty returns the primary-key property, or nil when the class
// has none.
func (mc *MetaClass) PrimaryKeyProperty() *MetaProperty {
	if mc.PrimaryKey == "" {
		return nil
	}
	return mc.byName[mc.PrimaryKey]
}

// NaturalIDProperty returns the natural id property of a class with a
// generated key, or nil.
func (mc *MetaClass) NaturalIDProperty() *MetaProperty {
	if mc.NaturalID == "" {
		return nil
	}
	return mc.byName[mc.NaturalID]
}

func (mc *MetaClass) IsEmbeddable() bool { return mc.Embeddable }

func (mc *MetaClass) HasCompositePrimaryKey() bool { return mc.IDKind == CompositeID }

func (mc *MetaClass) HasDbGeneratedPrimaryKey() bool { return mc.IDKind == GeneratedID }

// ResolvePath resolves a dotted attribute path such as "customer.address.city"
// into the chain of properties it traverses. Every segment but the last must
// be a single-valued entity property.
func (mc *MetaClass) ResolvePath(path string) ([]*MetaProperty, error) {
	if err := errors.ValidatePropertyPath(path); err != nil {
		return nil, err
	}

	segments := strings.Split(path, ".")
	chain := make([]*MetaProperty, 0, len(segments))
	current := mc
	for i, name := range segments {
		if current == nil {
			return nil, errors.New(errors.ErrCodeNotFound, "path %q does not resolve", path).
				WithEntity(mc.Name)
		}
		p, ok := current.Property(name)
		if !ok {
			return nil, errors.New(errors.ErrCodeNotFound, "path %q does not resolve", path).
				WithEntity(mc.Name).WithProperty(name)
		}
		if i < len(segments)-1 && p.Kind != RangeEntity {
			return nil, errors.New(errors.ErrCodeNotFound, "path %q crosses non-entity property", path).
				WithEntity(mc.Name).WithProperty(name)
		}
		chain = append(chain, p)
		current = p.Target
	}
	return chain, nil
}
