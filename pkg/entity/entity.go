// Package entity provides the runtime representation of entities and the
// identity and load-state oracle the serializer consults.
//
// An [Entity] is a mutable, identity-bearing instance of a
// [metadata.MetaClass]. Every attribute is either loaded (it holds a value,
// possibly nil) or unloaded. The distinction matters: the serializer writes
// loaded nils as JSON null and never writes unloaded persistent attributes.
//
// [Dynamic] is a map-backed implementation suitable for schemas loaded at
// runtime. Applications with generated types can implement [Entity] directly.
package entity

import (
	"github.com/matzehuels/entitygraph/pkg/metadata"
)

// Entity is an identity-bearing object described by a meta-class.
type Entity interface {
	MetaClass() *metadata.MetaClass

	// Value returns the attribute value and whether it is loaded.
	Value(name string) (any, bool)

	SetValue(name string, v any)

	// Unset marks the attribute as not loaded.
	Unset(name string)

	SecurityState() *SecurityState
}

// SecurityState is the row-level security state carried with an entity.
// Token is opaque and is serialized when the platform requires it. Erased
// records the attribute values that security filtering removed; it stays in
// memory.
type SecurityState struct {
	Token  []byte
	Erased map[string][]any
}

// GeneratedID holds a database-generated key together with the natural id
// known before the row exists.
type GeneratedID struct {
	Value     any
	NaturalID any
}

// IsZero reports whether neither part of the id is known.
func (g GeneratedID) IsZero() bool { return g.Value == nil && g.NaturalID == nil }

// Dynamic is a map-backed Entity. Instances compare by pointer.
type Dynamic struct {
	mc       *metadata.MetaClass
	values   map[string]any
	isNew    bool
	security *SecurityState
}

// New creates a new entity with every attribute loaded and nil.
func New(mc *metadata.MetaClass) *Dynamic {
	d := &Dynamic{
		mc:     mc,
		values: make(map[string]any, len(mc.Properties)),
		isNew:  true,
	}
	for _, p := range mc.Properties {
		d.values[p.Name] = nil
	}
	return d
}

// Build creates a new entity and assigns the given attributes.
func Build(mc *metadata.MetaClass, values map[string]any) *Dynamic {
	d := New(mc)
	for k, v := range values {
		d.values[k] = v
	}
	return d
}

func (d *Dynamic) MetaClass() *metadata.MetaClass { return d.mc }

func (d *Dynamic) Value(name string) (any, bool) {
	v, ok := d.values[name]
	return v, ok
}

func (d *Dynamic) SetValue(name string, v any) { d.values[name] = v }

func (d *Dynamic) Unset(name string) { delete(d.values, name) }

// SecurityState returns the security state, allocating it on first use.
func (d *Dynamic) SecurityState() *SecurityState {
	if d.security == nil {
		d.security = &SecurityState{}
	}
	return d.security
}

// IsNew reports whether the entity has never been persisted.
func (d *Dynamic) IsNew() bool { return d.isNew }

// MarkDetached clears the new flag, as for an entity read from storage.
func (d *Dynamic) MarkDetached() *Dynamic {
	d.isNew = false
	return d
}

// Loaded returns the names of loaded attributes in declaration order.
func (d *Dynamic) Loaded() []string {
	var out []string
	for _, p := range d.mc.Properties {
		if _, ok := d.values[p.Name]; ok {
			out = append(out, p.Name)
		}
	}
	return out
}

func (d *Dynamic) String() string {
	id := DefaultOracle{}.ID(d)
	if name, err := InstanceName(d); err == nil {
		return d.mc.Name + "[" + name + "]"
	}
	if id == nil {
		return d.mc.Name + "[new]"
	}
	return d.mc.Name + "[" + formatID(id) + "]"
}
