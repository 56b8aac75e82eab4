package metadata

import (
	"sort"
	"sync"

	"github.com/matzehuels/entitygraph/pkg/errors"
	"github.com/matzehuels/entitygraph/pkg/fetchplan"
)

// SerializationConfig carries the platform flags and default options declared
// by a schema.
type SerializationConfig struct {
	SecurityTokens bool
	Options        []string
}

// Registry holds the meta-classes, enums and named fetch plans of one model.
// It is safe for concurrent reads once populated.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*MetaClass
	order   []string
	enums   map[string]*Enum
	plans   map[planKey]*fetchplan.FetchPlan

	Serialization SerializationConfig
}

type planKey struct{ entity, name string }

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		classes: map[string]*MetaClass{},
		enums:   map[string]*Enum{},
		plans:   map[planKey]*fetchplan.FetchPlan{},
	}
}

// Define registers meta-classes. Names must be valid and unique.
func (r *Registry) Define(classes ...*MetaClass) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mc := range classes {
		if err := errors.ValidateEntityName(mc.Name); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidMetadata, err, "define class")
		}
		if _, exists := r.classes[mc.Name]; exists {
			return errors.New(errors.ErrCodeInvalidMetadata, "class already defined").WithEntity(mc.Name)
		}
		r.classes[mc.Name] = mc
		r.order = append(r.order, mc.Name)
	}
	return nil
}

// DefineEnum registers enums.
func (r *Registry) DefineEnum(enums ...*Enum) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range enums {
		if err := errors.ValidateEntityName(e.Name); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidMetadata, err, "define enum")
		}
		if _, exists := r.enums[e.Name]; exists {
			return errors.New(errors.ErrCodeInvalidMetadata, "enum %q already defined", e.Name)
		}
		for _, v := range e.Values {
			if err := errors.ValidateEnumConstant(v); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidMetadata, err, "enum %q", e.Name)
			}
		}
		r.enums[e.Name] = e
	}
	return nil
}

// DefineFetchPlan registers a named plan for its entity.
func (r *Registry) DefineFetchPlan(p *fetchplan.FetchPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := planKey{p.Entity, p.Name}
	if _, exists := r.plans[key]; exists {
		return errors.New(errors.ErrCodeInvalidMetadata, "fetch plan %q already defined", p.Name).WithEntity(p.Entity)
	}
	r.plans[key] = p
	return nil
}

// MetaClass returns the class registered under name.
func (r *Registry) MetaClass(name string) (*MetaClass, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mc, ok := r.classes[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidMetadata, "unknown meta-class").WithEntity(name)
	}
	return mc, nil
}

// Enum returns the enum registered under name.
func (r *Registry) Enum(name string) (*Enum, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.enums[name]
	return e, ok
}

// FetchPlan returns the named plan of an entity.
func (r *Registry) FetchPlan(entity, name string) (*fetchplan.FetchPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plans[planKey{entity, name}]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "unknown fetch plan %q", name).WithEntity(entity)
	}
	return p, nil
}

// Classes returns all classes in definition order.
func (r *Registry) Classes() []*MetaClass {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*MetaClass, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.classes[name])
	}
	return out
}

// Enums returns all enums sorted by name.
func (r *Registry) Enums() []*Enum {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Enum, 0, len(r.enums))
	for _, e := range r.enums {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FetchPlans returns all named plans sorted by entity, then name.
func (r *Registry) FetchPlans() []*fetchplan.FetchPlan {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*fetchplan.FetchPlan, 0, len(r.plans))
	for _, p := range r.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Entity != out[j].Entity {
			return out[i].Entity < out[j].Entity
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Validate checks the consistency of every registered class: property names,
// key declarations, and that enum and entity references point at registered
// descriptors.
func (r *Registry) Validate() error {
	for _, mc := range r.Classes() {
		if err := r.validateClass(mc); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) validateClass(mc *MetaClass) error {
	for _, p := range mc.Properties {
		if err := errors.ValidatePropertyName(p.Name); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidMetadata, err, "invalid property").
				WithEntity(mc.Name).WithProperty(p.Name)
		}
		switch p.Kind {
		case RangeDatatype:
			if p.Datatype == "" {
				return errors.New(errors.ErrCodeInvalidMetadata, "datatype property without datatype").
					WithEntity(mc.Name).WithProperty(p.Name)
			}
		case RangeEnum:
			if p.Enum == nil {
				return errors.New(errors.ErrCodeInvalidMetadata, "enum property without enum").
					WithEntity(mc.Name).WithProperty(p.Name)
			}
			if _, ok := r.Enum(p.Enum.Name); !ok {
				return errors.New(errors.ErrCodeInvalidMetadata, "enum %q is not registered", p.Enum.Name).
					WithEntity(mc.Name).WithProperty(p.Name)
			}
		case RangeEntity, RangeCollection:
			if p.Target == nil {
				return errors.New(errors.ErrCodeInvalidMetadata, "entity property without target").
					WithEntity(mc.Name).WithProperty(p.Name)
			}
			if _, err := r.MetaClass(p.Target.Name); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidMetadata, err, "unregistered target %q", p.Target.Name).
					WithEntity(mc.Name).WithProperty(p.Name)
			}
		}
	}

	if mc.Embeddable {
		return nil
	}

	pk := mc.PrimaryKeyProperty()
	if pk == nil {
		return errors.New(errors.ErrCodeInvalidMetadata, "class has no primary key").WithEntity(mc.Name)
	}
	switch mc.IDKind {
	case CompositeID:
		if pk.Kind != RangeEntity || pk.Target == nil || !pk.Target.Embeddable {
			return errors.New(errors.ErrCodeInvalidMetadata, "composite key must reference an embeddable class").
				WithEntity(mc.Name).WithProperty(pk.Name)
		}
	default:
		if pk.Kind != RangeDatatype || pk.IsScalarCollection() {
			return errors.New(errors.ErrCodeInvalidMetadata, "primary key must be a scalar").
				WithEntity(mc.Name).WithProperty(pk.Name)
		}
	}
	if mc.NaturalID != "" && mc.NaturalIDProperty() == nil {
		return errors.New(errors.ErrCodeInvalidMetadata, "natural id property is not declared").
			WithEntity(mc.Name).WithProperty(mc.NaturalID)
	}
	return nil
}
