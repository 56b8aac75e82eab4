package serde

import (
	"encoding/base64"
	"sort"
	"strings"

	"github.com/matzehuels/entitygraph/pkg/entity"
	"github.com/matzehuels/entitygraph/pkg/errors"
	"github.com/matzehuels/entitygraph/pkg/metadata"
	"github.com/matzehuels/entitygraph/pkg/observability"
)

// reader reconstructs entity graphs for one top-level call.
type reader struct {
	*Serde
	opts    Option
	tracker *tracker
}

// readEntity reads a JSON object as an entity of its "_entityName" class, or
// of expected when the member is absent. An identity already read in this
// call resolves to the instance created first, and the fields of the current
// object are merged into it.
func (r *reader) readEntity(raw any, expected *metadata.MetaClass) (entity.Entity, error) {
	data, ok := raw.(map[string]any)
	if !ok {
		err := errors.New(errors.ErrCodeDeserialization, "expected JSON object, got %s", jsonKind(raw))
		if expected != nil {
			err.WithEntity(expected.Name)
		}
		return nil, err
	}

	mc, err := r.resolveClass(data, expected)
	if err != nil {
		return nil, err
	}
	if mc.IsEmbeddable() {
		return r.readEmbedded(data, mc)
	}

	e := r.instantiate(mc)
	id, err := r.readID(data, mc)
	if err != nil {
		return nil, err
	}
	if id != nil {
		r.oracle.SetID(e, id)
	}

	if tracked, ok := r.tracker.lookup(mc.Name, id); ok {
		e = tracked
	} else {
		// registered before the fields so that self-references resolve here
		r.tracker.putIfAbsent(mc.Name, id, e)
	}

	if err := r.readToken(data, e); err != nil {
		return nil, err
	}
	if err := r.readFields(data, e, mc); err != nil {
		return nil, err
	}
	return e, nil
}

// readEmbedded reads an entity without identity. Embedded entities are never
// tracked.
func (r *reader) readEmbedded(raw any, mc *metadata.MetaClass) (entity.Entity, error) {
	data, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeDeserialization, "expected JSON object, got %s", jsonKind(raw)).
			WithEntity(mc.Name)
	}

	e := r.instantiate(mc)
	if err := r.readToken(data, e); err != nil {
		return nil, err
	}
	if err := r.readFields(data, e, mc); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *reader) resolveClass(data map[string]any, expected *metadata.MetaClass) (*metadata.MetaClass, error) {
	if name, ok := data[entityNameField].(string); ok && name != "" {
		if r.provider == nil {
			return nil, errors.New(errors.ErrCodeDeserialization, "no metadata provider to resolve class").
				WithEntity(name)
		}
		mc, err := r.provider.MetaClass(name)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDeserialization, err, "unresolved meta-class").WithEntity(name)
		}
		return mc, nil
	}
	if expected != nil {
		return expected, nil
	}
	return nil, errors.New(errors.ErrCodeDeserialization, "cannot resolve meta-class: no %s member and no expected class",
		entityNameField)
}

// instantiate creates an entity whose attributes are all unloaded except the
// primary key and the natural id.
func (r *reader) instantiate(mc *metadata.MetaClass) entity.Entity {
	e := r.factory(mc)
	for _, p := range mc.Properties {
		if p.Name == mc.PrimaryKey || (mc.NaturalID != "" && p.Name == mc.NaturalID) {
			continue
		}
		e.Unset(p.Name)
	}
	return e
}

// readID resolves the identity of data. It returns nil for documents without
// an id (new entities).
func (r *reader) readID(data map[string]any, mc *metadata.MetaClass) (any, error) {
	pk := mc.PrimaryKeyProperty()
	if pk == nil {
		return nil, errors.New(errors.ErrCodeDeserialization, "meta-class has no primary key").WithEntity(mc.Name)
	}

	raw, present := data[idField]
	if !present && pk.Name != idField {
		raw, present = data[pk.Name]
	}

	switch {
	case mc.HasCompositePrimaryKey():
		if !present || raw == nil {
			return nil, nil
		}
		key, err := r.readEmbedded(raw, pk.Target)
		if err != nil {
			return nil, err
		}
		return key, nil

	case mc.HasDbGeneratedPrimaryKey():
		var value, natural any
		if present && raw != nil {
			v, err := r.parseScalar(mc, pk, raw)
			if err != nil {
				return nil, err
			}
			value = v
		}
		if np := mc.NaturalIDProperty(); np != nil {
			if nraw, ok := data[np.Name]; ok && nraw != nil {
				v, err := r.parseScalar(mc, np, nraw)
				if err != nil {
					return nil, err
				}
				natural = v
			}
		}
		if value == nil && natural == nil {
			return nil, nil
		}
		return entity.GeneratedID{Value: value, NaturalID: natural}, nil

	default:
		if !present || raw == nil {
			return nil, nil
		}
		return r.parseScalar(mc, pk, raw)
	}
}

func (r *reader) readToken(data map[string]any, e entity.Entity) error {
	if !r.securityTokens {
		return nil
	}
	raw, ok := data[securityTokenField]
	if !ok || raw == nil {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		return errors.New(errors.ErrCodeDeserialization, "security token must be a string").
			WithEntity(e.MetaClass().Name)
	}
	token, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDeserialization, err, "decode security token").
			WithEntity(e.MetaClass().Name)
	}
	e.SecurityState().Token = token
	return nil
}

// fieldOrder lists the members of data: declared properties first, in
// declaration order, then the remaining names sorted. Dotted paths therefore
// run after the properties they traverse.
func fieldOrder(data map[string]any, mc *metadata.MetaClass) []string {
	keys := make([]string, 0, len(data))
	declared := make(map[string]bool, len(mc.Properties))
	for _, p := range mc.Properties {
		if _, ok := data[p.Name]; ok {
			keys = append(keys, p.Name)
			declared[p.Name] = true
		}
	}
	var rest []string
	for k := range data {
		if !declared[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func (r *reader) readFields(data map[string]any, e entity.Entity, mc *metadata.MetaClass) error {
	pkName := mc.PrimaryKey
	for _, key := range fieldOrder(data, mc) {
		switch key {
		case entityNameField, instanceNameField, idField, securityTokenField:
			continue
		}
		if key == pkName {
			continue
		}

		target, p, ok := r.resolveField(e, mc, key)
		if !ok {
			continue
		}
		if err := r.readField(target, p, data[key]); err != nil {
			return err
		}
	}
	return nil
}

// resolveField maps a member name to the entity and property it writes.
// Dotted names walk loaded nested entities.
func (r *reader) resolveField(e entity.Entity, mc *metadata.MetaClass, key string) (entity.Entity, *metadata.MetaProperty, bool) {
	if !strings.Contains(key, ".") {
		p, ok := mc.Property(key)
		if !ok {
			r.unknownField(mc, key)
			return nil, nil, false
		}
		return e, p, true
	}

	chain, err := mc.ResolvePath(key)
	if err != nil {
		r.unknownField(mc, key)
		return nil, nil, false
	}
	target := e
	for _, p := range chain[:len(chain)-1] {
		v, loaded := target.Value(p.Name)
		next, ok := v.(entity.Entity)
		if !loaded || !ok || isNil(next) {
			r.logger.Debug("path not loaded, skipping", "entity", mc.Name, "field", key, "at", p.Name)
			return nil, nil, false
		}
		target = next
	}
	return target, chain[len(chain)-1], true
}

func (r *reader) unknownField(mc *metadata.MetaClass, key string) {
	r.logger.Warn("unknown field", "entity", mc.Name, "field", key)
	observability.Serde().OnUnknownField(mc.Name, key)
}

// readField assigns one member. JSON null clears the attribute even when it
// is read-only; other values never touch read-only attributes.
func (r *reader) readField(e entity.Entity, p *metadata.MetaProperty, raw any) error {
	if raw == nil {
		e.SetValue(p.Name, nil)
		return nil
	}
	if p.ReadOnly {
		return nil
	}
	v, err := r.readValue(e.MetaClass(), p, raw)
	if err != nil {
		return err
	}
	e.SetValue(p.Name, v)
	return nil
}

func (r *reader) readValue(mc *metadata.MetaClass, p *metadata.MetaProperty, raw any) (any, error) {
	switch p.Kind {
	case metadata.RangeDatatype:
		if !p.IsScalarCollection() {
			return r.parseScalar(mc, p, raw)
		}
		items, ok := raw.([]any)
		if !ok {
			return nil, errors.New(errors.ErrCodeDeserialization, "expected JSON array, got %s", jsonKind(raw)).
				WithEntity(mc.Name).WithProperty(p.Name)
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			if item == nil {
				out = append(out, nil)
				continue
			}
			v, err := r.parseScalar(mc, p, item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil

	case metadata.RangeEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, errors.New(errors.ErrCodeDeserialization, "enum %s expects a string", p.Enum.Name).
				WithEntity(mc.Name).WithProperty(p.Name).WithValue(raw)
		}
		v, err := p.Enum.Constant(s)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDeserialization, err, "no constant %q in enum %s", s, p.Enum.Name).
				WithEntity(mc.Name).WithProperty(p.Name).WithValue(s)
		}
		return v, nil

	case metadata.RangeEntity:
		return r.readNested(p, raw)

	case metadata.RangeCollection:
		return r.readCollection(mc, p, raw)
	}

	return nil, errors.New(errors.ErrCodeDeserialization, "unknown range %s", p.Kind).
		WithEntity(mc.Name).WithProperty(p.Name)
}

func (r *reader) readNested(p *metadata.MetaProperty, raw any) (entity.Entity, error) {
	if p.IsEmbedded() {
		return r.readEmbedded(raw, p.Target)
	}
	return r.readEntity(raw, p.Target)
}

func (r *reader) readCollection(mc *metadata.MetaClass, p *metadata.MetaProperty, raw any) (any, error) {
	if p.Collection != metadata.List && p.Collection != metadata.Set {
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported collection kind %q", p.Collection.String()).
			WithEntity(mc.Name).WithProperty(p.Name)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeDeserialization, "expected JSON array, got %s", jsonKind(raw)).
			WithEntity(mc.Name).WithProperty(p.Name)
	}

	entities := make([]entity.Entity, 0, len(items))
	for i, item := range items {
		if item == nil {
			return nil, errors.New(errors.ErrCodeDeserialization, "null element at index %d", i).
				WithEntity(mc.Name).WithProperty(p.Name)
		}
		e, err := r.readNested(p, item)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}

	if p.Collection == metadata.Set {
		return entity.NewSet(entities...), nil
	}
	return entities, nil
}

func (r *reader) parseScalar(mc *metadata.MetaClass, p *metadata.MetaProperty, raw any) (any, error) {
	dt, err := r.datatypes.Get(p.Datatype)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDeserialization, err, "no codec").
			WithEntity(mc.Name).WithProperty(p.Name)
	}
	v, err := dt.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDeserialization, err, "parse %s", p.Datatype).
			WithEntity(mc.Name).WithProperty(p.Name).WithValue(raw)
	}
	return v, nil
}
