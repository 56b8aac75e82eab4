package serde

import (
	"encoding/base64"
	"fmt"
	"reflect"

	"github.com/matzehuels/entitygraph/pkg/entity"
	"github.com/matzehuels/entitygraph/pkg/errors"
	"github.com/matzehuels/entitygraph/pkg/fetchplan"
	"github.com/matzehuels/entitygraph/pkg/metadata"
)

// writer serializes entity graphs for one top-level call.
type writer struct {
	*Serde
	opts    Option
	tracker *tracker
}

// writeEntity writes e as an object. Non-embeddable entities get the
// "_entityName" / "id" header; a repeated entity (an ancestor in default mode,
// any earlier occurrence in compact mode) gets only the header.
func (w *writer) writeEntity(e entity.Entity, plan *fetchplan.FetchPlan, visited *path) (*object, error) {
	mc := e.MetaClass()
	obj := &object{}

	if mc.IsEmbeddable() {
		if err := w.writeBody(obj, e, mc, plan, visited); err != nil {
			return nil, err
		}
		return obj, nil
	}

	pk := mc.PrimaryKeyProperty()
	if pk == nil {
		return nil, errors.New(errors.ErrCodeSerialization, "meta-class has no primary key").WithEntity(mc.Name)
	}
	id := w.oracle.ID(e)

	obj.set(entityNameField, mc.Name)
	if w.opts.Has(SerializeInstanceName) {
		obj.set(instanceNameField, w.instanceName(e))
	}
	idValue, err := w.writeID(e, pk, id, visited)
	if err != nil {
		return nil, err
	}
	obj.set(idField, idValue)

	if w.opts.Has(CompactRepeatedEntities) {
		if !w.tracker.firstVisit(mc.Name, id, e) {
			return obj, nil
		}
	} else {
		if visited.contains(e, id) {
			return obj, nil
		}
		visited = visited.with(e, id)
	}

	if w.securityTokens {
		if st := e.SecurityState(); st != nil && st.Token != nil {
			obj.set(securityTokenField, base64.StdEncoding.EncodeToString(st.Token))
		}
	}

	if err := w.writeBody(obj, e, mc, plan, visited); err != nil {
		return nil, err
	}
	return obj, nil
}

// writeID renders the identity. A composite key is written as the body of
// its embeddable key entity.
func (w *writer) writeID(e entity.Entity, pk *metadata.MetaProperty, id any, visited *path) (any, error) {
	mc := e.MetaClass()
	if g, ok := id.(entity.GeneratedID); ok {
		id = g.Value
	}
	if isNil(id) {
		return nil, nil
	}

	if mc.HasCompositePrimaryKey() {
		key, ok := id.(entity.Entity)
		if !ok {
			return nil, errors.New(errors.ErrCodeSerialization, "composite key is not an entity").
				WithEntity(mc.Name).WithProperty(pk.Name).WithValue(id)
		}
		return w.writeEntity(key, nil, visited)
	}
	return w.formatScalar(mc, pk, id)
}

func (w *writer) writeBody(obj *object, e entity.Entity, mc *metadata.MetaClass, plan *fetchplan.FetchPlan, visited *path) error {
	for _, p := range mc.Properties {
		if !w.writeAllowed(e, mc, p, plan) {
			continue
		}
		v, _ := e.Value(p.Name)
		if isNil(v) {
			// entity nulls are always written, independent of SerializeNulls
			obj.set(p.Name, nil)
			continue
		}
		out, err := w.writeValue(e, p, v, plan.Nested(p.Name), visited)
		if err != nil {
			return err
		}
		obj.set(p.Name, out)
	}
	return nil
}

// writeAllowed decides whether attribute p of e takes part in the output.
// Persistent attributes are written only when the oracle reports them loaded,
// whether or not e is new.
func (w *writer) writeAllowed(e entity.Entity, mc *metadata.MetaClass, p *metadata.MetaProperty, plan *fetchplan.FetchPlan) bool {
	if p.Name == mc.PrimaryKey {
		return false
	}
	if !plan.Has(p.Name) {
		return false
	}
	if !p.Persistent {
		return !p.ReadOnly || !w.opts.Has(DoNotSerializeRONonPersistentProperties)
	}
	return w.oracle.IsLoaded(e, p.Name)
}

func (w *writer) writeValue(e entity.Entity, p *metadata.MetaProperty, v any, nested *fetchplan.FetchPlan, visited *path) (any, error) {
	mc := e.MetaClass()

	switch p.Kind {
	case metadata.RangeDatatype:
		if p.IsScalarCollection() {
			return w.formatScalars(mc, p, v)
		}
		return w.formatScalar(mc, p, v)

	case metadata.RangeEnum:
		switch t := v.(type) {
		case metadata.EnumValue:
			return t.Name, nil
		case string:
			return t, nil
		case fmt.Stringer:
			return t.String(), nil
		}
		return nil, errors.New(errors.ErrCodeSerialization, "enum value of type %T", v).
			WithEntity(mc.Name).WithProperty(p.Name).WithValue(v)

	case metadata.RangeEntity:
		ref, ok := v.(entity.Entity)
		if !ok {
			return nil, errors.New(errors.ErrCodeSerialization, "value of type %T is not an entity", v).
				WithEntity(mc.Name).WithProperty(p.Name)
		}
		return w.writeEntity(ref, nested, visited)

	case metadata.RangeCollection:
		items, err := collectionItems(v)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeSerialization, err, "invalid collection").
				WithEntity(mc.Name).WithProperty(p.Name)
		}
		out := make(array, 0, len(items))
		for _, item := range items {
			obj, err := w.writeEntity(item, nested, visited)
			if err != nil {
				return nil, err
			}
			out = append(out, obj)
		}
		return out, nil
	}

	return nil, errors.New(errors.ErrCodeSerialization, "unknown range %s", p.Kind).
		WithEntity(mc.Name).WithProperty(p.Name)
}

func (w *writer) formatScalar(mc *metadata.MetaClass, p *metadata.MetaProperty, v any) (any, error) {
	dt, err := w.datatypes.Get(p.Datatype)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSerialization, err, "no codec").
			WithEntity(mc.Name).WithProperty(p.Name)
	}
	out, err := dt.Format(v)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSerialization, err, "format %s", p.Datatype).
			WithEntity(mc.Name).WithProperty(p.Name).WithValue(v)
	}
	return out, nil
}

func (w *writer) formatScalars(mc *metadata.MetaClass, p *metadata.MetaProperty, v any) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errors.New(errors.ErrCodeSerialization, "expected a sequence, got %T", v).
			WithEntity(mc.Name).WithProperty(p.Name)
	}
	out := make(array, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		item := rv.Index(i).Interface()
		if isNil(item) {
			out = append(out, nil)
			continue
		}
		f, err := w.formatScalar(mc, p, item)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// collectionItems flattens a collection value. Every element must be a
// non-nil entity.
func collectionItems(v any) ([]entity.Entity, error) {
	if set, ok := v.(*entity.Set); ok {
		return set.Items(), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errors.New(errors.ErrCodeSerialization, "expected a collection, got %T", v)
	}
	items := make([]entity.Entity, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		el := rv.Index(i).Interface()
		e, ok := el.(entity.Entity)
		if !ok || isNil(e) {
			return nil, errors.New(errors.ErrCodeSerialization, "element %d is not an entity", i).WithValue(el)
		}
		items = append(items, e)
	}
	return items, nil
}

// instanceName computes the display name, yielding null on any failure.
func (w *writer) instanceName(e entity.Entity) (name any) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Debug("instance name panicked", "entity", e.MetaClass().Name, "panic", r)
			name = nil
		}
	}()

	s, err := entity.InstanceName(e)
	if err != nil {
		w.logger.Debug("instance name unavailable", "entity", e.MetaClass().Name, "err", err)
		return nil
	}
	return s
}
