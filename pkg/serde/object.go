package serde

import (
	"encoding"
	"reflect"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/matzehuels/entitygraph/pkg/entity"
	"github.com/matzehuels/entitygraph/pkg/errors"
	"github.com/matzehuels/entitygraph/pkg/metadata"
)

var (
	entityType        = reflect.TypeOf((*entity.Entity)(nil)).Elem()
	setType           = reflect.TypeOf((*entity.Set)(nil))
	marshalerType     = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// =============================================================================
// Writing
// =============================================================================

// writeObject converts an arbitrary value into the output tree. Entities are
// written in entity format and share the call's tracker; types with their own
// JSON encoding are left to go-json.
func (w *writer) writeObject(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
	}

	t := v.Type()
	switch {
	case t == setType:
		return w.writeEntities(v.Interface().(*entity.Set).Items())
	case t.Implements(entityType):
		obj, err := w.writeEntity(v.Interface().(entity.Entity), nil, nil)
		if err != nil {
			return nil, err
		}
		return obj, nil
	case v.Kind() == reflect.Interface:
		return w.writeObject(v.Elem())
	case t.Implements(marshalerType), t.Implements(textMarshalerType):
		return v.Interface(), nil
	}

	switch v.Kind() {
	case reflect.Pointer:
		return w.writeObject(v.Elem())
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return v.Interface(), nil
		}
		return w.writeMap(v)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return v.Interface(), nil
		}
		return w.writeSequence(v)
	case reflect.Array:
		return w.writeSequence(v)
	case reflect.Struct:
		obj := &object{}
		if err := w.writeStruct(obj, v); err != nil {
			return nil, err
		}
		return obj, nil
	}
	return v.Interface(), nil
}

func (w *writer) writeEntities(items []entity.Entity) (any, error) {
	out := make(array, 0, len(items))
	for _, e := range items {
		obj, err := w.writeEntity(e, nil, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

func (w *writer) writeSequence(v reflect.Value) (any, error) {
	out := make(array, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		item, err := w.writeObject(v.Index(i))
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// writeMap writes string-keyed maps with sorted keys, as go-json does.
func (w *writer) writeMap(v reflect.Value) (any, error) {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	obj := &object{}
	for _, k := range keys {
		val := v.MapIndex(k)
		if isNilValue(val) && !w.opts.Has(SerializeNulls) {
			continue
		}
		out, err := w.writeObject(val)
		if err != nil {
			return nil, err
		}
		obj.set(k.String(), out)
	}
	return obj, nil
}

func (w *writer) writeStruct(obj *object, v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, omitEmpty, skip := jsonField(f)
		if skip {
			continue
		}
		fv := v.Field(i)

		if f.Anonymous && f.Tag.Get("json") == "" && fv.Kind() == reflect.Struct {
			if err := w.writeStruct(obj, fv); err != nil {
				return err
			}
			continue
		}
		if omitEmpty && fv.IsZero() {
			continue
		}
		if isNilValue(fv) && !w.opts.Has(SerializeNulls) {
			continue
		}

		out, err := w.writeObject(fv)
		if err != nil {
			return err
		}
		obj.set(name, out)
	}
	return nil
}

func jsonField(f reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	return name, strings.Contains(opts, "omitempty"), false
}

func isNilValue(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// =============================================================================
// Reading
// =============================================================================

// assign stores raw into rv. tag is the `entity` struct tag of the enclosing
// field and names the expected meta-class of entities below it.
func (r *reader) assign(rv reflect.Value, raw any, tag string) error {
	t := rv.Type()
	if !containsEntity(t) {
		return r.remarshal(rv, raw)
	}
	if raw == nil {
		rv.Set(reflect.Zero(t))
		return nil
	}

	switch {
	case t == entityType, t.Kind() == reflect.Pointer && t.Implements(entityType):
		expected, err := r.expectedClass(tag)
		if err != nil {
			return err
		}
		e, err := r.readEntity(raw, expected)
		if err != nil {
			return err
		}
		ev := reflect.ValueOf(e)
		if !ev.Type().AssignableTo(t) {
			return errors.New(errors.ErrCodeDeserialization, "cannot assign %T to %s", e, t).
				WithEntity(e.MetaClass().Name)
		}
		rv.Set(ev)
		return nil

	case t == setType:
		items, err := r.entityItems(raw, tag)
		if err != nil {
			return err
		}
		rv.Set(reflect.ValueOf(entity.NewSet(items...)))
		return nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			rv.Set(reflect.New(t.Elem()))
		}
		return r.assign(rv.Elem(), raw, tag)

	case reflect.Slice, reflect.Array:
		items, ok := raw.([]any)
		if !ok {
			return errors.New(errors.ErrCodeDeserialization, "expected JSON array for %s, got %s", t, jsonKind(raw))
		}
		seq := rv
		if t.Kind() == reflect.Slice {
			seq = reflect.MakeSlice(t, len(items), len(items))
		}
		for i, item := range items {
			if i >= seq.Len() {
				break
			}
			if err := r.assign(seq.Index(i), item, tag); err != nil {
				return err
			}
		}
		rv.Set(seq)
		return nil

	case reflect.Map:
		members, ok := raw.(map[string]any)
		if !ok || t.Key().Kind() != reflect.String {
			return errors.New(errors.ErrCodeDeserialization, "expected JSON object for %s, got %s", t, jsonKind(raw))
		}
		m := reflect.MakeMapWithSize(t, len(members))
		for k, item := range members {
			ev := reflect.New(t.Elem()).Elem()
			if err := r.assign(ev, item, tag); err != nil {
				return err
			}
			m.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), ev)
		}
		rv.Set(m)
		return nil

	case reflect.Struct:
		members, ok := raw.(map[string]any)
		if !ok {
			return errors.New(errors.ErrCodeDeserialization, "expected JSON object for %s, got %s", t, jsonKind(raw))
		}
		return r.assignStruct(rv, members)
	}

	return r.remarshal(rv, raw)
}

func (r *reader) assignStruct(rv reflect.Value, members map[string]any) error {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, skip := jsonField(f)
		if skip {
			continue
		}
		fv := rv.Field(i)

		if f.Anonymous && f.Tag.Get("json") == "" && fv.Kind() == reflect.Struct {
			if err := r.assignStruct(fv, members); err != nil {
				return err
			}
			continue
		}

		raw, ok := lookupMember(members, name)
		if !ok {
			continue
		}
		if err := r.assign(fv, raw, f.Tag.Get("entity")); err != nil {
			return err
		}
	}
	return nil
}

// lookupMember prefers an exact match and falls back to a case-insensitive
// one, as go-json does.
func lookupMember(members map[string]any, name string) (any, bool) {
	if v, ok := members[name]; ok {
		return v, true
	}
	for k, v := range members {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

func (r *reader) entityItems(raw any, tag string) ([]entity.Entity, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeDeserialization, "expected JSON array, got %s", jsonKind(raw))
	}
	expected, err := r.expectedClass(tag)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Entity, 0, len(items))
	for _, item := range items {
		e, err := r.readEntity(item, expected)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *reader) expectedClass(tag string) (*metadata.MetaClass, error) {
	if tag == "" {
		return nil, nil
	}
	if r.provider == nil {
		return nil, errors.New(errors.ErrCodeDeserialization, "no metadata provider to resolve class").WithEntity(tag)
	}
	mc, err := r.provider.MetaClass(tag)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDeserialization, err, "unresolved meta-class").WithEntity(tag)
	}
	return mc, nil
}

// remarshal hands a value without entities to go-json.
func (r *reader) remarshal(rv reflect.Value, raw any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDeserialization, err, "re-encode %s", rv.Type())
	}
	if err := json.Unmarshal(data, rv.Addr().Interface()); err != nil {
		return errors.Wrap(errors.ErrCodeDeserialization, err, "decode %s", rv.Type())
	}
	return nil
}

// containsEntity reports whether values of t can hold entities.
func containsEntity(t reflect.Type) bool {
	return containsEntityType(t, map[reflect.Type]bool{})
}

func containsEntityType(t reflect.Type, seen map[reflect.Type]bool) bool {
	if t == entityType || t == setType {
		return true
	}
	if t.Kind() == reflect.Pointer && t.Implements(entityType) {
		return true
	}
	if seen[t] {
		return false
	}
	seen[t] = true

	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
		return containsEntityType(t.Elem(), seen)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.IsExported() && containsEntityType(f.Type, seen) {
				return true
			}
		}
	}
	return false
}
