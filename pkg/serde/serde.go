package serde

import (
	"reflect"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/entitygraph/pkg/datatype"
	"github.com/matzehuels/entitygraph/pkg/entity"
	"github.com/matzehuels/entitygraph/pkg/errors"
	"github.com/matzehuels/entitygraph/pkg/fetchplan"
	"github.com/matzehuels/entitygraph/pkg/metadata"
	"github.com/matzehuels/entitygraph/pkg/observability"
)

// Reserved member names of the entity wire format.
const (
	entityNameField    = "_entityName"
	instanceNameField  = "_instanceName"
	idField            = "id"
	securityTokenField = "__securityToken"
)

// Provider resolves meta-classes by name. *metadata.Registry implements it.
type Provider interface {
	MetaClass(name string) (*metadata.MetaClass, error)
}

// Config configures a Serde. Zero values select the defaults.
type Config struct {
	Provider  Provider
	Datatypes *datatype.Registry // default: built-in datatypes
	Oracle    entity.Oracle      // default: entity.DefaultOracle

	// Factory instantiates entities while reading. Default: entity.New.
	Factory func(*metadata.MetaClass) entity.Entity

	Logger *log.Logger // default: log.Default()

	// SecurityTokens enables the "__securityToken" member.
	SecurityTokens bool
}

// Serde converts entity graphs to and from JSON. It holds no per-call state
// and is safe for concurrent use.
type Serde struct {
	provider       Provider
	datatypes      *datatype.Registry
	oracle         entity.Oracle
	factory        func(*metadata.MetaClass) entity.Entity
	logger         *log.Logger
	securityTokens bool
}

// New creates a Serde from cfg.
func New(cfg Config) *Serde {
	s := &Serde{
		provider:       cfg.Provider,
		datatypes:      cfg.Datatypes,
		oracle:         cfg.Oracle,
		factory:        cfg.Factory,
		logger:         cfg.Logger,
		securityTokens: cfg.SecurityTokens,
	}
	if s.datatypes == nil {
		s.datatypes = datatype.NewRegistry()
	}
	if s.oracle == nil {
		s.oracle = entity.DefaultOracle{}
	}
	if s.factory == nil {
		s.factory = func(mc *metadata.MetaClass) entity.Entity { return entity.New(mc) }
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

func (s *Serde) newWriter(opts []Option) *writer {
	return &writer{Serde: s, opts: combine(opts), tracker: newTracker()}
}

func (s *Serde) newReader(opts []Option) *reader {
	return &reader{Serde: s, opts: combine(opts), tracker: newTracker()}
}

// =============================================================================
// Serialization
// =============================================================================

// EntityToJSON serializes one entity graph. A nil plan writes every eligible
// attribute.
func (s *Serde) EntityToJSON(e entity.Entity, plan *fetchplan.FetchPlan, opts ...Option) (data []byte, err error) {
	start := time.Now()
	defer func() {
		observability.Serde().OnSerialize("entity", 1, len(data), time.Since(start), err)
	}()

	if isNil(e) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil entity")
	}
	w := s.newWriter(opts)
	tree, err := w.writeEntity(e, plan, nil)
	if err != nil {
		return nil, err
	}
	return w.render(tree)
}

// EntitiesToJSON serializes a collection as a JSON array. All elements share
// one reference tracker.
func (s *Serde) EntitiesToJSON(es []entity.Entity, plan *fetchplan.FetchPlan, opts ...Option) (data []byte, err error) {
	start := time.Now()
	defer func() {
		observability.Serde().OnSerialize("entities", len(es), len(data), time.Since(start), err)
	}()

	w := s.newWriter(opts)
	out := make(array, 0, len(es))
	for i, e := range es {
		if isNil(e) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "nil entity at index %d", i)
		}
		tree, err := w.writeEntity(e, plan, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, tree)
	}
	return w.render(out)
}

// ObjectToJSON serializes an arbitrary value. Entities found anywhere inside
// it are written with the entity format; everything else follows go-json
// struct tags.
func (s *Serde) ObjectToJSON(v any, opts ...Option) (data []byte, err error) {
	start := time.Now()
	defer func() {
		observability.Serde().OnSerialize("object", 1, len(data), time.Since(start), err)
	}()

	w := s.newWriter(opts)
	tree, err := w.writeObject(reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	return w.render(tree)
}

func (w *writer) render(tree any) ([]byte, error) {
	data, err := render(tree, w.opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSerialization, err, "encode json")
	}
	return data, nil
}

// =============================================================================
// Deserialization
// =============================================================================

// EntityFromJSON reads one entity. mc is used when the document carries no
// "_entityName" and may be nil otherwise.
func (s *Serde) EntityFromJSON(data []byte, mc *metadata.MetaClass, opts ...Option) (e entity.Entity, err error) {
	start := time.Now()
	defer func() {
		observability.Serde().OnDeserialize("entity", 1, time.Since(start), err)
	}()

	doc, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	return s.newReader(opts).readEntity(doc, mc)
}

// EntitiesFromJSON reads a JSON array of entities. Repeated identities across
// elements resolve to one instance.
func (s *Serde) EntitiesFromJSON(data []byte, mc *metadata.MetaClass, opts ...Option) (es []entity.Entity, err error) {
	start := time.Now()
	defer func() {
		observability.Serde().OnDeserialize("entities", len(es), time.Since(start), err)
	}()

	doc, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeDeserialization, "expected JSON array, got %s", jsonKind(doc))
	}

	r := s.newReader(opts)
	out := make([]entity.Entity, 0, len(items))
	for _, item := range items {
		e, err := r.readEntity(item, mc)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// ObjectFromJSON decodes data into target, which must be a non-nil pointer.
// Fields of type entity.Entity, []entity.Entity or *entity.Set are read with
// the entity format; a struct tag `entity:"Name"` names the expected
// meta-class. Other fields are decoded by go-json.
func (s *Serde) ObjectFromJSON(data []byte, target any, opts ...Option) (err error) {
	start := time.Now()
	defer func() {
		observability.Serde().OnDeserialize("object", 1, time.Since(start), err)
	}()

	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New(errors.ErrCodeInvalidInput, "target must be a non-nil pointer, got %T", target)
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return err
	}
	return s.newReader(opts).assign(rv.Elem(), doc, "")
}

func decodeDocument(data []byte) (any, error) {
	doc, err := decode(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDeserialization, err, "malformed json")
	}
	return doc, nil
}

// isNil reports whether v is nil or a typed nil pointer, map, slice or
// interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return "number"
	}
}
