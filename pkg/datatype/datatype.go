// Package datatype provides the scalar codecs used by the entity serializer.
//
// A [Datatype] converts between a Go value stored on an entity and a JSON
// literal. Format produces a JSON primitive: numbers and booleans stay native
// (int64, float64, bool), everything else becomes a string. Parse accepts what
// the decoder yields for a literal: string, json.Number or bool.
//
// # Built-in Datatypes
//
//	Name       Go value           JSON
//	string     string             "text"
//	boolean    bool               true
//	int        int                42
//	long       int64              42
//	double     float64            4.2
//	decimal    decimal.Decimal    "9.99"
//	date       time.Time          "2024-01-31"
//	dateTime   time.Time          "2024-01-31 13:45:00.000" (UTC)
//	time       time.Time          "13:45:00"
//	uuid       uuid.UUID          "123e4567-e89b-12d3-a456-426614174000"
//	byteArray  []byte             "aGVsbG8=" (base64)
//
// Decimals are written as strings so that no precision is lost on the way
// through a float64-based JSON consumer. A dateTime is an instant and is
// written in UTC; date and time keep the wall clock of the value.
package datatype

import (
	"sort"
	"sync"

	"github.com/matzehuels/entitygraph/pkg/errors"
)

// Datatype is a scalar codec.
type Datatype interface {
	Name() string
	Format(v any) (any, error)
	Parse(v any) (any, error)
}

// ErrUnknownDatatype is wrapped by Registry.Get for unregistered names.
var ErrUnknownDatatype = errors.New(errors.ErrCodeNotFound, "unknown datatype")

// funcDatatype adapts a pair of functions to the Datatype interface.
type funcDatatype struct {
	name   string
	format func(any) (any, error)
	parse  func(any) (any, error)
}

func (d funcDatatype) Name() string              { return d.name }
func (d funcDatatype) Format(v any) (any, error) { return d.format(v) }
func (d funcDatatype) Parse(v any) (any, error)  { return d.parse(v) }

// Func builds a Datatype from format and parse functions.
func Func(name string, format, parse func(any) (any, error)) Datatype {
	return funcDatatype{name: name, format: format, parse: parse}
}

// Registry maps datatype names to codecs. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Datatype
}

// NewRegistry returns a registry holding the built-in datatypes.
func NewRegistry() *Registry {
	r := &Registry{types: make(map[string]Datatype, len(builtins))}
	for _, dt := range builtins {
		r.types[dt.Name()] = dt
	}
	return r
}

// Register adds or replaces a datatype.
func (r *Registry) Register(dt Datatype) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[dt.Name()] = dt
}

// Get returns the datatype registered under name.
func (r *Registry) Get(name string) (Datatype, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dt, ok := r.types[name]
	if !ok {
		return nil, errors.Wrap(errors.ErrCodeNotFound, ErrUnknownDatatype, "datatype %q", name)
	}
	return dt, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[name]
	return ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
