package serde

import (
	"strings"

	"github.com/matzehuels/entitygraph/pkg/errors"
)

// Option is a set of independent serialization flags.
type Option uint8

const (
	// PrettyPrint indents the output.
	PrettyPrint Option = 1 << iota

	// SerializeNulls writes null for nil members of plain objects. Entity
	// attributes holding nil are written as null regardless.
	SerializeNulls

	// CompactRepeatedEntities writes every entity in full once per call and
	// reduces later occurrences to their header.
	CompactRepeatedEntities

	// SerializeInstanceName adds the "_instanceName" header field.
	SerializeInstanceName

	// DoNotSerializeRONonPersistentProperties skips read-only transient
	// attributes.
	DoNotSerializeRONonPersistentProperties
)

var optionNames = []struct {
	opt  Option
	name string
}{
	{PrettyPrint, "pretty_print"},
	{SerializeNulls, "serialize_nulls"},
	{CompactRepeatedEntities, "compact_repeated_entities"},
	{SerializeInstanceName, "serialize_instance_name"},
	{DoNotSerializeRONonPersistentProperties, "do_not_serialize_ro_non_persistent_properties"},
}

func combine(opts []Option) Option {
	var o Option
	for _, opt := range opts {
		o |= opt
	}
	return o
}

// Has reports whether all flags of f are set.
func (o Option) Has(f Option) bool { return o&f == f }

func (o Option) String() string {
	var names []string
	for _, n := range optionNames {
		if o.Has(n.opt) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// ParseOptions maps option names, as used in schema files, to flags.
func ParseOptions(names []string) (Option, error) {
	var o Option
	for _, name := range names {
		found := false
		for _, n := range optionNames {
			if strings.EqualFold(n.name, name) {
				o |= n.opt
				found = true
				break
			}
		}
		if !found {
			return 0, errors.New(errors.ErrCodeInvalidInput, "unknown serialization option %q", name)
		}
	}
	return o, nil
}
