package metadata

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/entitygraph/pkg/datatype"
	"github.com/matzehuels/entitygraph/pkg/errors"
	"github.com/matzehuels/entitygraph/pkg/fetchplan"
	"github.com/matzehuels/entitygraph/pkg/observability"
)

// schemaFile mirrors the TOML layout:
//
//	[serialization]
//	security_tokens = false
//	options = ["compact_repeated_entities"]
//
//	[[enum]]
//	name = "OrderStatus"
//	values = ["NEW", "PAID"]
//
//	[[entity]]
//	name = "Order"
//	key = "id"
//	name_pattern = "{number}"
//
//	  [[entity.property]]
//	  name = "id"
//	  type = "uuid"
//
//	  [[entity.property]]
//	  name = "customer"
//	  ref = "Customer"
//
//	[[fetch_plan]]
//	entity = "Order"
//	name = "order-brief"
//	properties = ["number", "customer:customer-brief"]
type schemaFile struct {
	Serialization struct {
		SecurityTokens bool     `toml:"security_tokens"`
		Options        []string `toml:"options"`
	} `toml:"serialization"`
	Enums     []enumDecl   `toml:"enum"`
	Entities  []entityDecl `toml:"entity"`
	FetchPlan []planDecl   `toml:"fetch_plan"`
}

type enumDecl struct {
	Name   string   `toml:"name"`
	Values []string `toml:"values"`
}

type entityDecl struct {
	Name        string         `toml:"name"`
	Key         string         `toml:"key"`
	IDKind      string         `toml:"id_kind"`
	NaturalID   string         `toml:"natural_id"`
	Embeddable  bool           `toml:"embeddable"`
	NamePattern string         `toml:"name_pattern"`
	Properties  []propertyDecl `toml:"property"`
}

type propertyDecl struct {
	Name       string `toml:"name"`
	Type       string `toml:"type"`
	Enum       string `toml:"enum"`
	Ref        string `toml:"ref"`
	Collection string `toml:"collection"`
	ReadOnly   bool   `toml:"read_only"`
	Transient  bool   `toml:"transient"`
	Embedded   bool   `toml:"embedded"`
}

type planDecl struct {
	Entity     string   `toml:"entity"`
	Name       string   `toml:"name"`
	Properties []string `toml:"properties"`
}

// SchemaOption configures schema loading.
type SchemaOption func(*schemaLoader)

// WithDatatypes validates scalar properties against reg instead of the
// built-in datatypes.
func WithDatatypes(reg *datatype.Registry) SchemaOption {
	return func(l *schemaLoader) { l.datatypes = reg }
}

type schemaLoader struct {
	datatypes *datatype.Registry
	reg       *Registry
}

// LoadSchemaFile loads a TOML schema from path.
func LoadSchemaFile(path string, opts ...SchemaOption) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "schema %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open schema %s", path)
	}
	defer f.Close()
	return load(path, f, opts)
}

// LoadSchema loads a TOML schema from r.
func LoadSchema(r io.Reader, opts ...SchemaOption) (*Registry, error) {
	return load("reader", r, opts)
}

func load(source string, r io.Reader, opts []SchemaOption) (reg *Registry, err error) {
	start := time.Now()
	defer func() {
		n := 0
		if reg != nil {
			n = len(reg.order)
		}
		observability.Schema().OnSchemaLoad(source, n, time.Since(start), err)
	}()

	var file schemaFile
	md, err := toml.NewDecoder(r).Decode(&file)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidMetadata, err, "decode schema %s", source)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidMetadata, "unknown schema key %q", undecoded[0].String())
	}

	l := &schemaLoader{reg: NewRegistry()}
	for _, opt := range opts {
		opt(l)
	}
	if l.datatypes == nil {
		l.datatypes = datatype.NewRegistry()
	}
	if err := l.link(&file); err != nil {
		return nil, err
	}
	return l.reg, nil
}

// link builds the registry in passes so that classes may reference each
// other, or themselves, regardless of declaration order.
func (l *schemaLoader) link(file *schemaFile) error {
	l.reg.Serialization = SerializationConfig{
		SecurityTokens: file.Serialization.SecurityTokens,
		Options:        file.Serialization.Options,
	}

	for _, e := range file.Enums {
		if err := l.reg.DefineEnum(NewEnum(e.Name, e.Values...)); err != nil {
			return err
		}
	}

	for _, decl := range file.Entities {
		opts, err := classOptions(decl)
		if err != nil {
			return err
		}
		if err := l.reg.Define(NewMetaClass(decl.Name, opts...)); err != nil {
			return err
		}
	}

	for _, decl := range file.Entities {
		mc, _ := l.reg.MetaClass(decl.Name)
		for _, pd := range decl.Properties {
			p, err := l.property(mc, pd)
			if err != nil {
				return err
			}
			mc.Add(p)
		}
	}

	if err := l.reg.Validate(); err != nil {
		return err
	}
	return l.plans(file.FetchPlan)
}

func classOptions(decl entityDecl) ([]ClassOption, error) {
	var opts []ClassOption
	switch strings.ToLower(decl.IDKind) {
	case "", "simple":
		if decl.Key != "" {
			opts = append(opts, Key(decl.Key))
		}
	case "generated":
		opts = append(opts, GeneratedKey(decl.Key, decl.NaturalID))
	case "composite":
		opts = append(opts, CompositeKey(decl.Key))
	default:
		return nil, errors.New(errors.ErrCodeInvalidMetadata, "unknown id_kind %q", decl.IDKind).WithEntity(decl.Name)
	}
	if decl.Embeddable {
		opts = append(opts, Embeddable())
	}
	if decl.NamePattern != "" {
		opts = append(opts, NamePattern(decl.NamePattern))
	}
	return opts, nil
}

func (l *schemaLoader) property(mc *MetaClass, pd propertyDecl) (*MetaProperty, error) {
	fail := func(format string, args ...any) error {
		return errors.New(errors.ErrCodeInvalidMetadata, format, args...).WithEntity(mc.Name).WithProperty(pd.Name)
	}

	if _, exists := mc.Property(pd.Name); exists {
		return nil, fail("duplicate property")
	}

	kind, err := ParseCollectionKind(pd.Collection)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidMetadata, err, "property").WithEntity(mc.Name).WithProperty(pd.Name)
	}

	var opts []PropertyOption
	if pd.ReadOnly {
		opts = append(opts, ReadOnly())
	}
	if pd.Transient {
		opts = append(opts, Transient())
	}
	if pd.Embedded {
		opts = append(opts, Embedded())
	}

	switch {
	case pd.Ref != "":
		target, err := l.reg.MetaClass(pd.Ref)
		if err != nil {
			return nil, fail("unknown target class %q", pd.Ref)
		}
		if kind == NoCollection {
			return Reference(pd.Name, target, opts...), nil
		}
		return Collection(pd.Name, target, kind, opts...), nil

	case pd.Enum != "":
		enum, ok := l.reg.Enum(pd.Enum)
		if !ok {
			return nil, fail("unknown enum %q", pd.Enum)
		}
		return EnumOf(pd.Name, enum, opts...), nil

	default:
		if pd.Type == "" {
			return nil, fail("property needs one of type, enum or ref")
		}
		if !l.datatypes.Has(pd.Type) {
			return nil, fail("unknown datatype %q", pd.Type)
		}
		switch kind {
		case List:
			opts = append(opts, ListOf())
		case Set:
			opts = append(opts, SetOf())
		case Map:
			return nil, fail("scalar maps are not supported")
		}
		return Scalar(pd.Name, pd.Type, opts...), nil
	}
}

// plans registers fetch plans. Nested references ("customer:customer-brief")
// may point at plans declared later in the file.
func (l *schemaLoader) plans(decls []planDecl) error {
	for _, pd := range decls {
		if _, err := l.reg.MetaClass(pd.Entity); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidMetadata, err, "fetch plan %q", pd.Name)
		}
		if err := l.reg.DefineFetchPlan(fetchplan.New(pd.Entity, pd.Name)); err != nil {
			return err
		}
	}

	for _, pd := range decls {
		mc, _ := l.reg.MetaClass(pd.Entity)
		plan, _ := l.reg.FetchPlan(pd.Entity, pd.Name)
		for _, entry := range pd.Properties {
			name, nestedName, _ := strings.Cut(entry, ":")
			p, ok := mc.Property(name)
			if !ok {
				return errors.New(errors.ErrCodeInvalidMetadata, "fetch plan %q names unknown property", pd.Name).
					WithEntity(mc.Name).WithProperty(name)
			}
			if nestedName == "" {
				plan.Add(name)
				continue
			}
			if p.Target == nil {
				return errors.New(errors.ErrCodeInvalidMetadata, "fetch plan %q nests a non-entity property", pd.Name).
					WithEntity(mc.Name).WithProperty(name)
			}
			nested, err := l.reg.FetchPlan(p.Target.Name, nestedName)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidMetadata, err, "fetch plan %q", pd.Name).
					WithEntity(mc.Name).WithProperty(name)
			}
			plan.AddNested(name, nested)
		}
	}
	return nil
}
