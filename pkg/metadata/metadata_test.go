package metadata

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/entitygraph/pkg/errors"
)

func newPerson() *MetaClass {
	person := NewMetaClass("Person", Key("id"))
	address := NewMetaClass("Address", Embeddable())
	address.Add(Scalar("city", "string"), Scalar("zip", "string"))
	person.Add(
		Scalar("id", "long"),
		Scalar("name", "string"),
		Reference("address", address, Embedded()),
		Reference("friend", person),
		Collection("children", person, NoCollection),
		Scalar("nicknames", "string", ListOf()),
		Scalar("display", "string", Transient(), ReadOnly()),
	)
	return person
}

func TestMetaClassDeclarationOrder(t *testing.T) {
	person := newPerson()

	var names []string
	for _, p := range person.Properties {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"id", "name", "address", "friend", "children", "nicknames", "display"}, names)

	pk := person.PrimaryKeyProperty()
	require.NotNil(t, pk)
	assert.Equal(t, "id", pk.Name)
	assert.False(t, person.IsEmbeddable())
	assert.False(t, person.HasCompositePrimaryKey())
	assert.False(t, person.HasDbGeneratedPrimaryKey())
}

func TestPropertyDecorators(t *testing.T) {
	person := newPerson()

	friend, ok := person.Property("friend")
	require.True(t, ok)
	assert.Equal(t, RangeEntity, friend.Kind)
	assert.Same(t, person, friend.Target)
	assert.False(t, friend.IsEmbedded())

	address, _ := person.Property("address")
	assert.True(t, address.IsEmbedded())

	children, _ := person.Property("children")
	assert.Equal(t, RangeCollection, children.Kind)
	assert.Equal(t, List, children.Collection)

	nicknames, _ := person.Property("nicknames")
	assert.True(t, nicknames.IsScalarCollection())

	display, _ := person.Property("display")
	assert.False(t, display.Persistent)
	assert.True(t, display.ReadOnly)

	name, _ := person.Property("name")
	assert.True(t, name.Persistent)
	assert.False(t, name.ReadOnly)
}

func TestAddReplacesInPlace(t *testing.T) {
	mc := NewMetaClass("Thing", Key("id"))
	mc.Add(Scalar("id", "long"), Scalar("label", "string"), Scalar("size", "int"))
	mc.Add(Scalar("label", "string", ReadOnly()))

	require.Len(t, mc.Properties, 3)
	assert.Equal(t, "label", mc.Properties[1].Name)
	assert.True(t, mc.Properties[1].ReadOnly)
}

func TestResolvePath(t *testing.T) {
	person := newPerson()

	chain, err := person.ResolvePath("friend.address.city")
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, "friend", chain[0].Name)
	assert.Equal(t, "city", chain[2].Name)

	_, err = person.ResolvePath("friend.bogus")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	_, err = person.ResolvePath("children.name")
	require.Error(t, err)

	_, err = person.ResolvePath("name.length")
	require.Error(t, err)
}

func TestEnumConstant(t *testing.T) {
	status := NewEnum("OrderStatus", "NEW", "PAID")

	v, err := status.Constant("PAID")
	require.NoError(t, err)
	assert.Equal(t, "PAID", v.String())
	assert.Same(t, status, v.Enum)

	_, err = status.Constant("NOT_A_STATUS")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrUnknownConstant))
	assert.Contains(t, err.Error(), "OrderStatus")
	assert.Contains(t, err.Error(), "NOT_A_STATUS")

	assert.Panics(t, func() { status.MustConstant("NOPE") })
}

func TestParseCollectionKind(t *testing.T) {
	for in, want := range map[string]CollectionKind{"": NoCollection, "list": List, "SET": Set, "map": Map} {
		got, err := ParseCollectionKind(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseCollectionKind("bag")
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	person := newPerson()
	address, _ := person.Property("address")

	require.NoError(t, reg.Define(person, address.Target))
	require.NoError(t, reg.Validate())

	got, err := reg.MetaClass("Person")
	require.NoError(t, err)
	assert.Same(t, person, got)

	_, err = reg.MetaClass("Nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidMetadata))

	err = reg.Define(NewMetaClass("Person"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidMetadata))

	assert.Len(t, reg.Classes(), 2)
	assert.Equal(t, "Person", reg.Classes()[0].Name)
}

func TestRegistryValidate(t *testing.T) {
	tests := []struct {
		name  string
		build func() []*MetaClass
	}{
		{
			name: "missing primary key",
			build: func() []*MetaClass {
				return []*MetaClass{NewMetaClass("Orphan").Add(Scalar("name", "string"))}
			},
		},
		{
			name: "unregistered target",
			build: func() []*MetaClass {
				other := NewMetaClass("Other", Key("id")).Add(Scalar("id", "long"))
				return []*MetaClass{NewMetaClass("A", Key("id")).Add(Scalar("id", "long"), Reference("o", other))}
			},
		},
		{
			name: "composite key on scalar",
			build: func() []*MetaClass {
				return []*MetaClass{NewMetaClass("A", CompositeKey("id")).Add(Scalar("id", "long"))}
			},
		},
		{
			name: "reserved property name",
			build: func() []*MetaClass {
				return []*MetaClass{NewMetaClass("A", Key("id")).Add(Scalar("id", "long"), Scalar("_entityName", "string"))}
			},
		},
		{
			name: "undeclared natural id",
			build: func() []*MetaClass {
				return []*MetaClass{NewMetaClass("A", GeneratedKey("id", "uuid")).Add(Scalar("id", "long"))}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			require.NoError(t, reg.Define(tt.build()...))

			err := reg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidMetadata), err.Error())
		})
	}
}
