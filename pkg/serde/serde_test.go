package serde

import (
	"bytes"
	stderrors "errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/entitygraph/pkg/entity"
	"github.com/matzehuels/entitygraph/pkg/errors"
	"github.com/matzehuels/entitygraph/pkg/fetchplan"
	"github.com/matzehuels/entitygraph/pkg/metadata"
	"github.com/matzehuels/entitygraph/pkg/observability"
)

func value(t *testing.T, e entity.Entity, name string) any {
	t.Helper()
	v, loaded := e.Value(name)
	require.True(t, loaded, "attribute %s not loaded", name)
	return v
}

func TestSimpleOrder(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	data, err := s.EntityToJSON(m.simpleOrder(), nil)
	require.NoError(t, err)
	assert.Equal(t,
		`{"_entityName":"Order","id":"123e4567-e89b-12d3-a456-426614174000","total":"9.99","status":"PAID"}`,
		string(data))

	got, err := s.EntityFromJSON(data, nil)
	require.NoError(t, err)
	assert.Same(t, m.order, got.MetaClass())
	assert.Equal(t, uuid.MustParse(orderID), value(t, got, "id"))
	assert.True(t, value(t, got, "total").(decimal.Decimal).Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, m.status.MustConstant("PAID"), value(t, got, "status"))

	_, loaded := got.Value("number")
	assert.False(t, loaded)
}

func TestRoundTrip(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	natural := uuid.New()
	customer := detached(m.customer, map[string]any{
		"id":       entity.GeneratedID{Value: int64(7), NaturalID: natural},
		"uuid":     natural,
		"name":     "Ada",
		"referrer": nil,
	})
	key := detached(m.lineKey, map[string]any{"orderNumber": "SO-1", "position": 1})
	line := detached(m.line, map[string]any{"key": key, "product": "Widget", "quantity": 2})
	order := detached(m.order, map[string]any{
		"id":       uuid.MustParse(orderID),
		"number":   "SO-1",
		"total":    decimal.RequireFromString("19.90"),
		"status":   m.status.MustConstant("NEW"),
		"customer": customer,
		"lines":    []entity.Entity{line},
		"tags":     []any{"rush", "gift"},
	})

	data, err := s.EntityToJSON(order, nil)
	require.NoError(t, err)

	got, err := s.EntityFromJSON(data, m.order)
	require.NoError(t, err)

	assert.Equal(t, "SO-1", value(t, got, "number"))
	assert.True(t, value(t, got, "total").(decimal.Decimal).Equal(decimal.RequireFromString("19.9")))
	assert.Equal(t, []any{"rush", "gift"}, value(t, got, "tags"))

	gotCustomer := value(t, got, "customer").(entity.Entity)
	assert.Equal(t, entity.GeneratedID{Value: int64(7), NaturalID: natural}, value(t, gotCustomer, "id"))
	assert.Equal(t, natural, value(t, gotCustomer, "uuid"))
	assert.Equal(t, "Ada", value(t, gotCustomer, "name"))
	assert.Nil(t, value(t, gotCustomer, "referrer"))

	lines := value(t, got, "lines").([]entity.Entity)
	require.Len(t, lines, 1)
	assert.Equal(t, "Widget", value(t, lines[0], "product"))
	assert.Equal(t, 2, value(t, lines[0], "quantity"))

	want, _ := entity.IdentityKey(key)
	have, _ := entity.IdentityKey(value(t, lines[0], "key"))
	assert.Equal(t, want, have)
}

func TestCompositeKeyWrittenAsObject(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	key := detached(m.lineKey, map[string]any{"orderNumber": "SO-1", "position": 1})
	line := detached(m.line, map[string]any{"key": key, "product": "Widget"})

	data, err := s.EntityToJSON(line, nil)
	require.NoError(t, err)
	assert.Equal(t,
		`{"_entityName":"OrderLine","id":{"orderNumber":"SO-1","position":1},"product":"Widget"}`,
		string(data))

	got, err := s.EntityFromJSON(data, nil)
	require.NoError(t, err)
	gotKey := value(t, got, "key").(entity.Entity)
	assert.Equal(t, "SO-1", value(t, gotKey, "orderNumber"))
	assert.Equal(t, 1, value(t, gotKey, "position"))
}

func TestTrailingWhitespaceAccepted(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	got, err := s.EntityFromJSON([]byte("{\"_entityName\":\"Person\",\"id\":1}\n\t "), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), value(t, got, "id"))
}

func TestDistinctCompositeKeysStayApart(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	doc := `{"_entityName":"Order","id":"` + orderID + `","lines":[` +
		`{"id":{"orderNumber":null,"position":1},"product":"first"},` +
		`{"id":{"orderNumber":"<nil>","position":1},"product":"second"}]}`

	got, err := s.EntityFromJSON([]byte(doc), nil)
	require.NoError(t, err)

	lines := value(t, got, "lines").([]entity.Entity)
	require.Len(t, lines, 2)
	assert.NotSame(t, lines[0], lines[1])
	assert.Equal(t, "first", value(t, lines[0], "product"))
	assert.Equal(t, "second", value(t, lines[1], "product"))
}

func TestSelfReferenceTerminates(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	a := m.newPerson(1, "A")
	a.SetValue("friend", a)

	for _, opts := range [][]Option{nil, {CompactRepeatedEntities}} {
		data, err := s.EntityToJSON(a, nil, opts...)
		require.NoError(t, err)
		assert.Equal(t,
			`{"_entityName":"Person","id":1,"name":"A","friend":{"_entityName":"Person","id":1}}`,
			string(data))
	}
}

func TestIndirectCycle(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	a, b := m.newPerson(1, "A"), m.newPerson(2, "B")
	a.SetValue("friend", b)
	b.SetValue("friend", a)

	data, err := s.EntityToJSON(a, nil)
	require.NoError(t, err)
	assert.Equal(t,
		`{"_entityName":"Person","id":1,"name":"A","friend":{"_entityName":"Person","id":2,"name":"B","friend":{"_entityName":"Person","id":1}}}`,
		string(data))
}

func TestSiblingsRepeatUnlessCompact(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	a, c := m.newPerson(1, "A"), m.newPerson(3, "C")
	a.SetValue("friend", c)
	a.SetValue("partner", c)

	data, err := s.EntityToJSON(a, nil)
	require.NoError(t, err)
	assert.Equal(t,
		`{"_entityName":"Person","id":1,"name":"A",`+
			`"friend":{"_entityName":"Person","id":3,"name":"C"},`+
			`"partner":{"_entityName":"Person","id":3,"name":"C"}}`,
		string(data))

	data, err = s.EntityToJSON(a, nil, CompactRepeatedEntities)
	require.NoError(t, err)
	assert.Equal(t,
		`{"_entityName":"Person","id":1,"name":"A",`+
			`"friend":{"_entityName":"Person","id":3,"name":"C"},`+
			`"partner":{"_entityName":"Person","id":3}}`,
		string(data))
}

func TestCompactTracksNewEntitiesByInstance(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	a := detached(m.person, map[string]any{"id": int64(1)})
	x, y := entity.New(m.person), entity.New(m.person)
	for _, e := range []*entity.Dynamic{x, y} {
		for _, name := range []string{"friend", "partner", "address", "children"} {
			e.Unset(name)
		}
	}
	x.SetValue("name", "X")
	y.SetValue("name", "Y")
	a.SetValue("friend", x)
	a.SetValue("partner", y)
	a.SetValue("children", entity.NewSet(x))

	data, err := s.EntityToJSON(a, nil, CompactRepeatedEntities)
	require.NoError(t, err)
	assert.Equal(t,
		`{"_entityName":"Person","id":1,`+
			`"friend":{"_entityName":"Person","id":null,"name":"X"},`+
			`"partner":{"_entityName":"Person","id":null,"name":"Y"},`+
			`"children":[{"_entityName":"Person","id":null}]}`,
		string(data))
}

func TestSharedReferenceDeduplicatedOnRead(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	doc := `{"_entityName":"Person","id":1,` +
		`"friend":{"_entityName":"Person","id":2,"name":"B"},` +
		`"partner":{"_entityName":"Person","id":2}}`

	got, err := s.EntityFromJSON([]byte(doc), nil)
	require.NoError(t, err)

	friend := value(t, got, "friend")
	partner := value(t, got, "partner")
	assert.Same(t, friend, partner)
	assert.Equal(t, "B", value(t, friend.(entity.Entity), "name"))

	again, err := s.EntityFromJSON([]byte(doc), nil)
	require.NoError(t, err)
	assert.NotSame(t, friend, value(t, again, "friend"), "trackers must not leak across calls")
}

func TestLaterOccurrencesMerge(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	doc := `{"_entityName":"Person","id":1,` +
		`"friend":{"_entityName":"Person","id":2},` +
		`"partner":{"_entityName":"Person","id":2,"name":"B"}}`

	got, err := s.EntityFromJSON([]byte(doc), nil)
	require.NoError(t, err)

	friend := value(t, got, "friend").(entity.Entity)
	assert.Same(t, friend, value(t, got, "partner"))
	assert.Equal(t, "B", value(t, friend, "name"))
}

func TestSelfReferenceOnRead(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	got, err := s.EntityFromJSON([]byte(`{"_entityName":"Person","id":1,"friend":{"_entityName":"Person","id":1}}`), nil)
	require.NoError(t, err)
	assert.Same(t, got, value(t, got, "friend"))
}

func TestEntitiesShareTracker(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	doc := `[{"_entityName":"Person","id":1,"friend":{"_entityName":"Person","id":2}},` +
		`{"_entityName":"Person","id":2,"name":"B"}]`

	es, err := s.EntitiesFromJSON([]byte(doc), m.person)
	require.NoError(t, err)
	require.Len(t, es, 2)
	assert.Same(t, es[1], value(t, es[0], "friend"))
	assert.Equal(t, "B", value(t, es[1], "name"))

	out, err := s.EntitiesToJSON(es, nil, CompactRepeatedEntities)
	require.NoError(t, err)
	assert.Equal(t,
		`[{"_entityName":"Person","id":1,"friend":{"_entityName":"Person","id":2,"name":"B"}},`+
			`{"_entityName":"Person","id":2}]`,
		string(out))
}

func TestNullAlwaysWritten(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	p := detached(m.person, map[string]any{"id": int64(1), "name": nil})

	for _, opts := range [][]Option{nil, {SerializeNulls}} {
		data, err := s.EntityToJSON(p, nil, opts...)
		require.NoError(t, err)
		assert.Equal(t, `{"_entityName":"Person","id":1,"name":null}`, string(data))
	}
}

func TestUnloadedAttributeOmitted(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	p := m.newPerson(1, "A")
	p.Unset("name")

	data, err := s.EntityToJSON(p, nil)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"name"`)
}

func TestNewEntityWritesEverything(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	p := entity.New(m.person)
	p.SetValue("id", int64(5))

	data, err := s.EntityToJSON(p, nil)
	require.NoError(t, err)
	assert.Equal(t,
		`{"_entityName":"Person","id":5,"name":null,"friend":null,"partner":null,"address":null,"children":null}`,
		string(data))
}

// loadedNames reports only the listed attributes as loaded.
type loadedNames struct {
	entity.DefaultOracle
	names []string
}

func (o loadedNames) IsLoaded(_ entity.Entity, property string) bool {
	return slices.Contains(o.names, property)
}

func TestLoadStateComesFromOracle(t *testing.T) {
	m := newModel(t)
	s := New(Config{Provider: m.reg, Oracle: loadedNames{names: []string{"name"}}})

	p := entity.New(m.person)
	p.SetValue("id", int64(5))
	p.SetValue("name", "Neu")
	require.True(t, entity.DefaultOracle{}.IsNew(p))

	data, err := s.EntityToJSON(p, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"_entityName":"Person","id":5,"name":"Neu"}`, string(data))
}

func TestReadOnlyTransient(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	ticket := detached(m.ticket, map[string]any{"id": "T-1", "summary": "computed"})

	data, err := s.EntityToJSON(ticket, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"_entityName":"Ticket","id":"T-1","summary":"computed"}`, string(data))

	data, err = s.EntityToJSON(ticket, nil, DoNotSerializeRONonPersistentProperties)
	require.NoError(t, err)
	assert.Equal(t, `{"_entityName":"Ticket","id":"T-1"}`, string(data))

	ticket.Unset("summary")
	data, err = s.EntityToJSON(ticket, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"_entityName":"Ticket","id":"T-1","summary":null}`, string(data),
		"transient attributes do not depend on load state")

	got, err := s.EntityFromJSON([]byte(`{"_entityName":"Ticket","id":"T-1","summary":"ignored"}`), nil)
	require.NoError(t, err)
	_, loaded := got.Value("summary")
	assert.False(t, loaded, "read-only attributes are not written")

	got, err = s.EntityFromJSON([]byte(`{"_entityName":"Ticket","id":"T-1","summary":null}`), nil)
	require.NoError(t, err)
	assert.Nil(t, value(t, got, "summary"))
}

func TestFetchPlan(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	customer := detached(m.customer, map[string]any{
		"id":   entity.GeneratedID{Value: int64(7)},
		"name": "Ada",
		"uuid": nil,
	})
	order := m.simpleOrder()
	order.SetValue("number", "SO-1")
	order.SetValue("customer", customer)

	brief := fetchplan.New("Customer", "brief").Add("name")
	plan := fetchplan.New("Order", "with-customer").Add("number").AddNested("customer", brief)

	data, err := s.EntityToJSON(order, plan)
	require.NoError(t, err)
	assert.Equal(t,
		`{"_entityName":"Order","id":"`+orderID+`","number":"SO-1","customer":{"_entityName":"Customer","id":7,"name":"Ada"}}`,
		string(data))
}

func TestInstanceName(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	order := m.simpleOrder()
	order.SetValue("number", "SO-1")

	data, err := s.EntityToJSON(order, nil, SerializeInstanceName)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data),
		`{"_entityName":"Order","_instanceName":"SO-1 (PAID)","id":"`+orderID+`"`), string(data))

	order.Unset("number")
	data, err = s.EntityToJSON(order, nil, SerializeInstanceName)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"_instanceName":null`)
}

type panickyOrder struct{ *entity.Dynamic }

func (panickyOrder) InstanceName() (string, error) { panic("boom") }

func TestInstanceNamePanicIsSwallowed(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	data, err := s.EntityToJSON(panickyOrder{m.simpleOrder()}, nil, SerializeInstanceName)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"_instanceName":null`)
}

func TestSecurityToken(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, true)

	order := m.simpleOrder()
	order.SecurityState().Token = []byte("token")

	data, err := s.EntityToJSON(order, nil)
	require.NoError(t, err)
	assert.Equal(t,
		`{"_entityName":"Order","id":"`+orderID+`","__securityToken":"dG9rZW4=","total":"9.99","status":"PAID"}`,
		string(data))

	got, err := s.EntityFromJSON(data, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("token"), got.SecurityState().Token)

	plain := m.newSerde(nil, false)
	data, err = plain.EntityToJSON(order, nil)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "__securityToken")
}

func TestGeneratedIDFromNaturalID(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)
	natural := uuid.New()

	doc := `{"_entityName":"Order","id":"` + orderID + `",` +
		`"customer":{"_entityName":"Customer","uuid":"` + natural.String() + `","name":"Ada"},` +
		`"lines":[]}`
	got, err := s.EntityFromJSON([]byte(doc), nil)
	require.NoError(t, err)

	customer := value(t, got, "customer").(entity.Entity)
	assert.Equal(t, entity.GeneratedID{NaturalID: natural}, value(t, customer, "id"))
	assert.Equal(t, []entity.Entity{}, value(t, got, "lines"))
}

func TestUnknownFieldTolerated(t *testing.T) {
	m := newModel(t)
	var logs bytes.Buffer
	s := m.newSerde(&logs, false)

	hooks := &recordingHooks{}
	observability.SetSerdeHooks(hooks)
	defer observability.Reset()

	got, err := s.EntityFromJSON([]byte(`{"_entityName":"Ticket","id":"1","bogusField":"x"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "1", value(t, got, "id"))

	_, loaded := got.Value("title")
	assert.False(t, loaded)

	assert.Equal(t, []string{"Ticket.bogusField"}, hooks.unknown)
	assert.Contains(t, logs.String(), "unknown field")
	assert.Contains(t, logs.String(), "bogusField")
	assert.Equal(t, 1, hooks.deserialized)
}

func TestBadEnum(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	_, err := s.EntityFromJSON([]byte(`{"status":"NOT_A_STATUS"}`), m.order)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeDeserialization))
	assert.True(t, stderrors.Is(err, metadata.ErrUnknownConstant))
	assert.Contains(t, err.Error(), "OrderStatus")
	assert.Contains(t, err.Error(), "NOT_A_STATUS")

	var e *errors.Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, "Order", e.Entity)
	assert.Equal(t, "status", e.Property)
	assert.Equal(t, "NOT_A_STATUS", e.Value)
}

func TestDottedPath(t *testing.T) {
	m := newModel(t)
	var logs bytes.Buffer
	s := m.newSerde(&logs, false)

	doc := `{"_entityName":"Person","id":1,"address":{"city":"Rome"},"address.city":"Paris","friend.name":"ghost"}`
	got, err := s.EntityFromJSON([]byte(doc), nil)
	require.NoError(t, err)

	address := value(t, got, "address").(entity.Entity)
	assert.Equal(t, "Paris", value(t, address, "city"))

	_, loaded := got.Value("friend")
	assert.False(t, loaded)
	assert.NotContains(t, logs.String(), "unknown field")
}

func TestEmbeddedRoundTrip(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	p := m.newPerson(1, "A")
	p.SetValue("address", detached(m.address, map[string]any{"city": "Rome"}))

	data, err := s.EntityToJSON(p, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"_entityName":"Person","id":1,"name":"A","address":{"city":"Rome"}}`, string(data))

	got, err := s.EntityFromJSON(data, nil)
	require.NoError(t, err)
	assert.Equal(t, "Rome", value(t, value(t, got, "address").(entity.Entity), "city"))
}

func TestSetCollection(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	doc := `{"_entityName":"Person","id":1,"children":[` +
		`{"_entityName":"Person","id":2},{"_entityName":"Person","id":3},{"_entityName":"Person","id":2}]}`
	got, err := s.EntityFromJSON([]byte(doc), nil)
	require.NoError(t, err)

	children := value(t, got, "children").(*entity.Set)
	assert.Equal(t, 2, children.Len())
}

func TestErrors(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	loose := metadata.NewMetaClass("Loose").Add(metadata.Scalar("name", "string"))

	tests := []struct {
		name string
		run  func() error
		code errors.Code
	}{
		{
			name: "missing primary key",
			run: func() error {
				_, err := s.EntityToJSON(entity.New(loose), nil)
				return err
			},
			code: errors.ErrCodeSerialization,
		},
		{
			name: "non-entity element in collection",
			run: func() error {
				o := m.simpleOrder()
				o.SetValue("lines", []any{"oops"})
				_, err := s.EntityToJSON(o, nil)
				return err
			},
			code: errors.ErrCodeSerialization,
		},
		{
			name: "nil entity",
			run: func() error {
				_, err := s.EntityToJSON(nil, nil)
				return err
			},
			code: errors.ErrCodeInvalidInput,
		},
		{
			name: "unresolved meta-class",
			run: func() error {
				_, err := s.EntityFromJSON([]byte(`{"id":"1"}`), nil)
				return err
			},
			code: errors.ErrCodeDeserialization,
		},
		{
			name: "unknown entity name",
			run: func() error {
				_, err := s.EntityFromJSON([]byte(`{"_entityName":"Nope","id":"1"}`), nil)
				return err
			},
			code: errors.ErrCodeDeserialization,
		},
		{
			name: "unparsable scalar",
			run: func() error {
				_, err := s.EntityFromJSON([]byte(`{"_entityName":"Order","id":"not-a-uuid"}`), nil)
				return err
			},
			code: errors.ErrCodeDeserialization,
		},
		{
			name: "unparsable decimal",
			run: func() error {
				_, err := s.EntityFromJSON([]byte(`{"_entityName":"Order","total":"lots"}`), nil)
				return err
			},
			code: errors.ErrCodeDeserialization,
		},
		{
			name: "map collection",
			run: func() error {
				_, err := s.EntityFromJSON([]byte(`{"_entityName":"Folder","id":1,"items":[]}`), nil)
				return err
			},
			code: errors.ErrCodeUnsupported,
		},
		{
			name: "malformed json",
			run: func() error {
				_, err := s.EntityFromJSON([]byte(`{"_entityName":`), nil)
				return err
			},
			code: errors.ErrCodeDeserialization,
		},
		{
			name: "trailing data",
			run: func() error {
				_, err := s.EntityFromJSON([]byte(`{"_entityName":"Person","id":1} trailing-garbage`), nil)
				return err
			},
			code: errors.ErrCodeDeserialization,
		},
		{
			name: "second document",
			run: func() error {
				_, err := s.EntitiesFromJSON([]byte(`[] []`), m.person)
				return err
			},
			code: errors.ErrCodeDeserialization,
		},
		{
			name: "array expected",
			run: func() error {
				_, err := s.EntitiesFromJSON([]byte(`{}`), m.person)
				return err
			},
			code: errors.ErrCodeDeserialization,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err), err.Error())
		})
	}
}

func TestPrettyPrint(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	data, err := s.EntityToJSON(m.simpleOrder(), nil, PrettyPrint)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"_entityName\": \"Order\""), string(data))
	assert.True(t, json.Valid(data))
}

func TestConcurrentCalls(t *testing.T) {
	m := newModel(t)
	s := m.newSerde(nil, false)

	a, c := m.newPerson(1, "A"), m.newPerson(3, "C")
	a.SetValue("friend", c)
	a.SetValue("partner", c)
	want, err := s.EntityToJSON(a, nil, CompactRepeatedEntities)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]byte, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = s.EntityToJSON(a, nil, CompactRepeatedEntities)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, string(want), string(got))
	}
}

// recordingHooks captures serde events.
type recordingHooks struct {
	observability.NoopSerdeHooks
	mu           sync.Mutex
	unknown      []string
	deserialized int
}

func (h *recordingHooks) OnUnknownField(entity, field string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unknown = append(h.unknown, entity+"."+field)
}

func (h *recordingHooks) OnDeserialize(kind string, count int, _ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		h.deserialized += count
	}
}
