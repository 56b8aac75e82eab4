package serde

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/entitygraph/pkg/entity"
	"github.com/matzehuels/entitygraph/pkg/metadata"
)

const orderID = "123e4567-e89b-12d3-a456-426614174000"

type model struct {
	reg    *metadata.Registry
	status *metadata.Enum

	order    *metadata.MetaClass
	customer *metadata.MetaClass
	lineKey  *metadata.MetaClass
	line     *metadata.MetaClass
	person   *metadata.MetaClass
	address  *metadata.MetaClass
	ticket   *metadata.MetaClass
	folder   *metadata.MetaClass
}

func newModel(t *testing.T) *model {
	t.Helper()
	m := &model{reg: metadata.NewRegistry()}

	m.status = metadata.NewEnum("OrderStatus", "NEW", "PAID", "SHIPPED")

	m.customer = metadata.NewMetaClass("Customer", metadata.GeneratedKey("id", "uuid"), metadata.NamePattern("{name}"))
	m.customer.Add(
		metadata.Scalar("id", "long"),
		metadata.Scalar("uuid", "uuid"),
		metadata.Scalar("name", "string"),
		metadata.Reference("referrer", m.customer),
	)

	m.lineKey = metadata.NewMetaClass("OrderLineKey", metadata.Embeddable())
	m.lineKey.Add(
		metadata.Scalar("orderNumber", "string"),
		metadata.Scalar("position", "int"),
	)

	m.line = metadata.NewMetaClass("OrderLine", metadata.CompositeKey("key"))
	m.line.Add(
		metadata.Reference("key", m.lineKey),
		metadata.Scalar("product", "string"),
		metadata.Scalar("quantity", "int"),
	)

	m.order = metadata.NewMetaClass("Order", metadata.Key("id"), metadata.NamePattern("{number} ({status})"))
	m.order.Add(
		metadata.Scalar("id", "uuid"),
		metadata.Scalar("number", "string"),
		metadata.Scalar("total", "decimal"),
		metadata.EnumOf("status", m.status),
		metadata.Reference("customer", m.customer),
		metadata.Collection("lines", m.line, metadata.List),
		metadata.Scalar("tags", "string", metadata.SetOf()),
	)

	m.address = metadata.NewMetaClass("Address", metadata.Embeddable())
	m.address.Add(metadata.Scalar("city", "string"))

	m.person = metadata.NewMetaClass("Person", metadata.Key("id"))
	m.person.Add(
		metadata.Scalar("id", "long"),
		metadata.Scalar("name", "string"),
		metadata.Reference("friend", m.person),
		metadata.Reference("partner", m.person),
		metadata.Reference("address", m.address, metadata.Embedded()),
		metadata.Collection("children", m.person, metadata.Set),
	)

	m.ticket = metadata.NewMetaClass("Ticket", metadata.Key("id"))
	m.ticket.Add(
		metadata.Scalar("id", "string"),
		metadata.Scalar("title", "string"),
		metadata.Scalar("summary", "string", metadata.Transient(), metadata.ReadOnly()),
	)

	m.folder = metadata.NewMetaClass("Folder", metadata.Key("id"))
	m.folder.Add(metadata.Scalar("id", "long"), metadata.Collection("items", m.person, metadata.Map))

	require.NoError(t, m.reg.DefineEnum(m.status))
	require.NoError(t, m.reg.Define(m.customer, m.lineKey, m.line, m.order, m.address, m.person, m.ticket, m.folder))
	require.NoError(t, m.reg.Validate())
	return m
}

// newSerde returns a Serde over the model logging into buf.
func (m *model) newSerde(buf *bytes.Buffer, securityTokens bool) *Serde {
	var logger *log.Logger
	if buf != nil {
		logger = log.New(buf)
	}
	return New(Config{Provider: m.reg, Logger: logger, SecurityTokens: securityTokens})
}

// detached builds a persisted entity with exactly the given attributes loaded.
func detached(mc *metadata.MetaClass, values map[string]any) *entity.Dynamic {
	e := entity.New(mc)
	for _, p := range mc.Properties {
		if _, ok := values[p.Name]; !ok {
			e.Unset(p.Name)
		}
	}
	for k, v := range values {
		e.SetValue(k, v)
	}
	return e.MarkDetached()
}

func (m *model) simpleOrder() *entity.Dynamic {
	return detached(m.order, map[string]any{
		"id":     uuid.MustParse(orderID),
		"total":  decimal.RequireFromString("9.99"),
		"status": m.status.MustConstant("PAID"),
	})
}

func (m *model) newPerson(id int64, name string) *entity.Dynamic {
	return detached(m.person, map[string]any{"id": id, "name": name})
}
