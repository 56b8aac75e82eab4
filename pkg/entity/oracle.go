package entity

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Oracle answers identity and load-state questions about entities.
type Oracle interface {
	IsLoaded(e Entity, property string) bool
	IsNew(e Entity) bool
	ID(e Entity) any
	SetID(e Entity, id any)
}

// DefaultOracle implements Oracle on top of the Entity interface.
type DefaultOracle struct{}

var _ Oracle = DefaultOracle{}

func (DefaultOracle) IsLoaded(e Entity, property string) bool {
	_, ok := e.Value(property)
	return ok
}

// IsNew uses the entity's own IsNew method when it has one.
func (DefaultOracle) IsNew(e Entity) bool {
	if n, ok := e.(interface{ IsNew() bool }); ok {
		return n.IsNew()
	}
	return false
}

// ID returns the value of the primary-key attribute, or nil.
func (DefaultOracle) ID(e Entity) any {
	pk := e.MetaClass().PrimaryKeyProperty()
	if pk == nil {
		return nil
	}
	v, _ := e.Value(pk.Name)
	return v
}

// SetID assigns the primary key. A GeneratedID also assigns the natural id
// attribute when the class declares one.
func (DefaultOracle) SetID(e Entity, id any) {
	mc := e.MetaClass()
	pk := mc.PrimaryKeyProperty()
	if pk == nil {
		return
	}
	if g, ok := id.(GeneratedID); ok {
		e.SetValue(pk.Name, g)
		if g.NaturalID != nil && mc.NaturalID != "" {
			e.SetValue(mc.NaturalID, g.NaturalID)
		}
		return
	}
	e.SetValue(pk.Name, id)
}

// compositeKey keeps composite identities apart from scalar string ids.
type compositeKey string

// naturalKey keeps natural ids apart from surrogate values of the same type.
type naturalKey struct{ key any }

// IdentityKey normalizes an id into a comparable map key. It reports false
// for ids that do not identify anything (nil, or a GeneratedID with neither
// part set). Composite keys map to the values of their attributes in
// declaration order.
func IdentityKey(id any) (any, bool) {
	switch v := id.(type) {
	case nil:
		return nil, false
	case GeneratedID:
		if v.Value != nil {
			return IdentityKey(v.Value)
		}
		k, ok := IdentityKey(v.NaturalID)
		if !ok {
			return nil, false
		}
		return naturalKey{k}, true
	case Entity:
		mc := v.MetaClass()
		parts := make([]string, 0, len(mc.Properties))
		for _, p := range mc.Properties {
			val, _ := v.Value(p.Name)
			k, ok := IdentityKey(val)
			if !ok {
				parts = append(parts, "nil")
				continue
			}
			// quoted parts cannot run into each other or into "nil"
			parts = append(parts, strconv.Quote(fmt.Sprintf("%T:%v", k, k)))
		}
		return compositeKey(strings.Join(parts, ",")), true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case decimal.Decimal:
		return "decimal:" + v.String(), true
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano), true
	case []byte:
		return "bytes:" + string(v), true
	}
	if reflect.TypeOf(id).Comparable() {
		return id, true
	}
	return fmt.Sprintf("%T:%v", id, id), true
}

// formatID renders an id for people. Composite parts are joined with "|".
func formatID(id any) string {
	switch v := id.(type) {
	case GeneratedID:
		if v.Value != nil {
			return formatID(v.Value)
		}
		return formatID(v.NaturalID)
	case Entity:
		props := v.MetaClass().Properties
		parts := make([]string, 0, len(props))
		for _, p := range props {
			val, _ := v.Value(p.Name)
			parts = append(parts, formatID(val))
		}
		return strings.Join(parts, "|")
	}
	k, ok := IdentityKey(id)
	if !ok {
		return "null"
	}
	return fmt.Sprint(k)
}

// FormatID renders an id for display, using the same normalization as
// IdentityKey.
func FormatID(id any) string { return formatID(id) }
