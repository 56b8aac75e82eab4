package datatype

import (
	"encoding/base64"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/matzehuels/entitygraph/pkg/errors"
)

// Layouts used by the temporal datatypes.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05.000"
	TimeLayout     = "15:04:05"
)

var builtins = []Datatype{
	Func("string", formatString, parseString),
	Func("boolean", formatBool, parseBool),
	Func("int", formatInt, parseInt),
	Func("long", formatInt, parseLong),
	Func("double", formatDouble, parseDouble),
	Func("decimal", formatDecimal, parseDecimal),
	temporal("date", DateLayout, nil),
	temporal("dateTime", DateTimeLayout, time.UTC),
	temporal("time", TimeLayout, nil),
	Func("uuid", formatUUID, parseUUID),
	Func("byteArray", formatBytes, parseBytes),
}

func invalid(name string, v any, cause error) error {
	if cause == nil {
		return errors.New(errors.ErrCodeInvalidInput, "%s: unsupported value of type %T", name, v).WithValue(v)
	}
	return errors.Wrap(errors.ErrCodeInvalidInput, cause, "%s: cannot convert %v", name, v).WithValue(v)
}

// =============================================================================
// string / boolean
// =============================================================================

type stringer interface{ String() string }

func formatString(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case stringer:
		return t.String(), nil
	}
	return nil, invalid("string", v, nil)
}

func parseString(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	}
	return nil, invalid("string", v, nil)
}

func formatBool(v any) (any, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return nil, invalid("boolean", v, nil)
}

func parseBool(v any) (any, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return nil, invalid("boolean", v, err)
		}
		return b, nil
	}
	return nil, invalid("boolean", v, nil)
}

// =============================================================================
// numbers
// =============================================================================

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	}
	return 0, false
}

func formatInt(v any) (any, error) {
	if n, ok := toInt64(v); ok {
		return n, nil
	}
	return nil, invalid("long", v, nil)
}

func parseLong(v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return nil, invalid("long", v, err)
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return nil, invalid("long", v, err)
		}
		return n, nil
	}
	if n, ok := toInt64(v); ok {
		return n, nil
	}
	return nil, invalid("long", v, nil)
}

func parseInt(v any) (any, error) {
	n, err := parseLong(v)
	if err != nil {
		return nil, err
	}
	i := n.(int64)
	if i < math.MinInt32 || i > math.MaxInt32 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "int: %d out of range", i).WithValue(v)
	}
	return int(i), nil
}

func formatDouble(v any) (any, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	}
	if n, ok := toInt64(v); ok {
		return float64(n), nil
	}
	return nil, invalid("double", v, nil)
}

func parseDouble(v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, invalid("double", v, err)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil, invalid("double", v, err)
		}
		return f, nil
	case float64:
		return t, nil
	}
	return nil, invalid("double", v, nil)
}

func formatDecimal(v any) (any, error) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t.String(), nil
	case *decimal.Decimal:
		if t == nil {
			return nil, nil
		}
		return t.String(), nil
	}
	return nil, invalid("decimal", v, nil)
}

// parseDecimal reads number literals from their text, never through float64.
func parseDecimal(v any) (any, error) {
	var text string
	switch t := v.(type) {
	case json.Number:
		text = t.String()
	case string:
		text = strings.TrimSpace(t)
	case decimal.Decimal:
		return t, nil
	default:
		return nil, invalid("decimal", v, nil)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil, invalid("decimal", v, err)
	}
	return d, nil
}

// =============================================================================
// temporal
// =============================================================================

// temporal builds a codec over a layout without zone offset. With loc set,
// values are instants converted to loc on the way out and read back in loc.
// With loc nil, the wall clock of the value is written as is and read as UTC.
func temporal(name, layout string, loc *time.Location) Datatype {
	format := func(v any) (any, error) {
		var t time.Time
		switch tv := v.(type) {
		case time.Time:
			t = tv
		case *time.Time:
			if tv == nil {
				return nil, nil
			}
			t = *tv
		default:
			return nil, invalid(name, v, nil)
		}
		if loc != nil {
			t = t.In(loc)
		}
		return t.Format(layout), nil
	}
	parse := func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, invalid(name, v, nil)
		}
		in := loc
		if in == nil {
			in = time.UTC
		}
		t, err := time.ParseInLocation(layout, s, in)
		if err != nil {
			return nil, invalid(name, v, err)
		}
		return t, nil
	}
	return Func(name, format, parse)
}

// =============================================================================
// uuid / byteArray
// =============================================================================

func formatUUID(v any) (any, error) {
	switch t := v.(type) {
	case uuid.UUID:
		return t.String(), nil
	case string:
		if _, err := uuid.Parse(t); err != nil {
			return nil, invalid("uuid", v, err)
		}
		return t, nil
	}
	return nil, invalid("uuid", v, nil)
}

func parseUUID(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, invalid("uuid", v, nil)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, invalid("uuid", v, err)
	}
	return id, nil
}

func formatBytes(v any) (any, error) {
	if b, ok := v.([]byte); ok {
		return base64.StdEncoding.EncodeToString(b), nil
	}
	return nil, invalid("byteArray", v, nil)
}

func parseBytes(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, invalid("byteArray", v, nil)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, invalid("byteArray", v, err)
	}
	return b, nil
}
