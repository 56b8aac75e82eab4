package serde

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// object is a JSON object that keeps insertion order. Entity attributes are
// written in declaration order, which a Go map cannot preserve.
type object struct {
	members []member
}

type member struct {
	key   string
	value any // *object, array, nil, or a leaf encoded by go-json
}

type array []any

func (o *object) set(key string, value any) {
	o.members = append(o.members, member{key, value})
}

// render encodes a tree built by the serializer.
func render(v any, opts Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}
	if !opts.Has(PrettyPrint) {
		return buf.Bytes(), nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func encode(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case *object:
		buf.WriteByte('{')
		for i, m := range t.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(m.key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := encode(buf, m.value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case array:
		buf.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

// decode parses a document into generic values. Numbers stay json.Number so
// that decimals and longs keep their exact text.
func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, fmt.Errorf("trailing data after top-level value")
	}
	return v, nil
}
