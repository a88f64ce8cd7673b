package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

var jsonNull = []byte("null")

// UnmarshalJSON decodes a JSON object keeping key order. Numbers keep their
// literal text (json.Number) so "1" and "1.0" stay distinct axis values.
func (p *Params) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out Params
	err := decodeObject(dec, func(key string) error {
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("parameter %q: %w", key, err)
		}
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			return fmt.Errorf("parameter %q: value must be a scalar", key)
		}
		out = append(out, Param{Name: key, Value: v})
		return nil
	})
	if err != nil {
		return fmt.Errorf("input_params: %w", err)
	}
	*p = out
	return nil
}

// MarshalJSON encodes the parameters as an object in slice order.
func (p Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, param := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, param.Name, param.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes a YAML mapping keeping key order.
func (p *Params) UnmarshalYAML(value *yaml.Node) error {
	var out Params
	err := walkMapping(value, func(key string, node *yaml.Node) error {
		if node.Kind != yaml.ScalarNode {
			return fmt.Errorf("parameter %q: value must be a scalar", key)
		}
		var v interface{}
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("parameter %q: %w", key, err)
		}
		out = append(out, Param{Name: key, Value: v})
		return nil
	})
	if err != nil {
		return fmt.Errorf("input_params: %w", err)
	}
	*p = out
	return nil
}

// UnmarshalJSON decodes the quantity object keeping key order.
func (q *Quantities) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))

	var out Quantities
	err := decodeObject(dec, func(key string) error {
		a := new(Array3)
		if err := dec.Decode(a); err != nil {
			return fmt.Errorf("quantity %q: %w", key, err)
		}
		out = append(out, Quantity{Name: key, Values: a})
		return nil
	})
	if err != nil {
		return fmt.Errorf("output_values: %w", err)
	}
	*q = out
	return nil
}

// MarshalJSON encodes the quantities as an object in slice order.
func (q Quantities) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, qty := range q {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, qty.Name, qty.Values); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes the quantity mapping keeping key order.
func (q *Quantities) UnmarshalYAML(value *yaml.Node) error {
	var out Quantities
	err := walkMapping(value, func(key string, node *yaml.Node) error {
		a := new(Array3)
		if err := a.UnmarshalYAML(node); err != nil {
			return fmt.Errorf("quantity %q: %w", key, err)
		}
		out = append(out, Quantity{Name: key, Values: a})
		return nil
	})
	if err != nil {
		return fmt.Errorf("output_values: %w", err)
	}
	*q = out
	return nil
}

// decodeObject reads one JSON object from dec, calling fn for each key with
// the decoder positioned at that key's value.
func decodeObject(dec *json.Decoder, fn func(key string) error) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}

	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		if seen[key] {
			return fmt.Errorf("duplicate key %q", key)
		}
		seen[key] = true
		if err := fn(key); err != nil {
			return err
		}
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// walkMapping calls fn for each key/value pair of a YAML mapping in order.
func walkMapping(value *yaml.Node, fn func(key string, node *yaml.Node) error) error {
	if value.Kind == yaml.AliasNode && value.Alias != nil {
		value = value.Alias
	}
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected mapping", value.Line)
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		if seen[key] {
			return fmt.Errorf("line %d: duplicate key %q", value.Content[i].Line, key)
		}
		seen[key] = true
		if err := fn(key, value.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func writeMember(buf *bytes.Buffer, key string, value interface{}) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}
