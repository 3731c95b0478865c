package domain

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// LineItem is one product row of a quote or order. Quantity and Rate are nil
// when absent from the payload; every other field is carried through
// untouched in Extra (description, product id, unit, ...).
type LineItem struct {
	Quantity *Value
	Rate     *Value
	Extra    map[string]json.RawMessage
}

// NewLineItem builds a line item with both amounts present.
func NewLineItem(quantity, rate Value) LineItem {
	return LineItem{Quantity: &quantity, Rate: &rate}
}

// MarshalJSON flattens Extra alongside quantity and rate. Keys come out
// sorted, which keeps error payloads stable.
func (li LineItem) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(li.Extra)+2)
	for k, v := range li.Extra {
		out[k] = v
	}
	if li.Quantity != nil {
		out["quantity"] = *li.Quantity
	}
	if li.Rate != nil {
		out["rate"] = *li.Rate
	}
	return json.Marshal(out)
}

func (li *LineItem) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	*li = LineItem{}
	for k, raw := range fields {
		switch k {
		case "quantity":
			v, err := optionalValue(raw)
			if err != nil {
				return fmt.Errorf("quantity: %w", err)
			}
			li.Quantity = v
		case "rate":
			v, err := optionalValue(raw)
			if err != nil {
				return fmt.Errorf("rate: %w", err)
			}
			li.Rate = v
		default:
			if li.Extra == nil {
				li.Extra = make(map[string]json.RawMessage)
			}
			li.Extra[k] = raw
		}
	}
	return nil
}

func optionalValue(raw json.RawMessage) (*Value, error) {
	if string(raw) == "null" {
		return nil, nil
	}
	var v Value
	if err := v.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return &v, nil
}

// UnmarshalYAML reads a mapping node. Quantity and rate keep their scalar
// text exactly as written; every other field is re-encoded as JSON into Extra.
func (li *LineItem) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: line item must be a mapping", node.Line)
	}

	*li = LineItem{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		if val.Kind == yaml.AliasNode {
			val = val.Alias
		}
		switch key {
		case "quantity":
			li.Quantity = optionalYAMLValue(val)
		case "rate":
			li.Rate = optionalYAMLValue(val)
		default:
			var x any
			if err := val.Decode(&x); err != nil {
				return fmt.Errorf("field %q: %w", key, err)
			}
			b, err := json.Marshal(x)
			if err != nil {
				return fmt.Errorf("field %q: %w", key, err)
			}
			if li.Extra == nil {
				li.Extra = make(map[string]json.RawMessage)
			}
			li.Extra[key] = b
		}
	}
	return nil
}

func optionalYAMLValue(node *yaml.Node) *Value {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	var v Value
	_ = v.UnmarshalYAML(node)
	return &v
}
