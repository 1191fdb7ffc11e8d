package block

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/nbrandt/espalier/pkg/domain"
)

// Field types accepted in property templates.
const (
	FieldString = "string"
	FieldNumber = "number"
	FieldBool   = "bool"
	FieldList   = "list"
	FieldMap    = "map"
	FieldAny    = "any"
)

// Field declares one property in a block's template: its type, whether
// it must be supplied, and the default applied otherwise.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
	Default  any    `json:"default,omitempty"`
}

// Template is a block type's declared property schema, in declaration
// order.
type Template []Field

// PropertyError is a construction-time property failure. A block with a
// malformed property set cannot be instantiated.
type PropertyError struct {
	Name   string
	Reason string
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("property %q: %s", e.Name, e.Reason)
}

// Resolve validates an ordered property list against the template and
// returns the effective value map: supplied values win, defaults fill
// the gaps, missing required fields fail. Unknown properties are a
// construction error, not a silent drop.
func (t Template) Resolve(props []domain.Property) (map[string]any, error) {
	declared := make(map[string]Field, len(t))
	for _, f := range t {
		declared[f.Name] = f
	}

	values := make(map[string]any, len(t))
	for _, p := range props {
		f, ok := declared[p.Name]
		if !ok {
			return nil, &PropertyError{Name: p.Name, Reason: "not declared by this block type"}
		}
		if p.Value == nil {
			continue
		}
		if err := checkFieldType(f, p.Value); err != nil {
			return nil, err
		}
		values[p.Name] = p.Value
	}

	for _, f := range t {
		if _, ok := values[f.Name]; ok {
			continue
		}
		if f.Required {
			return nil, &PropertyError{Name: f.Name, Reason: "required but missing"}
		}
		if f.Default != nil {
			values[f.Name] = f.Default
		}
	}
	return values, nil
}

// Decode resolves the property list and fills out, a pointer to the
// block's typed property struct, using mapstructure with weak typing so
// YAML and JSON sources decode alike.
func (t Template) Decode(props []domain.Property, out any) error {
	values, err := t.Resolve(props)
	if err != nil {
		return err
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(values); err != nil {
		return &PropertyError{Name: "<decode>", Reason: err.Error()}
	}
	return nil
}

func checkFieldType(f Field, v any) error {
	ok := true
	switch f.Type {
	case FieldString:
		_, ok = v.(string)
	case FieldNumber:
		switch v.(type) {
		case int, int8, int16, int32, int64, float32, float64:
		default:
			ok = false
		}
	case FieldBool:
		switch v.(type) {
		case bool, string: // "true"/"false" accepted, weakly decoded
		default:
			ok = false
		}
	case FieldList:
		switch v.(type) {
		case []any, []string, [][]string, []map[string]any:
		default:
			ok = false
		}
	case FieldMap:
		switch v.(type) {
		case map[string]any, map[string]string:
		default:
			ok = false
		}
	case FieldAny, "":
	default:
		return &PropertyError{Name: f.Name, Reason: fmt.Sprintf("template declares unknown type %q", f.Type)}
	}
	if !ok {
		return &PropertyError{Name: f.Name, Reason: fmt.Sprintf("expected %s, got %T", f.Type, v)}
	}
	return nil
}
