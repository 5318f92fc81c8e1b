package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Kind is the declared value kind of a field.
type Kind string

const (
	String  Kind = "string"
	Number  Kind = "number"
	Integer Kind = "integer"
	Boolean Kind = "boolean"
	Array   Kind = "array"
	Object  Kind = "object"
)

// Field describes one declared field of a tool's input or output shape.
type Field struct {
	Kind        Kind
	Description string
	Required    bool
	Enum        []string // valid values for string fields; empty means unconstrained
	MinLength   int      // minimum length for string fields
}

// Schema is a declarative structural description of an object value.
// It is interpreted at runtime by Validate and rendered as JSON Schema
// for the model's tool declarations.
type Schema struct {
	Fields map[string]Field
}

// ValidationError reports why a value does not conform to a schema.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "schema: " + strings.Join(e.Issues, "; ")
}

// Validate checks value against the schema and returns only the declared
// fields. Unknown fields are dropped, never an error. Validate is pure:
// it inspects the value and nothing else.
func Validate(s Schema, value map[string]any) (map[string]any, error) {
	var issues []string
	out := make(map[string]any, len(s.Fields))

	for _, name := range sortedFieldNames(s) {
		f := s.Fields[name]
		v, present := value[name]
		if !present || v == nil {
			if f.Required {
				issues = append(issues, fmt.Sprintf("field %q is missing", name))
			}
			continue
		}

		actual, ok := matches(f.Kind, v)
		if !ok {
			issues = append(issues, fmt.Sprintf("field %q: expected %s, got %s", name, f.Kind, actual))
			continue
		}

		if f.Kind == String {
			str := v.(string)
			if len(f.Enum) > 0 && !containsString(f.Enum, str) {
				issues = append(issues, fmt.Sprintf("field %q: must be one of [%s]", name, strings.Join(f.Enum, ", ")))
				continue
			}
			if f.MinLength > 0 && len(str) < f.MinLength {
				issues = append(issues, fmt.Sprintf("field %q: shorter than %d characters", name, f.MinLength))
				continue
			}
		}

		out[name] = v
	}

	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return out, nil
}

// matches reports whether v conforms to kind, returning the observed kind
// name for error messages. Numeric fields accept integer or decimal values;
// model-produced arguments arrive as float64 after JSON decoding while
// handler outputs carry native Go ints.
func matches(k Kind, v any) (string, bool) {
	actual := kindOf(v)
	switch k {
	case Number:
		return actual, actual == "number" || actual == "integer"
	case Integer:
		if actual == "number" {
			f := toFloat(v)
			return actual, f == float64(int64(f))
		}
		return actual, actual == "integer"
	default:
		return actual, actual == string(k)
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int32, int64:
		return "integer"
	case float32, float64:
		return "number"
	case json.Number:
		return "number"
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct, reflect.Pointer:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func sortedFieldNames(s Schema) []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// JSON renders the schema as a JSON Schema object suitable for a tool
// declaration. Property order is deterministic (encoding/json sorts map keys).
func (s Schema) JSON() json.RawMessage {
	properties := make(map[string]any, len(s.Fields))
	var required []string

	for _, name := range sortedFieldNames(s) {
		f := s.Fields[name]
		prop := map[string]any{"type": string(f.Kind)}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		if len(f.Enum) > 0 {
			prop["enum"] = f.Enum
		}
		if f.MinLength > 0 {
			prop["minLength"] = f.MinLength
		}
		properties[name] = prop
		if f.Required {
			required = append(required, name)
		}
	}

	doc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}

	data, _ := json.Marshal(doc)
	return data
}
