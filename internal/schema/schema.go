// Package schema validates raw extractor output and normalizes it into the
// canonical multi-structure report types. Legacy single-structure shapes are
// migrated here so nothing downstream has to handle them.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Shape identifies which layout a raw report uses.
type Shape int

const (
	ShapeUnknown Shape = iota
	// ShapeSingle is the legacy layout: one structure's data at the top level.
	ShapeSingle
	// ShapeMulti is the canonical layout with a structure count.
	ShapeMulti
)

func (s Shape) String() string {
	switch s {
	case ShapeSingle:
		return "single"
	case ShapeMulti:
		return "multi"
	default:
		return "unknown"
	}
}

// SchemaError reports raw data that violates the report schema.
type SchemaError struct {
	Path string
	Msg  string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "schema: " + e.Msg
	}
	return fmt.Sprintf("schema: %s: %s", e.Path, e.Msg)
}

func schemaErr(path, format string, args ...any) error {
	return &SchemaError{Path: path, Msg: fmt.Sprintf(format, args...)}
}

func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &SchemaError{Msg: "invalid json: " + err.Error()}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, schemaErr("", "expected an object, got %s", typeName(v))
	}
	return obj, nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func index(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// object reads a required nested object.
func object(obj map[string]any, key, path string) (map[string]any, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, schemaErr(join(path, key), "required")
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, schemaErr(join(path, key), "expected object, got %s", typeName(v))
	}
	return m, nil
}

// array reads an optional array; absent or null is nil.
func array(obj map[string]any, key, path string) ([]any, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, nil
	}
	a, ok := v.([]any)
	if !ok {
		return nil, schemaErr(join(path, key), "expected array, got %s", typeName(v))
	}
	return a, nil
}

// integer coerces a number or numeric string to an int.
func integer(v any, path string) (int, error) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, schemaErr(path, "expected integer, got %s", x)
		}
		return int(f), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, schemaErr(path, "expected integer, got %q", x)
		}
		return n, nil
	default:
		return 0, schemaErr(path, "expected integer, got %s", typeName(v))
	}
}

// text coerces a string or number to a string. Null is nil.
func text(v any, path string) (*string, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &x, nil
	case json.Number:
		s := x.String()
		return &s, nil
	default:
		return nil, schemaErr(path, "expected string, got %s", typeName(v))
	}
}

// textOrEmpty is text for fields whose model type is a plain string.
func textOrEmpty(obj map[string]any, key, path string) (string, error) {
	s, err := text(obj[key], join(path, key))
	if err != nil || s == nil {
		return "", err
	}
	return *s, nil
}

// number coerces a number or numeric string to a float. Null is nil.
func number(v any, path string) (*float64, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, schemaErr(path, "expected number, got %s", x)
		}
		return &f, nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", "")
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, schemaErr(path, "expected number, got %q", x)
		}
		return &f, nil
	default:
		return nil, schemaErr(path, "expected number, got %s", typeName(v))
	}
}

// boolean coerces a boolean or "true"/"false" string. Null is false.
func boolean(v any, path string) (bool, error) {
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, schemaErr(path, "expected boolean, got %q", x)
		}
		return b, nil
	default:
		return false, schemaErr(path, "expected boolean, got %s", typeName(v))
	}
}
