package models

import (
	"encoding/json"
	"fmt"
)

// IDField is the document key holding the document's own identifier.
const IDField = "id"

// Document is the stored field set of a single entity.
type Document map[string]any

// ID returns the document identifier.
func (d Document) ID() string {
	return d.String(IDField)
}

// String returns a string-valued field or "" when absent.
func (d Document) String(field string) string {
	if d == nil {
		return ""
	}
	s, _ := d[field].(string)
	return s
}

// Strings returns the string members of an array field.
func (d Document) Strings(field string) []string {
	if d == nil {
		return nil
	}
	switch v := d[field].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Contains reports whether the array field holds value.
func (d Document) Contains(field, value string) bool {
	for _, s := range d.Strings(field) {
		if s == value {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the document so callers cannot alias stored state.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]any(d)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case Document:
		return Document(cloneValue(map[string]any(t)).(map[string]any))
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out
	default:
		return v
	}
}

// ToDocument converts a typed entity into its stored representation.
func ToDocument(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// FromDocument decodes a stored document into the typed entity pointed to by out.
func FromDocument(doc Document, out any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}
