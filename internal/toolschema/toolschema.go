// Package toolschema handles the JSON Schemas tools declare for their output.
package toolschema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const (
	defsPrefix        = "#/$defs/"
	definitionsPrefix = "#/definitions/"
)

// ResolveRefs inlines in-document references of the form #/$defs/<name> and
// #/definitions/<name>. Keys next to a $ref override the same keys of the
// referenced definition. References that cannot be resolved, including
// cyclic ones, are left in place.
func ResolveRefs(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}

	defs, _ := schema["$defs"].(map[string]any)
	if len(defs) == 0 {
		defs, _ = schema["definitions"].(map[string]any)
	}

	r := &resolver{defs: defs, active: make(map[string]bool)}
	resolved, _ := r.resolve(schema).(map[string]any)
	return resolved
}

type resolver struct {
	defs   map[string]any
	active map[string]bool
}

func (r *resolver) resolve(node any) any {
	switch n := node.(type) {
	case map[string]any:
		if ref, ok := n["$ref"].(string); ok && isLocalRef(ref) {
			return r.inline(n, ref)
		}
		out := make(map[string]any, len(n))
		for k, v := range n {
			out[k] = r.resolve(v)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, v := range n {
			out[i] = r.resolve(v)
		}
		return out
	default:
		return node
	}
}

func (r *resolver) inline(node map[string]any, ref string) any {
	key := ref[strings.LastIndex(ref, "/")+1:]
	target, ok := r.defs[key].(map[string]any)
	if !ok || r.active[key] {
		return node
	}

	r.active[key] = true
	resolved, _ := r.resolve(target).(map[string]any)
	delete(r.active, key)

	merged := make(map[string]any, len(resolved)+len(node))
	for k, v := range resolved {
		merged[k] = v
	}
	for k, v := range node {
		if k != "$ref" {
			merged[k] = v
		}
	}
	return merged
}

func isLocalRef(ref string) bool {
	return strings.HasPrefix(ref, defsPrefix) || strings.HasPrefix(ref, definitionsPrefix)
}

// ValidationError lists the violations of a value against a schema.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("output does not match schema:\n  - %s", strings.Join(e.Details, "\n  - "))
}

// Validate checks value against schema. It returns a *ValidationError when
// the value does not conform and a plain error when the schema is unusable.
func Validate(schema map[string]any, value any) error {
	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	valueBytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(valueBytes),
	)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return &ValidationError{Details: details}
}
