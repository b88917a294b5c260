package structout

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrInvalidOutput reports a model reply that failed parsing or schema
// validation. Callers decide whether that is fatal (idea generation) or maps
// to a degraded fallback value (assessment, tutor).
type ErrInvalidOutput struct {
	RawText string
	Err     error
}

func (e *ErrInvalidOutput) Error() string {
	return fmt.Sprintf("invalid structured output: %v", e.Err)
}

func (e *ErrInvalidOutput) Unwrap() error { return e.Err }

// StripFences removes a surrounding Markdown code fence, the first recovery
// layer for models that wrap their JSON despite instructions.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// ParseObject parses the reply as one JSON object, retrying once with fences
// stripped.
func ParseObject(raw string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		return obj, nil
	}
	stripped := StripFences(raw)
	if err := json.Unmarshal([]byte(stripped), &obj); err != nil {
		return nil, &ErrInvalidOutput{RawText: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	return obj, nil
}

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// Validate checks a parsed object against the named schema descriptor.
func Validate(schemaName string, schema map[string]any, obj map[string]any) error {
	compiled, err := getCompiledSchema(schemaName, schema)
	if err != nil {
		return &ErrInvalidOutput{Err: fmt.Errorf("compile schema %q: %w", schemaName, err)}
	}
	// The library validates the generic any representation, so round-trip
	// through JSON to normalize numbers.
	normBytes, err := json.Marshal(obj)
	if err != nil {
		return &ErrInvalidOutput{Err: fmt.Errorf("marshal output: %w", err)}
	}
	var normalized any
	if err := json.Unmarshal(normBytes, &normalized); err != nil {
		return &ErrInvalidOutput{Err: fmt.Errorf("normalize output: %w", err)}
	}
	if err := compiled.Validate(normalized); err != nil {
		return &ErrInvalidOutput{Err: fmt.Errorf("schema validation failed: %w", err)}
	}
	return nil
}

// Decode re-marshals a parsed object into a typed struct.
func Decode(obj map[string]any, out any) error {
	raw, err := json.Marshal(obj)
	if err != nil {
		return &ErrInvalidOutput{Err: fmt.Errorf("marshal object: %w", err)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ErrInvalidOutput{Err: fmt.Errorf("decode object: %w", err)}
	}
	return nil
}

func getCompiledSchema(name string, definition map[string]any) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The jsonschema library expects a parsed JSON value, not raw bytes.
	defBytes, err := json.Marshal(definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://%s.json", name)
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}

	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(name, compiled)
	return compiled, nil
}
