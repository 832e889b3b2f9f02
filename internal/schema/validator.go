package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/golang-lru/v2/expirable"
	js "github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator compiles named JSON Schemas once and checks raw backend
// payloads against them before they are decoded into typed structs.
// A payload that fails its schema never reaches the caller as a
// half-populated value.
type Validator struct {
	compiler *js.Compiler
	cache    *expirable.LRU[string, *js.Schema]
	defs     map[string]map[string]interface{}
}

// NewValidator creates a validator over a set of named schema definitions.
func NewValidator(defs map[string]map[string]interface{}, cacheSize int) *Validator {
	c := js.NewCompiler()
	c.ExtractAnnotations = true

	return &Validator{
		compiler: c,
		cache:    expirable.NewLRU[string, *js.Schema](cacheSize, nil, 0),
		defs:     defs,
	}
}

// Validate checks raw JSON against the named schema. An unknown name is a
// programming error and is reported as such.
func (v *Validator) Validate(name string, raw []byte) error {
	compiled, err := v.compiled(name)
	if err != nil {
		return err
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("payload is not valid JSON: %w", err)
	}

	if err := compiled.Validate(value); err != nil {
		return fmt.Errorf("payload does not match %s schema: %w", name, err)
	}
	return nil
}

func (v *Validator) compiled(name string) (*js.Schema, error) {
	if s, ok := v.cache.Get(name); ok {
		return s, nil
	}

	def, ok := v.defs[name]
	if !ok {
		return nil, fmt.Errorf("no schema registered for %q", name)
	}

	schemaBytes, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema %q: %w", name, err)
	}

	resourceURL := fmt.Sprintf("mem://schema/%s.json", name)
	if err := v.compiler.AddResource(resourceURL, bytes.NewReader(schemaBytes)); err != nil {
		return nil, fmt.Errorf("failed to add schema %q: %w", name, err)
	}

	compiled, err := v.compiler.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %q: %w", name, err)
	}

	v.cache.Add(name, compiled)
	return compiled, nil
}
