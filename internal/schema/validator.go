// internal/schema/validator.go
// Package schema provides JSON schema validation for RPC procedure inputs.
// Handlers never see input that has not passed its procedure's schema.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// inputSchemas maps procedure names to the JSON schema of their input.
// Procedures absent from this map take no input.
var inputSchemas = map[string]string{
	"auth.login": `{"type":"object","required":["username","password"],"properties":{
		"username":{"type":"string","minLength":1},
		"password":{"type":"string","minLength":1}}}`,

	"auth.me": `{"type":"object","required":["token"],"properties":{
		"token":{"type":"string"}}}`,

	"products.list": `{"type":"object","properties":{
		"skip":{"type":"integer","minimum":0},
		"limit":{"type":"integer","minimum":0},
		"search":{"type":"string"},
		"category":{"type":"string"}}}`,

	"products.getById": `{"type":"object","required":["id"],"properties":{
		"id":{"type":"integer"}}}`,

	"products.add": `{"type":"object",
		"required":["title","description","price","stock","brand","category","thumbnail","images"],
		"properties":{
		"title":{"type":"string"},
		"description":{"type":"string"},
		"price":{"type":"number","minimum":0},
		"discountPercentage":{"type":"number","default":0},
		"rating":{"type":"number","default":0},
		"stock":{"type":"integer","minimum":0},
		"brand":{"type":"string"},
		"category":{"type":"string"},
		"thumbnail":{"type":"string"},
		"images":{"type":"array","items":{"type":"string"}}}}`,

	"products.update": `{"type":"object","required":["id","data"],"properties":{
		"id":{"type":"integer"},
		"data":{"type":"object","properties":{
			"title":{"type":"string"},
			"description":{"type":"string"},
			"price":{"type":"number","minimum":0},
			"stock":{"type":"integer","minimum":0},
			"brand":{"type":"string"},
			"category":{"type":"string"}}}}}`,

	"products.delete": `{"type":"object","required":["id"],"properties":{
		"id":{"type":"integer"}}}`,
}

// compiled is a loaded schema plus the top-level defaults it declares.
type compiled struct {
	schema   *gojsonschema.Schema
	defaults map[string]json.RawMessage
}

// Validator validates procedure inputs against JSON schemas.
type Validator struct {
	schemas map[string]*compiled // Map of procedure names to compiled schemas
}

// NewValidator creates a new schema validator with every procedure schema loaded.
// Returns:
//   - *Validator: Initialized validator instance
//   - error: Any error that occurred during initialization
func NewValidator() (*Validator, error) {
	v := &Validator{schemas: make(map[string]*compiled)}

	names := make([]string, 0, len(inputSchemas))
	for name := range inputSchemas {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := v.loadSchema(name, inputSchemas[name]); err != nil {
			return nil, fmt.Errorf("failed to load schemas: %w", err)
		}
	}
	return v, nil
}

// loadSchema parses and compiles a JSON schema for a single procedure.
func (v *Validator) loadSchema(procedure, schemaJSON string) error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return fmt.Errorf("invalid schema for %s: %w", procedure, err)
	}

	// Collect "default" keywords; gojsonschema validates but does not apply them
	var doc struct {
		Properties map[string]struct {
			Default json.RawMessage `json:"default"`
		} `json:"properties"`
	}
	if err := json.Unmarshal([]byte(schemaJSON), &doc); err != nil {
		return fmt.Errorf("invalid schema for %s: %w", procedure, err)
	}
	defaults := make(map[string]json.RawMessage)
	for field, prop := range doc.Properties {
		if len(prop.Default) > 0 {
			defaults[field] = prop.Default
		}
	}

	v.schemas[procedure] = &compiled{schema: schema, defaults: defaults}
	return nil
}

// Has reports whether the procedure declares an input schema.
func (v *Validator) Has(procedure string) bool {
	_, ok := v.schemas[procedure]
	return ok
}

// Validate checks input against the procedure's schema and returns the
// validated value with declared defaults filled in.
// Parameters:
//   - procedure: The procedure name (e.g., "auth.login")
//   - input: The raw JSON input
// Returns:
//   - json.RawMessage: The validated input, defaults applied
//   - error: nil if valid, error with details if invalid
func (v *Validator) Validate(procedure string, input json.RawMessage) (json.RawMessage, error) {
	c, exists := v.schemas[procedure]
	if !exists {
		return nil, fmt.Errorf("schema not found for procedure: %s", procedure)
	}

	result, err := c.schema.Validate(gojsonschema.NewBytesLoader(input))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	// Check if validation failed and collect error details
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return nil, fmt.Errorf("validation failed: %s", strings.Join(errs, "; "))
	}

	if len(c.defaults) == 0 {
		return input, nil
	}
	return applyDefaults(input, c.defaults)
}

// applyDefaults fills absent top-level fields of an object with their defaults.
// Numbers are kept as json.Number so values pass through unchanged.
func applyDefaults(input json.RawMessage, defaults map[string]json.RawMessage) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	for field, def := range defaults {
		if _, present := obj[field]; !present {
			obj[field] = def
		}
	}

	out, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	return out, nil
}
