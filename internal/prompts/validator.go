package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

// Validator checks decoded model output against a compiled JSON Schema
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles a JSON Schema document
func NewValidator(schemaData []byte) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(schemaData)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// ValidatorFor compiles the schema attached to the named prompt. Prompts
// without a schema yield a nil validator.
func (r *Registry) ValidatorFor(name string) (*Validator, error) {
	data, ok, err := r.Schema(name)
	if err != nil || !ok {
		return nil, err
	}
	return NewValidator(data)
}

// Validate reports every schema violation in v. A nil validator accepts anything.
func (v *Validator) Validate(instance map[string]interface{}) error {
	if v == nil {
		return nil
	}
	result := v.schema.Validate(instance)
	if result.IsValid() {
		return nil
	}

	var messages []string
	for field, evalErr := range result.Errors {
		messages = append(messages, fmt.Sprintf("%s: %s", field, evalErr.Error()))
	}
	sort.Strings(messages)
	return fmt.Errorf("output validation failed: %s", strings.Join(messages, "; "))
}
