package registry

import (
	"context"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ToolParameter describes a single argument accepted by a tool.
type ToolParameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}

// ToolDefinition is the immutable descriptor of a tool: everything the
// model needs to decide whether and how to call it.
type ToolDefinition struct {
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Parameters       []ToolParameter `json:"parameters"`
	Category         string          `json:"category,omitempty"`
	Tags             []string        `json:"tags,omitempty"`
	RequiresApproval bool            `json:"requires_approval,omitempty"`
}

// Executor runs a tool with already-decoded arguments. It may block;
// cancellation flows through ctx.
type Executor func(ctx context.Context, args map[string]interface{}) (ExecutionResult, error)

var validParamTypes = map[string]bool{
	"string": true, "number": true, "boolean": true,
	"object": true, "array": true, "integer": true,
}

// Validate checks structural invariants of a definition.
func (d ToolDefinition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: tool name cannot be empty", ErrValidation)
	}
	if d.Description == "" {
		return fmt.Errorf("%w: tool description cannot be empty for %s", ErrValidation, d.Name)
	}
	for _, param := range d.Parameters {
		if param.Name == "" {
			return fmt.Errorf("%w: parameter name cannot be empty for %s", ErrValidation, d.Name)
		}
		if !validParamTypes[param.Type] {
			return fmt.Errorf("%w: invalid parameter type %q for %s.%s", ErrValidation, param.Type, d.Name, param.Name)
		}
	}
	return nil
}

// RequiredParameters returns the names of required parameters.
func (d ToolDefinition) RequiredParameters() []string {
	var required []string
	for _, param := range d.Parameters {
		if param.Required {
			required = append(required, param.Name)
		}
	}
	return required
}

// Parameter returns the named parameter, if declared.
func (d ToolDefinition) Parameter(name string) (ToolParameter, bool) {
	for _, param := range d.Parameters {
		if param.Name == name {
			return param, true
		}
	}
	return ToolParameter{}, false
}

// CompileSchema builds a JSON Schema for the definition's parameters.
func (d ToolDefinition) CompileSchema() (*gojsonschema.Schema, error) {
	properties := make(map[string]interface{}, len(d.Parameters))
	required := []string{}

	for _, param := range d.Parameters {
		paramSchema := map[string]interface{}{
			"type":        param.Type,
			"description": param.Description,
		}
		if param.Default != nil {
			paramSchema["default"] = param.Default
		}
		properties[param.Name] = paramSchema

		if param.Required {
			required = append(required, param.Name)
		}
	}

	schemaMap := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schemaMap["required"] = required
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema for %s: %w", d.Name, err)
	}
	return schema, nil
}

// ValidateArguments checks args against the compiled parameter schema.
func ValidateArguments(schema *gojsonschema.Schema, args map[string]interface{}) error {
	if schema == nil {
		return nil
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return err
	}
	if !result.Valid() {
		messages := []string{}
		for _, verr := range result.Errors() {
			messages = append(messages, verr.String())
		}
		return fmt.Errorf("%w: %v", ErrValidation, messages)
	}
	return nil
}
