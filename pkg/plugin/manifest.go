package plugin

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ManifestSchema is the JSON Schema for plugin manifest validation
const ManifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "name", "version"],
  "properties": {
    "id": {
      "type": "string",
      "pattern": "^[a-z0-9-]+$",
      "description": "Unique plugin identifier"
    },
    "name": {
      "type": "string",
      "minLength": 1,
      "description": "Human-readable plugin name"
    },
    "version": {
      "type": "string",
      "pattern": "^\\d+\\.\\d+\\.\\d+$",
      "description": "Semver version"
    },
    "description": {
      "type": "string",
      "description": "Plugin description"
    },
    "category": {
      "type": "string",
      "description": "Grouping label; category \"core\" is reserved for the builtin catalog"
    },
    "permissions": {
      "type": "array",
      "items": {
        "type": "string",
        "enum": [
          "filesystem:read",
          "filesystem:write",
          "network:http",
          "network:websocket",
          "process:spawn",
          "database:read",
          "database:write"
        ]
      }
    }
  }
}`

var manifestSchema = gojsonschema.NewStringLoader(ManifestSchema)

// ParseManifest parses and validates a plugin manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	result, err := gojsonschema.Validate(manifestSchema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("manifest schema validation failed: %w", err)
	}
	if !result.Valid() {
		messages := []string{}
		for _, verr := range result.Errors() {
			messages = append(messages, verr.String())
		}
		return nil, fmt.Errorf("invalid plugin manifest: %v", messages)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest JSON: %w", err)
	}
	return &manifest, nil
}
