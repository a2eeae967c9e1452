package suite

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema describes the plain-data shape of a suite document. It only
// checks types; semantic rules live in Validate.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "definitions": {
    "duration": {"type": ["string", "number"]},
    "stringList": {
      "oneOf": [
        {"type": "array", "items": {"type": "string"}},
        {"type": "string"}
      ]
    },
    "scriptRef": {
      "oneOf": [
        {"type": "string"},
        {
          "type": "object",
          "properties": {
            "script": {"type": "string"},
            "scriptId": {"type": "string"},
            "enabled": {"type": "boolean"}
          },
          "additionalProperties": false
        }
      ]
    }
  },
  "properties": {
    "id": {"type": "string"},
    "name": {"type": "string"},
    "description": {"type": "string"},
    "tags": {"$ref": "#/definitions/stringList"},
    "setup": {"$ref": "#/definitions/scriptRef"},
    "teardown": {"$ref": "#/definitions/scriptRef"},
    "configuration": {
      "type": "object",
      "properties": {
        "stopOnFailure": {"type": "boolean"},
        "timeout": {"$ref": "#/definitions/duration"},
        "retryCount": {"type": "integer", "minimum": 0},
        "parallel": {"type": "boolean"}
      },
      "additionalProperties": false
    },
    "variables": {"type": "object"},
    "scripts": {
      "oneOf": [
        {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["id"],
            "properties": {
              "id": {"type": "string"},
              "name": {"type": "string"},
              "code": {"type": "string"}
            }
          }
        },
        {"type": "object"}
      ]
    },
    "testCases": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id": {"type": "string"},
          "name": {"type": "string"},
          "description": {"type": "string"},
          "script": {"type": "string"},
          "scriptId": {"type": "string"},
          "enabled": {"type": "boolean"},
          "order": {"type": "integer"},
          "timeout": {"$ref": "#/definitions/duration"},
          "retryCount": {"type": "integer"},
          "dependencies": {"$ref": "#/definitions/stringList"},
          "tags": {"$ref": "#/definitions/stringList"}
        },
        "additionalProperties": false
      }
    }
  }
}`

// ValidateSchema checks a plain-data suite document against the suite
// document schema and returns one message per problem.
func ValidateSchema(raw map[string]any) ([]string, error) {
	schemaLoader := gojsonschema.NewStringLoader(documentSchema)
	documentLoader := gojsonschema.NewGoLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return problems, nil
}
