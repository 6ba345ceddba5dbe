package yamlcfg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// documentSchemaJSON is the Draft 2020-12 JSON Schema for a YAML
// diagnostic description. It is compiled once at package init and never
// mutated afterwards.
const documentSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://opensovd.dev/schemas/cda/diagdesc/v1",
  "type": "object",
  "required": ["schema", "meta", "ecu", "sessions", "services", "access_patterns"],
  "additionalProperties": false,
  "properties": {
    "schema": {"const": "opensovd.cda.diagdesc/v1"},
    "meta": {"type": "object"},
    "ecu": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "base_variant": {"type": "string"},
        "version": {"type": "string"},
        "revision": {"type": "string"}
      }
    },
    "sessions": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["id"],
        "properties": {"id": {"type": "integer"}}
      }
    },
    "security": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["level", "seed_request", "key_send", "seed_size", "key_size", "algorithm", "max_attempts", "delay_on_fail_ms"],
        "properties": {
          "level": {"type": "integer"},
          "seed_request": {"type": "integer"},
          "key_send": {"type": "integer"},
          "seed_size": {"type": "integer"},
          "key_size": {"type": "integer"},
          "algorithm": {"type": "string"},
          "max_attempts": {"type": "integer"},
          "delay_on_fail_ms": {"type": "integer"},
          "allowed_sessions": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "access_patterns": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["sessions", "security"],
        "properties": {
          "sessions": {"oneOf": [{"type": "string"}, {"type": "array", "items": {"type": "string"}}]},
          "security": {"oneOf": [{"type": "string"}, {"type": "array", "items": {"type": "string"}}]},
          "authentication": {"type": "string"}
        }
      }
    },
    "services": {"type": "object"},
    "dids": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["id", "dop"],
        "properties": {
          "id": {"type": "integer"},
          "session": {"type": "string"},
          "writable": {"type": "boolean"},
          "dop": {
            "type": "object",
            "required": ["base_data_type", "bit_length"],
            "properties": {
              "base_data_type": {"type": "string"},
              "bit_length": {"type": "integer"}
            }
          }
        }
      }
    },
    "routines": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["id"],
        "properties": {"id": {"type": "integer"}}
      }
    },
    "dtcs": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["code"],
        "properties": {
          "code": {"type": "integer"},
          "text": {"type": "string"},
          "severity": {"type": "string"}
        }
      }
    },
    "features": {
      "type": "object",
      "properties": {"securityAccess": {"type": "boolean"}}
    },
    "state_model": {
      "type": "object",
      "properties": {
        "session_transitions": {
          "type": "object",
          "additionalProperties": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "variants": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {"long_name": {"type": "string"}}
      }
    }
  }
}`

var documentSchema *jsonschema.Schema

func init() {
	res, err := jsonschema.UnmarshalJSON(strings.NewReader(documentSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("yamlcfg: invalid embedded schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(documentSchemaURL, res); err != nil {
		panic(fmt.Sprintf("yamlcfg: invalid embedded schema: %v", err))
	}
	sch, err := compiler.Compile(documentSchemaURL)
	if err != nil {
		panic(fmt.Sprintf("yamlcfg: embedded schema fails to compile: %v", err))
	}
	documentSchema = sch
}

const documentSchemaURL = "https://opensovd.dev/schemas/cda/diagdesc/v1"

// ValidateSchema checks raw YAML bytes against the embedded JSON Schema
// and returns every violation. Each line of the engine's error report is
// one issue, already carrying its JSON Pointer instance location.
func ValidateSchema(data []byte) ([]string, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	instance, err := toJSONInstance(generic)
	if err != nil {
		return nil, fmt.Errorf("convert yaml to json instance: %w", err)
	}

	if err := documentSchema.Validate(instance); err != nil {
		lines := strings.Split(err.Error(), "\n")
		issues := make([]string, 0, len(lines))
		for _, l := range lines {
			if strings.TrimSpace(l) != "" {
				issues = append(issues, l)
			}
		}
		return issues, nil
	}
	return nil, nil
}

// toJSONInstance round-trips a yaml.v3-decoded value through
// encoding/json so that it matches the Go-native shapes the schema
// validator expects (map[string]any, []any, json.Number, string, bool,
// nil).
func toJSONInstance(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
