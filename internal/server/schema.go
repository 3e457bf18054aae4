package server

import (
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// createWorldSchema describes the body of POST /worlds: the raw text of the
// world setup form. Values stay strings so that unparseable input can be
// reported as a fallback instead of rejecting the request.
const createWorldSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "seed":              {"type": "string", "maxLength": 32},
    "terrain_scale":     {"type": "string", "maxLength": 32},
    "continental_scale": {"type": "string", "maxLength": 32},
    "octave_count":      {"type": "string", "maxLength": 32},
    "sea_threshold":     {"type": "string", "maxLength": 32},
    "temperature_scale": {"type": "string", "maxLength": 32},
    "moisture_scale":    {"type": "string", "maxLength": 32},
    "scaling_factor":    {"type": "string", "maxLength": 32},
    "world_size":        {"type": "string", "maxLength": 32}
  }
}`

func compileCreateWorldSchema() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("create_world.schema.json", createWorldSchema)
}
