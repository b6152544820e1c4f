package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON Schema describing the config file shape.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(&fileConfig{})
	schema.Title = "aurora config"
	return json.MarshalIndent(schema, "", "  ")
}
