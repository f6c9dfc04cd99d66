// Package schema renders JSON schemas of parameter structs.
package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Reflect returns the inlined schema of t.
func Reflect[T any](t T) *jsonschema.Schema {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true

	return r.Reflect(t)
}

// ToJSON converts a struct to a JSON schema.
func ToJSON[T any](t T) (string, error) {
	jsonSchemaBytes, err := json.Marshal(Reflect(t))
	if err != nil {
		return "", err
	}

	return string(jsonSchemaBytes), nil
}
