package mcpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Param is one argument of a generated tool, in declaration order.
type Param struct {
	Name     string
	Type     string
	Required bool
}

func reflectSchema(v any) (json.RawMessage, []Param, error) {
	r := &invopop.Reflector{
		Anonymous:                 true,
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
	}
	s := r.Reflect(v)
	if s.Properties == nil || s.Properties.Len() == 0 {
		return nil, nil, errors.New("input schema must be a struct with exported fields")
	}
	s.Version = ""

	required := map[string]bool{}
	for _, name := range s.Required {
		required[name] = true
	}
	params := make([]Param, 0, s.Properties.Len())
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		params = append(params, Param{
			Name:     pair.Key,
			Type:     paramType(pair.Value),
			Required: required[pair.Key],
		})
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, nil, err
	}
	return data, params, nil
}

func paramType(s *invopop.Schema) string {
	if s == nil || s.Type == "" {
		return "any"
	}
	return s.Type
}

func compileSchema(schemaJSON json.RawMessage) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("input.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("schema resource: %w", err)
	}
	s, err := c.Compile("input.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return s, nil
}

// normalizeArgs treats missing arguments as an empty object.
func normalizeArgs(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage(`{}`)
	}
	return trimmed
}

func validateArgs(s *jsonschema.Schema, raw json.RawMessage) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse arguments: %w", err)
	}
	return s.Validate(doc)
}
