package domain

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed definition.schema.json
var definitionSchemaJSON []byte

const definitionSchemaURL = "schema://scenario-definition.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func definitionSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(definitionSchemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("parse definition schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(definitionSchemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add definition schema: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(definitionSchemaURL)
	})
	return compiledSchema, schemaErr
}

// ParseDefinitionJSON checks raw JSON against the definition schema and decodes it.
func ParseDefinitionJSON(data []byte) (ScenarioDefinition, error) {
	schema, err := definitionSchema()
	if err != nil {
		return ScenarioDefinition{}, err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return ScenarioDefinition{}, &MalformedDefinitionError{Reason: "invalid JSON", Err: err}
	}
	if err := schema.Validate(doc); err != nil {
		return ScenarioDefinition{}, &MalformedDefinitionError{ScenarioID: scenarioIDOf(doc), Reason: "schema validation failed", Err: err}
	}

	var def ScenarioDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return ScenarioDefinition{}, &MalformedDefinitionError{ScenarioID: scenarioIDOf(doc), Err: err}
	}
	// Steps may omit their id and rely on the map key.
	for key, step := range def.Steps {
		if step.ID == "" {
			step.ID = key
			def.Steps[key] = step
		}
	}
	if err := def.CheckShape(); err != nil {
		return ScenarioDefinition{}, err
	}
	return def, nil
}

// ParseDefinitionYAML decodes a YAML authoring file and runs it through the
// same checks as JSON input.
func ParseDefinitionYAML(data []byte) (ScenarioDefinition, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ScenarioDefinition{}, &MalformedDefinitionError{Reason: "invalid YAML", Err: err}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return ScenarioDefinition{}, &MalformedDefinitionError{Reason: "YAML is not representable as JSON", Err: err}
	}
	return ParseDefinitionJSON(raw)
}

func scenarioIDOf(doc any) string {
	if m, ok := doc.(map[string]any); ok {
		if id, ok := m["id"].(string); ok {
			return id
		}
	}
	return ""
}
