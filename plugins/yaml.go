package plugins

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ParseDefinitionYAML decodes a payload holding exactly one definition.
func ParseDefinitionYAML(data []byte) (ExtensionDefinition, error) {
	defs, err := parseYAMLDefinitions(data)
	if err != nil {
		return ExtensionDefinition{}, err
	}
	switch len(defs) {
	case 0:
		return ExtensionDefinition{}, errors.New("plugin: definition payload is empty")
	case 1:
		return defs[0], nil
	default:
		return ExtensionDefinition{}, fmt.Errorf("plugin: expected one definition, found %d", len(defs))
	}
}

// parseYAMLDefinitions decodes every document of a "---" separated stream.
// Null documents are skipped so a trailing separator is harmless.
func parseYAMLDefinitions(data []byte) ([]ExtensionDefinition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var defs []ExtensionDefinition
	for doc := 1; ; doc++ {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			return defs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("plugin: decode document %d: %w", doc, err)
		}
		if nullDocument(&node) {
			continue
		}
		var def ExtensionDefinition
		if err := node.Decode(&def); err != nil {
			return nil, fmt.Errorf("plugin: decode document %d: %w", doc, err)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		defs = append(defs, def.Normalized())
	}
}

func nullDocument(node *yaml.Node) bool {
	if len(node.Content) == 0 {
		return true
	}
	root := node.Content[0]
	return root.Kind == yaml.ScalarNode && root.Tag == "!!null"
}

func loadYAMLDefinitions(path string, data []byte) ([]DefinitionFile, error) {
	defs, err := parseYAMLDefinitions(data)
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, errors.New("plugin: file holds no definitions")
	}
	return sourced(path, defs), nil
}
