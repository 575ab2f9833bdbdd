package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lemonberrylabs/eggexpr/pkg/runtime"
	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// loadVars reads a variables file into a map value. Files ending in .json are
// decoded as JSON; anything else as YAML. Key order is kept in both cases.
// An empty path yields an empty map.
func loadVars(path string) (types.Value, error) {
	if path == "" {
		return types.NewMap(types.NewOrderedMap()), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Null, fmt.Errorf("reading variables: %w", err)
	}

	var v types.Value
	if strings.EqualFold(filepath.Ext(path), ".json") {
		v, err = types.ParseJSON(data)
	} else {
		v, err = parseYAML(data)
	}
	if err != nil {
		return types.Null, fmt.Errorf("parsing variables %s: %w", path, err)
	}
	if v.IsNull() {
		return types.NewMap(types.NewOrderedMap()), nil
	}
	if v.Type() != types.TypeMap {
		return types.Null, fmt.Errorf("variables %s: top level must be a mapping, got %s", path, v.Type())
	}
	return v, nil
}

// scopeFromFile loads a variables file into a new root scope.
func scopeFromFile(path string) (*runtime.VariableScope, error) {
	vars, err := loadVars(path)
	if err != nil {
		return nil, err
	}
	return runtime.NewScopeFrom(vars), nil
}

func parseYAML(data []byte) (types.Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return types.Null, nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return types.Null, err
	}
	return yamlValue(&doc)
}

// yamlValue converts a YAML node tree to a Value, keeping mapping order.
func yamlValue(n *yaml.Node) (types.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return types.Null, nil
		}
		return yamlValue(n.Content[0])
	case yaml.AliasNode:
		return yamlValue(n.Alias)
	case yaml.SequenceNode:
		items := make([]types.Value, len(n.Content))
		for i, c := range n.Content {
			v, err := yamlValue(c)
			if err != nil {
				return types.Null, err
			}
			items[i] = v
		}
		return types.NewList(items), nil
	case yaml.MappingNode:
		m := types.NewOrderedMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := yamlValue(n.Content[i+1])
			if err != nil {
				return types.Null, err
			}
			m.Set(n.Content[i].Value, v)
		}
		return types.NewMap(m), nil
	case yaml.ScalarNode:
		var raw any
		if err := n.Decode(&raw); err != nil {
			return types.Null, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return types.FromGo(raw), nil
	}
	return types.Null, fmt.Errorf("line %d: unsupported YAML node", n.Line)
}
