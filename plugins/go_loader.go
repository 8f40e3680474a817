package plugins

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/yaml.v3"
)

const goDefinitionFuncName = "ExtensionDefinitions"

// loadGoDefinitions interprets a Go source file with yaegi and decodes the
// maps its ExtensionDefinitions function returns.
func loadGoDefinitions(path string, code []byte) ([]DefinitionFile, error) {
	if strings.TrimSpace(string(code)) == "" {
		return nil, errors.New("plugin: file is empty")
	}
	vm := interp.New(interp.Options{})
	if err := vm.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("plugin: load stdlib symbols: %w", err)
	}
	if _, err := vm.Eval(string(code)); err != nil {
		return nil, fmt.Errorf("plugin: interpret: %w", err)
	}
	fn, err := vm.Eval(goDefinitionFuncName)
	if err != nil {
		return nil, fmt.Errorf("plugin: must define %s() ([]map[string]any, error): %w", goDefinitionFuncName, err)
	}
	raws, err := callDefinitions(fn)
	if err != nil {
		return nil, fmt.Errorf("plugin: %w", err)
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("plugin: %s returned no definitions", goDefinitionFuncName)
	}
	defs := make([]ExtensionDefinition, 0, len(raws))
	// Maps go through the YAML decoder so both sources share one schema.
	for idx, raw := range raws {
		payload, err := yaml.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("plugin: definition %d: %w", idx+1, err)
		}
		def, err := ParseDefinitionYAML(payload)
		if err != nil {
			return nil, fmt.Errorf("definition %d: %w", idx+1, err)
		}
		defs = append(defs, def)
	}
	return sourced(path, defs), nil
}

// callDefinitions invokes fn, accepting either ([]map[string]any) or
// ([]map[string]any, error).
func callDefinitions(fn reflect.Value) ([]map[string]any, error) {
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", goDefinitionFuncName)
	}
	if fn.Type().NumIn() != 0 {
		return nil, fmt.Errorf("%s must take no arguments", goDefinitionFuncName)
	}
	out := fn.Call(nil)
	switch len(out) {
	case 1:
	case 2:
		if errVal := out[1]; !errVal.IsNil() {
			if e, ok := errVal.Interface().(error); ok {
				return nil, e
			}
			return nil, fmt.Errorf("%s returned a non-error second value", goDefinitionFuncName)
		}
	default:
		return nil, fmt.Errorf("%s must return ([]map[string]any[, error])", goDefinitionFuncName)
	}
	if defs, ok := out[0].Interface().([]map[string]any); ok {
		return defs, nil
	}
	list := out[0]
	if list.Kind() != reflect.Slice {
		return nil, fmt.Errorf("%s must return []map[string]any", goDefinitionFuncName)
	}
	defs := make([]map[string]any, list.Len())
	for i := range defs {
		m, ok := list.Index(i).Interface().(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s[%d] is not map[string]any", goDefinitionFuncName, i)
		}
		defs[i] = m
	}
	return defs, nil
}
