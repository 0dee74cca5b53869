package client

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/d2verb/difyctl/internal/protocol"
)

// NormalizeToolParameters casts raw parameter values to the types declared
// by the tool. Parameters the tool does not declare are kept unchanged.
func (c *Client) NormalizeToolParameters(ctx context.Context, tenant, providerRef, toolName string, raw map[string]any) (map[string]any, error) {
	provider, err := c.FetchToolProvider(ctx, tenant, providerRef)
	if err != nil {
		return nil, err
	}

	tool, ok := provider.Declaration.Tool(toolName)
	if !ok {
		return nil, &ToolNotFoundError{
			Provider:  providerRef,
			Tool:      toolName,
			Available: provider.Declaration.ToolNames(),
		}
	}

	out := make(map[string]any, len(raw)+len(tool.Parameters))
	for _, param := range tool.Parameters {
		v, err := CastParameter(param, raw[param.Name])
		if err != nil {
			return nil, err
		}
		out[param.Name] = v
	}
	for k, v := range raw {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out, nil
}

// CastParameter casts value to the declared type of param. A nil value means
// the parameter was not supplied. Values that already have the right type are
// returned unchanged.
func CastParameter(param protocol.ToolParameter, value any) (any, error) {
	switch param.Type {
	case protocol.ParamString, protocol.ParamSecretInput:
		if value == nil {
			return missingString(param)
		}
		return stringify(value), nil

	case protocol.ParamSelect:
		if value == nil {
			return missingString(param)
		}
		s := stringify(value)
		if len(param.Options) > 0 && !hasOption(param.Options, s) {
			return nil, validationErrorf("tool parameter",
				"%s value %s not in options %s", param.Name, s, optionValues(param.Options))
		}
		return s, nil

	case protocol.ParamBoolean:
		if value == nil {
			return false, nil
		}
		if s, ok := value.(string); ok {
			switch strings.ToLower(s) {
			case "true", "yes", "y", "1":
				return true, nil
			case "false", "no", "n", "0":
				return false, nil
			}
		}
		return truthy(value), nil

	case protocol.ParamNumber:
		if value == nil {
			return 0, nil
		}
		return castNumber(param, value)

	case protocol.ParamFile:
		if list, ok := asList(value); ok {
			if len(list) != 1 {
				return nil, validationErrorf("tool parameter",
					"%s only accepts one file but got %d", param.Name, len(list))
			}
			return list[0], nil
		}
		return value, nil

	case protocol.ParamFiles, protocol.ParamArray:
		if value == nil {
			return []any{}, nil
		}
		if _, ok := asList(value); ok {
			return value, nil
		}
		return []any{value}, nil

	default:
		return value, nil
	}
}

func missingString(param protocol.ToolParameter) (any, error) {
	if param.Required {
		return nil, validationErrorf("tool parameter", "%s is required", param.Name)
	}
	return "", nil
}

func castNumber(param protocol.ToolParameter, value any) (any, error) {
	switch v := value.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v, nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		if f, err := v.Float64(); err == nil {
			return f, nil
		}
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			break
		}
		if strings.Contains(s, ".") {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, nil
			}
			break
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
	}
	return nil, validationErrorf("tool parameter", "%s expects a number", param.Name)
}

func hasOption(options []protocol.ParameterOption, value string) bool {
	for _, o := range options {
		if o.Value == value {
			return true
		}
	}
	return false
}

func optionValues(options []protocol.ParameterOption) string {
	values := make([]string, len(options))
	for i, o := range options {
		values[i] = o.Value
	}
	return "[" + strings.Join(values, ", ") + "]"
}

// stringify renders scalars as text and structured values as JSON.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case json.Number:
		return v.String()
	case fmt.Stringer:
		return v.String()
	}

	switch reflect.ValueOf(value).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		if b, err := json.Marshal(value); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(value)
}

// truthy mirrors the usual truthiness of loosely typed values: zero numbers,
// empty strings and empty collections are false.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case json.Number:
		f, err := v.Float64()
		return err != nil || f != 0
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// asList reports whether value is a list and returns its elements.
func asList(value any) ([]any, bool) {
	if list, ok := value.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
