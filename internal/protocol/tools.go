package protocol

import (
	"encoding/json"
	"fmt"
)

// ToolProviderIdentity describes a tool provider.
type ToolProviderIdentity struct {
	Author      string     `json:"author"`
	Name        string     `json:"name"`
	Description I18nObject `json:"description"`
	Icon        string     `json:"icon"`
	Label       I18nObject `json:"label"`
	Tags        []string   `json:"tags,omitempty"`
}

// ToolIdentity describes a single tool. Provider is a back-reference to the
// owning provider's name.
type ToolIdentity struct {
	Author   string     `json:"author"`
	Name     string     `json:"name"`
	Label    I18nObject `json:"label"`
	Provider string     `json:"provider"`
	Icon     string     `json:"icon,omitempty"`
}

// ToolDescription holds the human and LLM facing descriptions of a tool.
type ToolDescription struct {
	Human I18nObject `json:"human"`
	LLM   string     `json:"llm"`
}

// ParameterType is the declared type of a tool parameter.
type ParameterType string

const (
	ParamString        ParameterType = "string"
	ParamTextInput     ParameterType = "text-input"
	ParamNumber        ParameterType = "number"
	ParamBoolean       ParameterType = "boolean"
	ParamSelect        ParameterType = "select"
	ParamDynamicSelect ParameterType = "dynamic-select"
	ParamAppSelector   ParameterType = "app-selector"
	ParamModelSelector ParameterType = "model-selector"
	ParamToolsSelector ParameterType = "array[tools]"
	ParamAny           ParameterType = "any"
	ParamObject        ParameterType = "object"
	ParamCheckbox      ParameterType = "checkbox"
	ParamSecretInput   ParameterType = "secret-input"
	ParamFile          ParameterType = "file"
	ParamFiles         ParameterType = "files"
	ParamArray         ParameterType = "array"
)

// ParameterForm is where a parameter value comes from.
type ParameterForm string

const (
	FormSchema ParameterForm = "schema"
	FormForm   ParameterForm = "form"
	FormLLM    ParameterForm = "llm"
)

// ParameterOption is one allowed value of a select parameter. The daemon
// sends either {"value": ..., "label": ...} objects or bare scalars.
type ParameterOption struct {
	Value string      `json:"value"`
	Label *I18nObject `json:"label,omitempty"`
}

// UnmarshalJSON accepts both the object and the bare scalar form.
func (o *ParameterOption) UnmarshalJSON(data []byte) error {
	var obj struct {
		Value any         `json:"value"`
		Label *I18nObject `json:"label"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		o.Value = scalarString(obj.Value)
		o.Label = obj.Label
		return nil
	}

	var scalar any
	if err := json.Unmarshal(data, &scalar); err != nil {
		return err
	}
	switch scalar.(type) {
	case map[string]any, []any:
		return fmt.Errorf("invalid parameter option %s", data)
	}
	o.Value = scalarString(scalar)
	o.Label = nil
	return nil
}

func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// ToolParameter declares one input of a tool.
type ToolParameter struct {
	Name           string            `json:"name"`
	Label          I18nObject        `json:"label"`
	Type           ParameterType     `json:"type"`
	Required       bool              `json:"required"`
	Form           ParameterForm     `json:"form"`
	LLMDescription string            `json:"llm_description,omitempty"`
	Options        []ParameterOption `json:"options,omitempty"`
}

// ToolEntity declares a tool and its parameters.
type ToolEntity struct {
	Identity     ToolIdentity     `json:"identity"`
	Parameters   []ToolParameter  `json:"parameters"`
	Description  *ToolDescription `json:"description,omitempty"`
	OutputSchema map[string]any   `json:"output_schema,omitempty"`
}

// ToolProviderEntity declares a provider and the tools it exposes.
type ToolProviderEntity struct {
	Identity ToolProviderIdentity `json:"identity"`
	Tools    []ToolEntity         `json:"tools"`
}

// Tool returns the tool with the given name.
func (p *ToolProviderEntity) Tool(name string) (*ToolEntity, bool) {
	for i := range p.Tools {
		if p.Tools[i].Identity.Name == name {
			return &p.Tools[i], true
		}
	}
	return nil, false
}

// ToolNames returns the names of all declared tools.
func (p *ToolProviderEntity) ToolNames() []string {
	names := make([]string, 0, len(p.Tools))
	for _, t := range p.Tools {
		names = append(names, t.Identity.Name)
	}
	return names
}

// PluginToolProvider is a tool provider together with the plugin exposing it.
type PluginToolProvider struct {
	Provider               string             `json:"provider"`
	PluginUniqueIdentifier string             `json:"plugin_unique_identifier"`
	PluginID               string             `json:"plugin_id"`
	Declaration            ToolProviderEntity `json:"declaration"`
}

func (p PluginToolProvider) String() string {
	return p.Declaration.Identity.Name
}

// ProviderID addresses a provider within a plugin.
type ProviderID struct {
	PluginID     string `json:"plugin_id"`
	ProviderName string `json:"provider_name"`
}
