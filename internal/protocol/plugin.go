package protocol

import (
	"fmt"
	"strings"
	"time"
)

// InstallationSource identifies where a plugin package came from.
type InstallationSource string

const (
	SourceGithub      InstallationSource = "github"
	SourceMarketplace InstallationSource = "marketplace"
	SourcePackage     InstallationSource = "package"
	SourceRemote      InstallationSource = "remote"
)

// InstallationSources lists every known source, in display order.
var InstallationSources = []InstallationSource{SourceGithub, SourceMarketplace, SourcePackage, SourceRemote}

// I18nObject holds a localized string.
type I18nObject struct {
	EnUS   string `json:"en_US"`
	ZhHans string `json:"zh_Hans,omitempty"`
}

// PluginDeclaration is the manifest of a plugin package.
type PluginDeclaration struct {
	Version     string                     `json:"version"`
	Author      string                     `json:"author"`
	Name        string                     `json:"name"`
	Description I18nObject                 `json:"description"`
	Icon        string                     `json:"icon"`
	Label       I18nObject                 `json:"label"`
	Category    string                     `json:"category,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	Resource    PluginResourceRequirements `json:"resource"`
	Plugins     PluginExtensions           `json:"plugins"`
	Tags        []string                   `json:"tags,omitempty"`
	Meta        map[string]any             `json:"meta,omitempty"`
}

// PluginExtensions lists the extension files a plugin declares.
type PluginExtensions struct {
	Tools     []string `json:"tools,omitempty"`
	Models    []string `json:"models,omitempty"`
	Endpoints []string `json:"endpoints,omitempty"`
}

// PluginResourceRequirements declares runtime resources and permissions.
type PluginResourceRequirements struct {
	Memory     int64       `json:"memory"`
	Permission *Permission `json:"permission,omitempty"`
}

// Permission is the set of capabilities a plugin requests.
type Permission struct {
	Tool     *EnabledPermission `json:"tool,omitempty"`
	Model    *ModelPermission   `json:"model,omitempty"`
	Node     *EnabledPermission `json:"node,omitempty"`
	Endpoint *EnabledPermission `json:"endpoint,omitempty"`
	Storage  *StoragePermission `json:"storage,omitempty"`
}

// EnabledPermission is a permission that is either on or off.
type EnabledPermission struct {
	Enabled bool `json:"enabled"`
}

// ModelPermission scopes model invocation per model type.
type ModelPermission struct {
	Enabled       bool `json:"enabled"`
	LLM           bool `json:"llm"`
	TextEmbedding bool `json:"text_embedding"`
	Rerank        bool `json:"rerank"`
	TTS           bool `json:"tts"`
	Speech2Text   bool `json:"speech2text"`
	Moderation    bool `json:"moderation"`
}

// StoragePermission grants persistent storage up to Size bytes.
type StoragePermission struct {
	Enabled bool  `json:"enabled"`
	Size    int64 `json:"size"`
}

// Summary collapses the permission set into a short string such as
// "tool, model(any, llm), storage, size=1024". A nil permission is "none".
func (p *Permission) Summary() string {
	if p == nil {
		return "none"
	}

	var parts []string
	if p.Tool != nil && p.Tool.Enabled {
		parts = append(parts, "tool")
	}
	if p.Model != nil {
		var flags []string
		if p.Model.Enabled {
			flags = append(flags, "any")
		}
		for _, f := range []struct {
			on    bool
			label string
		}{
			{p.Model.LLM, "llm"},
			{p.Model.TextEmbedding, "embedding"},
			{p.Model.Rerank, "rerank"},
			{p.Model.TTS, "tts"},
			{p.Model.Speech2Text, "speech2text"},
			{p.Model.Moderation, "moderation"},
		} {
			if f.on {
				flags = append(flags, f.label)
			}
		}
		if len(flags) > 0 {
			parts = append(parts, fmt.Sprintf("model(%s)", strings.Join(flags, ", ")))
		}
	}
	if p.Node != nil && p.Node.Enabled {
		parts = append(parts, "node")
	}
	if p.Endpoint != nil && p.Endpoint.Enabled {
		parts = append(parts, "endpoint")
	}
	if p.Storage != nil && p.Storage.Enabled {
		if p.Storage.Size > 0 {
			parts = append(parts, fmt.Sprintf("storage, size=%d", p.Storage.Size))
		} else {
			parts = append(parts, "storage")
		}
	}

	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

// PluginEntity is an installed plugin as listed by the daemon.
type PluginEntity struct {
	ID                     string             `json:"id"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
	Name                   string             `json:"name"`
	PluginID               string             `json:"plugin_id"`
	PluginUniqueIdentifier string             `json:"plugin_unique_identifier"`
	Version                string             `json:"version"`
	TenantID               string             `json:"tenant_id"`
	InstallationID         string             `json:"installation_id"`
	RuntimeType            string             `json:"runtime_type"`
	EndpointsSetups        int                `json:"endpoints_setups"`
	EndpointsActive        int                `json:"endpoints_active"`
	Source                 InstallationSource `json:"source"`
	Meta                   map[string]any     `json:"meta,omitempty"`
	Declaration            PluginDeclaration  `json:"declaration"`
}

// PermissionSummary summarizes the permissions declared by the plugin.
func (p *PluginEntity) PermissionSummary() string {
	return p.Declaration.Resource.Permission.Summary()
}

// PluginListResponse is one page of installed plugins.
type PluginListResponse struct {
	List  []PluginEntity `json:"list"`
	Total int            `json:"total"`
}

// PluginInstallation is the installation record of a plugin in a tenant.
type PluginInstallation struct {
	ID                     string             `json:"id"`
	TenantID               string             `json:"tenant_id"`
	PluginID               string             `json:"plugin_id"`
	PluginUniqueIdentifier string             `json:"plugin_unique_identifier"`
	RuntimeType            string             `json:"runtime_type"`
	EndpointsSetups        int                `json:"endpoints_setups"`
	EndpointsActive        int                `json:"endpoints_active"`
	Source                 InstallationSource `json:"source"`
	Meta                   map[string]any     `json:"meta,omitempty"`
	Version                string             `json:"version,omitempty"`
	Declaration            *PluginDeclaration `json:"declaration,omitempty"`
}

// MissingPluginDependency is a dependency that is not installed, or
// installed at a different identifier.
type MissingPluginDependency struct {
	PluginUniqueIdentifier string `json:"plugin_unique_identifier"`
	CurrentIdentifier      string `json:"current_identifier,omitempty"`
}

// BundleDependency is one entry resolved from an uploaded bundle.
type BundleDependency struct {
	Type  string         `json:"type"`
	Value map[string]any `json:"value"`
}

// PluginVerification is the signature verification outcome of a package.
type PluginVerification struct {
	AuthorizedCategory string `json:"authorized_category"`
}

// PluginDecodeResponse is returned after uploading or decoding a package.
type PluginDecodeResponse struct {
	UniqueIdentifier string              `json:"unique_identifier"`
	Manifest         PluginDeclaration   `json:"manifest"`
	Verification     *PluginVerification `json:"verification,omitempty"`
}

// PluginReadmeResponse carries a plugin README in one language.
type PluginReadmeResponse struct {
	Content  string `json:"content"`
	Language string `json:"language"`
}
