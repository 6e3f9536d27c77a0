package pluginsdk

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const (
	ManifestFilename       = "nexus.plugin.json"
	LegacyManifestFilename = "clawdbot.plugin.json"
)

// Manifest describes a plugin and its configuration schema.
type Manifest struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind,omitempty"`
	Name         string          `json:"name,omitempty"`
	Description  string          `json:"description,omitempty"`
	Version      string          `json:"version,omitempty"`
	Channels     []string        `json:"channels,omitempty"`
	Providers    []string        `json:"providers,omitempty"`
	ConfigSchema json.RawMessage `json:"configSchema"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
	UIHints      *UIHints        `json:"uiHints,omitempty"`

	// Tools, Commands, Services and Hooks are allowlists: when non-empty,
	// the runtime registry rejects any registration under a name not
	// listed here, even if Capabilities would otherwise permit it.
	Tools    []string `json:"tools,omitempty"`
	Commands []string `json:"commands,omitempty"`
	Services []string `json:"services,omitempty"`
	Hooks    []string `json:"hooks,omitempty"`

	// Capabilities declares the set of registration kinds this plugin is
	// allowed to exercise. A nil Capabilities leaves the plugin
	// unrestricted; a non-nil one gates every registration call against
	// Required (Optional lists capabilities a plugin may use but doesn't
	// strictly need).
	Capabilities *Capabilities `json:"capabilities,omitempty"`
}

// Capabilities lists the capability strings ("channel:telegram",
// "tool:web_search", "cli:*") a plugin has declared it needs or may use.
type Capabilities struct {
	Required []string `json:"required,omitempty"`
	Optional []string `json:"optional,omitempty"`
}

// UIHints gives the settings UI enough metadata to render a setup flow for
// a plugin's config schema without hardcoding per-plugin forms.
type UIHints struct {
	ConfigFields map[string]*FieldHint `json:"configFields,omitempty"`
	SetupSteps   []*SetupStep          `json:"setupSteps,omitempty"`
	Requirements []*Requirement        `json:"requirements,omitempty"`
	Links        map[string]string     `json:"links,omitempty"`
}

// FieldHint describes how a single config field should be presented.
type FieldHint struct {
	Label       string           `json:"label,omitempty"`
	Description string           `json:"description,omitempty"`
	Placeholder string           `json:"placeholder,omitempty"`
	HelpURL     string           `json:"helpUrl,omitempty"`
	InputType   string           `json:"inputType,omitempty"`
	Options     []FieldOption    `json:"options,omitempty"`
	Required    bool             `json:"required,omitempty"`
	Sensitive   bool             `json:"sensitive,omitempty"`
	EnvVar      string           `json:"envVar,omitempty"`
	Default     any              `json:"default,omitempty"`
	Validation  *FieldValidation `json:"validation,omitempty"`
}

// FieldOption is one choice in a FieldHint's Options list.
type FieldOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FieldValidation constrains the value a FieldHint accepts.
type FieldValidation struct {
	Pattern   string   `json:"pattern,omitempty"`
	MinLength int      `json:"minLength,omitempty"`
	MaxLength int      `json:"maxLength,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
}

// SetupStep is one step of a plugin's guided setup flow.
type SetupStep struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Commands     []string `json:"commands,omitempty"`
	ConfigFields []string `json:"configFields,omitempty"`
	URL          string   `json:"url,omitempty"`
}

// Requirement is an external prerequisite (an API key, a bot token) the
// operator needs before the plugin can run.
type Requirement struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
}

func DecodeManifest(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &manifest, nil
}

func DecodeManifestFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return DecodeManifest(data)
}

func (m *Manifest) Validate() error {
	if m == nil {
		return fmt.Errorf("manifest is nil")
	}
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("manifest id is required")
	}
	if len(m.ConfigSchema) == 0 {
		return fmt.Errorf("manifest configSchema is required")
	}
	return nil
}

// DeclaredCapabilities flattens Required and Optional into one deduplicated,
// order-preserving list, dropping blank entries.
func (m *Manifest) DeclaredCapabilities() []string {
	if m == nil || m.Capabilities == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var declared []string
	for _, list := range [][]string{m.Capabilities.Required, m.Capabilities.Optional} {
		for _, capability := range list {
			capability = strings.TrimSpace(capability)
			if capability == "" {
				continue
			}
			if _, ok := seen[capability]; ok {
				continue
			}
			seen[capability] = struct{}{}
			declared = append(declared, capability)
		}
	}
	return declared
}

// HasCapability reports whether capability is covered by any of the
// manifest's declared capabilities, honoring "*" wildcards.
func (m *Manifest) HasCapability(capability string) bool {
	if m == nil {
		return false
	}
	for _, allowed := range m.DeclaredCapabilities() {
		if CapabilityMatches(allowed, capability) {
			return true
		}
	}
	return false
}

// CapabilityMatches reports whether allowed (a declared capability, which
// may end in "*" as a prefix wildcard) covers requested.
func CapabilityMatches(allowed, requested string) bool {
	allowed = strings.TrimSpace(allowed)
	if allowed == "" {
		return false
	}
	if strings.HasSuffix(allowed, "*") {
		prefix := strings.TrimSuffix(allowed, "*")
		return strings.HasPrefix(requested, prefix)
	}
	return allowed == requested
}

// GetFieldHint returns the UI hint for a config field path, or nil if the
// manifest carries no hint for it.
func (m *Manifest) GetFieldHint(path string) *FieldHint {
	if m == nil || m.UIHints == nil || m.UIHints.ConfigFields == nil {
		return nil
	}
	return m.UIHints.ConfigFields[path]
}

// GetSetupSteps returns the manifest's guided setup steps, if any.
func (m *Manifest) GetSetupSteps() []*SetupStep {
	if m == nil || m.UIHints == nil {
		return nil
	}
	return m.UIHints.SetupSteps
}

// GetRequirements returns the manifest's external prerequisites, if any.
func (m *Manifest) GetRequirements() []*Requirement {
	if m == nil || m.UIHints == nil {
		return nil
	}
	return m.UIHints.Requirements
}

// GetRequiredFields returns the config field paths marked Required in the
// manifest's UI hints.
func (m *Manifest) GetRequiredFields() []string {
	if m == nil || m.UIHints == nil || m.UIHints.ConfigFields == nil {
		return nil
	}
	var fields []string
	for path, hint := range m.UIHints.ConfigFields {
		if hint != nil && hint.Required {
			fields = append(fields, path)
		}
	}
	return fields
}

// GetSensitiveFields returns the config field paths marked Sensitive in the
// manifest's UI hints (secrets that should be masked in any display).
func (m *Manifest) GetSensitiveFields() []string {
	if m == nil || m.UIHints == nil || m.UIHints.ConfigFields == nil {
		return nil
	}
	var fields []string
	for path, hint := range m.UIHints.ConfigFields {
		if hint != nil && hint.Sensitive {
			fields = append(fields, path)
		}
	}
	return fields
}
