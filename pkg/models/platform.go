package models

// PlatformID identifies a platform adapter instance (e.g. "telegram-main",
// "cli", "slack-support"). Distinct from the platform name carried on an
// InboundEvent, which may be shared by several adapter instances.
type PlatformID string

// PlatformMeta is adapter-reported identity/version info surfaced to
// callers that need to distinguish adapter instances of the same platform.
type PlatformMeta struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
}
