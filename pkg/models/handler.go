package models

// HandlerMetadata describes one plugin-contributed callback bound to an
// event kind. The handler registry (internal/plugins) indexes instances of
// this by Name and by PluginPath.
type HandlerMetadata struct {
	EventKind  string
	Name       string // fully-qualified: "<plugin-path>.<func-name>"
	PluginPath string
	Priority   int
	Description string
	Extras      map[string]any
}
