package registry

import "fmt"

// ToolSource identifies where a registered tool came from. The set is
// closed: each variant carries its own namespace-qualification rule so
// identically-named tools from different sources cannot collide.
type ToolSource string

const (
	// SourceBuiltin is the curated host-provided gateway catalog.
	SourceBuiltin ToolSource = "builtin"
	// SourceDynamic covers the meta-tools and user-defined custom tools.
	SourceDynamic ToolSource = "dynamic"
	// SourcePlugin covers tools exposed by connected service plugins.
	SourcePlugin ToolSource = "plugin"
	// SourceExtension covers tools declared by installed extension packs.
	SourceExtension ToolSource = "extension"
	// SourceSkill covers tools from skill-formatted extension packs.
	SourceSkill ToolSource = "skill"
	// SourceProtocol covers tools surfaced by remote protocol providers.
	SourceProtocol ToolSource = "protocol"
)

// Qualify applies the source's namespace rule to a tool name.
// Builtin, dynamic, plugin and protocol names are used as-is (those
// catalogs are curated or conflict-resolved at registration time);
// extension and skill names are prefixed with their owning pack.
func (s ToolSource) Qualify(ownerID, name string) (string, error) {
	switch s {
	case SourceBuiltin, SourceDynamic, SourcePlugin, SourceProtocol:
		return name, nil
	case SourceExtension:
		if ownerID == "" {
			return "", fmt.Errorf("%w: extension tool %s has no owner", ErrValidation, name)
		}
		return fmt.Sprintf("ext_%s_%s", ownerID, name), nil
	case SourceSkill:
		if ownerID == "" {
			return "", fmt.Errorf("%w: skill tool %s has no owner", ErrValidation, name)
		}
		return fmt.Sprintf("skill_%s_%s", ownerID, name), nil
	default:
		return "", fmt.Errorf("%w: unknown tool source %q", ErrValidation, string(s))
	}
}

// Valid reports whether s is one of the closed set of sources.
func (s ToolSource) Valid() bool {
	switch s {
	case SourceBuiltin, SourceDynamic, SourcePlugin, SourceExtension, SourceSkill, SourceProtocol:
		return true
	}
	return false
}
