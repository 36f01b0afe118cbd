// Package plugin tracks connected external service plugins and the
// tools they expose to the dispatch core.
package plugin

import (
	"time"

	"github.com/tessera-ai/dispatch/pkg/registry"
)

// Permission represents a capability that a plugin can request
type Permission string

const (
	PermissionFilesystemRead   Permission = "filesystem:read"
	PermissionFilesystemWrite  Permission = "filesystem:write"
	PermissionNetworkHTTP      Permission = "network:http"
	PermissionNetworkWebSocket Permission = "network:websocket"
	PermissionProcessSpawn     Permission = "process:spawn"
	PermissionDatabaseRead     Permission = "database:read"
	PermissionDatabaseWrite    Permission = "database:write"
)

// ValidPermissions is a set of all valid permissions
var ValidPermissions = map[Permission]bool{
	PermissionFilesystemRead:   true,
	PermissionFilesystemWrite:  true,
	PermissionNetworkHTTP:      true,
	PermissionNetworkWebSocket: true,
	PermissionProcessSpawn:     true,
	PermissionDatabaseRead:     true,
	PermissionDatabaseWrite:    true,
}

// sensitivePermissions force approval on tools of plugins that hold them.
var sensitivePermissions = map[Permission]bool{
	PermissionFilesystemWrite:  true,
	PermissionProcessSpawn:     true,
	PermissionDatabaseWrite:    true,
	PermissionNetworkHTTP:      true,
	PermissionNetworkWebSocket: true,
}

// RequiresApproval reports whether any granted permission is sensitive.
func RequiresApproval(permissions []Permission) bool {
	for _, perm := range permissions {
		if sensitivePermissions[perm] {
			return true
		}
	}
	return false
}

// Manifest describes a connected service plugin.
type Manifest struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Version     string       `json:"version"`
	Description string       `json:"description,omitempty"`
	Category    string       `json:"category,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// CatalogTool is one tool a plugin exposes: the triple the registrars
// consume.
type CatalogTool struct {
	Definition registry.ToolDefinition
	Executor   registry.Executor
	OwnerID    string
}

// ConnectedPlugin is a plugin the manager currently tracks.
type ConnectedPlugin struct {
	Manifest    Manifest
	Tools       []CatalogTool
	ConnectedAt time.Time
}
