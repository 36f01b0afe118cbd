package registrar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tessera-ai/dispatch/pkg/extension"
	"github.com/tessera-ai/dispatch/pkg/middleware"
	"github.com/tessera-ai/dispatch/pkg/registry"
)

// RegisterBuiltin registers the curated host gateway catalog: memory,
// goals, key-value data, triggers, plans, notifications, pulses,
// heartbeat and config tools. A nil host yields an empty result, not an error, so
// registry construction survives a missing gateway.
func RegisterBuiltin(reg *registry.Registry, host *Host, extensions *extension.Catalog, opts middleware.Options) ([]registry.ToolDefinition, error) {
	if host == nil {
		log.Debug().Msg("No host gateway available, skipping builtin tools")
		return nil, nil
	}

	var registered []registry.ToolDefinition
	for _, entry := range builtinCatalog(host, extensions) {
		wrapped := middleware.Wrap(entry.def.Name, entry.exec, opts)
		if err := reg.Register(entry.def, wrapped, registry.SourceBuiltin, ""); err != nil {
			return registered, fmt.Errorf("failed to register builtin tool %s: %w", entry.def.Name, err)
		}
		registered = append(registered, entry.def)
	}
	return registered, nil
}

type catalogEntry struct {
	def  registry.ToolDefinition
	exec registry.Executor
}

func builtinCatalog(host *Host, extensions *extension.Catalog) []catalogEntry {
	entries := []catalogEntry{
		{
			def: registry.ToolDefinition{
				Name:        "memory_save",
				Description: "Save a memory entry for later recall.",
				Category:    "memory",
				Parameters: []registry.ToolParameter{
					{Name: "content", Type: "string", Description: "Memory content to save", Required: true},
					{Name: "tags", Type: "array", Description: "Optional tags for recall", Required: false},
				},
			},
			exec: func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
				content := stringArg(args, "content")
				if content == "" {
					return registry.Err(registry.CodeValidation, "content is required"), nil
				}
				entry := host.SaveMemory(content, stringSliceArg(args, "tags"))
				return registry.OkWithMetadata("Memory saved.", map[string]interface{}{"id": entry.ID}), nil
			},
		},
		{
			def: registry.ToolDefinition{
				Name:        "memory_search",
				Description: "Search saved memories by keyword.",
				Category:    "memory",
				Parameters: []registry.ToolParameter{
					{Name: "query", Type: "string", Description: "Search keywords", Required: true},
					{Name: "limit", Type: "number", Description: "Maximum entries to return", Required: false, Default: 10},
				},
			},
			exec: func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
				matches := host.SearchMemories(stringArg(args, "query"), intArg(args, "limit", 10))
				if len(matches) == 0 {
					return registry.Ok("No memories found."), nil
				}
				var b strings.Builder
				for _, entry := range matches {
					fmt.Fprintf(&b, "- [%s] %s\n", entry.CreatedAt.Format("2006-01-02"), entry.Content)
				}
				return registry.OkWithMetadata(strings.TrimRight(b.String(), "\n"),
					map[string]interface{}{"count": len(matches)}), nil
			},
		},
		{
			def: registry.ToolDefinition{
				Name:        "goals_set",
				Description: "Create a goal or update its status.",
				Category:    "goals",
				Parameters: []registry.ToolParameter{
					{Name: "title", Type: "string", Description: "Goal title", Required: true},
					{Name: "status", Type: "string", Description: "Goal status", Required: false, Default: "active"},
				},
			},
			exec: func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
				title := stringArg(args, "title")
				if title == "" {
					return registry.Err(registry.CodeValidation, "title is required"), nil
				}
				status := stringArg(args, "status")
				if status == "" {
					status = "active"
				}
				goal := host.SetGoal(title, status)
				return registry.OkWithMetadata(fmt.Sprintf("Goal %q is %s.", goal.Title, goal.Status),
					map[string]interface{}{"id": goal.ID}), nil
			},
		},
		{
			def: registry.ToolDefinition{
				Name:        "goals_list",
				Description: "List tracked goals and their status.",
				Category:    "goals",
			},
			exec: func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
				goals := host.Goals()
				if len(goals) == 0 {
					return registry.Ok("No goals tracked."), nil
				}
				var b strings.Builder
				for _, goal := range goals {
					fmt.Fprintf(&b, "- %s (%s)\n", goal.Title, goal.Status)
				}
				return registry.Ok(strings.TrimRight(b.String(), "\n")), nil
			},
		},
		{
			def: registry.ToolDefinition{
				Name:        "custom_data_set",
				Description: "Store an agent-scoped key-value pair.",
				Category:    "data",
				Parameters: []registry.ToolParameter{
					{Name: "key", Type: "string", Description: "Key to store under", Required: true},
					{Name: "value", Type: "string", Description: "Value to store", Required: true},
				},
			},
			exec: func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
				key := stringArg(args, "key")
				if key == "" {
					return registry.Err(registry.CodeValidation, "key is required"), nil
				}
				host.SetCustomData(key, stringArg(args, "value"))
				return registry.Ok(fmt.Sprintf("Stored %s.", key)), nil
			},
		},
		{
			def: registry.ToolDefinition{
				Name:        "custom_data_get",
				Description: "Read an agent-scoped key-value pair.",
				Category:    "data",
				Parameters: []registry.ToolParameter{
					{Name: "key", Type: "string", Description: "Key to read", Required: true},
				},
			},
			exec: func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
				key := stringArg(args, "key")
				value, ok := host.GetCustomData(key)
				if !ok {
					return registry.Errf(registry.CodeNotFound, "no value stored for %s", key), nil
				}
				return registry.Ok(value), nil
			},
		},
		{
			def: registry.ToolDefinition{
				Name:             "personal_data_set",
				Description:      "Store a user-profile key-value pair.",
				Category:         "data",
				RequiresApproval: true,
				Parameters: []registry.ToolParameter{
					{Name: "key", Type: "string", Description: "Profile key", Required: true},
					{Name: "value", Type: "string", Description: "Profile value", Required: true},
				},
			},
			exec: func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
				key := stringArg(args, "key")
				if key == "" {
					return registry.Err(registry.CodeValidation, "key is required"), nil
				}
				host.SetPersonalData(key, stringArg(args, "value"))
				return registry.Ok(fmt.Sprintf("Stored profile key %s.", key)), nil
			},
		},
		{
			def: registry.ToolDefinition{
				Name:        "personal_data_get",
				Description: "Read a user-profile value, or list stored keys when no key is given.",
				Category:    "data",
				Parameters: []registry.ToolParameter{
					{Name: "key", Type: "string", Description: "Profile key to read", Required: false},
				},
			},
			exec: func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
				key := stringArg(args, "key")
				if key == "" {
					keys := host.PersonalDataKeys()
					if len(keys) == 0 {
						return registry.Ok("No profile data stored."), nil
					}
					return registry.Ok("Stored keys: " + strings.Join(keys, ", ")), nil
				}
				value, ok := host.GetPersonalData(key)
				if !ok {
					return registry.Errf(registry.CodeNotFound, "no profile value for %s", key), nil
				}
				return registry.Ok(value), nil
			},
		},
		{
			def: registry.ToolDefinition{
				Name:        "trigger_create",
				Description: "Schedule a recurring activation with a five-field cron expression.",
				Category:    "triggers",
				Parameters: []registry.ToolParameter{
					{Name: "schedule", Type: "string", Description: "Cron expression, e.g. \"0 9 * * 1\"", Required: true},
					{Name: "payload", Type: "string", Description: "Payload delivered on activation", Required: false},
				},
			},
			exec: func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
				trigger, err := host.CreateTrigger(stringArg(args, "schedule"), stringArg(args, "payload"))
				if err != nil {
					return registry.Err(registry.CodeValidation, err.Error()), nil
				}
				return registry.OkWithMetadata(
					fmt.Sprintf("Trigger created on schedule %q.", trigger.Schedule),
					map[string]interface{}{"id": trigger.ID}), nil
			},
		},
		{
			def: registry.ToolDefinition{
				Name:        "trigger_list",
				Description: "List scheduled triggers.",
				Category:    "triggers",
			},
			exec: func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
				triggers := host.Triggers()
				if len(triggers) == 0 {
					return registry.Ok("No triggers scheduled."), nil
				}
				var b strings.Builder
				for _, t := range triggers {
					fmt.Fprintf(&b, "- %s: %s\n", t.ID, t.Schedule)
				}
				return registry.Ok(strings.TrimRight(b.String(), "\n")), nil
			},
		},
		{
			def: registry.ToolDefinition{
				Name:        "trigger_delete",
				Description: "Delete a scheduled trigger by ID.",
				Category:    "triggers",
				Parameters: []registry.ToolParameter{
					{Name: "id", Type: "string", Description: "Trigger ID", Required: true},
				},
			},
			exec: func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
				id := stringArg(args, "id")
				if !host.DeleteTrigger(id) {
					return registry.Errf(registry.CodeNotFound, "no trigger with id %s", id), nil
				}
				return registry.Ok("Trigger deleted."), nil
			},
		},
		{
			def: registry.ToolDefinition{
				Name:        "plan_create",
				Description: "Record a multi-step plan.",
				Category:    "planning",
				Parameters: []registry.ToolParameter{
					{Name: "title", Type: "string", Description: "Plan title", Required: true},
					{Name: "steps", Type: "array", Description: "Ordered plan steps", Required: true},
				},
			},
			exec: func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
				title := stringArg(args, "title")
				steps := stringSliceArg(args, "steps")
				if title == "" || len(steps) == 0 {
					return registry.Err(registry.CodeValidation, "title and steps are required"), nil
				}
				plan := host.CreatePlan(title, steps)
				return registry.OkWithMetadata(
					fmt.Sprintf("Plan %q recorded with %d step(s).", plan.Title, len(plan.Steps)),
					map[string]interface{}{"id": plan.ID}), nil
			},
		},
		{
			def: registry.ToolDefinition{
				Name:        "plan_list",
				Description: "List recorded plans.",
				Category:    "planning",
			},
			exec: func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
				plans := host.Plans()
				if len(plans) == 0 {
					return registry.Ok("No plans recorded."), nil
				}
				var b strings.Builder
				for _, plan := range plans {
					fmt.Fprintf(&b, "- %s (%d steps)\n", plan.Title, len(plan.Steps))
				}
				return registry.Ok(strings.TrimRight(b.String(), "\n")), nil
			},
		},
		{
			def: registry.ToolDefinition{
				Name:        "notify_send",
				Description: "Queue an outbound notification to the user.",
				Category:    "notifications",
				Parameters: []registry.ToolParameter{
					{Name: "message", Type: "string", Description: "Notification text", Required: true},
				},
			},
			exec: func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
				message := stringArg(args, "message")
				if message == "" {
					return registry.Err(registry.CodeValidation, "message is required"), nil
				}
				n := host.Notify(message)
				return registry.OkWithMetadata("Notification queued.", map[string]interface{}{"id": n.ID}), nil
			},
		},
		{
			def: registry.ToolDefinition{
				Name:        "pulse_emit",
				Description: "Emit an activity pulse for the platform's activity feed.",
				Category:    "notifications",
				Parameters: []registry.ToolParameter{
					{Name: "kind", Type: "string", Description: "Pulse kind, e.g. \"progress\"", Required: true},
					{Name: "detail", Type: "string", Description: "Optional detail text", Required: false},
				},
			},
			exec: func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
				kind := stringArg(args, "kind")
				if kind == "" {
					return registry.Err(registry.CodeValidation, "kind is required"), nil
				}
				p := host.EmitPulse(kind, stringArg(args, "detail"))
				return registry.OkWithMetadata("Pulse emitted.", map[string]interface{}{"id": p.ID}), nil
			},
		},
		{
			def: registry.ToolDefinition{
				Name:        "pulse_list",
				Description: "List emitted activity pulses.",
				Category:    "notifications",
			},
			exec: func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
				pulses := host.Pulses()
				if len(pulses) == 0 {
					return registry.Ok("No pulses emitted."), nil
				}
				var b strings.Builder
				for _, p := range pulses {
					if p.Detail != "" {
						fmt.Fprintf(&b, "- %s: %s\n", p.Kind, p.Detail)
					} else {
						fmt.Fprintf(&b, "- %s\n", p.Kind)
					}
				}
				return registry.Ok(strings.TrimRight(b.String(), "\n")), nil
			},
		},
		{
			def: registry.ToolDefinition{
				Name:        "heartbeat",
				Description: "Record agent liveness.",
				Category:    "system",
			},
			exec: func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
				prev := host.Heartbeat()
				if prev.IsZero() {
					return registry.Ok("Heartbeat recorded."), nil
				}
				return registry.Ok(fmt.Sprintf("Heartbeat recorded; previous beat %s ago.",
					time.Since(prev).Round(time.Second))), nil
			},
		},
		{
			def: registry.ToolDefinition{
				Name:        "config_get",
				Description: "Read a host config value, or list available keys when no key is given.",
				Category:    "system",
				Parameters: []registry.ToolParameter{
					{Name: "key", Type: "string", Description: "Config key to read", Required: false},
				},
			},
			exec: func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
				key := stringArg(args, "key")
				if key == "" {
					keys := host.ConfigKeys()
					if len(keys) == 0 {
						return registry.Ok("No config values available."), nil
					}
					return registry.Ok("Available keys: " + strings.Join(keys, ", ")), nil
				}
				value, ok := host.ConfigValue(key)
				if !ok {
					return registry.Errf(registry.CodeNotFound, "no config value for %s", key), nil
				}
				return registry.Ok(value), nil
			},
		},
	}

	if extensions != nil {
		entries = append(entries, catalogEntry{
			def: registry.ToolDefinition{
				Name:        "extensions_list",
				Description: "List installed extension packs and the tools they declare.",
				Category:    "system",
			},
			exec: func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
				packs, err := extensions.Packs()
				if err != nil {
					return registry.Err(registry.CodeDependency, err.Error()), nil
				}
				if len(packs) == 0 {
					return registry.Ok("No extension packs installed."), nil
				}
				var b strings.Builder
				for _, pack := range packs {
					fmt.Fprintf(&b, "- %s (%s, %d tools)\n", pack.ID, pack.Format, len(pack.Tools))
				}
				return registry.Ok(strings.TrimRight(b.String(), "\n")), nil
			},
		})
	}

	return entries
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func stringSliceArg(args map[string]interface{}, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []interface{}:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
