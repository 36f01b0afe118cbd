package registrar

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tessera-ai/dispatch/pkg/extension"
	"github.com/tessera-ai/dispatch/pkg/middleware"
	"github.com/tessera-ai/dispatch/pkg/registry"
)

// extensionToolTimeout bounds one pack tool invocation.
const extensionToolTimeout = 30 * time.Second

// RegisterExtension registers every tool declared by enabled extension
// packs, with names qualified by pack ID per the pack's format. A bad
// pack or tool is skipped with a warning, never fatal.
func RegisterExtension(reg *registry.Registry, catalog *extension.Catalog, opts middleware.Options) ([]registry.ToolDefinition, error) {
	if catalog == nil {
		log.Debug().Msg("No extension catalog available, skipping extension tools")
		return nil, nil
	}

	packs, err := catalog.Packs()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to enumerate extension packs, continuing without them")
		return nil, nil
	}

	var registered []registry.ToolDefinition
	for _, pack := range packs {
		source, err := pack.Format.Source()
		if err != nil {
			log.Warn().Str("pack", pack.ID).Err(err).Msg("Skipping extension pack")
			continue
		}

		for _, tool := range pack.Tools {
			qualified, err := source.Qualify(pack.ID, tool.Definition.Name)
			if err != nil {
				log.Warn().
					Str("pack", pack.ID).
					Str("tool", tool.Definition.Name).
					Err(err).
					Msg("Skipping extension tool")
				continue
			}

			def := tool.Definition
			def.Name = qualified

			wrapped := middleware.Wrap(def.Name, packToolExecutor(tool), opts)
			if err := reg.Register(def, wrapped, source, pack.ID); err != nil {
				log.Warn().
					Str("pack", pack.ID).
					Str("tool", def.Name).
					Err(err).
					Msg("Skipping extension tool")
				continue
			}
			registered = append(registered, def)
		}
	}

	return registered, nil
}

// packToolExecutor runs the pack's declared command with the tool
// arguments as JSON on stdin, mirroring the sandbox contract.
func packToolExecutor(tool extension.PackTool) registry.Executor {
	command := tool.Command
	cmdArgs := tool.Args
	return func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
		if command == "" {
			return registry.Err(registry.CodeExecution, "extension tool declares no command"), nil
		}

		if args == nil {
			args = map[string]interface{}{}
		}
		stdin, err := json.Marshal(args)
		if err != nil {
			return registry.Errf(registry.CodeValidation, "arguments are not serializable: %v", err), nil
		}

		execCtx, cancel := context.WithTimeout(ctx, extensionToolTimeout)
		defer cancel()

		cmd := exec.CommandContext(execCtx, command, cmdArgs...)
		cmd.Stdin = bytes.NewReader(stdin)

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			if execCtx.Err() == context.DeadlineExceeded {
				return registry.Errf(registry.CodeTimeout,
					"extension tool timed out after %v", extensionToolTimeout), nil
			}
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = err.Error()
			}
			return registry.Err(registry.CodeExecution, msg), nil
		}

		return registry.Ok(stdout.String()), nil
	}
}
