// Package protocol connects remote tool providers speaking the Model
// Context Protocol over stdio and surfaces their tools through a
// shared cross-agent registry.
package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tessera-ai/dispatch/pkg/registry"
)

// JSON-RPC messages
type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      interface{} `json:"id,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      interface{}     `json:"id"`
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ServerAdapter speaks MCP to one provider process over stdio.
type ServerAdapter struct {
	serverID string
	command  string
	args     []string

	mu      sync.Mutex
	process *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Scanner
	id      int
	pending map[int]chan *rpcResponse
}

// NewServerAdapter creates an adapter for a provider process.
func NewServerAdapter(serverID, command string, args []string) *ServerAdapter {
	return &ServerAdapter{
		serverID: serverID,
		command:  command,
		args:     args,
		pending:  make(map[int]chan *rpcResponse),
	}
}

// ServerID returns the provider identifier.
func (a *ServerAdapter) ServerID() string {
	return a.serverID
}

// Start launches the provider process and performs the initialize
// handshake. Safe to call more than once.
func (a *ServerAdapter) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.process != nil {
		a.mu.Unlock()
		return nil
	}

	cmd := exec.CommandContext(ctx, a.command, a.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		a.mu.Unlock()
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		a.mu.Unlock()
		return err
	}

	if err := cmd.Start(); err != nil {
		a.mu.Unlock()
		return err
	}

	a.process = cmd
	a.stdin = stdin
	a.stdout = newProviderScanner(stdout)
	a.mu.Unlock()

	go a.listen()

	return a.initialize(ctx)
}

// Stop kills the provider process.
func (a *ServerAdapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.process != nil && a.process.Process != nil {
		return a.process.Process.Kill()
	}
	return nil
}

// maxProviderMessageSize bounds one JSON-RPC line from a provider.
const maxProviderMessageSize = 10 * 1024 * 1024

// newProviderScanner builds a line scanner that accepts provider
// messages beyond the bufio default token size.
func newProviderScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxProviderMessageSize)
	return scanner
}

func (a *ServerAdapter) listen() {
	for a.stdout.Scan() {
		var resp rpcResponse
		if err := json.Unmarshal(a.stdout.Bytes(), &resp); err != nil {
			log.Error().Err(err).Str("server", a.serverID).Msg("Failed to unmarshal provider response")
			continue
		}

		if id, ok := resp.ID.(float64); ok {
			a.mu.Lock()
			ch, exists := a.pending[int(id)]
			if exists {
				delete(a.pending, int(id))
				ch <- &resp
			}
			a.mu.Unlock()
		}
	}

	if err := a.stdout.Err(); err != nil {
		log.Error().Err(err).Str("server", a.serverID).Msg("Provider stream read failed")
	} else {
		log.Debug().Str("server", a.serverID).Msg("Provider stream closed")
	}
}

func (a *ServerAdapter) initialize(ctx context.Context) error {
	params := map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]interface{}{},
		"clientInfo": map[string]interface{}{
			"name":    "dispatch",
			"version": "0.1.0",
		},
	}
	_, err := a.call(ctx, "initialize", params)
	return err
}

func (a *ServerAdapter) call(ctx context.Context, method string, params interface{}) (*rpcResponse, error) {
	a.mu.Lock()
	a.id++
	id := a.id
	ch := make(chan *rpcResponse, 1)
	a.pending[id] = ch
	stdin := a.stdin
	a.mu.Unlock()

	req := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      id,
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	if _, err := io.WriteString(stdin, string(data)+"\n"); err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, fmt.Errorf("provider error (%d): %s", resp.Error.Code, resp.Error.Message)
		}
		return resp, nil
	case <-ctx.Done():
		a.dropPending(id)
		return nil, ctx.Err()
	case <-time.After(10 * time.Second):
		a.dropPending(id)
		return nil, fmt.Errorf("provider request timeout")
	}
}

// dropPending releases the response slot of a call that will never be
// answered, so abandoned requests do not accumulate.
func (a *ServerAdapter) dropPending(id int) {
	a.mu.Lock()
	delete(a.pending, id)
	a.mu.Unlock()
}

// GetTools fetches the provider's tool definitions.
func (a *ServerAdapter) GetTools(ctx context.Context) ([]registry.ToolDefinition, error) {
	if err := a.Start(ctx); err != nil {
		return nil, err
	}

	resp, err := a.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}

	var listResult struct {
		Tools []struct {
			Name        string          `json:"name"`
			Description string          `json:"description"`
			InputSchema json.RawMessage `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &listResult); err != nil {
		return nil, err
	}

	defs := make([]registry.ToolDefinition, 0, len(listResult.Tools))
	for _, t := range listResult.Tools {
		def := registry.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
		}
		if params := parseToolParameters(t.InputSchema); len(params) > 0 {
			def.Parameters = params
		}
		defs = append(defs, def)
	}

	return defs, nil
}

// Executor returns a registry executor that calls the named provider
// tool and flattens its content blocks into result text.
func (a *ServerAdapter) Executor(name string) registry.Executor {
	return func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
		if err := a.Start(ctx); err != nil {
			return registry.ExecutionResult{}, fmt.Errorf("failed to start provider: %w", err)
		}

		resp, err := a.call(ctx, "tools/call", map[string]interface{}{
			"name":      name,
			"arguments": args,
		})
		if err != nil {
			return registry.ExecutionResult{}, err
		}

		var result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		}
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return registry.ExecutionResult{}, fmt.Errorf("malformed provider result: %w", err)
		}

		var text string
		for _, block := range result.Content {
			if block.Type == "text" {
				text += block.Text
			}
		}

		if result.IsError {
			return registry.Err(registry.CodeExecution, text), nil
		}
		return registry.Ok(text), nil
	}
}

func parseToolParameters(schema json.RawMessage) []registry.ToolParameter {
	if len(schema) == 0 {
		return nil
	}

	var schemaMap map[string]interface{}
	if err := json.Unmarshal(schema, &schemaMap); err != nil {
		return nil
	}

	properties, ok := schemaMap["properties"].(map[string]interface{})
	if !ok {
		return nil
	}

	required := make(map[string]bool)
	if reqList, ok := schemaMap["required"].([]interface{}); ok {
		for _, r := range reqList {
			if name, ok := r.(string); ok {
				required[name] = true
			}
		}
	}

	params := make([]registry.ToolParameter, 0, len(properties))
	for name, propData := range properties {
		prop, ok := propData.(map[string]interface{})
		if !ok {
			continue
		}
		param := registry.ToolParameter{
			Name:     name,
			Required: required[name],
		}
		param.Type = "string"
		if typeVal, ok := prop["type"].(string); ok {
			param.Type = typeVal
		}
		if desc, ok := prop["description"].(string); ok {
			param.Description = desc
		}
		if defVal, ok := prop["default"]; ok {
			param.Default = defVal
		}
		params = append(params, param)
	}

	return params
}
