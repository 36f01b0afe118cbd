// Package store persists user-defined custom tools. Definitions are
// fetched at registry-construction time; CRUD writes are expected to
// be followed by a registry rebuild, not an in-place patch.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/tessera-ai/dispatch/internal/tracing"
	"github.com/tessera-ai/dispatch/pkg/registry"
)

// CustomTool is a stored user-defined tool: its definition plus the
// source code and permissions the sandbox runs it under.
type CustomTool struct {
	ID          string
	Definition  registry.ToolDefinition
	Code        string
	Permissions []string
	Enabled     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SQLiteStore is the SQLite-backed custom tool store.
type SQLiteStore struct {
	db     *sql.DB
	tracer tracing.Tracer
}

// Open opens (or creates) the store at path. ":memory:" gives an
// ephemeral store.
func Open(path string, tracer tracing.Tracer) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if tracer == nil {
		tracer = tracing.NoopTracer{}
	}

	s := &SQLiteStore{db: db, tracer: tracer}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info().Str("path", path).Msg("Custom tool store opened")
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS custom_tools (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL,
			parameters TEXT NOT NULL,
			code TEXT NOT NULL,
			permissions TEXT NOT NULL,
			category TEXT,
			tags TEXT,
			requires_approval INTEGER NOT NULL DEFAULT 0,
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_custom_tools_name ON custom_tools(name);
		CREATE INDEX IF NOT EXISTS idx_custom_tools_enabled ON custom_tools(enabled);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create inserts a new custom tool and returns its generated ID.
func (s *SQLiteStore) Create(ctx context.Context, tool CustomTool) (string, error) {
	if err := tool.Definition.Validate(); err != nil {
		return "", err
	}

	id := tool.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now()

	params, err := json.Marshal(tool.Definition.Parameters)
	if err != nil {
		return "", fmt.Errorf("failed to encode parameters: %w", err)
	}
	permissions, err := json.Marshal(tool.Permissions)
	if err != nil {
		return "", fmt.Errorf("failed to encode permissions: %w", err)
	}
	tags, err := json.Marshal(tool.Definition.Tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}

	s.tracer.DBWrite(ctx, "custom_tools", "insert")
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO custom_tools
			(id, name, description, parameters, code, permissions, category, tags, requires_approval, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		id, tool.Definition.Name, tool.Definition.Description, string(params),
		tool.Code, string(permissions), tool.Definition.Category, string(tags),
		boolToInt(tool.Definition.RequiresApproval), now.Unix(), now.Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert custom tool: %w", err)
	}

	log.Info().Str("tool", tool.Definition.Name).Str("id", id).Msg("Custom tool created")
	return id, nil
}

// Update replaces the stored definition, code and permissions of the
// named tool.
func (s *SQLiteStore) Update(ctx context.Context, tool CustomTool) error {
	if err := tool.Definition.Validate(); err != nil {
		return err
	}

	params, err := json.Marshal(tool.Definition.Parameters)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}
	permissions, err := json.Marshal(tool.Permissions)
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}
	tags, err := json.Marshal(tool.Definition.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	s.tracer.DBWrite(ctx, "custom_tools", "update")
	res, err := s.db.ExecContext(ctx, `
		UPDATE custom_tools
		SET description = ?, parameters = ?, code = ?, permissions = ?, category = ?, tags = ?, requires_approval = ?, updated_at = ?
		WHERE name = ?`,
		tool.Definition.Description, string(params), tool.Code, string(permissions),
		tool.Definition.Category, string(tags), boolToInt(tool.Definition.RequiresApproval),
		time.Now().Unix(), tool.Definition.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to update custom tool: %w", err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: %s", registry.ErrNotFound, tool.Definition.Name)
	}
	return nil
}

// Delete removes the named tool, reporting whether it existed.
func (s *SQLiteStore) Delete(ctx context.Context, name string) (bool, error) {
	s.tracer.DBWrite(ctx, "custom_tools", "delete")
	res, err := s.db.ExecContext(ctx, `DELETE FROM custom_tools WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete custom tool: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// SetEnabled toggles a tool without removing its record.
func (s *SQLiteStore) SetEnabled(ctx context.Context, name string, enabled bool) error {
	s.tracer.DBWrite(ctx, "custom_tools", "update")
	res, err := s.db.ExecContext(ctx,
		`UPDATE custom_tools SET enabled = ?, updated_at = ? WHERE name = ?`,
		boolToInt(enabled), time.Now().Unix(), name,
	)
	if err != nil {
		return fmt.Errorf("failed to toggle custom tool: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: %s", registry.ErrNotFound, name)
	}
	return nil
}

// GetByName returns the stored tool, enabled or not.
func (s *SQLiteStore) GetByName(ctx context.Context, name string) (*CustomTool, error) {
	s.tracer.DBRead(ctx, "custom_tools", "select")
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, parameters, code, permissions, category, tags, requires_approval, enabled, created_at, updated_at
		FROM custom_tools WHERE name = ?`, name)

	tool, err := scanCustomTool(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", registry.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read custom tool: %w", err)
	}
	return tool, nil
}

// GetActiveTools returns every enabled tool in creation order.
func (s *SQLiteStore) GetActiveTools(ctx context.Context) ([]CustomTool, error) {
	s.tracer.DBRead(ctx, "custom_tools", "select")
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, parameters, code, permissions, category, tags, requires_approval, enabled, created_at, updated_at
		FROM custom_tools WHERE enabled = 1 ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list custom tools: %w", err)
	}
	defer rows.Close()

	var tools []CustomTool
	for rows.Next() {
		tool, err := scanCustomTool(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read custom tool: %w", err)
		}
		tools = append(tools, *tool)
	}
	return tools, rows.Err()
}

// GetActiveToolDefinitions returns the definitions of enabled tools.
func (s *SQLiteStore) GetActiveToolDefinitions(ctx context.Context) ([]registry.ToolDefinition, error) {
	tools, err := s.GetActiveTools(ctx)
	if err != nil {
		return nil, err
	}

	defs := make([]registry.ToolDefinition, 0, len(tools))
	for _, tool := range tools {
		defs = append(defs, tool.Definition)
	}
	return defs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCustomTool(row rowScanner) (*CustomTool, error) {
	var (
		tool                      CustomTool
		params, permissions, tags string
		category                  sql.NullString
		requiresApproval, enabled int
		createdAt, updatedAt      int64
	)

	err := row.Scan(
		&tool.ID, &tool.Definition.Name, &tool.Definition.Description,
		&params, &tool.Code, &permissions, &category, &tags,
		&requiresApproval, &enabled, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(params), &tool.Definition.Parameters); err != nil {
		return nil, fmt.Errorf("corrupt parameters for %s: %w", tool.Definition.Name, err)
	}
	if err := json.Unmarshal([]byte(permissions), &tool.Permissions); err != nil {
		return nil, fmt.Errorf("corrupt permissions for %s: %w", tool.Definition.Name, err)
	}
	if tags != "" && tags != "null" {
		if err := json.Unmarshal([]byte(tags), &tool.Definition.Tags); err != nil {
			return nil, fmt.Errorf("corrupt tags for %s: %w", tool.Definition.Name, err)
		}
	}

	tool.Definition.Category = category.String
	tool.Definition.RequiresApproval = requiresApproval != 0
	tool.Enabled = enabled != 0
	tool.CreatedAt = time.Unix(createdAt, 0)
	tool.UpdatedAt = time.Unix(updatedAt, 0)

	return &tool, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
