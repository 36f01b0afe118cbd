package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-ai/dispatch/pkg/registry"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTool(name string) CustomTool {
	return CustomTool{
		Definition: registry.ToolDefinition{
			Name:        name,
			Description: "Fetches the weather.",
			Category:    "utility",
			Tags:        []string{"weather", "api"},
			Parameters: []registry.ToolParameter{
				{Name: "city", Type: "string", Description: "City name", Required: true},
			},
		},
		Code:        "const city = args.city;",
		Permissions: []string{"network:http"},
	}
}

func TestSQLiteStore_CreateAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, sampleTool("weather"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := s.GetByName(ctx, "weather")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Fetches the weather.", got.Definition.Description)
	assert.Equal(t, []string{"weather", "api"}, got.Definition.Tags)
	assert.Equal(t, []string{"network:http"}, got.Permissions)
	require.Len(t, got.Definition.Parameters, 1)
	assert.True(t, got.Definition.Parameters[0].Required)
	assert.True(t, got.Enabled)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLiteStore_CreateRejectsDuplicateName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, sampleTool("weather"))
	require.NoError(t, err)

	_, err = s.Create(ctx, sampleTool("weather"))
	assert.Error(t, err)
}

func TestSQLiteStore_CreateRejectsInvalidDefinition(t *testing.T) {
	s := openTestStore(t)

	bad := sampleTool("bad")
	bad.Definition.Description = ""

	_, err := s.Create(context.Background(), bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrValidation))
}

func TestSQLiteStore_Update(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, sampleTool("weather"))
	require.NoError(t, err)

	updated := sampleTool("weather")
	updated.Code = "const updated = true;"
	updated.Definition.Description = "Fetches tomorrow's weather."
	require.NoError(t, s.Update(ctx, updated))

	got, err := s.GetByName(ctx, "weather")
	require.NoError(t, err)
	assert.Equal(t, "const updated = true;", got.Code)
	assert.Equal(t, "Fetches tomorrow's weather.", got.Definition.Description)

	missing := sampleTool("missing")
	err = s.Update(ctx, missing)
	assert.True(t, errors.Is(err, registry.ErrNotFound))
}

func TestSQLiteStore_Delete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, sampleTool("weather"))
	require.NoError(t, err)

	existed, err := s.Delete(ctx, "weather")
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = s.GetByName(ctx, "weather")
	assert.True(t, errors.Is(err, registry.ErrNotFound))

	existed, err = s.Delete(ctx, "weather")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestSQLiteStore_SetEnabledFiltersActive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, sampleTool("weather"))
	require.NoError(t, err)
	_, err = s.Create(ctx, sampleTool("currency"))
	require.NoError(t, err)

	require.NoError(t, s.SetEnabled(ctx, "weather", false))

	active, err := s.GetActiveTools(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "currency", active[0].Definition.Name)

	// Disabled tools remain readable by name
	got, err := s.GetByName(ctx, "weather")
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	err = s.SetEnabled(ctx, "missing", true)
	assert.True(t, errors.Is(err, registry.ErrNotFound))
}

func TestSQLiteStore_GetActiveToolDefinitions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, sampleTool("weather"))
	require.NoError(t, err)

	defs, err := s.GetActiveToolDefinitions(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "weather", defs[0].Name)
}
