package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolSource_Qualify(t *testing.T) {
	tests := []struct {
		source  ToolSource
		ownerID string
		name    string
		want    string
		wantErr bool
	}{
		{SourceBuiltin, "", "memory_search", "memory_search", false},
		{SourceDynamic, "", "my_tool", "my_tool", false},
		{SourcePlugin, "plug-1", "fetch", "fetch", false},
		{SourceProtocol, "srv-1", "remote_tool", "remote_tool", false},
		{SourceExtension, "weather", "forecast", "ext_weather_forecast", false},
		{SourceSkill, "summarize", "run", "skill_summarize_run", false},
		{SourceExtension, "", "forecast", "", true},
		{SourceSkill, "", "run", "", true},
		{ToolSource("bogus"), "x", "y", "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.source)+"/"+tt.name, func(t *testing.T) {
			got, err := tt.source.Qualify(tt.ownerID, tt.name)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToolSource_Valid(t *testing.T) {
	for _, s := range []ToolSource{SourceBuiltin, SourceDynamic, SourcePlugin, SourceExtension, SourceSkill, SourceProtocol} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, ToolSource("bogus").Valid())
	assert.False(t, ToolSource("").Valid())
}
