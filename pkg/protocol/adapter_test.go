package protocol

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_AbandonedRequestReleasesPendingSlot(t *testing.T) {
	a := NewServerAdapter("srv-test", "true", nil)
	a.stdin = nopWriteCloser{io.Discard}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := a.call(ctx, "tools/list", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Empty(t, a.pending)
}

func TestNewProviderScanner_AcceptsLargeMessages(t *testing.T) {
	line := `{"jsonrpc":"2.0","result":"` + strings.Repeat("x", 200*1024) + `","id":1}`
	scanner := newProviderScanner(strings.NewReader(line + "\n"))

	require.True(t, scanner.Scan(), "scan must survive messages beyond the bufio default")
	assert.Equal(t, line, scanner.Text())
	assert.NoError(t, scanner.Err())
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func TestParseToolParameters(t *testing.T) {
	t.Run("full schema", func(t *testing.T) {
		schema := json.RawMessage(`{
			"type": "object",
			"properties": {
				"city": {"type": "string", "description": "City name"},
				"days": {"type": "number", "default": 3}
			},
			"required": ["city"]
		}`)

		params := parseToolParameters(schema)
		require.Len(t, params, 2)

		byName := map[string]bool{}
		for _, p := range params {
			byName[p.Name] = true
			switch p.Name {
			case "city":
				assert.Equal(t, "string", p.Type)
				assert.Equal(t, "City name", p.Description)
				assert.True(t, p.Required)
			case "days":
				assert.Equal(t, "number", p.Type)
				assert.Equal(t, float64(3), p.Default)
				assert.False(t, p.Required)
			}
		}
		assert.True(t, byName["city"])
		assert.True(t, byName["days"])
	})

	t.Run("missing type defaults to string", func(t *testing.T) {
		schema := json.RawMessage(`{"properties": {"q": {"description": "Query"}}}`)
		params := parseToolParameters(schema)
		require.Len(t, params, 1)
		assert.Equal(t, "string", params[0].Type)
	})

	t.Run("degenerate inputs", func(t *testing.T) {
		assert.Nil(t, parseToolParameters(nil))
		assert.Nil(t, parseToolParameters(json.RawMessage(`not json`)))
		assert.Nil(t, parseToolParameters(json.RawMessage(`{"type": "object"}`)))
	})
}
