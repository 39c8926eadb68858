package applog

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestHelpersWriteStructuredLines(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "debug")
	t.Cleanup(func() { SetOutput(nil, "") })

	Info("connected to %s", "sql01")
	Event("schema", "listed %d tables", 4)
	Error("boom: %v", errors.New("x"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "connected to sql01", lines[0]["message"])
	assert.Equal(t, "asksql", lines[0]["app"])
	assert.Equal(t, "schema", lines[1]["category"])
	assert.Equal(t, "error", lines[2]["level"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "error")
	t.Cleanup(func() { SetOutput(nil, "") })

	Info("dropped")
	Error("kept")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["message"])
}

func TestTimedRecordsOutcome(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "info")
	t.Cleanup(func() { SetOutput(nil, "") })

	Timed("exec", "execute", time.Now(), nil)
	Timed("exec", "execute", time.Now(), errors.New("deadlock"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "deadlock", lines[1]["error"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("disabled"))
}
