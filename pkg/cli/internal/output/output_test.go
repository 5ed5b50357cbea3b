package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, map[string]int{"count": 2}))

	assert.Equal(t, "{\n  \"count\": 2\n}\n", buf.String())
	var v map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &v))
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	tw := Table(&buf, "Method", "Path")
	tw.AppendRow([]any{"POST", "/flag"})
	tw.Render()

	out := buf.String()
	assert.Contains(t, out, "METHOD")
	assert.Contains(t, out, "POST")
	assert.Contains(t, out, "/flag")
}

func TestWarn(t *testing.T) {
	var buf bytes.Buffer
	Warn(&buf, "could not remove %s", "x")
	assert.Equal(t, "Warning: could not remove x\n", buf.String())
}
