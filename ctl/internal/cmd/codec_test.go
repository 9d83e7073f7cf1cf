package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the tool with JSON output and returns the printed rows.
func run(t *testing.T, args ...string) ([]map[string]any, error) {
	t.Helper()
	var out bytes.Buffer
	err := execute(context.Background(), append(args, "--output=json"), &out)
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &rows), "output: %s", out.String())
	return rows, nil
}

func TestEncode(t *testing.T) {
	rows, err := run(t, "encode", "--dir=out", "--group=f", "--num=127", "--size=4")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "0x4004667f", rows[0]["cmd"])
	assert.Equal(t, "FIONREAD", rows[0]["name"])
	assert.Equal(t, "out", rows[0]["dir"])
	assert.Equal(t, "'f'", rows[0]["group"])
	assert.Equal(t, float64(127), rows[0]["num"])
	assert.Equal(t, "4B", rows[0]["size"])
}

func TestEncodeRejectsInvalidInput(t *testing.T) {
	_, err := run(t, "encode", "--dir=sideways", "--group=f")
	assert.Error(t, err)

	_, err = run(t, "encode", "--dir=in", "--group=f", "--size=8KiB")
	assert.Error(t, err)

	_, err = run(t, "encode", "--dir=in")
	assert.Error(t, err, "group is required")
}

func TestDecode(t *testing.T) {
	rows, err := run(t, "decode", "0x80045431", "tiocgptn", "0x00005401")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "TIOCSPTLCK", rows[0]["name"])
	assert.Equal(t, "in", rows[0]["dir"])
	assert.Equal(t, "'T'", rows[0]["group"])
	assert.Equal(t, float64(0x31), rows[0]["num"])

	assert.Equal(t, "0x40045430", rows[1]["cmd"])
	assert.Equal(t, "out", rows[1]["dir"])

	assert.Equal(t, "", rows[2]["name"])
	assert.Equal(t, "none", rows[2]["dir"])
	assert.Equal(t, "0B", rows[2]["size"])
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := run(t, "decode", "not-a-request")
	assert.Error(t, err)
}

func TestRequests(t *testing.T) {
	rows, err := run(t, "requests")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	names := []any{}
	for _, r := range rows {
		names = append(names, r["name"])
		assert.NotEmpty(t, r["description"])
	}
	assert.ElementsMatch(t, []any{"FIONREAD", "TIOCGPTN", "TIOCSPTLCK"}, names)
}

func TestTableOutput(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, execute(context.Background(), []string{"decode", "FIONREAD"}, &out))
	assert.Contains(t, out.String(), "CMD")
	assert.Contains(t, out.String(), "0x4004667f")
}
