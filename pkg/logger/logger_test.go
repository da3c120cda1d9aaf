package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConfigs(t *testing.T) {
	assert.Equal(t, Config{Level: "info", Format: "console", Output: "stdout"}, DefaultConfig())
	assert.Equal(t, "json", ProductionConfig().Format)
}

func TestNew_Rejects(t *testing.T) {
	_, err := New(Config{Level: "loud", Format: "json", Output: "stdout"})
	assert.Error(t, err)

	_, err = New(Config{Level: "info", Format: "xml", Output: "stdout"})
	assert.Error(t, err)

	_, err = New(Config{Level: "info", Format: "json", Output: filepath.Join(t.TempDir(), "missing", "app.log")})
	assert.Error(t, err)
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := New(Config{Level: "warn", Format: "json", Output: path})
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept", zap.String("loan_id", "abc"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "abc", entry["loan_id"])
}
