package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err, "explicit missing file should error")

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "journal", cfg.Journal.Dir)
	assert.Equal(t, 150, cfg.Chat.MessageCap)
	assert.Equal(t, 40, cfg.Chat.WindowMax)
	assert.Equal(t, "anthropic", cfg.Model.Provider)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gitjournal.toml")
	content := `
[model]
provider = "ollama"
name = "llama3"

[chat]
message_cap = 80
window_max = 20
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Model.Provider)
	assert.Equal(t, "llama3", cfg.Model.Name)
	assert.Equal(t, 80, cfg.Chat.MessageCap)
	assert.Equal(t, "journal", cfg.Journal.Dir, "untouched keys keep defaults")
}

func TestInitRefusesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gitjournal.toml")
	require.NoError(t, Init(path))
	require.Error(t, Init(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Model.Provider)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	// Default anthropic provider without a key is invalid.
	require.Error(t, Validate(cfg))

	cfg.Model.APIKey = "sk-test"
	require.NoError(t, Validate(cfg))

	cfg.Model.Provider = "ollama"
	cfg.Model.APIKey = ""
	require.NoError(t, Validate(cfg))

	cfg.Model.Provider = "carrier-pigeon"
	require.Error(t, Validate(cfg))

	cfg.Model.Provider = "ollama"
	cfg.Chat.WindowMax = cfg.Chat.MessageCap + 1
	require.Error(t, Validate(cfg))
}
