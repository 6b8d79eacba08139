package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, "https://texttospeech.googleapis.com", cfg.TTS.BaseURL)
	require.Equal(t, "info", cfg.LogLevel)
	require.NotEmpty(t, cfg.Storage.DBPath)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  base_url: https://engine.example.com/v1
  user_id: u-42
speech:
  ws_url: wss://speech.example.com/stream
tts:
  api_key: secret
  voice: en-GB-Standard-B
log_level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Equal(t, "https://engine.example.com/v1", cfg.Engine.BaseURL)
	require.Equal(t, "u-42", cfg.Engine.UserID)
	require.Equal(t, "wss://speech.example.com/stream", cfg.Speech.WSURL)
	require.Equal(t, "en-GB-Standard-B", cfg.TTS.Voice)
	require.Equal(t, "debug", cfg.LogLevel)
	// Untouched defaults survive a partial file.
	require.Equal(t, "https://texttospeech.googleapis.com", cfg.TTS.BaseURL)
}

func TestLoad_MalformedFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [not a map"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate_RequiresEngineFields(t *testing.T) {
	cfg := &Config{}
	require.Error(t, cfg.Validate())
	cfg.Engine.BaseURL = "https://engine.example.com"
	require.Error(t, cfg.Validate())
	cfg.Engine.UserID = "u-1"
	require.NoError(t, cfg.Validate())
}
