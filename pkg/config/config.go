// Package config loads the client configuration from a YAML file with sane
// defaults, so the binary runs with nothing but an engine URL and user id.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the full client configuration.
type Config struct {
	// Engine is the interview engine API.
	Engine struct {
		BaseURL string `yaml:"base_url"`
		UserID  string `yaml:"user_id"`
	} `yaml:"engine"`

	// Speech is the recognition websocket bridge. Empty URL disables
	// voice capture.
	Speech struct {
		WSURL string `yaml:"ws_url"`
	} `yaml:"speech"`

	// TTS is the text-to-speech service. Empty APIKey disables audio.
	TTS struct {
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
		Voice    string `yaml:"voice"`
		ClipsDir string `yaml:"clips_dir"`
	} `yaml:"tts"`

	// Storage holds the local snapshot database.
	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`

	LogLevel string `yaml:"log_level"`
}

// DefaultPath is the config location used when none is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "parley.yaml"
	}
	return filepath.Join(home, ".parley", "config.yaml")
}

func defaults() *Config {
	cfg := &Config{}
	cfg.TTS.BaseURL = "https://texttospeech.googleapis.com"
	cfg.LogLevel = "info"
	home, err := os.UserHomeDir()
	if err == nil {
		cfg.Storage.DBPath = filepath.Join(home, ".parley", "sessions.db")
	} else {
		cfg.Storage.DBPath = "parley-sessions.db"
	}
	return cfg
}

// Load reads the config at path. A missing file yields the defaults; a
// present but unreadable or malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}

// Validate checks the fields the runtime cannot do without.
func (c *Config) Validate() error {
	if c.Engine.BaseURL == "" {
		return errors.New("config: engine.base_url is required")
	}
	if c.Engine.UserID == "" {
		return errors.New("config: engine.user_id is required")
	}
	return nil
}
