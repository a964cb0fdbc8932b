package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/dmitrijs2005/keybox/internal/s3x"
)

const (
	appName = "keybox"

	EnvDataDir = "KEYBOX_DIR"
	EnvToken   = "KEYBOX_TOKEN"
)

// Config holds runtime settings for the keybox CLI.
type Config struct {
	DataDir      string
	Transport    string
	ServerAddr   string
	AccessToken  string
	S3           s3x.Config
	KeySource    string
	AuthMode     string
	TrashLimit   int
	PollInterval time.Duration
	LogLevel     string
}

// DefaultDataDir is KEYBOX_DIR when set, otherwise $XDG_DATA_HOME/keybox.
func DefaultDataDir() string {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		return dir
	}
	return filepath.Join(xdg.DataHome, appName)
}

// DefaultConfigFile is where the CLI looks for JSON settings when --config
// is not given.
func DefaultConfigFile() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.json")
}

// LoadDefaults populates c with defaults for an offline vault.
func (c *Config) LoadDefaults() {
	c.DataDir = DefaultDataDir()
	c.Transport = "none"
	c.ServerAddr = "127.0.0.1:50051"
	c.AccessToken = ""
	c.S3 = s3x.Config{Region: "us-east-1", Bucket: appName}
	c.KeySource = "static"
	c.AuthMode = "none"
	c.TrashLimit = 0
	c.PollInterval = 15 * time.Second
	c.LogLevel = "warn"
}

func (c *Config) applyEnv() {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		c.DataDir = dir
	}
	if tok := os.Getenv(EnvToken); tok != "" {
		c.AccessToken = tok
	}
}

// Load builds a Config from defaults, the JSON file at path (or the default
// file if path is empty and it exists) and the environment. Flags are
// applied separately by the caller.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	optional := false
	if path == "" {
		path, optional = DefaultConfigFile(), true
	}
	if err := parseJSON(cfg, path, optional); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}
