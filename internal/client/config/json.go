package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dmitrijs2005/keybox/internal/s3x"
	"github.com/dmitrijs2005/keybox/internal/timex"
)

// JsonConfig is the on-disk form of Config. Missing fields keep the value
// they had before the file was read.
type JsonConfig struct {
	DataDir      string          `json:"data_dir"`
	Transport    string          `json:"transport"`
	ServerAddr   string          `json:"server_addr"`
	AccessToken  string          `json:"access_token"`
	S3           *s3x.Config     `json:"s3"`
	KeySource    string          `json:"key_source"`
	AuthMode     string          `json:"auth_mode"`
	TrashLimit   *int            `json:"trash_limit"`
	PollInterval *timex.Duration `json:"poll_interval"`
	LogLevel     string          `json:"log_level"`
}

func parseJSON(cfg *Config, path string, optional bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.Transport, jc.Transport)
	setString(&cfg.ServerAddr, jc.ServerAddr)
	setString(&cfg.AccessToken, jc.AccessToken)
	setString(&cfg.KeySource, jc.KeySource)
	setString(&cfg.AuthMode, jc.AuthMode)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.S3 != nil {
		cfg.S3 = *jc.S3
	}
	if jc.TrashLimit != nil {
		cfg.TrashLimit = *jc.TrashLimit
	}
	if jc.PollInterval != nil {
		cfg.PollInterval = jc.PollInterval.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
