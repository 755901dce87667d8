package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/articlecrawl/internal/fetch"
	"github.com/hyperifyio/articlecrawl/internal/server"
)

// FileConfig represents the single-file configuration schema.
// Durations are strings such as "15s" in both YAML and JSON.
type FileConfig struct {
	Server struct {
		Addr            string   `yaml:"addr" json:"addr"`
		ErrorMapping    string   `yaml:"errorMapping" json:"errorMapping"`
		AllowOrigins    []string `yaml:"allowOrigins" json:"allowOrigins"`
		ShutdownTimeout string   `yaml:"shutdownTimeout" json:"shutdownTimeout"`
	} `yaml:"server" json:"server"`

	Fetch struct {
		Timeout           string `yaml:"timeout" json:"timeout"`
		MaxBodyBytes      int64  `yaml:"maxBodyBytes" json:"maxBodyBytes"`
		UserAgent         string `yaml:"userAgent" json:"userAgent"`
		FollowRedirects   *bool  `yaml:"followRedirects" json:"followRedirects"`
		MaxRedirects      int    `yaml:"maxRedirects" json:"maxRedirects"`
		MaxConcurrent     int    `yaml:"maxConcurrent" json:"maxConcurrent"`
		AllowPrivateHosts bool   `yaml:"allowPrivateHosts" json:"allowPrivateHosts"`
	} `yaml:"fetch" json:"fetch"`

	Extract struct {
		MinTextChars int `yaml:"minTextChars" json:"minTextChars"`
	} `yaml:"extract" json:"extract"`

	Verbose bool `yaml:"verbose" json:"verbose"`
	LogJSON bool `yaml:"logJSON" json:"logJSON"`
}

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() Config {
	fc := fetch.DefaultConfig()
	return Config{
		Addr:            DefaultAddr,
		ErrorMapping:    DefaultErrorMapping,
		ShutdownTimeout: DefaultShutdownTimeout,
		Timeout:         fc.Timeout,
		MaxBodyBytes:    fc.MaxBodyBytes,
		UserAgent:       fc.UserAgent,
		FollowRedirects: !fc.DisableRedirects,
		MaxRedirects:    fc.MaxRedirects,
	}
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value present in fc onto cfg. It runs on
// top of DefaultConfig, before env overrides and explicit flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) error {
	if cfg == nil {
		return nil
	}
	if fc.Server.Addr != "" {
		cfg.Addr = fc.Server.Addr
	}
	if fc.Server.ErrorMapping != "" {
		cfg.ErrorMapping = fc.Server.ErrorMapping
	}
	if len(fc.Server.AllowOrigins) > 0 {
		cfg.AllowOrigins = append([]string{}, fc.Server.AllowOrigins...)
	}
	if fc.Server.ShutdownTimeout != "" {
		d, err := time.ParseDuration(fc.Server.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("config: server.shutdownTimeout: %w", err)
		}
		cfg.ShutdownTimeout = d
	}

	if fc.Fetch.Timeout != "" {
		d, err := time.ParseDuration(fc.Fetch.Timeout)
		if err != nil {
			return fmt.Errorf("config: fetch.timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if fc.Fetch.MaxBodyBytes > 0 {
		cfg.MaxBodyBytes = fc.Fetch.MaxBodyBytes
	}
	if fc.Fetch.UserAgent != "" {
		cfg.UserAgent = fc.Fetch.UserAgent
	}
	if fc.Fetch.FollowRedirects != nil {
		cfg.FollowRedirects = *fc.Fetch.FollowRedirects
	}
	if fc.Fetch.MaxRedirects > 0 {
		cfg.MaxRedirects = fc.Fetch.MaxRedirects
	}
	if fc.Fetch.MaxConcurrent > 0 {
		cfg.MaxConcurrent = fc.Fetch.MaxConcurrent
	}
	if fc.Fetch.AllowPrivateHosts {
		cfg.AllowPrivateHosts = true
	}

	if fc.Extract.MinTextChars > 0 {
		cfg.MinTextChars = fc.Extract.MinTextChars
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
	if fc.LogJSON {
		cfg.LogJSON = true
	}
	return nil
}

// LoadConfig builds a Config from defaults, the optional config file and the
// environment, in increasing precedence. Callers apply explicit flags last.
func LoadConfig(configPath string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(configPath) != "" {
		fc, err := LoadConfigFile(configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := ApplyFileConfig(&cfg, fc); err != nil {
			return cfg, err
		}
		cfg.ConfigPath = configPath
	}
	ApplyEnvOverrides(&cfg)
	return cfg, nil
}

// ValidateConfig performs minimal schema validation.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.URL) == "" && strings.TrimSpace(cfg.Addr) == "" {
		return errors.New("config: listen address is required (or set CRAWLER_ADDR)")
	}
	if cfg.Timeout <= 0 {
		return errors.New("config: fetch timeout must be positive")
	}
	if cfg.ShutdownTimeout < 0 {
		return errors.New("config: negative durations are not allowed")
	}
	if cfg.MaxBodyBytes < 0 || cfg.MaxRedirects < 0 || cfg.MaxConcurrent < 0 || cfg.MinTextChars < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if _, err := server.ParseErrorMapping(cfg.ErrorMapping); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
