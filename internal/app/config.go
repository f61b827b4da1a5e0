package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GraphPath string // .hcl file or directory of .hcl files

	// OutputPath receives a copy of the final tree. Empty skips the copy.
	OutputPath string
	// Overwrite allows OutputPath to exist; its contents are replaced.
	Overwrite bool
	// TempDir is where the builder's temporary directory is created.
	TempDir string

	LogFormat  string
	LogLevel   string
	StatusPort int
	// Serve keeps the status server running after the build until the
	// process is interrupted.
	Serve bool

	NotifyURL       string
	NotifyNamespace string
}

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"text": true, "json": true}
)

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GraphPath == "" {
		return nil, errors.New("GraphPath is a required configuration field and cannot be empty")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if !validLogLevels[cfg.LogLevel] {
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	if !validLogFormats[cfg.LogFormat] {
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	if cfg.StatusPort < 0 || cfg.StatusPort > 65535 {
		return nil, fmt.Errorf("invalid status port %d", cfg.StatusPort)
	}
	if cfg.Serve && cfg.StatusPort == 0 {
		return nil, errors.New("serving requires a status port")
	}
	if cfg.NotifyURL == "" && cfg.NotifyNamespace != "" {
		return nil, errors.New("a notify namespace requires a notify URL")
	}
	if cfg.NotifyURL != "" && cfg.NotifyNamespace == "" {
		cfg.NotifyNamespace = "/"
	}
	return &cfg, nil
}
