// Package config provides configuration for the mcdbg client.
//
// Configuration controls the listener address, the per-request timeout,
// logging verbosity, and the optional protocol handshake identity echoed
// back to the debuggee. It can be loaded from a JSON file or use sensible
// defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ctagard/mcdbg/internal/debug"
	errs "github.com/ctagard/mcdbg/internal/errors"
)

// DefaultPort is the port the host's script debug listener binds by default.
const DefaultPort = 19144

// Config holds the client configuration
type Config struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	RequestTimeout time.Duration `json:"requestTimeout"`
	LogLevel       string        `json:"logLevel"`

	// Protocol is the optional handshake identity. When present the
	// session answers every protocol event with it.
	Protocol *ProtocolConfig `json:"protocol,omitempty"`
}

// ProtocolConfig holds the handshake identity
type ProtocolConfig struct {
	Version          int    `json:"version"`
	TargetModuleUUID string `json:"targetModuleUuid,omitempty"`
	Passcode         string `json:"passcode,omitempty"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Host:           "127.0.0.1",
		Port:           DefaultPort,
		RequestTimeout: debug.DefaultRequestTimeout,
		LogLevel:       "info",
	}
}

// LoadConfig loads configuration from a JSON file over the defaults
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Address returns the host:port to dial
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ParseLogLevel resolves the configured log level string
func (c *Config) ParseLogLevel() (logrus.Level, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel, errs.ConfigInvalid("logLevel", err.Error())
	}
	return level, nil
}

// ProtocolInfo converts the handshake identity into session form,
// validating the module UUID
func (c *Config) ProtocolInfo() (*debug.ProtocolInfo, error) {
	if c.Protocol == nil {
		return nil, nil
	}

	info := &debug.ProtocolInfo{
		Version:  c.Protocol.Version,
		Passcode: c.Protocol.Passcode,
	}
	if c.Protocol.TargetModuleUUID != "" {
		id, err := uuid.Parse(c.Protocol.TargetModuleUUID)
		if err != nil {
			return nil, errs.ConfigInvalid("protocol.targetModuleUuid", err.Error())
		}
		info.TargetModuleUUID = id
	}
	return info, nil
}
