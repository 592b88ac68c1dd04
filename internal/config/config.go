// Package config loads LinkVault configuration from file, environment
// variables and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	apperrors "github.com/linkmeir/linkvault/internal/errors"
)

// Config holds the full runtime configuration for both the CLI and vaultd.
type Config struct {
	// DataDir is where the local sqlite database lives.
	DataDir string `mapstructure:"data_dir"`

	// RemoteURL is the vaultd base URL. Empty means local-only mode.
	RemoteURL string `mapstructure:"remote_url"`

	// AuthToken is the bearer token of the signed-in identity.
	AuthToken string `mapstructure:"auth_token"`

	// ListenAddr is the vaultd listen address.
	ListenAddr string `mapstructure:"listen_addr"`

	// JWTSecret signs and verifies vaultd access tokens.
	JWTSecret string `mapstructure:"jwt_secret"`

	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// Load reads configuration from the given file path (optional), the
// LINKVAULT_* environment and built-in defaults, in increasing precedence
// of default < file < environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("remote_url", "")
	v.SetDefault("auth_token", "")
	v.SetDefault("listen_addr", ":8790")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")

	v.SetEnvPrefix("linkvault")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, apperrors.Wrap(apperrors.ErrParse, "failed to read config file", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrParse, "failed to decode config", err)
	}
	return &cfg, nil
}

// Validate checks configuration consistency for the given role.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return apperrors.New(apperrors.ErrValidation, "data_dir must not be empty")
	}
	if c.AuthToken != "" && c.RemoteURL == "" {
		return apperrors.New(apperrors.ErrValidation, "auth_token is set but remote_url is empty")
	}
	return nil
}

// ValidateServer checks the settings vaultd requires on top of Validate.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return apperrors.New(apperrors.ErrValidation, "jwt_secret must be set for vaultd")
	}
	if c.ListenAddr == "" {
		return apperrors.New(apperrors.ErrValidation, "listen_addr must not be empty")
	}
	return nil
}

// Save persists the configuration to the given path as YAML. Used by the
// CLI login/logout commands to remember the auth token.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.Set("data_dir", c.DataDir)
	v.Set("remote_url", c.RemoteURL)
	v.Set("auth_token", c.AuthToken)
	v.Set("listen_addr", c.ListenAddr)
	v.Set("jwt_secret", c.JWTSecret)
	v.Set("log_level", c.LogLevel)
	v.Set("log_file", c.LogFile)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "linkvault.yaml"
	}
	return filepath.Join(home, ".config", "linkvault", "config.yaml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".local", "share", "linkvault")
}
