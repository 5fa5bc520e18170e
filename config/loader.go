package config

import (
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// UserConfigDir is the directory for user-level config.
	UserConfigDir = ".config/domaingen"
	// UserConfigFile is the name of the user-level config file.
	UserConfigFile = "config.yaml"

	// Environment variable overrides.
	envCacheDir      = "DOMAINGEN_CACHE_DIR"
	envStoreEndpoint = "DOMAINGEN_STORE_ENDPOINT"
	envStoreRealm    = "DOMAINGEN_STORE_REALM"
	envStoreClientID = "DOMAINGEN_STORE_CLIENT_ID"
)

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/domaingen/config.yaml)
// 3. Explicit config file (if path is non-empty)
// 4. Environment variables
func (l *Loader) Load(path string) (*Config, error) {
	config := DefaultConfig()

	userConfigPath := l.userConfigPath()
	if userConfig, err := LoadFromFile(userConfigPath); err == nil {
		l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
		config.Merge(userConfig)
	} else if !os.IsNotExist(err) {
		l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
	}

	if path != "" {
		explicit, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config", slog.String("path", path))
		config.Merge(explicit)
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if v := os.Getenv(envCacheDir); v != "" {
		config.Cache.Dir = v
	}
	if v := os.Getenv(envStoreEndpoint); v != "" {
		config.Store.Endpoint = v
	}
	if v := os.Getenv(envStoreRealm); v != "" {
		config.Store.Realm = v
	}
	if v := os.Getenv(envStoreClientID); v != "" {
		config.Store.ClientID = v
	}
}

// userConfigPath returns the path to the user config file.
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}
