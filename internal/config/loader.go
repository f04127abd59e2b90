// Package config provides configuration management for conmon.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/adrg/xdg"
	"github.com/phrazzld/conmon/internal/auditlog"
	"github.com/phrazzld/conmon/internal/logutil"
	"github.com/spf13/viper"
)

// ConfigFilename is the name of the configuration file.
const ConfigFilename = "config.toml"

// Manager is responsible for loading and providing application configuration.
type Manager struct {
	logger        logutil.LoggerInterface
	auditLogger   auditlog.StructuredLogger
	userConfigDir string
	sysConfigDirs []string
	config        *AppConfig
	viperInst     *viper.Viper
}

// NewManager creates a new configuration manager.
// It accepts a logger for user-facing messages and an optional audit logger
// for structured logging. If auditLogger is nil, a no-op implementation is used.
func NewManager(logger logutil.LoggerInterface, auditLogger ...auditlog.StructuredLogger) *Manager {
	userConfigDir := filepath.Join(xdg.ConfigHome, AppName)

	var sysConfigDirs []string
	for _, dir := range xdg.ConfigDirs {
		sysConfigDirs = append(sysConfigDirs, filepath.Join(dir, AppName))
	}

	var structLogger auditlog.StructuredLogger
	if len(auditLogger) > 0 && auditLogger[0] != nil {
		structLogger = auditLogger[0]
	} else {
		structLogger = auditlog.NewNoopLogger()
	}

	return &Manager{
		logger:        logger,
		auditLogger:   structLogger,
		userConfigDir: userConfigDir,
		sysConfigDirs: sysConfigDirs,
		config:        DefaultConfig(),
		viperInst:     viper.New(),
	}
}

// GetConfig returns the current configuration.
func (m *Manager) GetConfig() *AppConfig {
	return m.config
}

// GetUserConfigDir returns the user-specific configuration directory.
func (m *Manager) GetUserConfigDir() string {
	return m.userConfigDir
}

// GetSystemConfigDirs returns the system-wide configuration directories.
func (m *Manager) GetSystemConfigDirs() []string {
	return m.sysConfigDirs
}

// LoadFromFiles loads configuration from files (user, system) according to precedence.
func (m *Manager) LoadFromFiles() error {
	if m.auditLogger == nil {
		m.auditLogger = auditlog.NewNoopLogger()
	}

	m.auditLogger.Log(auditlog.NewAuditEvent(
		"INFO",
		"ConfigLoadStart",
		"Starting configuration loading process",
	).WithMetadata("user_config_dir", m.userConfigDir).
		WithMetadata("system_config_dirs_count", len(m.sysConfigDirs)))

	v := m.viperInst
	v.SetConfigType("toml")
	v.SetConfigName(strings.TrimSuffix(ConfigFilename, filepath.Ext(ConfigFilename)))

	m.setViperDefaults(v)

	for i := len(m.sysConfigDirs) - 1; i >= 0; i-- {
		v.AddConfigPath(m.sysConfigDirs[i])
		m.logger.Debug("Added system config path: %s", m.sysConfigDirs[i])
	}
	v.AddConfigPath(m.userConfigDir)
	m.logger.Debug("Added user config path: %s", m.userConfigDir)

	// Environment variables take precedence over file values, e.g. CONMON_STORE_DSN.
	v.SetEnvPrefix("CONMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			m.logger.Info("No configuration file found. Using default configuration.")

			m.auditLogger.Log(auditlog.NewAuditEvent(
				"INFO",
				"ConfigFileNotFound",
				"No configuration file found, using defaults",
			).WithMetadata("search_paths", append(m.sysConfigDirs, m.userConfigDir)))

			return nil
		}

		m.auditLogger.Log(auditlog.NewAuditEvent(
			"ERROR",
			"ConfigLoadError",
			"Error reading configuration file",
		).WithErrorFromGoError(err))

		return fmt.Errorf("error reading config file: %w", err)
	}

	configFile := v.ConfigFileUsed()
	m.logger.Debug("Loaded configuration from %s", configFile)

	m.auditLogger.Log(auditlog.NewAuditEvent(
		"INFO",
		"ConfigFileLoaded",
		"Configuration file loaded successfully",
	).WithMetadata("file_path", configFile))

	if err := v.Unmarshal(m.config); err != nil {
		m.auditLogger.Log(auditlog.NewAuditEvent(
			"ERROR",
			"ConfigUnmarshalError",
			"Failed to unmarshal configuration data",
		).WithErrorFromGoError(err).
			WithMetadata("file_path", configFile))

		return fmt.Errorf("failed to unmarshal config data: %w", err)
	}

	m.auditLogger.Log(auditlog.NewAuditEvent(
		"INFO",
		"ConfigLoadComplete",
		"Configuration loading process completed successfully",
	).WithMetadata("config_file", configFile).
		WithMetadata("store_backend", m.config.Store.Backend))

	return nil
}

// setViperDefaults initializes viper with default values from DefaultConfig.
func (m *Manager) setViperDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("use_colors", d.UseColors)
	v.SetDefault("audit_log_enabled", d.AuditLogEnabled)
	v.SetDefault("audit_log_file", d.AuditLogFile)

	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("store.csv_dir", d.Store.CSVDir)

	v.SetDefault("schema.dir", d.Schema.Dir)

	v.SetDefault("generator.max_attempts", d.Generator.MaxAttempts)
	v.SetDefault("generator.default_model", d.Generator.DefaultModel)

	v.SetDefault("orchestrator.workers", d.Orchestrator.Workers)
	v.SetDefault("orchestrator.status_log_file", d.Orchestrator.StatusLogFile)

	v.SetDefault("sandbox.timeout", d.Sandbox.Timeout)
}

// MergeWithFlags merges loaded configuration with command-line flags.
// Flag names match the mapstructure tag, or the exact (case-insensitive) field name.
func (m *Manager) MergeWithFlags(cliFlags map[string]interface{}) error {
	if m.auditLogger == nil {
		m.auditLogger = auditlog.NewNoopLogger()
	}

	configVal := reflect.ValueOf(m.config).Elem()
	configType := configVal.Type()

	appliedFlags := make(map[string]interface{})

	for flagName, flagValue := range cliFlags {
		if flagValue == nil {
			continue
		}
		if strVal, ok := flagValue.(string); ok && strVal == "" {
			continue
		}

		found := false
		for i := 0; i < configType.NumField(); i++ {
			field := configType.Field(i)
			tag := field.Tag.Get("mapstructure")
			if tag == flagName || strings.EqualFold(field.Name, flagName) {
				fieldVal := configVal.Field(i)
				if fieldVal.CanSet() {
					setValue(fieldVal, flagValue)
					appliedFlags[flagName] = flagValue
					found = true
					break
				}
			}
		}

		if !found {
			m.logger.Debug("Flag '%s' does not map to any config field", flagName)
		}
	}

	m.auditLogger.Log(auditlog.NewAuditEvent(
		"INFO",
		"MergeFlagsComplete",
		"CLI flags successfully merged with configuration",
	).WithMetadata("flags_applied", len(appliedFlags)))

	return nil
}

// setValue sets a reflected Value to the given interface{} value.
func setValue(field reflect.Value, value interface{}) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		if str, ok := value.(string); ok {
			field.SetString(str)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if i, ok := value.(int); ok {
			field.SetInt(int64(i))
		} else if i64, ok := value.(int64); ok {
			field.SetInt(i64)
		}
	case reflect.Float32, reflect.Float64:
		if f, ok := value.(float64); ok {
			field.SetFloat(f)
		}
	}
}

// EnsureConfigDirs creates necessary configuration directories if they don't exist.
func (m *Manager) EnsureConfigDirs() error {
	if err := os.MkdirAll(m.userConfigDir, 0755); err != nil {
		return fmt.Errorf("failed to create user config directory: %w", err)
	}
	return nil
}

// WriteDefaultConfig writes the default configuration to the user's config file.
func (m *Manager) WriteDefaultConfig() error {
	configPath := filepath.Join(m.userConfigDir, ConfigFilename)

	if _, err := os.Stat(configPath); !errors.Is(err, os.ErrNotExist) {
		if err == nil {
			return nil
		}
		return fmt.Errorf("failed to check for config file: %w", err)
	}

	if err := os.MkdirAll(m.userConfigDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	m.setViperDefaults(v)

	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
