package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Settings holds the application configuration
type Settings struct {
	CloudID     string `mapstructure:"cloud_id"`
	APIEmail    string `mapstructure:"api_email"`
	APIToken    string `mapstructure:"api_token"`
	BearerToken string `mapstructure:"bearer_token"`

	PageSize               int `mapstructure:"page_size"`
	RefreshIntervalSeconds int `mapstructure:"refresh_interval_seconds"`
	RequestTimeoutSeconds  int `mapstructure:"request_timeout_seconds"`
	ConflictRefreshLimit   int `mapstructure:"conflict_refresh_limit"`

	LogLevel    string `mapstructure:"log_level"`
	LogFile     string `mapstructure:"log_file"`
	LogHTTPBody bool   `mapstructure:"log_http_body"`

	StatusAPIEnabled bool   `mapstructure:"status_api_enabled"`
	StatusAPIPort    string `mapstructure:"status_api_port"`
}

// BaseURL returns the JSM operations API root for the configured cloud
func (s *Settings) BaseURL() string {
	return fmt.Sprintf("https://api.atlassian.com/jsm/ops/api/%s", s.CloudID)
}

// RefreshInterval returns the auto-refresh period
func (s *Settings) RefreshInterval() time.Duration {
	return time.Duration(s.RefreshIntervalSeconds) * time.Second
}

// RequestTimeout returns the per-request gateway timeout
func (s *Settings) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// Load reads settings from an optional config file and JSM_* environment
// variables, env taking precedence. A .env file in the working directory is
// loaded first if present.
func Load(configPath string) (*Settings, error) {
	if err := godotenv.Load(); err == nil {
		logrus.Debug("Loaded environment from .env file")
	}

	v := viper.New()

	v.SetDefault("page_size", 100)
	v.SetDefault("refresh_interval_seconds", 30)
	v.SetDefault("request_timeout_seconds", 20)
	v.SetDefault("conflict_refresh_limit", 3)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "logs/jsm-tui.log")
	v.SetDefault("log_http_body", false)
	v.SetDefault("status_api_enabled", false)
	v.SetDefault("status_api_port", "8585")

	// Allow environment variables to override config file
	v.SetEnvPrefix("JSM")
	v.AutomaticEnv()

	// AutomaticEnv alone does not surface env-only keys through Unmarshal,
	// so bind the ones without defaults explicitly.
	for _, key := range []string{"cloud_id", "api_email", "api_token", "bearer_token"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			logrus.Warnf("Error reading config file: %v", err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	if err := settings.validate(); err != nil {
		return nil, err
	}

	return &settings, nil
}

func (s *Settings) validate() error {
	if s.CloudID == "" {
		return fmt.Errorf("JSM_CLOUD_ID is required")
	}

	if s.BearerToken == "" && (s.APIEmail == "" || s.APIToken == "") {
		return fmt.Errorf("authentication is required: set JSM_BEARER_TOKEN or JSM_API_EMAIL + JSM_API_TOKEN")
	}

	if s.PageSize < 1 || s.PageSize > 500 {
		return fmt.Errorf("JSM_PAGE_SIZE must be between 1 and 500, got %d", s.PageSize)
	}

	if s.RefreshIntervalSeconds < 1 {
		return fmt.Errorf("JSM_REFRESH_INTERVAL_SECONDS must be >= 1, got %d", s.RefreshIntervalSeconds)
	}

	if s.RequestTimeoutSeconds < 1 {
		return fmt.Errorf("JSM_REQUEST_TIMEOUT_SECONDS must be >= 1, got %d", s.RequestTimeoutSeconds)
	}

	if s.ConflictRefreshLimit < 1 {
		return fmt.Errorf("JSM_CONFLICT_REFRESH_LIMIT must be >= 1, got %d", s.ConflictRefreshLimit)
	}

	if _, err := logrus.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("JSM_LOG_LEVEL must be a valid logging level name: %w", err)
	}

	return nil
}
