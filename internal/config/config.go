// Package config implements the loader of §4.B: environment variables plus
// optional YAML files, merged into an immutable Settings value. Precedence,
// low to high: built-in defaults -> config.yaml -> environment variables,
// matching the teacher's internal/config/config.go normalize/
// applyEnvOverrides shape.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the immutable, fully-resolved configuration value produced by
// Load. Nothing in the core mutates it after startup (§9: "no module-level
// mutation after startup").
type Settings struct {
	HomeDir string `yaml:"-"`

	FirebaseProjectID        string `yaml:"firebase_project_id"`
	FirebaseCredentialsPath  string `yaml:"firebase_credentials_path"`
	FirebaseCredentialsJSON  string `yaml:"-"` // never persisted to disk; env-only

	AIProvider         string  `yaml:"ai_provider"`
	OllamaBaseURL      string  `yaml:"ollama_base_url"`
	AITemperature      float64 `yaml:"ai_temperature"`
	AIMaxTokens        int     `yaml:"ai_max_tokens"`
	AITimeoutSeconds   int     `yaml:"ai_timeout_seconds"`
	AIMaxRetries       int     `yaml:"ai_max_retries"`

	OllamaConnectionTimeoutSeconds int     `yaml:"ollama_connection_timeout_seconds"`
	OllamaRequestTimeoutSeconds    int     `yaml:"ollama_request_timeout_seconds"`
	RetryMinWaitSeconds            float64 `yaml:"retry_min_wait_seconds"`
	RetryMaxWaitSeconds            float64 `yaml:"retry_max_wait_seconds"`
	CircuitBreakerThreshold        int     `yaml:"circuit_breaker_threshold"`
	CircuitBreakerRecoverySeconds  int     `yaml:"circuit_breaker_recovery_seconds"`
	CircuitBreakerHalfOpenMax      int     `yaml:"circuit_breaker_half_open_max"`
	MetricsEnabled                 bool    `yaml:"metrics_enabled"`

	JWTSecret       string `yaml:"-"` // env-only, never written to config.yaml
	InviteSecretKey string `yaml:"-"` // env-only, never written to config.yaml

	LogLevel              string `yaml:"log_level"`
	CacheTTLSeconds       int    `yaml:"cache_ttl_seconds"`
	MaxConcurrentRequests int    `yaml:"max_concurrent_requests"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	RetryAttempts         int    `yaml:"retry_attempts"`
	RetryDelaySeconds     int    `yaml:"retry_delay_seconds"`

	EnableAdvancedMemory bool `yaml:"enable_advanced_memory"`
	MemoryShortCap       int  `yaml:"memory_short_cap"`
	MemoryLongCap        int  `yaml:"memory_long_cap"`
	MemoryEpisodicCap    int  `yaml:"memory_episodic_cap"`
	MemorySemanticCap    int  `yaml:"memory_semantic_cap"`

	TestMode      bool `yaml:"test_mode"`
	Debug         bool `yaml:"debug"`
	VerboseLogging bool `yaml:"verbose_logging"`

	Environment string `yaml:"environment"`
	Port        int    `yaml:"port"`

	UseMockDatastore bool `yaml:"use_mock_datastore"`
	UseMockTelegram  bool `yaml:"use_mock_telegram"`
	UseMockUI        bool `yaml:"use_mock_ui"`

	Registry RegistrySettings `yaml:"registry"`
}

// RegistrySettings configures the service registry and its bulk health
// check scheduler (§4.C, §4.B "service-registry settings").
type RegistrySettings struct {
	AutoDiscovery            bool   `yaml:"auto_discovery"`
	HealthCheckEnabled        bool   `yaml:"health_check_enabled"`
	HealthCheckIntervalSeconds int   `yaml:"health_check_interval_seconds"`
	ServiceTimeoutSeconds     int    `yaml:"service_timeout_seconds"`
	RetryCount                int    `yaml:"retry_count"`
	CircuitBreakerThreshold   int    `yaml:"circuit_breaker_threshold"`
	CircuitBreakerTimeoutSeconds int `yaml:"circuit_breaker_timeout_seconds"`
	StartupServiceTypeOrder   []string `yaml:"startup_service_type_order"`
}

// ValidationError aggregates every missing/invalid required field found
// during Load, matching the Startup Validator's "prioritized error list"
// rather than failing on the first miss.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration invalid (%d problem(s)): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

func defaultSettings() Settings {
	return Settings{
		AIProvider:                     "ollama",
		AITemperature:                  0.7,
		AIMaxTokens:                    2000,
		AITimeoutSeconds:               30,
		AIMaxRetries:                   3,
		OllamaConnectionTimeoutSeconds: 10,
		OllamaRequestTimeoutSeconds:    60,
		RetryMinWaitSeconds:            1,
		RetryMaxWaitSeconds:            10,
		CircuitBreakerThreshold:        5,
		CircuitBreakerRecoverySeconds:  60,
		CircuitBreakerHalfOpenMax:      1,
		LogLevel:                       "info",
		CacheTTLSeconds:                300,
		MaxConcurrentRequests:          50,
		RequestTimeoutSeconds:          30,
		RetryAttempts:                  3,
		RetryDelaySeconds:              2,
		MemoryShortCap:                 20,
		MemoryLongCap:                  200,
		MemoryEpisodicCap:              100,
		MemorySemanticCap:              500,
		Environment:                    "development",
		Port:                           8080,
		Registry: RegistrySettings{
			AutoDiscovery:                true,
			HealthCheckEnabled:           true,
			HealthCheckIntervalSeconds:   60,
			ServiceTimeoutSeconds:        10,
			RetryCount:                   2,
			CircuitBreakerThreshold:      3,
			CircuitBreakerTimeoutSeconds: 60,
			StartupServiceTypeOrder:      []string{"core", "feature", "external", "utility"},
		},
	}
}

// HomeDir resolves the data directory, honoring KICKAI_HOME.
func HomeDir() string {
	if override := os.Getenv("KICKAI_HOME"); override != "" {
		return override
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".kickai")
}

// Load builds Settings from defaults, an optional config.yaml/json in
// homeDir, and environment variable overrides (fixed search order per
// §4.B). Returns a *ValidationError (use errors.As) listing every missing
// required field if validation fails; startup aborts on that error.
func Load() (Settings, error) {
	cfg := defaultSettings()
	cfg.HomeDir = HomeDir()

	for _, name := range []string{"config.yaml", "config.yml", "config.json"} {
		path := filepath.Join(cfg.HomeDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		break
	}

	applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Settings) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	boolean := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = strings.EqualFold(v, "true") || v == "1"
		}
	}

	str("FIREBASE_PROJECT_ID", &cfg.FirebaseProjectID)
	str("FIREBASE_CREDENTIALS_FILE", &cfg.FirebaseCredentialsPath)
	str("FIREBASE_CREDENTIALS_JSON", &cfg.FirebaseCredentialsJSON)
	str("OLLAMA_BASE_URL", &cfg.OllamaBaseURL)
	str("JWT_SECRET", &cfg.JWTSecret)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("ENVIRONMENT", &cfg.Environment)
	num("PORT", &cfg.Port)
	boolean("USE_MOCK_DATASTORE", &cfg.UseMockDatastore)
	boolean("USE_MOCK_TELEGRAM", &cfg.UseMockTelegram)
	boolean("USE_MOCK_UI", &cfg.UseMockUI)

	if v := os.Getenv("KICKAI_INVITE_SECRET_KEY"); v != "" {
		cfg.InviteSecretKey = v
	}
}

// validate collects every missing/invalid required field into one
// *ValidationError rather than aborting on the first miss.
func validate(cfg Settings) error {
	var problems []string

	if cfg.FirebaseProjectID == "" {
		problems = append(problems, "firebase_project_id is required")
	}
	haveCredsPath := cfg.FirebaseCredentialsPath != ""
	haveCredsJSON := cfg.FirebaseCredentialsJSON != ""
	if haveCredsPath == haveCredsJSON {
		problems = append(problems, "exactly one of firebase_credentials_path or firebase_credentials_json is required")
	}
	if cfg.AIProvider == "ollama" && cfg.OllamaBaseURL == "" {
		problems = append(problems, "ollama_base_url is required when ai_provider is ollama")
	}
	if cfg.Environment == "production" && cfg.JWTSecret == "" {
		problems = append(problems, "jwt_secret is required in production")
	}
	if cfg.InviteSecretKey == "" {
		problems = append(problems, "KICKAI_INVITE_SECRET_KEY is required")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// AITimeout/RequestTimeout/etc. convenience accessors, matching the pattern
// of storing seconds in config but handing out time.Duration to callers.
func (c Settings) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutSeconds) * time.Second
}

func (c Settings) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}
