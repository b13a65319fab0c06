// Package cfg loads engine configuration from a YAML file selected by
// CONFIG_FILE, with environment-variable overrides, or from environment
// variables alone. A .env file is honored when present.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Symbol         string
	DataPath       string
	ModelPath      string
	Estimators     int
	MaxDepth       int
	Seed           int64
	MetricsPort    int
	WebhookURL     string
	WebhookTimeout time.Duration
	LogLevel       string
}

type ConfigFile struct {
	Symbol string `yaml:"symbol"`

	Model struct {
		Path       string `yaml:"path"`
		Estimators int    `yaml:"estimators"`
		MaxDepth   int    `yaml:"maxDepth"`
		Seed       int64  `yaml:"seed"`
	} `yaml:"model"`

	Alert struct {
		WebhookURL string `yaml:"webhookURL"`
		Timeout    string `yaml:"timeout"`
	} `yaml:"alert"`

	System struct {
		DataPath    string `yaml:"dataPath"`
		MetricsPort int    `yaml:"metricsPort"`
		LogLevel    string `yaml:"logLevel"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Optional .env file; absence is not an error.
	_ = godotenv.Load()

	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	webhookTimeout, err := time.ParseDuration(config.Alert.Timeout)
	if err != nil {
		webhookTimeout = 5 * time.Second
	}

	settings := Settings{
		Symbol:         getEnvOrDefault("SYMBOL", config.Symbol),
		DataPath:       getEnvOrDefault("DATA_PATH", config.System.DataPath),
		ModelPath:      getEnvOrDefault("MODEL_PATH", config.Model.Path),
		Estimators:     getIntFromEnvOrConfig("ESTIMATORS", config.Model.Estimators),
		MaxDepth:       getIntFromEnvOrConfig("MAX_DEPTH", config.Model.MaxDepth),
		Seed:           getInt64FromEnvOrConfig("SEED", config.Model.Seed),
		MetricsPort:    getIntFromEnvOrConfig("METRICS_PORT", config.System.MetricsPort),
		WebhookURL:     getEnvOrDefault("WEBHOOK_URL", config.Alert.WebhookURL),
		WebhookTimeout: webhookTimeout,
		LogLevel:       getEnvOrDefault("LOG_LEVEL", config.System.LogLevel),
	}

	applyDefaults(&settings)
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Symbol:         getEnvOrDefault("SYMBOL", "BTCUSD"),
		DataPath:       os.Getenv("DATA_PATH"), // optional
		ModelPath:      getEnvOrDefault("MODEL_PATH", "models/anomaly.model"),
		Estimators:     getIntOrDefault("ESTIMATORS", 100),
		MaxDepth:       getIntOrDefault("MAX_DEPTH", 10),
		Seed:           getInt64OrDefault("SEED", 42),
		MetricsPort:    getIntOrDefault("METRICS_PORT", 9090),
		WebhookURL:     os.Getenv("WEBHOOK_URL"), // optional
		WebhookTimeout: getDurationOrDefault("WEBHOOK_TIMEOUT", 5*time.Second),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func applyDefaults(s *Settings) {
	if s.Symbol == "" {
		s.Symbol = "BTCUSD"
	}
	if s.ModelPath == "" {
		s.ModelPath = "models/anomaly.model"
	}
	if s.Estimators == 0 {
		s.Estimators = 100
	}
	if s.MaxDepth == 0 {
		s.MaxDepth = 10
	}
	if s.Seed == 0 {
		s.Seed = 42
	}
	if s.MetricsPort == 0 {
		s.MetricsPort = 9090
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
}

func validateSettings(settings *Settings) error {
	if settings.Symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if settings.ModelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}
	if settings.Estimators <= 0 || settings.Estimators > 10000 {
		return fmt.Errorf("estimators must be between 1 and 10000, got %d", settings.Estimators)
	}
	if settings.MaxDepth <= 0 || settings.MaxDepth > 100 {
		return fmt.Errorf("max depth must be between 1 and 100, got %d", settings.MaxDepth)
	}
	if settings.MetricsPort < 1024 || settings.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1024 and 65535, got %d", settings.MetricsPort)
	}
	if settings.WebhookTimeout < time.Second || settings.WebhookTimeout > time.Minute {
		return fmt.Errorf("webhook timeout must be between 1s and 1m, got %v", settings.WebhookTimeout)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	return configValue
}

func getInt64FromEnvOrConfig(key string, configValue int64) int64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseInt(env, 10, 64); err == nil {
			return val
		}
	}
	return configValue
}
