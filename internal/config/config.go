package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage selections for new conversations.
const (
	StorageLocalOnly = "local-only"
	StorageCloudOnly = "cloud-only"
)

// Feature flag names.
const (
	FlagRAGEnabled             = "ragEnabled"
	FlagCodeInterpreterEnabled = "codeInterpreterEnabled"
	FlagArtifacts              = "artifacts"
)

// Config holds every setting the service and the CLI read.
type Config struct {
	Port             string          `yaml:"port"`
	ChatEndpoint     string          `yaml:"chat_endpoint"`
	APIBaseURL       string          `yaml:"api_base_url"`
	APIKey           string          `yaml:"api_key"`
	DefaultModel     string          `yaml:"default_model"`
	DBConnection     string          `yaml:"db_connection_string"`
	LocalStorePath   string          `yaml:"local_store_path"`
	StorageSelection string          `yaml:"storage_selection"`
	OpenAI           OpenAIConfig    `yaml:"openai"`
	Google           GoogleConfig    `yaml:"google"`
	Chat             ChatConfig      `yaml:"chat"`
	FeatureFlags     map[string]bool `yaml:"feature_flags"`
	FeatureOptions   FeatureOptions  `yaml:"feature_options"`
	Log              LogConfig       `yaml:"log"`
}

type OpenAIConfig struct {
	APIKey            string `yaml:"api_key"`
	APIURL            string `yaml:"api_url"`
	APITimeoutSeconds int    `yaml:"api_timeout_seconds"`
}

type GoogleConfig struct {
	APIKey            string `yaml:"api_key"`
	APITimeoutSeconds int    `yaml:"api_timeout_seconds"`
}

type ChatConfig struct {
	DefaultTemperature float64 `yaml:"default_temperature"`
	DefaultMaxTokens   int     `yaml:"default_max_tokens"`
	MaxPendingChunks   int     `yaml:"max_pending_chunks"`
	// ConfirmCostOver is the estimated dollar cost above which a send needs confirmation.
	ConfirmCostOver float64 `yaml:"confirm_cost_over"`
	// ConfirmUnknownTokensOver applies when the model has no cost data.
	ConfirmUnknownTokensOver int `yaml:"confirm_unknown_tokens_over"`
	RequestTimeoutSeconds    int `yaml:"request_timeout_seconds"`
}

type FeatureOptions struct {
	IncludeArtifacts bool `yaml:"include_artifacts"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
	Format string `yaml:"format"`
}

// Default returns a configuration with default values.
func Default() Config {
	return Config{
		Port:             "8080",
		DefaultModel:     "gpt-4o",
		LocalStorePath:   "data/conversations.bolt",
		StorageSelection: StorageLocalOnly,
		OpenAI: OpenAIConfig{
			APIURL:            "https://api.openai.com/v1",
			APITimeoutSeconds: 60,
		},
		Google: GoogleConfig{
			APITimeoutSeconds: 60,
		},
		Chat: ChatConfig{
			DefaultTemperature:       0.5,
			DefaultMaxTokens:         1000,
			MaxPendingChunks:         4096,
			ConfirmCostOver:          0.5,
			ConfirmUnknownTokensOver: 4000,
			RequestTimeoutSeconds:    300,
		},
		FeatureFlags: map[string]bool{
			FlagRAGEnabled:             true,
			FlagCodeInterpreterEnabled: true,
			FlagArtifacts:              true,
		},
		FeatureOptions: FeatureOptions{IncludeArtifacts: true},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	applyEnv(&cfg, os.Getenv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("PORT", &cfg.Port)
	str("CHAT_ENDPOINT", &cfg.ChatEndpoint)
	str("API_BASE_URL", &cfg.APIBaseURL)
	str("API_KEY", &cfg.APIKey)
	str("DEFAULT_MODEL", &cfg.DefaultModel)
	str("DB_CONNECTION_STRING", &cfg.DBConnection)
	str("LOCAL_STORE_PATH", &cfg.LocalStorePath)
	str("STORAGE_SELECTION", &cfg.StorageSelection)
	str("OPENAI_API_KEY", &cfg.OpenAI.APIKey)
	str("OPENAI_API_URL", &cfg.OpenAI.APIURL)
	str("GEMINI_API_KEY", &cfg.Google.APIKey)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FILE", &cfg.Log.File)
	str("LOG_FORMAT", &cfg.Log.Format)

	if v := getenv("MAX_PENDING_CHUNKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chat.MaxPendingChunks = n
		}
	}
	for flag := range cfg.FeatureFlags {
		if v := getenv("FEATURE_" + strings.ToUpper(flag)); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				cfg.FeatureFlags[flag] = b
			}
		}
	}
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must be set")
	}
	switch c.StorageSelection {
	case StorageLocalOnly, StorageCloudOnly:
	default:
		return fmt.Errorf("unknown storage_selection %q", c.StorageSelection)
	}
	if c.StorageSelection == StorageCloudOnly && c.DBConnection == "" {
		return fmt.Errorf("storage_selection %q requires db_connection_string", StorageCloudOnly)
	}
	if c.Chat.DefaultTemperature < 0 || c.Chat.DefaultTemperature > 2 {
		return fmt.Errorf("default_temperature must be between 0 and 2")
	}
	if c.Chat.DefaultMaxTokens <= 0 {
		return fmt.Errorf("default_max_tokens must be positive")
	}
	return nil
}

// Flag reports a feature flag; unknown flags are off.
func (c Config) Flag(name string) bool {
	return c.FeatureFlags[name]
}

// IsLocalStorage reports whether new conversations are kept locally.
func (c Config) IsLocalStorage() bool {
	return c.StorageSelection != StorageCloudOnly
}
