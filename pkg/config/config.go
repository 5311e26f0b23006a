package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML file
const ConfigFileEnv = "AVATARBOT_CONFIG"

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	TTS           TTSConfig           `yaml:"tts"`
	Output        OutputConfig        `yaml:"output"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
	Vault         VaultConfig         `yaml:"vault"`
}

// ServerConfig configures the HTTP listener and websocket turns
type ServerConfig struct {
	Port            string        `yaml:"port"`
	Env             string        `yaml:"env"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// TurnTimeout bounds one turn; zero means no limit
	TurnTimeout    time.Duration `yaml:"turn_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// OpenAIConfig configures the chat and speech upstreams
type OpenAIConfig struct {
	APIKey       string  `yaml:"api_key"`
	BaseURL      string  `yaml:"base_url"`
	ChatModel    string  `yaml:"chat_model"`
	TTSModel     string  `yaml:"tts_model"`
	Temperature  float32 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	SystemPrompt string  `yaml:"system_prompt"`
	Voice        string  `yaml:"voice"`
	Instructions string  `yaml:"instructions"`
}

// TTS providers accepted in TTSConfig.Provider
const (
	TTSProviderOpenAI = "openai"
	TTSProviderGoogle = "google"
)

// TTSConfig picks the speech backend. The OpenAI backend reads its model and
// voice from OpenAIConfig.
type TTSConfig struct {
	Provider        string `yaml:"provider"`
	GoogleVoice     string `yaml:"google_voice"`
	GoogleLanguage  string `yaml:"google_language"`
	GoogleCredsFile string `yaml:"google_credentials_file"`
}

// OutputConfig locates the synthesized audio file and its public URL prefix
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	File      string `yaml:"file"`
	URLPrefix string `yaml:"url_prefix"`
}

// LoggingConfig configures pkg/logger
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ObservabilityConfig toggles metrics and tracing
type ObservabilityConfig struct {
	MetricsEnabled bool `yaml:"metrics_enabled"`
	TracingEnabled bool `yaml:"tracing_enabled"`
}

// VaultConfig configures the optional Vault secret source
type VaultConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Address     string        `yaml:"address"`
	Token       string        `yaml:"token"`
	Namespace   string        `yaml:"namespace"`
	Mount       string        `yaml:"mount"`
	SecretsPath string        `yaml:"secrets_path"`
	Timeout     time.Duration `yaml:"timeout"`
}

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Env:             "development",
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		OpenAI: OpenAIConfig{
			ChatModel:    "gpt-4o-mini",
			TTSModel:     "gpt-4o-mini-tts",
			Temperature:  0.7,
			MaxTokens:    500,
			SystemPrompt: "You are a friendly AI avatar.",
			Voice:        "coral",
		},
		TTS: TTSConfig{
			Provider:       TTSProviderOpenAI,
			GoogleVoice:    "en-US-Neural2-F",
			GoogleLanguage: "en-US",
		},
		Output: OutputConfig{
			Dir:       "output",
			File:      "speech.mp3",
			URLPrefix: "/files",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: true,
		},
		Vault: VaultConfig{
			Mount:       "secret",
			SecretsPath: "avatarbot",
			Timeout:     10 * time.Second,
		},
	}
}

// Load builds a Config from defaults, the optional YAML file named by
// AVATARBOT_CONFIG, and finally environment variables (.env included).
func Load() (*Config, error) {
	// Missing .env is fine, the process environment is used as-is
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	switch cfg.TTS.Provider {
	case TTSProviderOpenAI, TTSProviderGoogle:
	default:
		return nil, fmt.Errorf("unknown TTS provider %q", cfg.TTS.Provider)
	}
	return cfg, nil
}

// New returns the process-wide Config, loading it on first use
func New() (*Config, error) {
	once.Do(func() {
		instance, loadErr = Load()
	})
	return instance, loadErr
}

// Get returns the process-wide Config, panicking if it failed to load
func Get() *Config {
	cfg, err := New()
	if err != nil {
		panic(err)
	}
	return cfg
}

// OutputPath is the fixed location every synthesis overwrites
func (c *Config) OutputPath() string {
	return filepath.Join(c.Output.Dir, c.Output.File)
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnvString("PORT", cfg.Server.Port)
	cfg.Server.Env = getEnvString("APP_ENV", cfg.Server.Env)
	cfg.Server.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.TurnTimeout = getEnvDuration("TURN_TIMEOUT", cfg.Server.TurnTimeout)
	cfg.Server.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	cfg.OpenAI.APIKey = getEnvString("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.BaseURL = getEnvString("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.OpenAI.ChatModel = getEnvString("OPENAI_CHAT_MODEL", cfg.OpenAI.ChatModel)
	cfg.OpenAI.TTSModel = getEnvString("OPENAI_TTS_MODEL", cfg.OpenAI.TTSModel)
	cfg.OpenAI.Temperature = getEnvFloat32("OPENAI_TEMPERATURE", cfg.OpenAI.Temperature)
	cfg.OpenAI.MaxTokens = getEnvInt("OPENAI_MAX_TOKENS", cfg.OpenAI.MaxTokens)
	cfg.OpenAI.SystemPrompt = getEnvString("SYSTEM_PROMPT", cfg.OpenAI.SystemPrompt)
	cfg.OpenAI.Voice = getEnvString("TTS_VOICE", cfg.OpenAI.Voice)
	cfg.OpenAI.Instructions = getEnvString("TTS_INSTRUCTIONS", cfg.OpenAI.Instructions)

	cfg.TTS.Provider = strings.ToLower(getEnvString("TTS_PROVIDER", cfg.TTS.Provider))
	cfg.TTS.GoogleVoice = getEnvString("GOOGLE_TTS_VOICE", cfg.TTS.GoogleVoice)
	cfg.TTS.GoogleLanguage = getEnvString("GOOGLE_TTS_LANGUAGE", cfg.TTS.GoogleLanguage)
	cfg.TTS.GoogleCredsFile = getEnvString("GOOGLE_APPLICATION_CREDENTIALS", cfg.TTS.GoogleCredsFile)

	cfg.Output.Dir = getEnvString("OUTPUT_DIR", cfg.Output.Dir)
	cfg.Output.File = getEnvString("OUTPUT_FILE", cfg.Output.File)
	cfg.Output.URLPrefix = getEnvString("FILES_PREFIX", cfg.Output.URLPrefix)

	cfg.Logging.Level = getEnvString("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnvString("LOG_FORMAT", cfg.Logging.Format)

	cfg.Observability.MetricsEnabled = getEnvBool("METRICS_ENABLED", cfg.Observability.MetricsEnabled)
	cfg.Observability.TracingEnabled = getEnvBool("TRACING_ENABLED", cfg.Observability.TracingEnabled)

	cfg.Vault.Enabled = getEnvBool("VAULT_ENABLED", cfg.Vault.Enabled)
	cfg.Vault.Address = getEnvString("VAULT_ADDR", cfg.Vault.Address)
	cfg.Vault.Token = getEnvString("VAULT_TOKEN", cfg.Vault.Token)
	cfg.Vault.Namespace = getEnvString("VAULT_NAMESPACE", cfg.Vault.Namespace)
	cfg.Vault.Mount = getEnvString("VAULT_MOUNT", cfg.Vault.Mount)
	cfg.Vault.SecretsPath = getEnvString("VAULT_SECRETS_PATH", cfg.Vault.SecretsPath)
	cfg.Vault.Timeout = getEnvDuration("VAULT_TIMEOUT", cfg.Vault.Timeout)
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat32(key string, defaultValue float32) float32 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(f)
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
