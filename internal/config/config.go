package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	API     APIConfig
	Chat    ChatConfig
	Storage StorageConfig
	Server  ServerConfig
	LLM     LLMConfig
	Log     LogConfig
}

// APIConfig describes how the client reaches the analysis backend.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ChatConfig holds the tunables of a chat turn.
type ChatConfig struct {
	HistoryWindow     int           `mapstructure:"history_window"`
	MaxUploadBytes    int64         `mapstructure:"max_upload_bytes"`
	AllowedExtensions []string      `mapstructure:"allowed_extensions"`
	ChartDelay        time.Duration `mapstructure:"chart_delay"`
}

// StorageConfig locates the chat history database.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig holds the companion backend configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// LLMConfig holds the LLM configuration used by the backend
type LLMConfig struct {
	Provider     string `mapstructure:"provider"`
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	Model        string `mapstructure:"model"`
	SystemPrompt string `mapstructure:"system_prompt"`
}

// LogConfig holds logging options.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// EnvPrefix is prepended to every environment override, e.g. BIZANALYST_API_BASE_URL.
const EnvPrefix = "BIZANALYST"

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	v.SetDefault("api.base_url", "http://localhost:5000")
	v.SetDefault("api.timeout", 60*time.Second)
	v.SetDefault("chat.history_window", 10)
	v.SetDefault("chat.max_upload_bytes", 5*1024*1024)
	v.SetDefault("chat.allowed_extensions", []string{".txt", ".csv", ".json"})
	v.SetDefault("chat.chart_delay", 500*time.Millisecond)
	v.SetDefault("storage.path", filepath.Join(home, ".bizanalyst", "history.db"))
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "5000")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.system_prompt", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Load reads the configuration. The file is taken from path, then from the
// CONFIG_PATH environment variable, then config.yaml in the working directory
// or ~/.bizanalyst. A missing file is not an error: defaults and environment
// overrides still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".bizanalyst"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	config.Storage.Path = expandHome(config.Storage.Path)
	config.Log.File = expandHome(config.Log.File)

	return &config, nil
}

// APIKeyConfigured reports whether the backend has credentials for its LLM.
func (c LLMConfig) APIKeyConfigured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
