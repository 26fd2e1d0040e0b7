// Package config loads application settings from defaults, an optional YAML
// file, the environment and command line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	envPrefix         = "TAXTUTOR_"
	DefaultConfigFile = "taxtutor.yaml"
	DefaultBaseURL    = "https://api.groq.com/openai/v1"
	DefaultModel      = "openai/gpt-oss-20b"
)

// Config holds application configuration.
type Config struct {
	Log     LogConfig     `koanf:"log"`
	Storage StorageConfig `koanf:"storage"`
	LLM     LLMConfig     `koanf:"llm"`
	Server  ServerConfig  `koanf:"server"`
	Sync    SyncConfig    `koanf:"sync"`
}

type LogConfig struct {
	Mode  string `koanf:"mode" validate:"oneof=dev prod"`
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

type StorageConfig struct {
	Driver string `koanf:"driver" validate:"oneof=sqlite file memory"`
	Path   string `koanf:"path" validate:"required_unless=Driver memory"`
}

type LLMConfig struct {
	BaseURL      string        `koanf:"base_url" validate:"required,url"`
	APIKey       string        `koanf:"api_key"`
	Model        string        `koanf:"model" validate:"required"`
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0"`
	MaxRetries   int           `koanf:"max_retries" validate:"gte=0,lte=10"`
	SystemPrompt string        `koanf:"system_prompt"`
}

type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required"`
}

type SyncConfig struct {
	CacheDir    string `koanf:"cache_dir" validate:"required"`
	Concurrency int    `koanf:"concurrency" validate:"gte=1,lte=32"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:     LogConfig{Mode: "dev", Level: "info"},
		Storage: StorageConfig{Driver: "sqlite", Path: "taxtutor.db"},
		LLM: LLMConfig{
			BaseURL:    DefaultBaseURL,
			Model:      DefaultModel,
			Timeout:    60 * time.Second,
			MaxRetries: 2,
		},
		Server: ServerConfig{Addr: ":8787"},
		Sync:   SyncConfig{CacheDir: ".taxtutor/repos", Concurrency: 4},
	}
}

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"storage":   "storage.driver",
	"db":        "storage.path",
	"log-level": "log.level",
	"log-mode":  "log.mode",
	"model":     "llm.model",
	"base-url":  "llm.base_url",
	"addr":      "server.addr",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "path to a YAML config file (default ./"+DefaultConfigFile+" if present)")
	fs.String("storage", d.Storage.Driver, "state backend: sqlite, file or memory")
	fs.String("db", d.Storage.Path, "path of the state database or JSON file")
	fs.String("log-level", d.Log.Level, "log level: debug, info, warn or error")
	fs.String("log-mode", d.Log.Mode, "log format: dev or prod")
	fs.String("model", d.LLM.Model, "chat model name")
	fs.String("base-url", d.LLM.BaseURL, "OpenAI-compatible API base URL")
	fs.String("addr", d.Server.Addr, "HTTP listen address")
}

// Load builds the configuration. flags may be nil; only flags the user
// changed override lower layers.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	path, explicit := configPath(flags)
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	// Vendor variables come first so TAXTUTOR_ variables win.
	if err := k.Load(env.Provider("GROQ_", ".", groqKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		p := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(p, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against its constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func configPath(flags *pflag.FlagSet) (string, bool) {
	if flags != nil {
		if p, err := flags.GetString("config"); err == nil && p != "" {
			return p, true
		}
	}
	if p := os.Getenv(envPrefix + "CONFIG"); p != "" {
		return p, true
	}
	return DefaultConfigFile, false
}

// envKey turns TAXTUTOR_LLM__API_KEY into llm.api_key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if s == "config" {
		return ""
	}
	return strings.ReplaceAll(s, "__", ".")
}

func groqKey(s string) string {
	switch s {
	case "GROQ_API_KEY":
		return "llm.api_key"
	case "GROQ_MODEL":
		return "llm.model"
	default:
		return ""
	}
}
