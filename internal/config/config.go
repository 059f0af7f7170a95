// Package config loads warikan's configuration from defaults, an optional
// config.yaml, WARIKAN_* environment variables and command-line flags, in
// increasing order of precedence. A .env file is loaded into the environment
// first.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. WARIKAN_API_BASE_URL.
const EnvPrefix = "WARIKAN"

// Output formats accepted by output.format.
var OutputFormats = []string{"table", "json", "yaml", "csv"}

// Config is the complete configuration of the CLI and the reference server.
type Config struct {
	API struct {
		BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
		Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	} `mapstructure:"api" yaml:"api"`

	Identity struct {
		URL string `mapstructure:"url" yaml:"url"`
	} `mapstructure:"identity" yaml:"identity"`

	Session struct {
		File string `mapstructure:"file" yaml:"file"`
	} `mapstructure:"session" yaml:"session"`

	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Output struct {
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"output" yaml:"output"`

	Server struct {
		Addr        string        `mapstructure:"addr" yaml:"addr"`
		DBPath      string        `mapstructure:"db_path" yaml:"db_path"`
		JWTSecret   string        `mapstructure:"jwt_secret" yaml:"-"`
		TokenTTL    time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
		Metrics     bool          `mapstructure:"metrics" yaml:"metrics"`
		RequireAuth bool          `mapstructure:"require_auth" yaml:"require_auth"`
	} `mapstructure:"server" yaml:"server"`
}

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"api":       "api.base_url",
	"output":    "output.format",
	"log-level": "log.level",
	"addr":      "server.addr",
	"db":        "server.db_path",
}

// Options controls where Load looks.
type Options struct {
	// ConfigFile, if set, is read instead of searching the default paths.
	ConfigFile string

	// EnvFile is the dotenv file to load. Missing files are ignored.
	EnvFile string

	// Flags are bound by name through FlagKeys. Only flags the user set
	// override other sources.
	Flags *pflag.FlagSet
}

// Load builds the configuration and validates it.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load env file", "path", envFile, "error", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("$HOME/.warikan")
		v.AddConfigPath(".warikan")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if opts.Flags != nil {
		for name, key := range FlagKeys {
			if flag := opts.Flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("identity.url", "http://localhost:8080/identity/v1")
	v.SetDefault("session.file", defaultSessionFile())

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("output.format", "table")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.db_path", "warikan.db")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.token_ttl", 24*time.Hour)
	v.SetDefault("server.metrics", true)
	v.SetDefault("server.require_auth", false)
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".warikan", "session.json")
	}
	return filepath.Join(home, ".warikan", "session.json")
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var errs []error

	if err := validateURL("api.base_url", c.API.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if err := validateURL("identity.url", c.Identity.URL); err != nil {
		errs = append(errs, err)
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level: %q", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("invalid log format: %q (must be 'text' or 'json')", c.Log.Format))
	}
	if !contains(OutputFormats, c.Output.Format) {
		errs = append(errs, fmt.Errorf("invalid output format: %q (must be one of %v)", c.Output.Format, OutputFormats))
	}

	if c.Server.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("server.token_ttl must be positive, got %s", c.Server.TokenTTL))
	}

	return errors.Join(errs...)
}

// ValidateServer checks settings only the reference server needs.
func (c *Config) ValidateServer() error {
	var errs []error
	if len(c.Server.JWTSecret) < 16 {
		errs = append(errs, errors.New("server.jwt_secret must be at least 16 characters (set WARIKAN_SERVER_JWT_SECRET)"))
	}
	if c.Server.DBPath == "" {
		errs = append(errs, errors.New("server.db_path is required"))
	}
	return errors.Join(errs...)
}

// LogLevel returns the configured slog level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, raw)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
