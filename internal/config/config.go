// Package config loads apyl.yaml, the updater's own settings, with APYL_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fastattackv/apy-launcher/internal/logging"
	"github.com/fastattackv/apy-launcher/internal/remote"
)

// DefaultFile is looked up in the installation folder
const DefaultFile = "apyl.yaml"

// EnvPrefix prefixes environment overrides, e.g. APYL_LOG_LEVEL
const EnvPrefix = "APYL"

// ErrInvalidKey is returned by Get and Set for keys Config does not have
var ErrInvalidKey = errors.New("invalid configuration key")

var validate = validator.New()

var validKeys = buildValidKeys()

// Config is the updater configuration
type Config struct {
	// InstallDir is the launcher folder; empty means search from the working directory
	InstallDir string `mapstructure:"install_dir" yaml:"install_dir"`
	BaseURL    string `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	// Branch overrides the branch saved in the launcher settings
	Branch      string        `mapstructure:"branch" yaml:"branch" validate:"omitempty,oneof=main Development"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	Sound       bool          `mapstructure:"sound" yaml:"sound"`
	MetricsFile string        `mapstructure:"metrics_file" yaml:"metrics_file"`
	Log         LogConfig     `mapstructure:"log" yaml:"log"`
}

// LogConfig holds log file settings
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days" validate:"gte=0"`
}

// Validate checks the configuration using struct tags
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// LogFile returns the log file path, relative paths being inside baseDir
func (c *Config) LogFile(baseDir string) string {
	if c.Log.File == "" || filepath.IsAbs(c.Log.File) {
		return c.Log.File
	}
	return filepath.Join(baseDir, c.Log.File)
}

// YAML renders the configuration
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Loader reads and writes one configuration file
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader creates a loader for path. The file does not need to exist.
func NewLoader(path string) *Loader {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	l := &Loader{v: v, path: path}
	l.setDefaults()
	return l
}

func (l *Loader) setDefaults() {
	l.v.SetDefault("install_dir", "")
	l.v.SetDefault("base_url", remote.DefaultBaseURL)
	l.v.SetDefault("branch", "")
	l.v.SetDefault("timeout", "2m")
	l.v.SetDefault("sound", true)
	l.v.SetDefault("metrics_file", "")
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.file", logging.DefaultFile)
	l.v.SetDefault("log.max_size_mb", 5)
	l.v.SetDefault("log.max_backups", 3)
	l.v.SetDefault("log.max_age_days", 28)
}

// Path returns the configuration file path
func (l *Loader) Path() string {
	return l.path
}

// Load reads the file if it exists, applies env overrides and validates
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	err := l.v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)), func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns a value by dot-notation key
func (l *Loader) Get(key string) (any, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	return l.v.Get(key), nil
}

// Set stores a value and writes the file. The result must still validate.
func (l *Loader) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	_ = l.v.ReadInConfig()

	l.v.Set(key, value)
	if _, err := l.Load(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return l.v.WriteConfigAs(l.path)
}

// Keys lists every valid key, sorted
func Keys() []string {
	keys := make([]string, 0, len(validKeys))
	for k, leaf := range validKeys {
		if leaf {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// ValidateKey checks that key names a Config field
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if _, ok := validKeys[key]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return nil
}

// buildValidKeys maps every mapstructure key of Config to whether it is a leaf
func buildValidKeys() map[string]bool {
	keys := make(map[string]bool)
	addKeysFromType(reflect.TypeOf(Config{}), "", keys)
	return keys
}

func addKeysFromType(t reflect.Type, prefix string, keys map[string]bool) {
	for i := range t.NumField() {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		nested := field.Type.Kind() == reflect.Struct
		keys[key] = !nested
		if nested {
			addKeysFromType(field.Type, key, keys)
		}
	}
}
