// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable the CLI reads.
const EnvPrefix = "STIMULUS"

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Database() DatabaseConfig
	Library() LibraryConfig
	Results() ResultsConfig
	Display() DisplayConfig
	Presentation() PresentationConfig

	SetDisplayBackend(backend string)
	SetResultsSink(sink string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg       LoggerConfig       `mapstructure:"logger" yaml:"logger"`
	DatabaseCfg     DatabaseConfig     `mapstructure:"database" yaml:"database"`
	LibraryCfg      LibraryConfig      `mapstructure:"library" yaml:"library"`
	ResultsCfg      ResultsConfig      `mapstructure:"results" yaml:"results"`
	DisplayCfg      DisplayConfig      `mapstructure:"display" yaml:"display"`
	PresentationCfg PresentationConfig `mapstructure:"presentation" yaml:"presentation"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig             { return c.LoggerCfg }
func (c *Config) Database() DatabaseConfig         { return c.DatabaseCfg }
func (c *Config) Library() LibraryConfig           { return c.LibraryCfg }
func (c *Config) Results() ResultsConfig           { return c.ResultsCfg }
func (c *Config) Display() DisplayConfig           { return c.DisplayCfg }
func (c *Config) Presentation() PresentationConfig { return c.PresentationCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetDisplayBackend(backend string) { c.DisplayCfg.Backend = backend }
func (c *Config) SetResultsSink(sink string)       { c.ResultsCfg.Sink = sink }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DatabaseConfig holds the database connection details.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// LibraryConfig locates the stimulus spec library.
type LibraryConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Result sinks.
const (
	SinkNone     = "none"
	SinkPostgres = "postgres"
	SinkSQLite   = "sqlite"
)

// ResultsConfig controls where run reports go after a presentation.
type ResultsConfig struct {
	Dir        string `mapstructure:"dir" yaml:"dir"`
	WriteFiles bool   `mapstructure:"write_files" yaml:"write_files"`
	Sink       string `mapstructure:"sink" yaml:"sink"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

// Display backends.
const (
	BackendTerminal = "terminal"
	BackendHeadless = "headless"
)

// DisplayConfig selects and sizes the rendering surface.
type DisplayConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Width   int    `mapstructure:"width" yaml:"width"`
	Height  int    `mapstructure:"height" yaml:"height"`
}

// PresentationConfig holds defaults for the present command.
type PresentationConfig struct {
	DefaultFormat string `mapstructure:"default_format" yaml:"default_format"`
	MetricsFile   string `mapstructure:"metrics_file" yaml:"metrics_file"`
}

// NewDefaultConfig returns the configuration produced by the defaults alone.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "stimulus-cli")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	v.SetDefault("database.url", "")

	v.SetDefault("library.dir", "./files/stimuli")

	v.SetDefault("results.dir", "./files/experiments")
	v.SetDefault("results.write_files", true)
	v.SetDefault("results.sink", SinkNone)
	v.SetDefault("results.sqlite_path", "./files/experiments/results.db")

	v.SetDefault("display.backend", BackendTerminal)
	v.SetDefault("display.width", 800)
	v.SetDefault("display.height", 800)

	v.SetDefault("presentation.default_format", "text")
	v.SetDefault("presentation.metrics_file", "")
}

// ConfigureEnv makes v read STIMULUS_ prefixed environment variables, with
// dots in keys replaced by underscores.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewConfigFromViper unmarshals, expands and validates the configuration.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	_ = v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading ~ in every path setting.
func (c *Config) expandPaths() error {
	for _, p := range []*string{
		&c.LibraryCfg.Dir,
		&c.ResultsCfg.Dir,
		&c.ResultsCfg.SQLitePath,
		&c.LoggerCfg.LogFile,
		&c.PresentationCfg.MetricsFile,
	} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("cannot expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

func (c *Config) Validate() error {
	if c.LibraryCfg.Dir == "" {
		return fmt.Errorf("library.dir is a required configuration field")
	}
	if err := c.ResultsCfg.Validate(c.DatabaseCfg); err != nil {
		return fmt.Errorf("results configuration invalid: %w", err)
	}
	if err := c.DisplayCfg.Validate(); err != nil {
		return fmt.Errorf("display configuration invalid: %w", err)
	}
	switch c.PresentationCfg.DefaultFormat {
	case "json", "yaml", "text":
	default:
		return fmt.Errorf("presentation.default_format must be one of json, yaml, text; got %q", c.PresentationCfg.DefaultFormat)
	}
	return nil
}

func (r *ResultsConfig) Validate(db DatabaseConfig) error {
	if r.WriteFiles && r.Dir == "" {
		return fmt.Errorf("results.dir is required when results.write_files is enabled")
	}
	switch r.Sink {
	case SinkNone, "":
	case SinkPostgres:
		if db.URL == "" {
			return fmt.Errorf("database.url is required for the postgres sink")
		}
	case SinkSQLite:
		if r.SQLitePath == "" {
			return fmt.Errorf("results.sqlite_path is required for the sqlite sink")
		}
	default:
		return fmt.Errorf("results.sink must be one of none, postgres, sqlite; got %q", r.Sink)
	}
	return nil
}

func (d *DisplayConfig) Validate() error {
	switch d.Backend {
	case BackendTerminal, BackendHeadless:
	default:
		return fmt.Errorf("display.backend must be terminal or headless; got %q", d.Backend)
	}
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("display.width and display.height must be positive integers")
	}
	return nil
}
