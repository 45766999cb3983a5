package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment variable, e.g. PRICECALC_STDEV_WINDOW
const EnvPrefix = "PRICECALC"

// ConfigFileEnv names the variable holding an optional YAML config path
const ConfigFileEnv = "PRICECALC_CONFIG_FILE"

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Input     InputConfig     `yaml:"input" envconfig:"INPUT"`
	Rates     RatesConfig     `yaml:"rates" envconfig:"RATES"`
	Stdev     StdevConfig     `yaml:"stdev" envconfig:"STDEV"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Postgres  PostgresConfig  `yaml:"postgres" envconfig:"POSTGRES"`
	Redis     RedisConfig     `yaml:"redis" envconfig:"REDIS"`
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// InputConfig names the input table files; any of csv, xlsx or parquet
type InputConfig struct {
	CurrencyPairs string `yaml:"currency_pairs" envconfig:"CURRENCY_PAIRS"`
	Prices        string `yaml:"prices" envconfig:"PRICES"`
	SpotRates     string `yaml:"spot_rates" envconfig:"SPOT_RATES"`
	SecuritySnaps string `yaml:"security_snaps" envconfig:"SECURITY_SNAPS"`
}

// RatesConfig tunes the rates pipeline
type RatesConfig struct {
	SpotWindow      time.Duration `yaml:"spot_window" envconfig:"SPOT_WINDOW" validate:"gt=0"`
	DuplicatePolicy string        `yaml:"duplicate_policy" envconfig:"DUPLICATE_POLICY" validate:"oneof=first reject"`
}

// StdevConfig tunes the rolling stdev pipeline
type StdevConfig struct {
	Window  int           `yaml:"window" envconfig:"WINDOW" validate:"min=2"`
	Step    time.Duration `yaml:"step" envconfig:"STEP" validate:"gt=0"`
	Workers int           `yaml:"workers" envconfig:"WORKERS" validate:"min=0"` // 0 means GOMAXPROCS
	Layout  string        `yaml:"layout" envconfig:"LAYOUT" validate:"oneof=long wide"`
}

// OutputConfig selects where result files go
type OutputConfig struct {
	Dir    string `yaml:"dir" envconfig:"DIR" validate:"required"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=csv xlsx"`
}

// PostgresConfig enables the optional Postgres result sink
type PostgresConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"ENABLED"`
	DSN      string `yaml:"dsn" envconfig:"DSN" validate:"required_if=Enabled true"`
	MaxConns int32  `yaml:"max_conns" envconfig:"MAX_CONNS" validate:"min=0"`
}

// RedisConfig enables the optional Redis query cache
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled" envconfig:"ENABLED"`
	Addr     string        `yaml:"addr" envconfig:"ADDR" validate:"required_if=Enabled true"`
	Password string        `yaml:"password" envconfig:"PASSWORD"`
	DB       int           `yaml:"db" envconfig:"DB" validate:"min=0"`
	TTL      time.Duration `yaml:"ttl" envconfig:"TTL" validate:"min=0"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	CacheSize       int             `yaml:"cache_size" envconfig:"CACHE_SIZE" validate:"min=0"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"min=0"`
}

// TelemetryConfig selects the trace exporter and the metrics textfile
type TelemetryConfig struct {
	ServiceName     string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TracingExporter string `yaml:"tracing_exporter" envconfig:"TRACING_EXPORTER" validate:"oneof=none stdout"`
	MetricsTextfile string `yaml:"metrics_textfile" envconfig:"METRICS_TEXTFILE"`
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment, in increasing order of precedence. A .env file in the
// working directory is loaded first when present; it never overrides
// variables already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// unset variables leave the default or file value in place
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// Validate checks the struct tags
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// getConfigFilePath returns the configured file, else the first default
// location that exists, else ""
func getConfigFilePath() string {
	if p := os.Getenv(ConfigFileEnv); p != "" {
		return p
	}

	for _, location := range []string{"pricecalc.yaml", "configs/pricecalc.yaml"} {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/pricecalc.log",
		},
		Input: InputConfig{
			CurrencyPairs: "data/rates_ccy_data.csv",
			Prices:        "data/rates_price_data.parq.gzip",
			SpotRates:     "data/rates_spot_rate_data.parq.gzip",
			SecuritySnaps: "data/stdev_price_data.parq.gzip",
		},
		Rates: RatesConfig{
			SpotWindow:      time.Hour,
			DuplicatePolicy: "first",
		},
		Stdev: StdevConfig{
			Window: 20,
			Step:   time.Hour,
			Layout: "long",
		},
		Output: OutputConfig{
			Dir:    "output",
			Format: "csv",
		},
		Postgres: PostgresConfig{
			MaxConns: 8,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			TTL:  time.Hour,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CacheSize:       10000,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Telemetry: TelemetryConfig{
			ServiceName:     "pricecalc",
			TracingExporter: "none",
		},
	}
}
