package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// IFCGRAPH_NEO4J_URI for neo4j.uri.
const EnvPrefix = "IFCGRAPH"

// Config holds every environment dependent setting of ifcgraph.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j" yaml:"neo4j"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Ingest   IngestConfig   `mapstructure:"ingest" yaml:"ingest"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
}

// LoggerConfig configures the global zap logger.
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

// ColorConfig maps log levels to color names for the console encoder.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// Neo4jConfig holds the graph database connection.
type Neo4jConfig struct {
	URI                   string `mapstructure:"uri" yaml:"uri"`
	User                  string `mapstructure:"user" yaml:"user"`
	Password              string `mapstructure:"password" yaml:"password"`
	Database              string `mapstructure:"database" yaml:"database"`
	MaxConnectionPoolSize int    `mapstructure:"max_connection_pool_size" yaml:"max_connection_pool_size"`
}

// AnalysisConfig tunes the topology session.
type AnalysisConfig struct {
	Tolerance    float64 `mapstructure:"tolerance" yaml:"tolerance"`
	Workers      int     `mapstructure:"workers" yaml:"workers"`
	MaxPathDepth int     `mapstructure:"max_path_depth" yaml:"max_path_depth"`
}

// IngestConfig tunes the batch writer.
type IngestConfig struct {
	BatchSize       int           `mapstructure:"batch_size" yaml:"batch_size"`
	Concurrency     int           `mapstructure:"concurrency" yaml:"concurrency"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout" yaml:"batch_timeout"`
	WritesPerSecond float64       `mapstructure:"writes_per_second" yaml:"writes_per_second"`
}

// StoreConfig locates the SQLite ingestion run ledger.
type StoreConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// LLMConfig selects the model used to translate questions into Cypher.
type LLMConfig struct {
	GeminiAPIKey    string        `mapstructure:"gemini_api_key" yaml:"gemini_api_key"`
	GeminiModel     string        `mapstructure:"gemini_model" yaml:"gemini_model"`
	OllamaHost      string        `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaModel     string        `mapstructure:"ollama_model" yaml:"ollama_model"`
	UseLocalOnlyLLM bool          `mapstructure:"use_local_only" yaml:"use_local_only"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SetDefaults registers the default value of every key. Registering a key
// is also what lets AutomaticEnv resolve it during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "ifcgraph")
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

	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.user", "neo4j")
	v.SetDefault("neo4j.password", "ifcgraph_dev")
	v.SetDefault("neo4j.database", "")
	v.SetDefault("neo4j.max_connection_pool_size", 16)

	v.SetDefault("analysis.tolerance", 0.001)
	v.SetDefault("analysis.workers", 4)
	v.SetDefault("analysis.max_path_depth", 10)

	v.SetDefault("ingest.batch_size", 500)
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("ingest.batch_timeout", "30s")
	v.SetDefault("ingest.writes_per_second", 0)

	v.SetDefault("store.dsn", "file:ifcgraph.db?cache=shared")

	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.gemini_model", "gemini-2.5-flash")
	v.SetDefault("llm.ollama_host", "http://localhost:11434")
	v.SetDefault("llm.ollama_model", "llama3")
	v.SetDefault("llm.use_local_only", false)
	v.SetDefault("llm.timeout", "60s")
}

// NewViper returns a viper instance with defaults and environment overrides
// bound. When configFile is empty an optional ifcgraph.yaml in the working
// directory is read; a missing file is not an error.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("ifcgraph")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return v, nil
}

// Load unmarshals v into a Config. It does not validate: each command
// checks the sections it needs.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig returns the configuration made of defaults only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return cfg
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	if err := c.Neo4j.Validate(); err != nil {
		return fmt.Errorf("neo4j: %w", err)
	}
	if err := c.Ingest.Validate(c.Neo4j.MaxConnectionPoolSize); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	return nil
}

// Validate checks the analysis tuning.
func (a AnalysisConfig) Validate() error {
	if a.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %v", a.Tolerance)
	}
	if a.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	return nil
}

// Validate checks the graph database connection settings.
func (n Neo4jConfig) Validate() error {
	if n.URI == "" {
		return fmt.Errorf("%s_NEO4J_URI is required", EnvPrefix)
	}
	scheme, _, ok := strings.Cut(n.URI, "://")
	if !ok {
		return fmt.Errorf("uri %q has no scheme", n.URI)
	}
	switch scheme {
	case "neo4j", "neo4j+s", "neo4j+ssc", "bolt", "bolt+s", "bolt+ssc":
	default:
		return fmt.Errorf("unsupported uri scheme %q", scheme)
	}
	if n.MaxConnectionPoolSize < 1 {
		return fmt.Errorf("max_connection_pool_size must be at least 1")
	}
	return nil
}

// Validate checks the writer tuning. Concurrency never exceeds the driver
// pool size.
func (i IngestConfig) Validate(poolSize int) error {
	if i.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", i.BatchSize)
	}
	if i.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	if poolSize > 0 && i.Concurrency > poolSize {
		return fmt.Errorf("concurrency %d exceeds the connection pool size %d", i.Concurrency, poolSize)
	}
	if i.BatchTimeout <= 0 {
		return fmt.Errorf("batch_timeout must be positive")
	}
	if i.WritesPerSecond < 0 {
		return fmt.Errorf("writes_per_second must not be negative")
	}
	return nil
}

// Validate ensures a usable LLM is configured.
func (l LLMConfig) Validate() error {
	if !l.UseLocalOnlyLLM && l.GeminiAPIKey == "" {
		return fmt.Errorf("%s_LLM_GEMINI_API_KEY is required when %s_LLM_USE_LOCAL_ONLY is false", EnvPrefix, EnvPrefix)
	}
	if l.UseLocalOnlyLLM && l.OllamaHost == "" {
		return fmt.Errorf("ollama_host is required in local-only mode")
	}
	return nil
}
