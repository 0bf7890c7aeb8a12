package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the proposal generation system
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Logos     LogosConfig     `mapstructure:"logos"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug             bool          `mapstructure:"debug"`
	LogLevel          string        `mapstructure:"log_level"`
	MaxProcessingTime time.Duration `mapstructure:"max_processing_time"`
	DefaultTimeout    time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address   string `mapstructure:"address"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LLMConfig contains LLM provider configurations
type LLMConfig struct {
	Providers map[string]LLMProvider `mapstructure:"providers"`
	Routing   LLMRoutingConfig       `mapstructure:"routing"`
}

// LLMProvider represents a single LLM provider configuration
type LLMProvider struct {
	Type    string              `mapstructure:"type"` // openai, groq (openai-compatible)
	APIKey  string              `mapstructure:"api_key"`
	BaseURL string              `mapstructure:"base_url"`
	Models  map[string]LLMModel `mapstructure:"models"`
	Timeout time.Duration       `mapstructure:"timeout"`
}

// LLMModel represents a specific model configuration
type LLMModel struct {
	Name            string  `mapstructure:"name"`
	APIName         string  `mapstructure:"api_name"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	CostPer1K       float64 `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64 `mapstructure:"cost_per_1k_output"`
}

// LLMRoutingConfig defines which model to use for different pipeline stages
type LLMRoutingConfig struct {
	Drafting       string `mapstructure:"drafting"`       // proposal/section content generation
	Classification string `mapstructure:"classification"` // chart type suggestion, keyword extraction
	Diagram        string `mapstructure:"diagram"`        // Mermaid synthesis
	Enhancement    string `mapstructure:"enhancement"`    // section rewrite/enhance
	Fallback       string `mapstructure:"fallback"`       // fallback model
}

// Model resolves a routed model name, falling back when the route is unset.
func (r LLMRoutingConfig) Model(route string) string {
	if route != "" {
		return route
	}
	return r.Fallback
}

// PipelineConfig controls the generation pipeline behaviour
type PipelineConfig struct {
	Strategy              string        `mapstructure:"strategy"` // single_shot or per_section
	MaxConcurrentSections int           `mapstructure:"max_concurrent_sections"`
	DiagramMaxAttempts    int           `mapstructure:"diagram_max_attempts"`
	DiagramBaseDelay      time.Duration `mapstructure:"diagram_base_delay"`
	DiagramRateLimitDelay time.Duration `mapstructure:"diagram_rate_limit_delay"`
	ContentMinLength      int           `mapstructure:"content_min_length"`
	ContentMaxAttempts    int           `mapstructure:"content_max_attempts"`
}

// Normalize applies defaults for unset pipeline values.
func (p PipelineConfig) Normalize() PipelineConfig {
	if p.Strategy == "" {
		p.Strategy = "single_shot"
	}
	if p.MaxConcurrentSections <= 0 {
		p.MaxConcurrentSections = 4
	}
	if p.DiagramMaxAttempts <= 0 {
		p.DiagramMaxAttempts = 4
	}
	if p.DiagramBaseDelay <= 0 {
		p.DiagramBaseDelay = 500 * time.Millisecond
	}
	if p.DiagramRateLimitDelay <= 0 {
		p.DiagramRateLimitDelay = 5 * time.Second
	}
	if p.ContentMinLength <= 0 {
		p.ContentMinLength = 100
	}
	if p.ContentMaxAttempts <= 0 {
		p.ContentMaxAttempts = 3
	}
	return p
}

// Validate checks pipeline settings.
func (p PipelineConfig) Validate() error {
	switch p.Strategy {
	case "", "single_shot", "per_section":
	default:
		return fmt.Errorf("pipeline.strategy must be single_shot or per_section, got %q", p.Strategy)
	}
	return nil
}

// SourcesConfig contains stock image provider configurations
type SourcesConfig struct {
	Pexels     PexelsConfig  `mapstructure:"pexels"`
	Pixabay    PixabayConfig `mapstructure:"pixabay"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// PexelsConfig contains Pexels API settings
type PexelsConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// PixabayConfig contains Pixabay API settings
type PixabayConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// LogosConfig controls technology icon resolution
type LogosConfig struct {
	CatalogURL string        `mapstructure:"catalog_url"`
	CDNBaseURL string        `mapstructure:"cdn_base_url"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

// Normalize applies defaults for unset logo values.
func (l LogosConfig) Normalize() LogosConfig {
	if l.CatalogURL == "" {
		l.CatalogURL = "https://cdn.jsdelivr.net/npm/simple-icons@latest/_data/simple-icons.json"
	}
	if l.CDNBaseURL == "" {
		l.CDNBaseURL = "https://cdn.jsdelivr.net/npm/simple-icons@latest/icons"
	}
	if l.CacheTTL <= 0 {
		l.CacheTTL = 24 * time.Hour
	}
	return l
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a postgres connection string from the configured fields.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	host := p.Host
	port := p.Port
	ssl := p.SSLMode
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "5432"
	}
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, host, port, p.DBName, ssl)
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Addr returns host:port for the Redis client.
func (r RedisConfig) Addr() string {
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return fmt.Sprintf("%s:%s", r.Host, port)
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	CostTracking bool `mapstructure:"cost_tracking"`
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.SetDefault("general.default_timeout", "30s")
	viper.SetDefault("general.max_processing_time", "5m")
	viper.SetDefault("server.address", ":10002")
	viper.SetDefault("pipeline.strategy", "single_shot")
	viper.SetDefault("pipeline.max_concurrent_sections", 4)
	viper.SetDefault("pipeline.diagram_max_attempts", 4)
	viper.SetDefault("sources.max_results", 9)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("PROPOSALGEN")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv() // read in environment variables that match (PROPOSALGEN_*)

	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config
	if err = viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	config.Pipeline = config.Pipeline.Normalize()
	config.Logos = config.Logos.Normalize()

	if err := config.Pipeline.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Postgres.Validate(); err != nil {
		panic(err)
	}
	return &config
}
