package model

import "time"

// Config is the complete vesselinfo configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Query  QueryConfig  `yaml:"query" mapstructure:"query"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	LLM    LLMConfig    `yaml:"llm" mapstructure:"llm"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig controls which extracts are loaded and how.
type StoreConfig struct {
	// Sources are file paths, directories, globs, s3:// URLs or
	// sqlite:// / postgres:// / mysql:// table URLs.
	Sources          []string `yaml:"sources" mapstructure:"sources"`
	Delimiter        string   `yaml:"delimiter" mapstructure:"delimiter"`
	Workers          int      `yaml:"workers" mapstructure:"workers"` // concurrent source parsers
	VesselTypeLookup string   `yaml:"vessel_type_lookup,omitempty" mapstructure:"vessel_type_lookup"`
	CargoLookup      string   `yaml:"cargo_lookup,omitempty" mapstructure:"cargo_lookup"`
	S3               S3Config `yaml:"s3" mapstructure:"s3"`
}

// S3Config configures the object storage client used for s3:// sources.
type S3Config struct {
	Region    string `yaml:"region,omitempty" mapstructure:"region"`
	Endpoint  string `yaml:"endpoint,omitempty" mapstructure:"endpoint"` // S3-compatible endpoint (MinIO, LocalStack)
	PathStyle bool   `yaml:"path_style" mapstructure:"path_style"`
}

// QueryConfig bounds resolver output.
type QueryConfig struct {
	MaxResults   int           `yaml:"max_results" mapstructure:"max_results"`
	CacheEnabled bool          `yaml:"cache_enabled" mapstructure:"cache_enabled"`
	CacheTTL     time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// ServerConfig controls the MCP transport.
type ServerConfig struct {
	Transport string `yaml:"transport" mapstructure:"transport"` // stdio, http, sse
	Addr      string `yaml:"addr" mapstructure:"addr"`
	ToolName  string `yaml:"tool_name" mapstructure:"tool_name"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"` // public URL for SSE endpoints
}

// LLMConfig configures the model used by the ask command.
type LLMConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // openai, ollama
	Model    string `yaml:"model" mapstructure:"model"`
	APIKey   string `yaml:"-" mapstructure:"api_key"`
	BaseURL  string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout  int    `yaml:"timeout" mapstructure:"timeout"` // seconds per completion
	MaxTurns int    `yaml:"max_turns" mapstructure:"max_turns"`
}

// FetchConfig controls archive downloads from the NOAA index.
type FetchConfig struct {
	IndexURL          string        `yaml:"index_url" mapstructure:"index_url"`
	OutputDir         string        `yaml:"output_dir" mapstructure:"output_dir"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxBytes          int64         `yaml:"max_bytes" mapstructure:"max_bytes"` // per file, 0 = unlimited
	Workers           int           `yaml:"workers" mapstructure:"workers"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	Delay             time.Duration `yaml:"delay" mapstructure:"delay"` // extra pause after each download
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json, console
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Sources:   []string{"data"},
			Delimiter: ",",
			Workers:   4,
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		Query: QueryConfig{
			MaxResults:   100,
			CacheEnabled: true,
			CacheTTL:     5 * time.Minute,
		},
		Server: ServerConfig{
			Transport: "stdio",
			Addr:      ":8080",
			ToolName:  "vessel_lookup",
		},
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.2",
			Timeout:  60,
			MaxTurns: 6,
		},
		Fetch: FetchConfig{
			IndexURL:          "https://coast.noaa.gov/htdata/CMSP/AISDataHandler/2024/index.html",
			OutputDir:         "data/ais_2024",
			UserAgent:         "vesselinfo/0.1 (+https://github.com/ppiankov/vesselinfo)",
			Timeout:           10 * time.Minute,
			Workers:           2,
			RequestsPerSecond: 0.2,
			Burst:             1,
			RespectRobots:     true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
