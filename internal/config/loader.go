package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the client, the reference service and
// the CLI.
type Config struct {
	// APIBaseURL is the prefix every client request is composed against,
	// e.g. "http://127.0.0.1:5000/api".
	APIBaseURL string `yaml:"api_base_url"`
	// APITimeout is the client request timeout in seconds. Zero disables it.
	APITimeout int `yaml:"api_timeout"`

	ListenAddr string `yaml:"listen_addr"`
	APIPrefix  string `yaml:"api_prefix"`
	MCPAddr    string `yaml:"mcp_addr"`
	// Store selects the service backend: "neo4j", "postgres" or "memory".
	Store string `yaml:"store"`
	// PostgresDSN is the connection string of the postgres backend.
	PostgresDSN string `yaml:"postgres_dsn"`
	// FrontendURL is where the service sends browsers after an LTI launch.
	// When empty the frontend host is derived from the request.
	FrontendURL string `yaml:"frontend_url"`

	Neo4jURI      string `yaml:"neo4j_uri"`
	Neo4jUser     string `yaml:"neo4j_user"`
	Neo4jPassword string `yaml:"neo4j_password"`
	Neo4jDatabase string `yaml:"neo4j_database"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// OTLPEndpoint is the host:port of an OTLP gRPC collector. Tracing is
	// disabled when it is empty.
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	OTLPInsecure bool    `yaml:"otlp_insecure"`
	SampleRate   float64 `yaml:"trace_sample_rate"`
}

// DefaultConfig returns a Config populated with defaults matching a local
// development setup.
func DefaultConfig() Config {
	return Config{
		APIBaseURL: "http://127.0.0.1:5000/api",
		APITimeout: 30,
		ListenAddr: ":5000",
		APIPrefix:  "/api",
		MCPAddr:    ":8090",
		Store:      "neo4j",
		Neo4jURI:   "bolt://localhost:7687",
		Neo4jUser:  "neo4j",
		LogLevel:   "info",
		LogFormat:  "text",
		SampleRate: 1.0,
	}
}

// LoadConfig returns the defaults overridden by environment variables.
func LoadConfig() Config {
	cfg := DefaultConfig()
	ApplyEnvOverrides(&cfg)
	return cfg
}

// LoadFile reads a YAML configuration file on top of the defaults.
// Environment overrides are not applied.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides updates cfg in place with every recognized environment
// variable that is set and non-empty:
//   - GRAPH_API_BASE_URL, GRAPH_API_TIMEOUT
//   - GRAPH_LISTEN_ADDR, GRAPH_API_PREFIX, GRAPH_MCP_ADDR, GRAPH_STORE
//   - GRAPH_POSTGRES_DSN, GRAPH_FRONTEND_URL
//   - NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD, NEO4J_DATABASE
//   - GRAPH_LOG_LEVEL, GRAPH_LOG_FORMAT
//   - OTEL_EXPORTER_OTLP_ENDPOINT, GRAPH_OTLP_INSECURE, GRAPH_TRACE_SAMPLE_RATE
//
// Values that fail to parse as the field's type are ignored.
func ApplyEnvOverrides(cfg *Config) {
	setString(&cfg.APIBaseURL, "GRAPH_API_BASE_URL")
	if v := os.Getenv("GRAPH_API_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.APITimeout = n
		}
	}
	setString(&cfg.ListenAddr, "GRAPH_LISTEN_ADDR")
	setString(&cfg.APIPrefix, "GRAPH_API_PREFIX")
	setString(&cfg.MCPAddr, "GRAPH_MCP_ADDR")
	setString(&cfg.Store, "GRAPH_STORE")
	setString(&cfg.PostgresDSN, "GRAPH_POSTGRES_DSN")
	setString(&cfg.FrontendURL, "GRAPH_FRONTEND_URL")
	setString(&cfg.Neo4jURI, "NEO4J_URI")
	setString(&cfg.Neo4jUser, "NEO4J_USER")
	setString(&cfg.Neo4jPassword, "NEO4J_PASSWORD")
	setString(&cfg.Neo4jDatabase, "NEO4J_DATABASE")
	setString(&cfg.LogLevel, "GRAPH_LOG_LEVEL")
	setString(&cfg.LogFormat, "GRAPH_LOG_FORMAT")
	setString(&cfg.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	if v := os.Getenv("GRAPH_OTLP_INSECURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.OTLPInsecure = b
		}
	}
	if v := os.Getenv("GRAPH_TRACE_SAMPLE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.SampleRate = f
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// LoadEnv loads environment variables from a .env file, searching up the directory tree.
func LoadEnv() error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}

	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return godotenv.Load(envPath)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached root
		}
		dir = parent
	}

	// Not found is fine
	return nil
}
