package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("GRAPH_API_BASE_URL", "http://graph.local/api")
	t.Setenv("GRAPH_API_TIMEOUT", "5")
	t.Setenv("NEO4J_URI", "bolt://localhost:7687")
	t.Setenv("NEO4J_USER", "neo4j")
	t.Setenv("NEO4J_PASSWORD", "password")
	t.Setenv("GRAPH_STORE", "memory")
	t.Setenv("GRAPH_POSTGRES_DSN", "postgres://graph@localhost/graph")

	cfg := LoadConfig()

	assert.Equal(t, "http://graph.local/api", cfg.APIBaseURL)
	assert.Equal(t, 5, cfg.APITimeout)
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4jURI)
	assert.Equal(t, "neo4j", cfg.Neo4jUser)
	assert.Equal(t, "password", cfg.Neo4jPassword)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, "postgres://graph@localhost/graph", cfg.PostgresDSN)
	// Untouched values keep their defaults.
	assert.Equal(t, "/api", cfg.APIPrefix)
}

func TestApplyEnvOverrides_InvalidTimeoutIgnored(t *testing.T) {
	t.Setenv("GRAPH_API_TIMEOUT", "soon")

	cfg := DefaultConfig()
	ApplyEnvOverrides(&cfg)

	assert.Equal(t, 30, cfg.APITimeout)
}

func TestApplyEnvOverrides_Tracing(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("GRAPH_OTLP_INSECURE", "true")
	t.Setenv("GRAPH_TRACE_SAMPLE_RATE", "0.25")

	cfg := DefaultConfig()
	ApplyEnvOverrides(&cfg)

	assert.Equal(t, "collector:4317", cfg.OTLPEndpoint)
	assert.True(t, cfg.OTLPInsecure)
	assert.Equal(t, 0.25, cfg.SampleRate)

	t.Setenv("GRAPH_OTLP_INSECURE", "maybe")
	t.Setenv("GRAPH_TRACE_SAMPLE_RATE", "most")
	cfg = DefaultConfig()
	ApplyEnvOverrides(&cfg)
	assert.False(t, cfg.OTLPInsecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestApplyEnvOverrides_FrontendURL(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.FrontendURL)

	t.Setenv("GRAPH_FRONTEND_URL", "https://graph.example.edu/app")
	ApplyEnvOverrides(&cfg)
	assert.Equal(t, "https://graph.example.edu/app", cfg.FrontendURL)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
api_base_url: http://example.test/graph-api
api_timeout: 12
neo4j_database: movies
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://example.test/graph-api", cfg.APIBaseURL)
	assert.Equal(t, 12, cfg.APITimeout)
	assert.Equal(t, "movies", cfg.Neo4jDatabase)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":5000", cfg.ListenAddr)
	assert.Equal(t, "neo4j", cfg.Store)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_timeout: [not, an, int"), 0o644))
	_, err = LoadFile(path)
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	// Create a temporary directory
	tempDir := t.TempDir()

	// Create a .env file in the temp directory
	envContent := "TEST_ENV_VAR=loaded_successfully"
	envFile := filepath.Join(tempDir, ".env")
	if err := os.WriteFile(envFile, []byte(envContent), 0644); err != nil {
		t.Fatalf("Failed to create .env file: %v", err)
	}

	// Create a subdirectory
	subDir := filepath.Join(tempDir, "subdir", "deep", "nested")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get current working directory: %v", err)
	}
	defer os.Chdir(wd)

	if err := os.Chdir(subDir); err != nil {
		t.Fatalf("Failed to change working directory: %v", err)
	}

	if err := LoadEnv(); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}

	if val := os.Getenv("TEST_ENV_VAR"); val != "loaded_successfully" {
		t.Errorf("Expected TEST_ENV_VAR to be 'loaded_successfully', got '%s'", val)
	}

	os.Unsetenv("TEST_ENV_VAR")
}
