package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfig tests loading configuration from file
func TestLoadConfig(t *testing.T) {
	// Create a temporary config file
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "test_config.yaml")

	// Write test configuration
	configContent := `
tools:
  transition: "/usr/local/bin/evm-t8n"
  transition_args:
    - "t8n"
  compiler: "/usr/local/bin/solc"
  timeout: 120
  stream: true

run:
  workers: 8
  stop_on_failure: true
  chain_id: 1337
  trace_dir: "/tmp/traces"

forks:
  from: "Berlin"
  until: "Cancun"

output:
  directory: "/tmp/fixtures"
  flat: true

logging:
  directory: "/tmp/logs"
  level: "debug"
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	require.NoError(t, err)

	// Load the configuration
	config, err := LoadConfig(configFile)

	assert.NoError(t, err)
	assert.NotNil(t, config)

	// Verify Tools configuration
	assert.Equal(t, "/usr/local/bin/evm-t8n", config.Tools.Transition)
	assert.Equal(t, []string{"t8n"}, config.Tools.TransitionArgs)
	assert.Equal(t, "/usr/local/bin/solc", config.Tools.Compiler)
	assert.Equal(t, 120, config.Tools.Timeout)
	assert.True(t, config.Tools.Stream)

	// Verify Run configuration
	assert.Equal(t, 8, config.Run.Workers)
	assert.True(t, config.Run.StopOnFailure)
	assert.Equal(t, uint64(1337), config.Run.ChainID)
	assert.Equal(t, "/tmp/traces", config.Run.TraceDir)

	// Verify Forks configuration
	assert.Equal(t, "Berlin", config.Forks.From)
	assert.Equal(t, "Cancun", config.Forks.Until)

	// Verify Output configuration
	assert.Equal(t, "/tmp/fixtures", config.Output.Directory)
	assert.True(t, config.Output.Flat)

	// Verify Logging configuration
	assert.Equal(t, "/tmp/logs", config.Logging.Directory)
	assert.Equal(t, "debug", config.Logging.Level)
}

// TestLoadConfig_NonExistentFile tests loading config from non-existent file
func TestLoadConfig_NonExistentFile(t *testing.T) {
	config, err := LoadConfig("/non/existent/config.yaml")

	assert.Error(t, err)
	assert.Nil(t, config)
}

// TestLoadConfig_InvalidYAML tests loading config with invalid YAML
func TestLoadConfig_InvalidYAML(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "invalid_config.yaml")

	// Write invalid YAML
	invalidYAML := `
tools:
  transition: "t8n"
    invalid_indentation: true
run:
  workers: [invalid yaml structure
`

	err := os.WriteFile(configFile, []byte(invalidYAML), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configFile)

	assert.Error(t, err)
	assert.Nil(t, config)
}

// TestLoadConfig_PartialConfig tests loading config with missing sections
func TestLoadConfig_PartialConfig(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "partial_config.yaml")

	// Write partial configuration (only the run section)
	partialConfig := `
run:
  workers: 4
  stop_on_failure: true
`

	err := os.WriteFile(configFile, []byte(partialConfig), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configFile)

	assert.NoError(t, err)
	assert.NotNil(t, config)

	// Verify the run section is loaded
	assert.Equal(t, 4, config.Run.Workers)
	assert.True(t, config.Run.StopOnFailure)

	// Verify missing sections keep their defaults
	assert.Equal(t, "t8n", config.Tools.Transition)
	assert.Equal(t, "solc", config.Tools.Compiler)
	assert.Equal(t, "fixtures", config.Output.Directory)
	assert.Empty(t, config.Forks.From)
}

// TestConfig_DefaultValues tests default configuration values
func TestConfig_DefaultValues(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "t8n", config.Tools.Transition)
	assert.Equal(t, "solc", config.Tools.Compiler)
	assert.Equal(t, 60, config.Tools.Timeout)
	assert.False(t, config.Tools.Stream)
	assert.Equal(t, 1, config.Run.Workers)
	assert.Equal(t, uint64(1), config.Run.ChainID)
	assert.Equal(t, "fixtures", config.Output.Directory)
	assert.Equal(t, "info", config.Logging.Level)
	assert.NoError(t, config.Validate())
}

// TestConfig_Validate tests configuration validation
func TestConfig_Validate(t *testing.T) {
	config := DefaultConfig()
	config.Tools.Transition = ""
	assert.Error(t, config.Validate())

	config = DefaultConfig()
	config.Run.Workers = -1
	assert.Error(t, config.Validate())

	config = DefaultConfig()
	config.Output.Directory = ""
	assert.Error(t, config.Validate())
}

// BenchmarkLoadConfig benchmarks loading configuration
func BenchmarkLoadConfig(b *testing.B) {
	tempDir := b.TempDir()
	configFile := filepath.Join(tempDir, "bench_config.yaml")

	// Write benchmark configuration
	configContent := `
tools:
  transition: "t8n"
  compiler: "solc"

run:
  workers: 8

forks:
  from: "London"

output:
  directory: "/tmp/fixtures"
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := LoadConfig(configFile)
		if err != nil {
			b.Fatal(err)
		}
	}
}
