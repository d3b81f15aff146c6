package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration structure
type Config struct {
	Tools   ToolsConfig   `yaml:"tools"`
	Run     RunConfig     `yaml:"run"`
	Forks   ForksConfig   `yaml:"forks"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// ToolsConfig names the external executables the engine drives
type ToolsConfig struct {
	Transition     string   `yaml:"transition"`
	TransitionArgs []string `yaml:"transition_args"`
	Compiler       string   `yaml:"compiler"`
	Timeout        int      `yaml:"timeout"`
	Stream         bool     `yaml:"stream"`
}

// RunConfig holds execution configuration
type RunConfig struct {
	Workers       int    `yaml:"workers"`
	StopOnFailure bool   `yaml:"stop_on_failure"`
	ChainID       uint64 `yaml:"chain_id"`
	TraceDir      string `yaml:"trace_dir"`
}

// ForksConfig narrows the fork axis of a run
type ForksConfig struct {
	From  string `yaml:"from"`
	Until string `yaml:"until"`
}

// OutputConfig holds output configuration
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Flat      bool   `yaml:"flat"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Directory string `yaml:"directory"`
	Level     string `yaml:"level"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		Tools: ToolsConfig{
			Transition: "t8n",
			Compiler:   "solc",
			Timeout:    60,
		},
		Run: RunConfig{
			Workers: 1,
			ChainID: 1,
		},
		Output: OutputConfig{
			Directory: "fixtures",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*Config, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML on top of the defaults
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Validate rejects configurations no run could work with
func (c *Config) Validate() error {
	if c.Tools.Transition == "" {
		return fmt.Errorf("tools.transition must name the transition executable")
	}
	if c.Run.Workers < 0 {
		return fmt.Errorf("run.workers must not be negative")
	}
	if c.Output.Directory == "" {
		return fmt.Errorf("output.directory must not be empty")
	}
	return nil
}

// GetOutputPath returns the full output directory path
func (c *Config) GetOutputPath() string {
	return c.Output.Directory
}

// PrintConfig prints the current configuration (for debugging)
func (c *Config) PrintConfig() {
	fmt.Println("=== fixturefill Configuration ===")
	fmt.Printf("Transition Tool: %s\n", c.Tools.Transition)
	fmt.Printf("Compiler: %s\n", c.Tools.Compiler)
	fmt.Printf("Streaming Session: %t\n", c.Tools.Stream)
	fmt.Printf("Workers: %d\n", c.Run.Workers)
	fmt.Printf("Stop On Failure: %t\n", c.Run.StopOnFailure)
	fmt.Printf("Chain ID: %d\n", c.Run.ChainID)
	fmt.Printf("Fork Range: [%s, %s]\n", c.Forks.From, c.Forks.Until)
	fmt.Printf("Output Directory: %s\n", c.GetOutputPath())
	fmt.Println("=================================")
}
