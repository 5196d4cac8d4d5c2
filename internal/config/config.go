// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the CLI configuration loadable from a JSON file. All fields are
// optional; missing values use defaults or come from CLI flags.
type Config struct {
	// Job input
	Job    string `json:"job,omitempty"`     // Path to job posting text file
	JobURL string `json:"job_url,omitempty"` // URL to fetch the job posting from
	Bank   string `json:"bank,omitempty"`    // Path to experience bank JSON file

	// Provider
	Provider       string `json:"provider,omitempty"`        // openai or anthropic
	Model          string `json:"model,omitempty"`           // Chat model for job analysis
	EmbeddingModel string `json:"embedding_model,omitempty"` // Embedding model
	Dimensions     int    `json:"dimensions,omitempty"`      // Embedding dimensionality

	// Ranking
	CandidateLimit int    `json:"candidate_limit,omitempty"` // Prefilter pool size
	FunctionBias   string `json:"function_bias,omitempty"`   // Weight profile override

	// Storage
	SettingsFile string `json:"settings_file,omitempty"` // Path to the settings JSON file
	DatabaseURL  string `json:"database_url,omitempty"`  // PostgreSQL connection URL

	// Behavior
	Verbose bool `json:"verbose,omitempty"` // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration values. Required fields are not checked
// here; CLI flag validation handles those after merging.
func (c *Config) Validate() error {
	if c.Job != "" && c.JobURL != "" {
		return fmt.Errorf("config error: 'job' and 'job_url' are mutually exclusive")
	}

	if c.Provider != "" && c.Provider != "openai" && c.Provider != "anthropic" {
		return fmt.Errorf("config error: unknown provider %q", c.Provider)
	}
	if c.Dimensions < 0 {
		return fmt.Errorf("config error: 'dimensions' must be non-negative")
	}
	if c.CandidateLimit < 0 {
		return fmt.Errorf("config error: 'candidate_limit' must be non-negative")
	}

	if c.Job != "" {
		if _, err := os.Stat(c.Job); os.IsNotExist(err) {
			return fmt.Errorf("config error: job file not found: %s", c.Job)
		}
	}
	if c.Bank != "" {
		if _, err := os.Stat(c.Bank); os.IsNotExist(err) {
			return fmt.Errorf("config error: bank file not found: %s", c.Bank)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with unset fields filled from
// defaults. Config file values act as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Job == "" {
		result.Job = defaults.Job
	}
	if result.JobURL == "" {
		result.JobURL = defaults.JobURL
	}
	if result.Bank == "" {
		result.Bank = defaults.Bank
	}
	if result.Provider == "" {
		result.Provider = defaults.Provider
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.EmbeddingModel == "" {
		result.EmbeddingModel = defaults.EmbeddingModel
	}
	if result.FunctionBias == "" {
		result.FunctionBias = defaults.FunctionBias
	}
	if result.SettingsFile == "" {
		result.SettingsFile = defaults.SettingsFile
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.Dimensions == 0 {
		result.Dimensions = defaults.Dimensions
	}
	if result.CandidateLimit == 0 {
		result.CandidateLimit = defaults.CandidateLimit
	}
	if !result.Verbose {
		result.Verbose = defaults.Verbose
	}

	return result
}
