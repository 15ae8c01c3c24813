// Package config loads the session configuration: sandbox root, extension
// allow-list, execution policy, limits, and LLM settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the YAML session configuration. Values here are consumed, not
// owned, by the engine: they are supplied once at session start and never
// change during a run.
type Config struct {
	LLM struct {
		Model     string `yaml:"model"`
		APIKeyEnv string `yaml:"api_key_env"`
		MaxTokens int    `yaml:"max_output_tokens"`
	} `yaml:"llm"`

	Workspace struct {
		Root              string   `yaml:"root"`
		AllowedExtensions []string `yaml:"allowed_extensions"`
		MaxFileSizeKB     int      `yaml:"max_file_size_kb"`
	} `yaml:"workspace"`

	Agent struct {
		MaxSteps int `yaml:"max_steps"`
	} `yaml:"agent"`

	// Policy is one of auto_approve, interactive, dry_run.
	Policy string `yaml:"policy"`

	LogFile string `yaml:"log_file"`
}

// Default returns the built-in configuration: current directory sandbox,
// .md/.txt files, interactive confirmation.
func Default() *Config {
	cfg := &Config{}
	cfg.LLM.Model = "claude-sonnet-4-20250514"
	cfg.LLM.APIKeyEnv = "ANTHROPIC_API_KEY"
	cfg.LLM.MaxTokens = 4096
	cfg.Workspace.Root = "."
	cfg.Workspace.AllowedExtensions = []string{".md", ".txt"}
	cfg.Workspace.MaxFileSizeKB = 120
	cfg.Agent.MaxSteps = 10
	cfg.Policy = "interactive"
	return cfg
}

// Load reads a YAML config file and fills in defaults for anything omitted.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()

	return cfg, nil
}

// applyDefaults restores required values a config file set to empty.
func (c *Config) applyDefaults() {
	d := Default()
	if c.LLM.Model == "" {
		c.LLM.Model = d.LLM.Model
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = d.LLM.APIKeyEnv
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = d.LLM.MaxTokens
	}
	if c.Workspace.Root == "" {
		c.Workspace.Root = d.Workspace.Root
	}
	if len(c.Workspace.AllowedExtensions) == 0 {
		c.Workspace.AllowedExtensions = d.Workspace.AllowedExtensions
	}
	if c.Workspace.MaxFileSizeKB <= 0 {
		c.Workspace.MaxFileSizeKB = d.Workspace.MaxFileSizeKB
	}
	if c.Agent.MaxSteps <= 0 {
		c.Agent.MaxSteps = d.Agent.MaxSteps
	}
	if c.Policy == "" {
		c.Policy = d.Policy
	}
}

// MaxFileSizeBytes returns the whole-file read/write bound in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Workspace.MaxFileSizeKB) * 1024
}

// APIKey resolves the LLM API key from the configured environment variable.
func (c *Config) APIKey() string {
	return os.Getenv(c.LLM.APIKeyEnv)
}

// ResolveRoot converts the workspace root to an absolute path.
func (c *Config) ResolveRoot() (string, error) {
	abs, err := filepath.Abs(c.Workspace.Root)
	if err != nil {
		return "", fmt.Errorf("resolve workspace root: %w", err)
	}
	return abs, nil
}
