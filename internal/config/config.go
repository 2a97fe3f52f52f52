// Package config loads the clausewise configuration: a YAML file at
// .clausewise/config.yaml with environment-variable overrides. The config
// is constructed once in cmd and passed by value into every component.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LLMConfig configures the model endpoint.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_seconds"`
}

// Timeout returns the request timeout as a duration.
func (c LLMConfig) Timeout() time.Duration {
	if c.TimeoutSecs <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

// AgentConfig tunes the dispatch loop and optional pipeline stages.
type AgentConfig struct {
	MaxSteps       int  `yaml:"max_steps"`
	ShowPlan       bool `yaml:"show_plan"`
	ShowToolLog    bool `yaml:"show_tool_log"`
	ShowReflection bool `yaml:"show_reflection"`
}

// KBConfig configures the legal knowledge base.
type KBConfig struct {
	APIKey  string `yaml:"api_key"`
	IndexID string `yaml:"index_id"`
	BaseURL string `yaml:"base_url"`
}

// Enabled reports whether the knowledge base can be queried.
func (c KBConfig) Enabled() bool { return c.APIKey != "" && c.IndexID != "" }

// SkillsConfig configures skill loading and matching.
type SkillsConfig struct {
	Dir             string `yaml:"dir"`
	Watch           bool   `yaml:"watch"`
	EmbeddingAPIKey string `yaml:"embedding_api_key"`
	EmbeddingModel  string `yaml:"embedding_model"`
}

// LoggingConfig controls the category debug logs.
type LoggingConfig struct {
	DebugMode  bool     `yaml:"debug_mode"`
	Categories []string `yaml:"categories"`
}

// PathsConfig names output directories.
type PathsConfig struct {
	ReportsDir string `yaml:"reports_dir"`
	LogsDir    string `yaml:"logs_dir"`
}

// Config is the full application configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Agent   AgentConfig   `yaml:"agent"`
	KB      KBConfig      `yaml:"kb"`
	Skills  SkillsConfig  `yaml:"skills"`
	Logging LoggingConfig `yaml:"logging"`
	Paths   PathsConfig   `yaml:"paths"`
}

// ErrAPIKeyMissing means no model credentials were found in the file or
// the environment.
var ErrAPIKeyMissing = errors.New("config: llm.api_key is not set (set CLAUSEWISE_API_KEY or OPENAI_API_KEY)")

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:    "openai",
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o",
			Temperature: 0.7,
			TimeoutSecs: 120,
		},
		Agent: AgentConfig{
			MaxSteps:    50,
			ShowToolLog: true,
		},
		Skills: SkillsConfig{
			Dir:            "skills",
			Watch:          true,
			EmbeddingModel: "gemini-embedding-001",
		},
		Paths: PathsConfig{
			ReportsDir: "reports",
			LogsDir:    "logs",
		},
	}
}

// ConfigPath returns the config file location under workspace.
func ConfigPath(workspace string) string {
	return filepath.Join(workspace, ".clausewise", "config.yaml")
}

// Load reads the configuration: defaults, then the YAML file (if present),
// then environment overrides. A missing file is not an error.
func Load(workspace string) (Config, error) {
	cfg := Default()

	path := ConfigPath(workspace)
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides layers CLAUSEWISE_* variables (plus the conventional
// OPENAI_* and LLAMACLOUD_* names) over the file values.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.LLM.APIKey, "CLAUSEWISE_API_KEY", "OPENAI_API_KEY")
	setString(&cfg.LLM.BaseURL, "CLAUSEWISE_BASE_URL", "OPENAI_BASE_URL")
	setString(&cfg.LLM.Model, "CLAUSEWISE_MODEL", "MODEL")
	setFloat(&cfg.LLM.Temperature, "CLAUSEWISE_TEMPERATURE")
	setInt(&cfg.LLM.MaxTokens, "CLAUSEWISE_MAX_TOKENS")

	setInt(&cfg.Agent.MaxSteps, "CLAUSEWISE_MAX_STEPS")
	setBool(&cfg.Agent.ShowPlan, "CLAUSEWISE_SHOW_PLAN")
	setBool(&cfg.Agent.ShowToolLog, "CLAUSEWISE_TOOL_LOG")
	setBool(&cfg.Agent.ShowReflection, "CLAUSEWISE_REFLECT")

	setString(&cfg.KB.APIKey, "CLAUSEWISE_KB_API_KEY", "LLAMACLOUD_API_KEY")
	setString(&cfg.KB.IndexID, "CLAUSEWISE_KB_INDEX_ID", "LLAMACLOUD_INDEX_ID")

	setString(&cfg.Skills.Dir, "CLAUSEWISE_SKILLS_DIR")
	setString(&cfg.Skills.EmbeddingAPIKey, "CLAUSEWISE_EMBEDDING_API_KEY", "GEMINI_API_KEY")

	setBool(&cfg.Logging.DebugMode, "CLAUSEWISE_DEBUG")
}

// Validate checks the loaded configuration for fatal problems.
func (c Config) Validate() error {
	if c.LLM.APIKey == "" {
		return ErrAPIKeyMissing
	}
	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("config: agent.max_steps must be positive, got %d", c.Agent.MaxSteps)
	}
	return nil
}

func setString(dst *string, names ...string) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*dst = v
			return
		}
	}
}

func setInt(dst *int, name string) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, name string) {
	if v := os.Getenv(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, name string) {
	if v := os.Getenv(name); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}
}
