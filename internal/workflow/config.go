// Package workflow loads the declarative workflow definition (agents,
// kickoff template, setup commands, scheduler tuning) that the scheduler
// consumes. Variable interpolation inside the kickoff/setup templates is
// limited to the minimal ${VAR} substitution the scheduler performs at
// runtime, not a general templating language.
package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// AgentConfig declares one workflow participant.
type AgentConfig struct {
	Name         string            `yaml:"name"`
	Backend      string            `yaml:"backend"` // "subprocess" | "mock"
	Command      []string          `yaml:"command"`
	Env          map[string]string `yaml:"env"`
	SystemPrompt string            `yaml:"system_prompt"`
	ProjectDir   string            `yaml:"project_dir"`

	PollIntervalMs    int     `yaml:"poll_interval_ms"`
	MaxAttempts       int     `yaml:"max_attempts"`
	BackoffBaseMs     int     `yaml:"backoff_base_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	BackoffMaxMs      int     `yaml:"backoff_max_ms"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
}

// SchedulerConfig tunes the outer loop.
type SchedulerConfig struct {
	HTTPHost           string `yaml:"http_host"`           // default 127.0.0.1
	HTTPPort           int    `yaml:"http_port"`           // 0 = ephemeral
	DebounceMultiplier int    `yaml:"debounce_multiplier"` // debounce = multiplier * poll interval
	ExitOnIdle         bool   `yaml:"exit_on_idle"`
	MockOAuth          bool   `yaml:"mock_oauth"` // serve mock OAuth discovery endpoints
	LogFile            string `yaml:"log_file"`   // "" = derive from context_dir, "none"/"off" = stderr only
}

// WorkspaceConfig controls per-agent workspace isolation.
type WorkspaceConfig struct {
	Isolate    string `yaml:"isolate"` // "none" (default) | "git"
	BaseBranch string `yaml:"base_branch"`
}

// SkillDeclaration declares one entry in the optional skill catalogue.
type SkillDeclaration struct {
	Name        string `yaml:"name"`
	Title       string `yaml:"title"`
	Body        string `yaml:"body"`
	Example     string `yaml:"example"`
}

// Config is the parsed workflow definition. Produced by LoadConfig; this
// package does not resolve setup-task variables into the kickoff
// template itself — that substitution happens in internal/scheduler at
// run time, after setup tasks have actually executed.
type Config struct {
	Name    string   `yaml:"name"`
	Kickoff string   `yaml:"kickoff"`
	Setup   []string `yaml:"setup"`

	// ContextDir, if set, makes this a persistent (bind) context whose
	// channel.jsonl and state survive shutdown. Empty means an ephemeral in-memory context.
	ContextDir string `yaml:"context_dir"`

	MessageThreshold int `yaml:"message_threshold"`

	Agents    []AgentConfig      `yaml:"agents"`
	Scheduler SchedulerConfig    `yaml:"scheduler"`
	Workspace WorkspaceConfig    `yaml:"workspace"`
	Skills    []SkillDeclaration `yaml:"skills"`
}

// DefaultConfig returns a workflow with no agents and the documented
// scheduler/workspace defaults.
func DefaultConfig() *Config {
	return &Config{
		MessageThreshold: 2000,
		Scheduler: SchedulerConfig{
			HTTPHost:           "127.0.0.1",
			DebounceMultiplier: 3,
			ExitOnIdle:         true,
		},
		Workspace: WorkspaceConfig{Isolate: "none"},
	}
}

// LoadConfig loads a workflow definition from path. A missing file falls
// back to DefaultConfig() (an empty, agent-less workflow) rather than an
// error, matching the ambient-stack note that config loading never fails
// the process just because no file was authored yet.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("workflow: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("workflow: parse config %s: %w", path, err)
	}
	if cfg.Scheduler.HTTPHost == "" {
		cfg.Scheduler.HTTPHost = "127.0.0.1"
	}
	if cfg.Scheduler.DebounceMultiplier <= 0 {
		cfg.Scheduler.DebounceMultiplier = 3
	}
	if cfg.MessageThreshold <= 0 {
		cfg.MessageThreshold = 2000
	}
	if cfg.Workspace.Isolate == "" {
		cfg.Workspace.Isolate = "none"
	}
	if cfg.ContextDir != "" && !filepath.IsAbs(cfg.ContextDir) {
		abs, err := filepath.Abs(cfg.ContextDir)
		if err == nil {
			cfg.ContextDir = abs
		}
	}
	return cfg, nil
}

// ValidAgentNames returns the configured agent names, used to seed the
// channel store's mention-extraction valid-agent set.
func (c *Config) ValidAgentNames() []string {
	names := make([]string, 0, len(c.Agents))
	for _, a := range c.Agents {
		names = append(names, a.Name)
	}
	return names
}
