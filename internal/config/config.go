// internal/config/config.go
//
// This package handles configuration and the .council directory
// structure. Every project that runs the council gets a .council/
// folder created in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/council/internal/council"
	"github.com/kingrea/council/internal/gateway"
	"github.com/kingrea/council/internal/roster"
)

const (
	// CouncilDir is the name of the directory we create in each project.
	CouncilDir = ".council"

	configFileName = "config.yaml"
)

const defaultConfigYAML = `# council configuration
version: 1

# Participants answer in declared order; that order also drives label
# assignment and ranking tie-breaks.
participants:
  - id: sage
    name: Sage
    provider: openai
    model: gpt-4o
    api_key_env: OPENAI_API_KEY
    system_prompt: You are a careful generalist. Answer thoroughly but stay concrete.
  - id: skeptic
    name: Skeptic
    provider: openai
    model: gpt-4o-mini
    api_key_env: OPENAI_API_KEY
    system_prompt: You stress-test assumptions and surface hidden risks.
  - id: pragmatist
    name: Pragmatist
    provider: openai
    model: gpt-4o-mini
    api_key_env: OPENAI_API_KEY
    system_prompt: You focus on what can actually be executed with available resources.

# The synthesizer produces the final answer from the full de-anonymized record.
synthesizer: sage

# How synthesis reconciles conflicting evidence: balanced, risk-averse,
# or novelty-seeking.
directive: balanced

limits:
  max_concurrent: 8
  call_timeout_seconds: 120
  max_retries: 2
  retry_backoff_ms: 2000

server:
  listen: ":8790"
`

// ParticipantConfig declares one council seat inside .council/config.yaml.
type ParticipantConfig struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name,omitempty"`
	Provider     string `yaml:"provider,omitempty"`
	Model        string `yaml:"model"`
	BaseURL      string `yaml:"base_url,omitempty"`
	APIKeyEnv    string `yaml:"api_key_env,omitempty"`
	SystemPrompt string `yaml:"system_prompt,omitempty"`
	StancePrompt string `yaml:"stance_prompt,omitempty"`
	Enabled      *bool  `yaml:"enabled,omitempty"`
}

// LimitsConfig bounds the gateway's outbound behaviour.
type LimitsConfig struct {
	MaxConcurrent      int `yaml:"max_concurrent"`
	CallTimeoutSeconds int `yaml:"call_timeout_seconds"`
	MaxRetries         int `yaml:"max_retries"`
	RetryBackoffMillis int `yaml:"retry_backoff_ms"`
}

// ServerConfig captures the HTTP listener preferences.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// ProjectConfig models .council/config.yaml.
type ProjectConfig struct {
	Version      int                 `yaml:"version"`
	Participants []ParticipantConfig `yaml:"participants"`
	Synthesizer  string              `yaml:"synthesizer"`
	Directive    string              `yaml:"directive,omitempty"`
	Limits       LimitsConfig        `yaml:"limits"`
	Server       ServerConfig        `yaml:"server"`
}

// Config holds the runtime configuration for the council.
type Config struct {
	// ProjectDir is the directory the binary was started from.
	ProjectDir string

	// CouncilProjectDir is ProjectDir/.council.
	CouncilProjectDir string

	Project ProjectConfig
}

// InitCouncilDir creates the .council directory structure and seeds a
// default config when none exists.
//
// Structure created:
// .council/
// ├── logs/           <- operational logbook
// └── conversations/  <- append-only persisted turns, one file each
func InitCouncilDir(projectDir string) error {
	councilDir := filepath.Join(projectDir, CouncilDir)
	dirs := []string{
		filepath.Join(councilDir, "logs"),
		filepath.Join(councilDir, "conversations"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: ensure %s: %w", dir, err)
		}
	}
	path := filepath.Join(councilDir, configFileName)
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: stat %s: %w", path, err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
			return fmt.Errorf("config: write default config: %w", err)
		}
	}
	return nil
}

// Load reads and validates .council/config.yaml under projectDir.
func Load(projectDir string) (*Config, error) {
	councilDir := filepath.Join(projectDir, CouncilDir)
	path := filepath.Join(councilDir, configFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var project ProjectConfig
	if err := yaml.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg := &Config{
		ProjectDir:        projectDir,
		CouncilProjectDir: councilDir,
		Project:           project,
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	p := &c.Project
	p.Synthesizer = strings.TrimSpace(p.Synthesizer)
	p.Directive = strings.TrimSpace(p.Directive)
	if p.Server.Listen == "" {
		p.Server.Listen = ":8790"
	}
	for i := range p.Participants {
		entry := &p.Participants[i]
		entry.ID = strings.TrimSpace(entry.ID)
		if entry.Provider == "" {
			entry.Provider = "openai"
		}
		if entry.APIKeyEnv == "" {
			entry.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
}

// Validate enforces baseline schema requirements.
func (c *Config) Validate() error {
	p := c.Project
	if p.Version != 1 {
		return fmt.Errorf("config: version %d not supported", p.Version)
	}
	if len(p.Participants) == 0 {
		return fmt.Errorf("config: at least one participant is required")
	}
	seen := map[string]struct{}{}
	for _, entry := range p.Participants {
		if entry.ID == "" {
			return fmt.Errorf("config: participant id is required")
		}
		if entry.Model == "" {
			return fmt.Errorf("config: model is required for %s", entry.ID)
		}
		if _, dup := seen[entry.ID]; dup {
			return fmt.Errorf("config: duplicate participant id %s", entry.ID)
		}
		seen[entry.ID] = struct{}{}
	}
	if p.Synthesizer == "" {
		return fmt.Errorf("config: synthesizer is required")
	}
	if _, ok := seen[p.Synthesizer]; !ok {
		return fmt.Errorf("config: synthesizer %s is not a declared participant", p.Synthesizer)
	}
	if p.Directive != "" {
		known := false
		for _, name := range council.DirectiveNames() {
			if name == p.Directive {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("config: unknown directive %q (known: %s)",
				p.Directive, strings.Join(council.DirectiveNames(), ", "))
		}
	}
	return nil
}

// Participants converts the config entries into roster participants,
// preserving declared order. Enabled defaults to true.
func (c *Config) Participants() []roster.Participant {
	out := make([]roster.Participant, 0, len(c.Project.Participants))
	for _, entry := range c.Project.Participants {
		enabled := true
		if entry.Enabled != nil {
			enabled = *entry.Enabled
		}
		out = append(out, roster.Participant{
			ID:           entry.ID,
			Name:         entry.Name,
			Provider:     entry.Provider,
			Model:        entry.Model,
			BaseURL:      entry.BaseURL,
			APIKeyEnv:    entry.APIKeyEnv,
			SystemPrompt: entry.SystemPrompt,
			StancePrompt: entry.StancePrompt,
			Enabled:      enabled,
		})
	}
	return out
}

// GatewayLimits converts the limits section for the gateway. Zero
// values fall through to the gateway's own defaults.
func (c *Config) GatewayLimits() gateway.Limits {
	l := c.Project.Limits
	limits := gateway.Limits{
		MaxConcurrent: int64(l.MaxConcurrent),
		MaxRetries:    l.MaxRetries,
	}
	if l.CallTimeoutSeconds > 0 {
		limits.CallTimeout = time.Duration(l.CallTimeoutSeconds) * time.Second
	}
	if l.RetryBackoffMillis > 0 {
		limits.RetryBackoff = time.Duration(l.RetryBackoffMillis) * time.Millisecond
	}
	return limits
}

// LogPath is where the operational logbook lives.
func (c *Config) LogPath() string {
	return filepath.Join(c.CouncilProjectDir, "logs", "council.log")
}

// ConversationsDir is where committed turns are persisted.
func (c *Config) ConversationsDir() string {
	return filepath.Join(c.CouncilProjectDir, "conversations")
}
