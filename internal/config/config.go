// Package config loads MyMolt's project-level configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// TrustSettings controls the minimum SIGIL trust level required for each
// sensitive capability class. Values are parsed into identity.TrustLevel
// by the caller; kept as strings here so the YAML stays human-editable.
type TrustSettings struct {
	Delegation string `yaml:"delegation"`
	Shell      string `yaml:"shell"`
	MCP        string `yaml:"mcp"`
	Vault      string `yaml:"vault"`
}

// PolicySettings controls the Security Policy's static allow/deny lists and
// rate limiting.
type PolicySettings struct {
	AllowedSkills    []string      `yaml:"allowed_skills"`
	DeniedSkills     []string      `yaml:"denied_skills"`
	AllowedPaths     []string      `yaml:"allowed_paths"`
	DeniedCommands   []string      `yaml:"denied_commands"`
	MaxActionsPerHr  int           `yaml:"max_actions_per_hour"`
	Trust            TrustSettings `yaml:"trust"`
	ConfirmCommands  []string      `yaml:"confirm_commands"`
	ConfirmSkills    []string      `yaml:"confirm_skills"`
	ConfirmTimeoutSec int          `yaml:"confirm_timeout_seconds"`
}

// VaultSettings controls where vault entries and the private key live.
type VaultSettings struct {
	Directory  string `yaml:"directory"`
	KeyPath    string `yaml:"key_path"`
	PublicKeyPath string `yaml:"public_key_path"`
}

// AuditSettings controls where the append-only audit log is written.
type AuditSettings struct {
	Path string `yaml:"path"`
}

// IdentitySettings points at the Soul markdown document.
type IdentitySettings struct {
	SoulPath string `yaml:"soul_path"`
	AgeHint  int    `yaml:"age_hint"`
}

// MCPSettings controls the MCP server front door.
type MCPSettings struct {
	AllowedWorkspaces []string `yaml:"allowed_workspaces"`
}

// Config holds project-level configuration loaded from mymolt.yaml.
type Config struct {
	Policy   PolicySettings   `yaml:"policy"`
	Vault    VaultSettings    `yaml:"vault"`
	Audit    AuditSettings    `yaml:"audit"`
	Identity IdentitySettings `yaml:"identity"`
	MCP      MCPSettings      `yaml:"mcp"`
}

// DefaultConfig returns a Config with MyMolt's conservative defaults: the
// shell is gated behind Low trust, delegation and vault access behind High,
// and a 20-actions-per-hour sliding window.
func DefaultConfig() *Config {
	return &Config{
		Policy: PolicySettings{
			MaxActionsPerHr:   20,
			ConfirmTimeoutSec: 120,
			Trust: TrustSettings{
				Delegation: "high",
				Shell:      "low",
				MCP:        "medium",
				Vault:      "high",
			},
		},
		Vault: VaultSettings{
			Directory:     "vault",
			KeyPath:       "vault.key",
			PublicKeyPath: "vault.pub",
		},
		Audit: AuditSettings{
			Path: "audit.ndjson",
		},
		Identity: IdentitySettings{
			SoulPath: "SOUL.md",
		},
	}
}

// Load reads mymolt.yaml from root and returns the parsed config merged onto
// the defaults. If the file does not exist, DefaultConfig is returned with
// no error — MyMolt runs safely with no project configuration present.
func Load(root string) (*Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(root, "mymolt.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg, nil
}

// ResolvePath joins a possibly-relative config path against root. Absolute
// paths are returned unchanged.
func ResolvePath(root, path string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
