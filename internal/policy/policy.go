// Package policy implements MyMolt's Security Policy: pure, in-memory
// checks a tool call passes through before execution. Every method here
// is deliberately allocation-light and lock-held-briefly — these run on
// every tool invocation and must stay well under a millisecond.
package policy

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mymolt/mymolt/internal/config"
	"github.com/mymolt/mymolt/internal/identity"
)

// highRiskCommandTokens flags shell invocations whose blast radius goes
// beyond the calling workspace.
var highRiskCommandTokens = []string{
	"rm -rf", "sudo", "mkfs", "dd if=", ":(){ :|:& };:", "curl ", "wget ",
	"chmod -R 777", "> /dev/sd",
}

var mediumRiskCommandTokens = []string{
	"git push --force", "npm publish", "docker push", "kubectl delete",
}

// Policy holds the static allow/deny configuration and the live rate
// limiter state for one MyMolt session.
type Policy struct {
	allowedSkills map[string]bool // nil/empty means "no explicit allowlist"
	deniedSkills  map[string]bool
	allowedPaths  []string
	deniedCommandSubstrings []string
	confirmSkills map[string]bool
	confirmCommandSubstrings []string

	trustDelegation identity.TrustLevel
	trustShell      identity.TrustLevel
	trustMCP        identity.TrustLevel
	trustVault      identity.TrustLevel

	maxActionsPerHour int

	mu          sync.Mutex
	actionTimes []time.Time
}

// New builds a Policy from project configuration.
func New(cfg config.PolicySettings) (*Policy, error) {
	delegation, err := identity.ParseTrustLevel(cfg.Trust.Delegation)
	if err != nil {
		return nil, err
	}
	shell, err := identity.ParseTrustLevel(cfg.Trust.Shell)
	if err != nil {
		return nil, err
	}
	mcp, err := identity.ParseTrustLevel(cfg.Trust.MCP)
	if err != nil {
		return nil, err
	}
	vault, err := identity.ParseTrustLevel(cfg.Trust.Vault)
	if err != nil {
		return nil, err
	}

	p := &Policy{
		allowedSkills:            toSet(cfg.AllowedSkills),
		deniedSkills:             toSet(cfg.DeniedSkills),
		allowedPaths:             cfg.AllowedPaths,
		deniedCommandSubstrings:  cfg.DeniedCommands,
		confirmSkills:            toSet(cfg.ConfirmSkills),
		confirmCommandSubstrings: cfg.ConfirmCommands,
		trustDelegation:          delegation,
		trustShell:               shell,
		trustMCP:                 mcp,
		trustVault:               vault,
		maxActionsPerHour:        cfg.MaxActionsPerHr,
	}
	return p, nil
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, i := range items {
		set[i] = true
	}
	return set
}

// IsSkillAllowed reports whether a named tool/skill may run at all. An
// explicit deny always wins; an explicit allowlist (if configured) is
// otherwise authoritative; absent both, every skill is allowed.
func (p *Policy) IsSkillAllowed(name string) bool {
	if p.deniedSkills[name] {
		return false
	}
	if len(p.allowedSkills) > 0 {
		return p.allowedSkills[name]
	}
	return true
}

// IsPathAllowed reports whether path falls under one of the configured
// allowed workspace roots. No configured roots means every path is
// allowed — MyMolt defers that judgment to the OS-level sandbox.
func (p *Policy) IsPathAllowed(path string) bool {
	if len(p.allowedPaths) == 0 {
		return true
	}
	for _, root := range p.allowedPaths {
		if strings.HasPrefix(path, root) {
			return true
		}
	}
	return false
}

// IsCommandAllowed reports whether a shell command line is permitted to
// run at all, independent of risk level or confirmation.
func (p *Policy) IsCommandAllowed(command string) bool {
	for _, denied := range p.deniedCommandSubstrings {
		if strings.Contains(command, denied) {
			return false
		}
	}
	return true
}

// CommandRiskLevel classifies a shell command's blast radius.
func (p *Policy) CommandRiskLevel(command string) string {
	for _, tok := range highRiskCommandTokens {
		if strings.Contains(command, tok) {
			return "high"
		}
	}
	for _, tok := range mediumRiskCommandTokens {
		if strings.Contains(command, tok) {
			return "medium"
		}
	}
	return "low"
}

// RequiresConfirmation reports whether invoking name (for the given
// action, typically "execute") must be gated behind an explicit human
// confirmation before it proceeds.
func (p *Policy) RequiresConfirmation(name, action string) bool {
	if p.confirmSkills[name] {
		return true
	}
	if action == "" {
		return false
	}
	for _, tok := range p.confirmCommandSubstrings {
		if strings.Contains(action, tok) {
			return true
		}
	}
	return p.CommandRiskLevel(action) == "high"
}

// CheckTrust returns an error describing the shortfall if current does
// not meet required, and nil otherwise.
func (p *Policy) CheckTrust(current, required identity.TrustLevel) error {
	if current.Meets(required) {
		return nil
	}
	return fmt.Errorf("requires %s trust, session has %s", required, current)
}

// RequiredTrustForDelegation, RequiredTrustForShell, RequiredTrustForMCP,
// and RequiredTrustForVault expose the capability-to-trust mapping loaded
// from configuration.
func (p *Policy) RequiredTrustForDelegation() identity.TrustLevel { return p.trustDelegation }
func (p *Policy) RequiredTrustForShell() identity.TrustLevel      { return p.trustShell }
func (p *Policy) RequiredTrustForMCP() identity.TrustLevel        { return p.trustMCP }
func (p *Policy) RequiredTrustForVault() identity.TrustLevel      { return p.trustVault }

// RecordAction applies the sliding-window rate limit: it prunes actions
// older than one hour from now, then — if fewer than MaxActionsPerHour
// remain — records this action and allows it. Exactly MaxActionsPerHour
// actions within any trailing hour are allowed; the action that would make
// it MaxActionsPerHour+1 is the first one denied, so the boundary sits
// between the k-th and (k+1)-th action, not before the k-th.
func (p *Policy) RecordAction(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := now.Add(-time.Hour)
	kept := p.actionTimes[:0]
	for _, t := range p.actionTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	p.actionTimes = kept

	if len(p.actionTimes) >= p.maxActionsPerHour {
		return false
	}
	p.actionTimes = append(p.actionTimes, now)
	return true
}

// ActionsInWindow returns how many actions are currently counted within
// the trailing hour, for diagnostics and tests.
func (p *Policy) ActionsInWindow() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.actionTimes)
}
