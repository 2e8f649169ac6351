// Package toolsec wraps a tool implementation with MyMolt's security
// policy: skill allowlisting, SIGIL trust gating by tool-name class, and
// interactive confirmation for high-risk actions.
package toolsec

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mymolt/mymolt/internal/confirmation"
	"github.com/mymolt/mymolt/internal/identity"
	"github.com/mymolt/mymolt/internal/policy"
)

// Result is what a gated tool call returns — success is always reported
// through this struct rather than a Go error, so a policy denial reads
// the same to a caller as any other tool failure.
type Result struct {
	Success bool
	Output  string
	Error   string
}

// Tool is the minimal surface SecurityWrapper needs from an underlying
// tool implementation.
type Tool interface {
	Name() string
	Execute(ctx context.Context, args json.RawMessage) (Result, error)
}

// SecurityWrapper enforces the skill allowlist, SIGIL trust gate, and
// confirmation gate in front of an inner Tool.
type SecurityWrapper struct {
	inner       Tool
	policy      *policy.Policy
	trust       identity.TrustLevel
	confirmGate *confirmation.Gate
}

// New wraps inner with p as the security policy and the current session's
// trust level.
func New(inner Tool, p *policy.Policy, trust identity.TrustLevel) *SecurityWrapper {
	return &SecurityWrapper{inner: inner, policy: p, trust: trust}
}

// WithConfirmation attaches a confirmation gate so tools requiring
// interactive approval can actually ask for it. Without one attached,
// such tools are blocked defensively rather than silently allowed.
func (w *SecurityWrapper) WithConfirmation(gate *confirmation.Gate) *SecurityWrapper {
	w.confirmGate = gate
	return w
}

func (w *SecurityWrapper) Name() string { return w.inner.Name() }

// Execute runs the gated call: skill allowlist, then SIGIL trust check by
// tool-name class, then confirmation if the policy requires it for this
// tool, and only then the inner tool itself.
func (w *SecurityWrapper) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	name := w.Name()

	if !w.policy.IsSkillAllowed(name) {
		return Result{Success: false, Error: fmt.Sprintf("Skill '%s' is disabled by security policy.", name)}, nil
	}

	if err := w.checkTrust(name); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("SIGIL trust gate: '%s' blocked — %s", name, err)}, nil
	}

	if w.policy.RequiresConfirmation(name, "execute") {
		if w.confirmGate == nil {
			return Result{Success: false, Error: fmt.Sprintf(
				"Skill '%s' requires user confirmation but no confirmation channel is available.", name)}, nil
		}

		summary := fmt.Sprintf("Tool '%s' wants to execute with args: %s", name, truncateJSON(args, 200))
		approved, _ := w.confirmGate.Request(ctx, name, summary)
		if !approved {
			return Result{Success: false, Error: fmt.Sprintf(
				"User denied confirmation for '%s' (or request timed out).", name)}, nil
		}
	}

	return w.inner.Execute(ctx, args)
}

// checkTrust maps a tool name to the trust requirement the policy defines
// for its class, and checks the session's trust level against it. File,
// git, memory, and screenshot tools are gated entirely by path policy
// elsewhere and require no SIGIL trust check here.
func (w *SecurityWrapper) checkTrust(name string) error {
	switch {
	case name == "delegate":
		return w.policy.CheckTrust(w.trust, w.policy.RequiredTrustForDelegation())
	case name == "shell":
		return w.policy.CheckTrust(w.trust, w.policy.RequiredTrustForShell())
	case name == "http_request" || name == "browser" || name == "browser_open":
		return w.policy.CheckTrust(w.trust, w.policy.RequiredTrustForMCP())
	case strings.HasPrefix(name, "calendar_"), strings.HasPrefix(name, "contacts_"), strings.HasPrefix(name, "notes_"):
		return w.policy.CheckTrust(w.trust, w.policy.RequiredTrustForVault())
	case strings.HasPrefix(name, "mcp:"):
		return w.policy.CheckTrust(w.trust, w.policy.RequiredTrustForMCP())
	default:
		return nil
	}
}

func truncateJSON(args json.RawMessage, max int) string {
	s := string(args)
	if s == "" {
		s = "<unparseable>"
	}
	if len(s) > max {
		return s[:max]
	}
	return s
}
