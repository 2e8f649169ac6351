// Package gatekeeper implements the SIGIL Gatekeeper: the single choke
// point every inbound MCP tool call passes through before it reaches a
// tool implementation.
package gatekeeper

import (
	"context"
	"fmt"
	"time"

	"github.com/mymolt/mymolt/internal/auditlog"
	"github.com/mymolt/mymolt/internal/policy"
	"golang.org/x/time/rate"
)

// Gatekeeper wraps MCP tool calls with rate limiting and audit logging.
// The audit logger is optional: a Gatekeeper with none attached still
// gates correctly, it simply has nothing to log to.
type Gatekeeper struct {
	policy  *policy.Policy
	audit   *auditlog.Logger
	limiter *rate.Limiter
}

// Option configures a Gatekeeper at construction time.
type Option func(*Gatekeeper)

// WithAuditLogger attaches an audit log sink.
func WithAuditLogger(l *auditlog.Logger) Option {
	return func(g *Gatekeeper) { g.audit = l }
}

// WithBurstLimiter adds a token-bucket limiter as defense-in-depth on top
// of the policy's sliding-window check — useful to smooth bursts within
// a single second that the hourly window wouldn't catch until too late.
func WithBurstLimiter(requestsPerSecond float64, burst int) Option {
	return func(g *Gatekeeper) { g.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst) }
}

// New builds a Gatekeeper around a SecurityPolicy.
func New(p *policy.Policy, opts ...Option) *Gatekeeper {
	g := &Gatekeeper{policy: p}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GateRequest authorizes a single inbound MCP tool call by name. It
// records the call against the policy's sliding-window rate limiter and,
// if a burst limiter is configured, against the token bucket too. A
// denial is always audited as a PolicyViolation; an allowed call is
// audited as a low-severity SecurityEvent.
func (g *Gatekeeper) GateRequest(ctx context.Context, toolName string) error {
	if !g.policy.RecordAction(time.Now()) {
		g.log(auditlog.New(auditlog.PolicyViolation).
			WithAction(fmt.Sprintf("mcp:%s", toolName), "high", false, false))
		return fmt.Errorf("rate limit exceeded for MCP tool '%s'", toolName)
	}

	if g.limiter != nil && !g.limiter.Allow() {
		g.log(auditlog.New(auditlog.PolicyViolation).
			WithAction(fmt.Sprintf("mcp:%s", toolName), "high", false, false))
		return fmt.Errorf("rate limit exceeded for MCP tool '%s'", toolName)
	}

	g.log(auditlog.New(auditlog.SecurityEvent).
		WithAction(fmt.Sprintf("mcp:%s", toolName), "low", true, true))
	return nil
}

func (g *Gatekeeper) log(e auditlog.Event) {
	if g.audit != nil {
		g.audit.Log(e)
	}
}
