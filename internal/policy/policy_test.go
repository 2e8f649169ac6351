package policy

import (
	"testing"
	"time"

	"github.com/mymolt/mymolt/internal/config"
	"github.com/mymolt/mymolt/internal/identity"
)

func testPolicy(t *testing.T) *Policy {
	t.Helper()
	cfg := config.PolicySettings{
		DeniedSkills:    []string{"dangerous_skill"},
		DeniedCommands:  []string{"rm -rf /"},
		ConfirmSkills:   []string{"delegate"},
		MaxActionsPerHr: 3,
		Trust: config.TrustSettings{
			Delegation: "high",
			Shell:      "low",
			MCP:        "medium",
			Vault:      "high",
		},
	}
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestIsSkillAllowed(t *testing.T) {
	p := testPolicy(t)
	if p.IsSkillAllowed("dangerous_skill") {
		t.Error("dangerous_skill should be denied")
	}
	if !p.IsSkillAllowed("shell") {
		t.Error("shell should be allowed with no allowlist configured")
	}
}

func TestIsSkillAllowedWithAllowlist(t *testing.T) {
	cfg := config.PolicySettings{AllowedSkills: []string{"shell", "vault"}}
	p, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsSkillAllowed("shell") {
		t.Error("shell should be allowed")
	}
	if p.IsSkillAllowed("delegate") {
		t.Error("delegate should be denied, not in allowlist")
	}
}

func TestIsPathAllowed(t *testing.T) {
	cfg := config.PolicySettings{AllowedPaths: []string{"/home/user/project"}}
	p, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsPathAllowed("/home/user/project/src/main.go") {
		t.Error("expected path under allowed root to be allowed")
	}
	if p.IsPathAllowed("/etc/passwd") {
		t.Error("expected path outside allowed roots to be denied")
	}
}

func TestIsCommandAllowed(t *testing.T) {
	p := testPolicy(t)
	if p.IsCommandAllowed("rm -rf / --no-preserve-root") {
		t.Error("expected denied command substring to be rejected")
	}
	if !p.IsCommandAllowed("ls -la") {
		t.Error("expected ls to be allowed")
	}
}

func TestCommandRiskLevel(t *testing.T) {
	p := testPolicy(t)
	cases := []struct {
		command string
		want    string
	}{
		{"sudo rm -rf /tmp/x", "high"},
		{"git push --force origin main", "medium"},
		{"ls -la", "low"},
	}
	for _, c := range cases {
		if got := p.CommandRiskLevel(c.command); got != c.want {
			t.Errorf("CommandRiskLevel(%q) = %s, want %s", c.command, got, c.want)
		}
	}
}

func TestRequiresConfirmation(t *testing.T) {
	p := testPolicy(t)
	if !p.RequiresConfirmation("delegate", "") {
		t.Error("delegate skill should always require confirmation")
	}
	if !p.RequiresConfirmation("shell", "sudo rm -rf /tmp") {
		t.Error("high risk command should require confirmation")
	}
	if p.RequiresConfirmation("shell", "ls -la") {
		t.Error("low risk command should not require confirmation")
	}
}

func TestCheckTrust(t *testing.T) {
	p := testPolicy(t)
	if err := p.CheckTrust(identity.TrustHigh, p.RequiredTrustForDelegation()); err != nil {
		t.Errorf("expected high trust to satisfy delegation requirement: %v", err)
	}
	if err := p.CheckTrust(identity.TrustLow, p.RequiredTrustForDelegation()); err == nil {
		t.Error("expected low trust to fail delegation requirement")
	}
}

func TestRecordActionSlidingWindowBoundary(t *testing.T) {
	p := testPolicy(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if !p.RecordAction(now) {
		t.Fatal("1st action should be allowed")
	}
	if !p.RecordAction(now.Add(time.Minute)) {
		t.Fatal("2nd action should be allowed")
	}
	if !p.RecordAction(now.Add(2 * time.Minute)) {
		t.Fatal("3rd action should be allowed (at MaxActionsPerHr)")
	}
	if p.RecordAction(now.Add(3 * time.Minute)) {
		t.Fatal("4th action within the hour should be denied")
	}
	if got := p.ActionsInWindow(); got != 3 {
		t.Errorf("ActionsInWindow = %d, want 3", got)
	}

	// Once the first action ages out past an hour, a slot frees up.
	if !p.RecordAction(now.Add(61 * time.Minute)) {
		t.Fatal("action after the window should be allowed once the oldest entry expires")
	}
}
