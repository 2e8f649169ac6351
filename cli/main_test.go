package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunVersionFlag(t *testing.T) {
	if code := run([]string{"--version"}); code != 0 {
		t.Fatalf("expected exit code 0 for --version, got %d", code)
	}
}

func TestRunVersionCommand(t *testing.T) {
	if code := run([]string{"version"}); code != 0 {
		t.Fatalf("expected exit code 0 for version command, got %d", code)
	}
}

func TestRunNoArgs(t *testing.T) {
	if code := run([]string{}); code != 2 {
		t.Fatalf("expected exit code 2 for no args, got %d", code)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	if code := run([]string{"invalid"}); code != 2 {
		t.Fatalf("expected exit code 2 for unknown command, got %d", code)
	}
}

func TestRunSoulShowOnFreshWorkspace(t *testing.T) {
	dir := t.TempDir()
	if code := run([]string{"--root", dir, "soul", "show"}); code != 0 {
		t.Fatalf("expected exit code 0 for soul show on a fresh workspace, got %d", code)
	}
}

func TestRunSoulBindThenShow(t *testing.T) {
	dir := t.TempDir()
	if code := run([]string{"--root", dir, "soul", "bind", "signal", "+15555550100", "3"}); code != 0 {
		t.Fatalf("expected exit code 0 for soul bind, got %d", code)
	}
	if code := run([]string{"--root", dir, "soul", "bind", "signal", "+15555550100", "3"}); code != 2 {
		t.Fatalf("expected exit code 2 for a duplicate binding, got %d", code)
	}
}

func TestRunSoulDiary(t *testing.T) {
	dir := t.TempDir()
	if code := run([]string{"--root", dir, "soul", "diary", "prefers concise answers"}); code != 0 {
		t.Fatalf("expected exit code 0 for soul diary, got %d", code)
	}
	data, err := os.ReadFile(filepath.Join(dir, "SOUL.md"))
	if err != nil {
		t.Fatalf("reading SOUL.md: %v", err)
	}
	if !strings.Contains(string(data), "prefers concise answers") {
		t.Error("SOUL.md does not contain the appended diary entry")
	}
}

func TestRunVaultEncryptDecryptRoundtrip(t *testing.T) {
	dir := t.TempDir()
	secretPath := filepath.Join(dir, "secret.txt")
	if err := os.WriteFile(secretPath, []byte("sk-abcdefghijklmnopqrstuvwxyz012345"), 0o600); err != nil {
		t.Fatalf("writing secret file: %v", err)
	}

	if code := run([]string{"--root", dir, "vault", "encrypt", "test key", "openai_key", secretPath}); code != 0 {
		t.Fatalf("expected exit code 0 for vault encrypt, got %d", code)
	}
	if code := run([]string{"--root", dir, "vault", "list"}); code != 0 {
		t.Fatalf("expected exit code 0 for vault list, got %d", code)
	}
}

func TestRunAuditTailOnEmptyLog(t *testing.T) {
	dir := t.TempDir()
	if code := run([]string{"--root", dir, "audit", "tail"}); code != 2 {
		t.Fatalf("expected exit code 2 for audit tail before the log exists, got %d", code)
	}
}

func TestRunPolicyCheckDeniedSkill(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mymolt.yaml"), []byte("policy:\n  denied_skills:\n    - dangerous_skill\n"), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if code := run([]string{"--root", dir, "policy", "check", "dangerous_skill"}); code != 1 {
		t.Fatalf("expected exit code 1 for a denied skill, got %d", code)
	}
	if code := run([]string{"--root", dir, "policy", "check", "safe_skill"}); code != 0 {
		t.Fatalf("expected exit code 0 for an allowed skill, got %d", code)
	}
}
