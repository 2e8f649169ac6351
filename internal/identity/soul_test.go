package identity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeSoul(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "SOUL.md")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SOUL.md")
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.Bindings) != 0 || len(s.DiaryEntries) != 0 {
		t.Errorf("expected empty soul, got %+v", s)
	}
}

func TestLoadParsesBindingsAndDiary(t *testing.T) {
	content := `# Soul

Some freeform biography the human wrote.

## Identity Bindings

- **telegram**: 12345 (Level 3)
- **signal**: +1555 (Level 1)

## Diary

- **2026-01-02 09:30**: Learned the user prefers terse answers.

## Notes

Unmanaged section, left alone.
`
	path := writeSoul(t, t.TempDir(), content)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(s.Bindings) != 2 {
		t.Fatalf("Bindings = %+v, want 2 entries", s.Bindings)
	}
	if s.Bindings[0].Provider != "telegram" || s.Bindings[0].Level != 3 {
		t.Errorf("Bindings[0] = %+v", s.Bindings[0])
	}
	if s.MaxTrustLevel() != TrustHigh {
		t.Errorf("MaxTrustLevel = %s, want high", s.MaxTrustLevel())
	}

	if len(s.DiaryEntries) != 1 {
		t.Fatalf("DiaryEntries = %+v", s.DiaryEntries)
	}
	if s.DiaryEntries[0].Content != "Learned the user prefers terse answers." {
		t.Errorf("DiaryEntries[0].Content = %q", s.DiaryEntries[0].Content)
	}
}

func TestAddBindingRejectsDuplicate(t *testing.T) {
	path := writeSoul(t, t.TempDir(), "# Soul\n")
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AddBinding("telegram", "1", 3); err != nil {
		t.Fatalf("AddBinding: %v", err)
	}
	if err := s.AddBinding("telegram", "1", 1); err == nil {
		t.Fatal("expected error on duplicate binding")
	}
}

func TestSavePreservesUnmanagedContentAndRewritesOnEverySave(t *testing.T) {
	dir := t.TempDir()
	content := `# Soul

Biography line that must survive every save.

## Identity Bindings

- **telegram**: old (Level 1)
`
	path := writeSoul(t, dir, content)
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	// First save: add a binding.
	if err := s.AddBinding("signal", "new", 3); err != nil {
		t.Fatalf("AddBinding: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, "Biography line that must survive every save.") {
		t.Errorf("unmanaged content lost: %s", text)
	}
	if !strings.Contains(text, "telegram") || !strings.Contains(text, "signal") {
		t.Errorf("expected both bindings present: %s", text)
	}

	// Reload fresh and save again — this is the behavior the original
	// implementation's "only write if missing" bug broke: a second save
	// must still take effect.
	s2, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s2.AppendDiaryEntry(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), "second save sanity check"); err != nil {
		t.Fatalf("AppendDiaryEntry: %v", err)
	}

	data2, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text2 := string(data2)
	if !strings.Contains(text2, "second save sanity check") {
		t.Errorf("second save did not take effect: %s", text2)
	}
	if !strings.Contains(text2, "Biography line that must survive every save.") {
		t.Errorf("unmanaged content lost on second save: %s", text2)
	}
}
