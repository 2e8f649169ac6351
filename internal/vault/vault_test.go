package vault

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
}

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	dir := t.TempDir()
	pub := filepath.Join(dir, "vault.pub")
	priv := filepath.Join(dir, "vault.key")
	if err := GenerateKeyPair(pub, priv, 2048); err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	v, err := Open(filepath.Join(dir, "entries"), pub, priv)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return v
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	v := newTestVault(t)

	content := []byte("sk-supersecretkeymaterial1234567890")
	id, err := v.Encrypt("an openai key", "secret", content)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	plaintext, err := v.Decrypt(id)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(plaintext) != "sk-supersecretkeymaterial1234567890" {
		t.Errorf("Decrypt roundtrip mismatch: %q", plaintext)
	}
}

func TestEncryptScrubsPlaintext(t *testing.T) {
	v := newTestVault(t)

	content := []byte("scrub me please")
	if _, err := v.Encrypt("desc", "secret", content); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	for i, b := range content {
		if b != 0 {
			t.Fatalf("content[%d] = %d, want 0 (scrubbed)", i, b)
		}
	}
}

func TestDecryptWithoutPrivateKey(t *testing.T) {
	dir := t.TempDir()
	pub := filepath.Join(dir, "vault.pub")
	priv := filepath.Join(dir, "vault.key")
	if err := GenerateKeyPair(pub, priv, 2048); err != nil {
		t.Fatal(err)
	}

	writer, err := Open(filepath.Join(dir, "entries"), pub, priv)
	if err != nil {
		t.Fatal(err)
	}
	id, err := writer.Encrypt("desc", "secret", []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}

	readOnly, err := Open(filepath.Join(dir, "entries"), pub, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := readOnly.Decrypt(id); !errors.Is(err, ErrMissingKey) {
		t.Errorf("Decrypt without key = %v, want ErrMissingKey", err)
	}
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	v := newTestVault(t)
	id, err := v.Encrypt("desc", "secret", []byte("original content"))
	if err != nil {
		t.Fatal(err)
	}

	path := v.entryPath(id)
	// Flip the last character of the base64 ciphertext half.
	data := readFile(t, path)
	data[len(data)-2] ^= 0xFF
	writeFile(t, path, data)

	if _, err := v.Decrypt(id); err == nil {
		t.Fatal("expected tampered ciphertext to fail decryption")
	}
}

func TestListEntriesSortedNewestFirst(t *testing.T) {
	v := newTestVault(t)
	id1, err := v.Encrypt("first", "secret", []byte("one"))
	if err != nil {
		t.Fatal(err)
	}
	id2, err := v.Encrypt("second", "secret", []byte("two"))
	if err != nil {
		t.Fatal(err)
	}

	entries, err := v.ListEntries()
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ListEntries returned %d entries, want 2", len(entries))
	}
	ids := map[string]bool{id1: true, id2: true}
	for _, e := range entries {
		if !ids[e.ID] {
			t.Errorf("unexpected entry id %s", e.ID)
		}
	}
}

func TestListEntriesEmpty(t *testing.T) {
	v := newTestVault(t)
	entries, err := v.ListEntries()
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("ListEntries on empty vault = %d entries, want 0", len(entries))
	}
}
