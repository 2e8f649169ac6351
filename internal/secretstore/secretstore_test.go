package secretstore

import (
	"errors"
	"testing"
)

func TestNewWithoutAllowInitFailsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir, false)
	if !errors.Is(err, ErrMissingKey) {
		t.Fatalf("err = %v, want ErrMissingKey", err)
	}
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, true)
	if err != nil {
		t.Fatal(err)
	}

	encrypted, err := store.Encrypt("top-secret")
	if err != nil {
		t.Fatal(err)
	}
	decrypted, err := store.Decrypt(encrypted)
	if err != nil {
		t.Fatal(err)
	}
	if decrypted != "top-secret" {
		t.Errorf("decrypted = %q, want top-secret", decrypted)
	}
}

func TestReopenReusesExistingKey(t *testing.T) {
	dir := t.TempDir()
	a, err := New(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	encrypted, err := a.Encrypt("shared-secret")
	if err != nil {
		t.Fatal(err)
	}

	b, err := New(dir, false)
	if err != nil {
		t.Fatalf("reopening existing store should not require allowInit: %v", err)
	}
	decrypted, err := b.Decrypt(encrypted)
	if err != nil {
		t.Fatal(err)
	}
	if decrypted != "shared-secret" {
		t.Errorf("decrypted = %q, want shared-secret", decrypted)
	}
}

func TestDecryptMalformedCiphertext(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Decrypt("not-valid-base64!!!"); !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}
