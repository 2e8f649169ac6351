// Package secretstore implements a lightweight, symmetric at-rest secret
// store for small application secrets (API tokens, session cookies) that
// don't warrant the vault's asymmetric envelope — just authenticated
// encryption under a single workspace-local key.
package secretstore

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrMissingKey is returned by New when no key file exists and allowInit
// is false — the caller asked not to silently provision one.
var ErrMissingKey = errors.New("secretstore: no key present and initialization not allowed")

// ErrMalformed is returned by Decrypt when the ciphertext isn't valid
// base64 or is shorter than a nonce.
var ErrMalformed = errors.New("secretstore: malformed ciphertext")

const keyFileName = "secret.key"

// Store encrypts and decrypts small secrets under a single symmetric key
// held in dir/secret.key.
type Store struct {
	key []byte
}

// New opens the store rooted at dir. If no key file exists, it is created
// only when allowInit is true; otherwise New returns ErrMissingKey. This
// mirrors a long-running daemon's first-boot provisioning path versus a
// one-shot CLI invocation that must not conjure secrets out of thin air.
func New(dir string, allowInit bool) (*Store, error) {
	path := filepath.Join(dir, keyFileName)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("secretstore: key file %s has wrong length", path)
		}
		return &Store{key: data}, nil

	case os.IsNotExist(err):
		if !allowInit {
			return nil, ErrMissingKey
		}
		key := make([]byte, chacha20poly1305.KeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("secretstore: generating key: %w", err)
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("secretstore: creating %s: %w", dir, err)
		}
		if err := os.WriteFile(path, key, 0o600); err != nil {
			return nil, fmt.Errorf("secretstore: writing key file: %w", err)
		}
		return &Store{key: key}, nil

	default:
		return nil, fmt.Errorf("secretstore: reading key file %s: %w", path, err)
	}
}

// Encrypt seals plaintext and returns a base64-encoded nonce||ciphertext
// blob suitable for storing in a config file or environment value.
func (s *Store) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.New(s.key)
	if err != nil {
		return "", fmt.Errorf("secretstore: building cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secretstore: generating nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	blob := append(nonce, sealed...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt reverses Encrypt. It returns ErrMalformed for ciphertext that
// isn't valid base64 or too short to contain a nonce, and the AEAD's own
// authentication error if the ciphertext was tampered with.
func (s *Store) Decrypt(encoded string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrMalformed
	}

	aead, err := chacha20poly1305.New(s.key)
	if err != nil {
		return "", fmt.Errorf("secretstore: building cipher: %w", err)
	}
	if len(blob) < aead.NonceSize() {
		return "", ErrMalformed
	}

	nonce, ciphertext := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("secretstore: decrypting: %w", err)
	}
	return string(plaintext), nil
}
