// Package vault implements MyMolt's hybrid end-to-end encrypted vault:
// content is sealed with a per-entry ChaCha20-Poly1305 key, and that key is
// in turn wrapped with the vault's RSA public key, so the vault directory
// itself — including its metadata index — can sit in a synced folder or a
// memory backend without exposing plaintext.
package vault

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sentinel errors callers can match with errors.Is.
var (
	// ErrMissingKey is returned by Decrypt when the vault was opened
	// without a private key (encrypt-only / public-key-only mode).
	ErrMissingKey = errors.New("vault: private key not loaded")
	// ErrMalformedEnvelope is returned when an entry's ciphertext does not
	// follow the "<wrapped key>.<nonce||ciphertext>" shape.
	ErrMalformedEnvelope = errors.New("vault: malformed envelope")
	// ErrWrappedKeyRejected is returned when the RSA unwrap step fails —
	// the entry was not sealed for this vault's key pair.
	ErrWrappedKeyRejected = errors.New("vault: wrapped key rejected")
	// ErrTamperedData is returned when AEAD authentication fails — the
	// ciphertext was modified after sealing, or paired with the wrong key.
	ErrTamperedData = errors.New("vault: ciphertext failed authentication")
)

// EntryMeta is the unencrypted index record MyMolt keeps alongside each
// sealed entry, so listing and recall-by-description never need to decrypt.
type EntryMeta struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// Vault stores and retrieves sealed entries under a directory.
type Vault struct {
	dir  string
	pub  *rsa.PublicKey
	priv *rsa.PrivateKey // nil in encrypt-only mode
}

// Open loads a vault rooted at dir. pubKeyPath must exist. privKeyPath may
// be empty or absent — in that case Encrypt still works but Decrypt
// returns ErrMissingKey, matching a deployment that only wants to write to
// the vault from a process that should never be able to read it back.
func Open(dir, pubKeyPath, privKeyPath string) (*Vault, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("vault: creating directory: %w", err)
	}

	pub, err := loadPublicKey(pubKeyPath)
	if err != nil {
		return nil, err
	}

	v := &Vault{dir: dir, pub: pub}

	if privKeyPath != "" {
		priv, err := loadPrivateKey(privKeyPath)
		if err == nil {
			v.priv = priv
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	return v, nil
}

// GenerateKeyPair creates a new RSA key pair and writes it to pubKeyPath /
// privKeyPath as PEM. Intended for first-run provisioning.
func GenerateKeyPair(pubKeyPath, privKeyPath string, bits int) error {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return fmt.Errorf("vault: generating key pair: %w", err)
	}

	privBytes := x509.MarshalPKCS1PrivateKey(priv)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: privBytes})
	if err := os.WriteFile(privKeyPath, privPEM, 0o600); err != nil {
		return fmt.Errorf("vault: writing private key: %w", err)
	}

	pubBytes, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return fmt.Errorf("vault: marshalling public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	if err := os.WriteFile(pubKeyPath, pubPEM, 0o644); err != nil {
		return fmt.Errorf("vault: writing public key: %w", err)
	}

	return nil
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vault: reading public key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("vault: public key %s is not PEM", path)
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("vault: parsing public key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("vault: public key %s is not RSA", path)
	}
	return rsaKey, nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("vault: private key %s is not PEM", path)
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("vault: parsing private key: %w", err)
	}
	return key, nil
}

// Encrypt seals content under a fresh per-entry symmetric key, wraps that
// key with the vault's RSA public key, and writes both the envelope and an
// unencrypted EntryMeta to disk. content is zeroed in place before Encrypt
// returns — callers must not reuse it afterwards.
func (v *Vault) Encrypt(description, category string, content []byte) (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("vault: generating symmetric key: %w", err)
	}
	defer scrub(key)

	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("vault: generating nonce: %w", err)
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return "", fmt.Errorf("vault: constructing AEAD: %w", err)
	}
	ciphertext := aead.Seal(nil, nonce, content, nil)
	scrub(content)

	wrappedKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, v.pub, key, nil)
	if err != nil {
		return "", fmt.Errorf("vault: wrapping symmetric key: %w", err)
	}

	envelope := encodeEnvelope(wrappedKey, nonce, ciphertext)

	id := uuid.NewString()
	if err := os.WriteFile(v.entryPath(id), []byte(envelope), 0o600); err != nil {
		return "", fmt.Errorf("vault: writing entry: %w", err)
	}

	meta := EntryMeta{ID: id, Description: description, Category: category, CreatedAt: time.Now().UTC()}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("vault: marshalling metadata: %w", err)
	}
	if err := os.WriteFile(v.metaPath(id), metaBytes, 0o600); err != nil {
		return "", fmt.Errorf("vault: writing metadata: %w", err)
	}

	return id, nil
}

// Decrypt reverses Encrypt, returning the original plaintext. Returns
// ErrMissingKey, ErrMalformedEnvelope, ErrWrappedKeyRejected, or
// ErrTamperedData (wrapped with context) as appropriate.
func (v *Vault) Decrypt(id string) ([]byte, error) {
	if v.priv == nil {
		return nil, ErrMissingKey
	}

	data, err := os.ReadFile(v.entryPath(id))
	if err != nil {
		return nil, fmt.Errorf("vault: reading entry %s: %w", id, err)
	}

	wrappedKey, nonce, ciphertext, err := decodeEnvelope(string(data))
	if err != nil {
		return nil, err
	}

	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, v.priv, wrappedKey, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrappedKeyRejected, err)
	}
	defer scrub(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("vault: constructing AEAD: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTamperedData, err)
	}

	return plaintext, nil
}

// ListEntries returns every entry's metadata, newest first.
func (v *Vault) ListEntries() ([]EntryMeta, error) {
	files, err := os.ReadDir(v.dir)
	if err != nil {
		return nil, fmt.Errorf("vault: reading directory: %w", err)
	}

	var entries []EntryMeta
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(v.dir, f.Name()))
		if err != nil {
			continue
		}
		var meta EntryMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		entries = append(entries, meta)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	return entries, nil
}

func (v *Vault) entryPath(id string) string {
	return filepath.Join(v.dir, id+".vault")
}

func (v *Vault) metaPath(id string) string {
	return filepath.Join(v.dir, id+".json")
}

func encodeEnvelope(wrappedKey, nonce, ciphertext []byte) string {
	payload := append(append([]byte{}, nonce...), ciphertext...)
	return base64.StdEncoding.EncodeToString(wrappedKey) + "." + base64.StdEncoding.EncodeToString(payload)
}

func decodeEnvelope(envelope string) (wrappedKey, nonce, ciphertext []byte, err error) {
	parts := strings.SplitN(envelope, ".", 2)
	if len(parts) != 2 {
		return nil, nil, nil, ErrMalformedEnvelope
	}

	wrappedKey, err = base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	payload, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if len(payload) < chacha20poly1305.NonceSize {
		return nil, nil, nil, ErrMalformedEnvelope
	}

	nonce = payload[:chacha20poly1305.NonceSize]
	ciphertext = payload[chacha20poly1305.NonceSize:]
	return wrappedKey, nonce, ciphertext, nil
}

// scrub overwrites b in place. Go has no guaranteed zeroize primitive, but
// writing through the slice (rather than merely dropping the reference)
// ensures the backing array no longer holds the plaintext once the last
// reference to it goes away, instead of leaving it to be reclaimed
// verbatim by a later allocation.
func scrub(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
