package memory

import (
	"context"
	"fmt"

	"github.com/mymolt/mymolt/internal/auditlog"
	"github.com/mymolt/mymolt/internal/scanner"
	"github.com/mymolt/mymolt/internal/vault"
)

// categoryVaultTag marks SovereignMemory's own bookkeeping writes (the
// vault's metadata index) so a Store call carrying this tag passes through
// untouched instead of being re-scanned — otherwise the vault's own index
// writes would recurse into themselves.
const categoryVaultTag = "vault"

// SovereignMemory is the Guard: it wraps an inner Memory backend and
// intercepts every Store call. Content that trips the sensitivity scanner
// is encrypted into the vault and replaced, in the inner backend, with an
// opaque pointer — the plaintext secret never reaches cleartext storage.
type SovereignMemory struct {
	inner   Memory
	vault   *vault.Vault
	scanner *scanner.Scanner
	audit   *auditlog.Logger
}

// NewSovereignMemory wraps inner with sensitivity scanning and vaulting.
func NewSovereignMemory(inner Memory, v *vault.Vault, audit *auditlog.Logger) *SovereignMemory {
	return &SovereignMemory{inner: inner, vault: v, scanner: scanner.New(), audit: audit}
}

func (s *SovereignMemory) Name() string { return "sovereign" }

func (s *SovereignMemory) Store(ctx context.Context, key, content string, category Category) error {
	if category.Kind == "custom" && category.Custom == categoryVaultTag {
		return s.inner.Store(ctx, key, content, category)
	}

	match, found := s.scanner.FindFirst(content)
	if !found {
		return s.inner.Store(ctx, key, content, category)
	}

	description := fmt.Sprintf("Vaulted content for %s: %s", key, match.Category)
	id, err := s.vault.Encrypt(description, string(match.Category), []byte(content))
	if err != nil {
		return fmt.Errorf("sovereign memory: vaulting %s: %w", key, err)
	}

	// Index the vault entry's metadata in the inner backend under its own
	// reserved category, which the bypass check above lets straight
	// through instead of re-scanning it.
	indexKey := fmt.Sprintf("vault:%s", id)
	if err := s.inner.Store(ctx, indexKey, description, CategoryCustom(categoryVaultTag)); err != nil {
		return fmt.Errorf("sovereign memory: indexing vault entry %s: %w", id, err)
	}

	pointer := fmt.Sprintf("[VAULT: %s - Access Required]", match.Category)

	if s.audit != nil {
		s.audit.Log(auditlog.New(auditlog.SigilInterception).
			WithAction(fmt.Sprintf("Redacted %s from memory", match.Category), "low", true, true))
	}

	return s.inner.Store(ctx, key, pointer, category)
}

func (s *SovereignMemory) Recall(ctx context.Context, query string, limit int) ([]Entry, error) {
	return s.inner.Recall(ctx, query, limit)
}

func (s *SovereignMemory) Get(ctx context.Context, key string) (*Entry, error) {
	return s.inner.Get(ctx, key)
}

func (s *SovereignMemory) List(ctx context.Context, category *Category) ([]Entry, error) {
	return s.inner.List(ctx, category)
}

func (s *SovereignMemory) Forget(ctx context.Context, key string) (bool, error) {
	return s.inner.Forget(ctx, key)
}

func (s *SovereignMemory) Count(ctx context.Context) (int, error) {
	return s.inner.Count(ctx)
}

func (s *SovereignMemory) HealthCheck(ctx context.Context) bool {
	return s.inner.HealthCheck(ctx)
}
