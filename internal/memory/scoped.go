package memory

import (
	"context"
	"strings"
)

// ScopeShared is the scope every family/workspace member can read,
// regardless of their own personal scope.
const ScopeShared = "shared"

// ScopedMemory adds per-user isolation on top of any Memory backend by
// prefixing keys with a user scope. store() always writes under the
// caller's own scope; recall()/list() return both the caller's scope and
// the shared scope; forget() only ever removes keys from the caller's own
// scope — a user can never erase another user's or the shared memory.
type ScopedMemory struct {
	inner     Memory
	userScope string
}

// NewScopedMemory wraps inner for a single user's scope (e.g. "user:alice").
func NewScopedMemory(inner Memory, userScope string) *ScopedMemory {
	return &ScopedMemory{inner: inner, userScope: userScope}
}

func (s *ScopedMemory) Name() string { return "scoped" }

func (s *ScopedMemory) scopedKey(key string) string {
	return s.userScope + ":" + key
}

func sharedKey(key string) string {
	return ScopeShared + ":" + key
}

func (s *ScopedMemory) Store(ctx context.Context, key, content string, category Category) error {
	return s.inner.Store(ctx, s.scopedKey(key), content, category)
}

func (s *ScopedMemory) Recall(ctx context.Context, query string, limit int) ([]Entry, error) {
	all, err := s.inner.Recall(ctx, query, limit*3)
	if err != nil {
		return nil, err
	}

	userPrefix := s.userScope + ":"
	sharedPrefix := ScopeShared + ":"

	var filtered []Entry
	for _, e := range all {
		switch {
		case strings.HasPrefix(e.Key, userPrefix):
			e.Key = strings.TrimPrefix(e.Key, userPrefix)
		case strings.HasPrefix(e.Key, sharedPrefix):
			e.Key = "[shared] " + strings.TrimPrefix(e.Key, sharedPrefix)
		default:
			continue
		}
		filtered = append(filtered, e)
		if limit > 0 && len(filtered) >= limit {
			break
		}
	}
	return filtered, nil
}

func (s *ScopedMemory) Get(ctx context.Context, key string) (*Entry, error) {
	if e, err := s.inner.Get(ctx, s.scopedKey(key)); err != nil || e != nil {
		return e, err
	}
	return s.inner.Get(ctx, sharedKey(key))
}

func (s *ScopedMemory) List(ctx context.Context, category *Category) ([]Entry, error) {
	all, err := s.inner.List(ctx, category)
	if err != nil {
		return nil, err
	}

	userPrefix := s.userScope + ":"
	sharedPrefix := ScopeShared + ":"

	var out []Entry
	for _, e := range all {
		if strings.HasPrefix(e.Key, userPrefix) || strings.HasPrefix(e.Key, sharedPrefix) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Forget only ever removes a key from the caller's own scope — the shared
// scope and other users' scopes are not reachable through this wrapper.
func (s *ScopedMemory) Forget(ctx context.Context, key string) (bool, error) {
	return s.inner.Forget(ctx, s.scopedKey(key))
}

func (s *ScopedMemory) Count(ctx context.Context) (int, error) {
	entries, err := s.List(ctx, nil)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (s *ScopedMemory) HealthCheck(ctx context.Context) bool {
	return s.inner.HealthCheck(ctx)
}
