// Package identity resolves who is speaking to MyMolt — their SIGIL trust
// level, derived role, and the capabilities that role carries — and stores
// the durable identity document ("Soul") those derivations read from.
package identity

import "fmt"

// TrustLevel is the strength of evidence MyMolt has that the current
// session belongs to who it claims to. Three levels, unlike the two-level
// scheme in early prototypes: Low covers an unauthenticated or remote
// caller, Medium a verified-but-remote caller, High a verified local
// session (the device itself vouching for the human in front of it).
type TrustLevel int

const (
	TrustLow TrustLevel = iota
	TrustMedium
	TrustHigh
)

// String renders the trust level the way config files and audit records
// spell it.
func (t TrustLevel) String() string {
	switch t {
	case TrustLow:
		return "low"
	case TrustMedium:
		return "medium"
	case TrustHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ParseTrustLevel parses the lowercase config spelling of a trust level.
func ParseTrustLevel(s string) (TrustLevel, error) {
	switch s {
	case "low", "":
		return TrustLow, nil
	case "medium":
		return TrustMedium, nil
	case "high":
		return TrustHigh, nil
	default:
		return TrustLow, fmt.Errorf("identity: unknown trust level %q", s)
	}
}

// Meets reports whether t satisfies a required minimum level.
func (t TrustLevel) Meets(required TrustLevel) bool {
	return t >= required
}
