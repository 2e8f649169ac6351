package identity

// Role is the coarse-grained user category derived from session evidence.
// Roles are never assigned directly — only ever derived by ResolveRole —
// so that a misconfigured caller cannot simply claim Root.
type Role int

const (
	RoleChild Role = iota
	RoleSenior
	RoleAdult
	RoleRoot
)

func (r Role) String() string {
	switch r {
	case RoleChild:
		return "child"
	case RoleSenior:
		return "senior"
	case RoleAdult:
		return "adult"
	case RoleRoot:
		return "root"
	default:
		return "unknown"
	}
}

// RoleInput is the evidence ResolveRole derives a Role from.
type RoleInput struct {
	MaxTrustLevel   TrustLevel
	IsLocalSession  bool
	UserAgeHint     int // 0 means unknown/not provided
	ExplicitOverride *Role
}

// ResolveRole derives a Role from session evidence. Precedence, highest
// first:
//  1. an explicit override always wins (an operator pinning a session's
//     role out-of-band, e.g. a kiosk account).
//  2. an age hint under 16 forces Child regardless of trust.
//  3. High trust on a local session resolves to Root — the device itself
//     is vouching for the person sitting at it.
//  4. High trust on a remote session resolves to Adult — verified, but
//     not physically present, so Root's unrestricted shell/delegation
//     access is withheld.
//  5. Medium trust resolves to Adult.
//  6. Low trust resolves to Senior if the age hint is 65 or older
//     (accessibility-first defaults), otherwise Child (the most
//     conservative capability set for an unverified caller).
func ResolveRole(in RoleInput) Role {
	if in.ExplicitOverride != nil {
		return *in.ExplicitOverride
	}
	if in.UserAgeHint > 0 && in.UserAgeHint < 16 {
		return RoleChild
	}
	switch in.MaxTrustLevel {
	case TrustHigh:
		if in.IsLocalSession {
			return RoleRoot
		}
		return RoleAdult
	case TrustMedium:
		return RoleAdult
	default: // TrustLow
		if in.UserAgeHint >= 65 {
			return RoleSenior
		}
		return RoleChild
	}
}

// Capabilities is the set of permissions a Role carries. Tools and the
// Security Policy consult this instead of branching on Role directly, so
// that adding a capability never requires touching every call site.
type Capabilities struct {
	CanUseShell           bool
	CanDelegate           bool
	CanAccessVault        bool
	CanConfigureMCP       bool
	CanBrowseUnrestricted bool
	CanManagePIM          bool
	CanViewAuditLog       bool
	VoiceFirst            bool
}

// CapabilitiesFor returns the capability set for a role.
func CapabilitiesFor(r Role) Capabilities {
	switch r {
	case RoleRoot:
		return Capabilities{
			CanUseShell:           true,
			CanDelegate:           true,
			CanAccessVault:        true,
			CanConfigureMCP:       true,
			CanBrowseUnrestricted: true,
			CanManagePIM:          true,
			CanViewAuditLog:       true,
		}
	case RoleAdult:
		return Capabilities{
			CanUseShell:           true,
			CanDelegate:           true,
			CanAccessVault:        true,
			CanBrowseUnrestricted: true,
			CanManagePIM:          true,
			CanViewAuditLog:       true,
		}
	case RoleSenior:
		return Capabilities{
			CanAccessVault: true,
			CanManagePIM:   true,
			VoiceFirst:     true,
		}
	default: // RoleChild
		return Capabilities{}
	}
}
