package identity

import "testing"

func TestResolveRole(t *testing.T) {
	override := RoleRoot

	cases := []struct {
		name string
		in   RoleInput
		want Role
	}{
		{"explicit override wins", RoleInput{MaxTrustLevel: TrustLow, ExplicitOverride: &override}, RoleRoot},
		{"young age forces child", RoleInput{MaxTrustLevel: TrustHigh, IsLocalSession: true, UserAgeHint: 10}, RoleChild},
		{"high trust local is root", RoleInput{MaxTrustLevel: TrustHigh, IsLocalSession: true}, RoleRoot},
		{"high trust remote is adult", RoleInput{MaxTrustLevel: TrustHigh, IsLocalSession: false}, RoleAdult},
		{"medium trust is adult", RoleInput{MaxTrustLevel: TrustMedium}, RoleAdult},
		{"low trust senior age", RoleInput{MaxTrustLevel: TrustLow, UserAgeHint: 70}, RoleSenior},
		{"low trust default child", RoleInput{MaxTrustLevel: TrustLow}, RoleChild},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ResolveRole(c.in); got != c.want {
				t.Errorf("ResolveRole(%+v) = %s, want %s", c.in, got, c.want)
			}
		})
	}
}

func TestCapabilitiesFor(t *testing.T) {
	root := CapabilitiesFor(RoleRoot)
	if !root.CanUseShell || !root.CanDelegate || !root.CanConfigureMCP {
		t.Errorf("root capabilities incomplete: %+v", root)
	}

	child := CapabilitiesFor(RoleChild)
	if child.CanUseShell || child.CanDelegate || child.CanAccessVault {
		t.Errorf("child capabilities too broad: %+v", child)
	}

	senior := CapabilitiesFor(RoleSenior)
	if !senior.VoiceFirst || !senior.CanAccessVault {
		t.Errorf("senior capabilities missing voice-first/vault: %+v", senior)
	}
	if senior.CanUseShell {
		t.Errorf("senior should not get shell access: %+v", senior)
	}
}
