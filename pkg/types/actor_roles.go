package types

import "strings"

const (
	// ActorRoleSystemAdmin represents site-wide administrators with unrestricted access.
	ActorRoleSystemAdmin = "system_admin"
	// ActorRoleSupport represents support agents limited to read access on other owners.
	ActorRoleSupport = "support"
	// ActorRoleOwner represents regular portfolio owners.
	ActorRoleOwner = "owner"
)

// RoleName normalizes the actor role for comparisons.
func (a ActorRef) RoleName() string {
	return normalizeRole(a.Type)
}

// IsRole reports whether the actor matches the provided role.
func (a ActorRef) IsRole(role string) bool {
	role = normalizeRole(role)
	if role == "" {
		return a.RoleName() == ""
	}
	return a.RoleName() == role
}

// IsSupport reports whether the actor should be treated as a support agent.
func (a ActorRef) IsSupport() bool {
	return a.IsRole(ActorRoleSupport)
}

// IsSystemAdmin reports whether the actor is a global/system administrator.
func (a ActorRef) IsSystemAdmin() bool {
	return a.IsRole(ActorRoleSystemAdmin)
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
