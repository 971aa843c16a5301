package model

// Role names. Stored verbatim in the user_roles table.
const (
	RoleAdmin     = "Admin"
	RoleModerator = "Moderator"
	RoleMember    = "Member"
)

// KnownRoles lists every role an admin may assign, in display order.
var KnownRoles = []string{RoleAdmin, RoleModerator, RoleMember}

// IsKnownRole reports whether name is one of KnownRoles.
func IsKnownRole(name string) bool {
	for _, r := range KnownRoles {
		if r == name {
			return true
		}
	}
	return false
}
