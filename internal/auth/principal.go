package auth

// Principal is the authenticated caller, extracted from a verified token.
//
// Services take a Principal explicitly instead of reading the request
// context, so every ownership decision is visible in the function signature
// and testable without HTTP.
type Principal struct {
	UserID string
	Roles  []string
}

// Anonymous reports whether the principal carries no identity.
func (p Principal) Anonymous() bool {
	return p.UserID == ""
}

// HasRole reports whether the principal holds the named role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
