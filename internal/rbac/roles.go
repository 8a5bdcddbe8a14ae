package rbac

// Role names. Keep these stable; they are part of the token contract.
const (
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

func IsAdmin(role string) bool { return role == RoleAdmin }

// IsKnownRole reports whether tokens may be minted for role.
func IsKnownRole(role string) bool { return role == RoleOperator || role == RoleAdmin }
