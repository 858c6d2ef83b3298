package auth

// Role is an ordered privilege level in the console.
type Role string

const (
	// RoleViewer can browse the console but not change content.
	RoleViewer Role = "viewer"
	// RoleEditor can edit existing content records.
	RoleEditor Role = "editor"
	// RoleAdmin can create, edit, and delete content and manage users.
	RoleAdmin Role = "admin"
)

// roleOrdinals is the single definition of the role order. Any change here is
// a policy version change.
var roleOrdinals = map[Role]int{
	RoleViewer: 0,
	RoleEditor: 1,
	RoleAdmin:  2,
}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	_, ok := roleOrdinals[r]
	return ok
}

// IsAtLeast checks if this role meets the minimum required level
func (r Role) IsAtLeast(minRole Role) bool {
	return Meets(r, minRole)
}

// Meets reports whether actual satisfies required, defined as
// ordinal(actual) >= ordinal(required). An unknown role on either side
// fails the check.
func Meets(actual, required Role) bool {
	actualLevel, ok := roleOrdinals[actual]
	if !ok {
		return false
	}

	requiredLevel, ok := roleOrdinals[required]
	if !ok {
		return false
	}

	return actualLevel >= requiredLevel
}

// AllRoles returns all predefined roles in hierarchical order
func AllRoles() []Role {
	return []Role{
		RoleViewer,
		RoleEditor,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a Role type
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}
