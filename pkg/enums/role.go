package enums

import "fmt"

// Role is the account type of a user. The set is closed; role-specific code
// paths go through MatchRole so a new role forces every call site to handle it.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

var validRoles = []Role{
	RoleCustomer,
	RoleSeller,
	RoleAdmin,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

// RoleCases holds one handler per role. All fields are required.
type RoleCases[T any] struct {
	Customer func() (T, error)
	Seller   func() (T, error)
	Admin    func() (T, error)
}

// MatchRole dispatches to the handler registered for role.
func MatchRole[T any](role Role, cases RoleCases[T]) (T, error) {
	var zero T
	var fn func() (T, error)
	switch role {
	case RoleCustomer:
		fn = cases.Customer
	case RoleSeller:
		fn = cases.Seller
	case RoleAdmin:
		fn = cases.Admin
	default:
		return zero, fmt.Errorf("invalid role %q", role)
	}
	if fn == nil {
		return zero, fmt.Errorf("no handler for role %q", role)
	}
	return fn()
}
