package models

import "strings"

// Role is a caller's access tier. Role names are STABLE identifiers shared
// with the backend; do not rename without coordinating with the policy
// tables and the transport layer.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleOperator Role = "OPERATOR"
	RoleCarrier  Role = "CARRIER"
	RoleAnon     Role = "ANON"
)

// DefaultRole is assigned when a request carries no usable role.
const DefaultRole = RoleAnon

// AllRoles is the closed set of valid roles.
var AllRoles = map[Role]bool{
	RoleAdmin:    true,
	RoleOperator: true,
	RoleCarrier:  true,
	RoleAnon:     true,
}

// NormalizeRole uppercases and validates a raw role string, falling back to
// DefaultRole for anything unknown or empty.
func NormalizeRole(raw string) Role {
	r := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if AllRoles[r] {
		return r
	}
	return DefaultRole
}

// IsAuthenticated reports whether the role implies a signed-in caller.
func (r Role) IsAuthenticated() bool {
	return AllRoles[r] && r != RoleAnon
}

func (r Role) String() string {
	return string(r)
}
