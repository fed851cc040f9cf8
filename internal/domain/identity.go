package domain

import "strings"

// Role enumerates the three operator roles. The stored value is the English
// canonical form; Arabic labels are aliases on the wire and in legacy data.
type Role string

const (
	RoleAgent Role = "agent"
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// roleAliases maps every accepted spelling to its canonical role. Historical
// data mixes Arabic and English labels, so both directions must resolve.
var roleAliases = map[string]Role{
	"agent":  RoleAgent,
	"مندوب":  RoleAgent,
	"staff":  RoleStaff,
	"موظف":   RoleStaff,
	"admin":  RoleAdmin,
	"مدير":   RoleAdmin,
	"مشرف":   RoleAdmin,
}

var roleArabicLabels = map[Role]string{
	RoleAgent: "مندوب",
	RoleStaff: "موظف",
	RoleAdmin: "مدير",
}

// ParseRole resolves a raw role string (English or Arabic, any ASCII case)
// to a canonical Role.
func ParseRole(raw string) (Role, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	role, ok := roleAliases[key]
	return role, ok
}

// ArabicLabel returns the Arabic display label for the role.
func (r Role) ArabicLabel() string {
	if label, ok := roleArabicLabels[r]; ok {
		return label
	}
	return string(r)
}

// Valid reports whether the role is one of the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleAgent, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// Identity is the normalized record derived from a verified session token.
// It lives for the duration of a single request and is never persisted.
type Identity struct {
	Username string
	Name     string
	Role     Role
	AreaCode string
}
