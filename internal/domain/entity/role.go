package entity

import "strings"

// Role is the caller's authorization level, resolved outside the stock engine.
type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleManager Role = "MANAGER"
	RoleStaff   Role = "STAFF"
)

// ParseRole maps a claim value to a Role. Unknown values yield "" and false.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleOwner, RoleManager, RoleStaff:
		return r, true
	}
	return "", false
}

// CanPostMovements: STAFF is read-only for stock movements.
func (r Role) CanPostMovements() bool { return r == RoleOwner || r == RoleManager }

// CanManageCatalog reports whether the role may create or edit products.
func (r Role) CanManageCatalog() bool { return r == RoleOwner || r == RoleManager }

// CanAdjust reports whether the role may post ADJUST movements.
func (r Role) CanAdjust() bool { return r == RoleOwner }
