package auth

import "strings"

type Role string

const (
	RoleSuperAdmin    Role = "super_admin"
	RoleAdminNational Role = "admin_national"
	RoleAdminRegional Role = "admin_regional"
	RoleBusiness      Role = "business"
)

var allRoles = []Role{RoleSuperAdmin, RoleAdminNational, RoleAdminRegional, RoleBusiness}

func ParseRole(v string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(v)))
	return r, r.Valid()
}

func (r Role) Valid() bool {
	for _, known := range allRoles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleAdminNational || r == RoleAdminRegional
}

// Scope describes which businesses a session may manage.
type Scope struct {
	Role       Role
	BusinessID string
	Region     string
}

func (c Claims) Scope() Scope {
	return Scope{Role: c.Role, BusinessID: c.BusinessID, Region: c.Region}
}

// All reports whether the scope covers every business.
func (s Scope) All() bool {
	return s.Role == RoleSuperAdmin || s.Role == RoleAdminNational
}

// Allows reports whether the scope may manage the business with the given
// id and region. Regional admins are limited to their region and business
// owners to their own comercio.
func (s Scope) Allows(businessID, region string) bool {
	switch s.Role {
	case RoleSuperAdmin, RoleAdminNational:
		return true
	case RoleAdminRegional:
		return s.Region != "" && strings.EqualFold(s.Region, region)
	case RoleBusiness:
		return s.BusinessID != "" && s.BusinessID == businessID
	}
	return false
}
