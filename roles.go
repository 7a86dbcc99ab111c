package sessionauth

// Role is the namespace tag of a principal. Every principal, credential,
// session, and token is scoped to exactly one role; a principal id is only
// unique within its role.
type Role string

const (
	// RolePatient is a patient account in a healthcare domain
	RolePatient Role = "patient"
	// RoleTechnician is a technician account in a healthcare domain
	RoleTechnician Role = "technician"
	// RoleOrganizationAdmin administers a single organization
	RoleOrganizationAdmin Role = "organizationAdmin"
	// RoleSystemAdmin administers the whole deployment
	RoleSystemAdmin Role = "systemAdmin"
	// RoleDeveloper is an API consumer account
	RoleDeveloper Role = "developer"
	// RoleMember is a plain membership account
	RoleMember Role = "member"
	// RoleAdmin is a generic admin account
	RoleAdmin Role = "admin"
	// RoleApplicant is a recruiting-domain applicant account
	RoleApplicant Role = "applicant"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RolePatient, RoleTechnician, RoleOrganizationAdmin, RoleSystemAdmin,
		RoleDeveloper, RoleMember, RoleAdmin, RoleApplicant:
		return true
	default:
		return false
	}
}

// String returns the role tag as embedded in claims and session rows.
func (r Role) String() string {
	return string(r)
}

// AllRoles returns the closed set of roles this subsystem issues tokens for.
// Roles are flat namespaces; there is no hierarchy between them.
func AllRoles() []Role {
	return []Role{
		RolePatient,
		RoleTechnician,
		RoleOrganizationAdmin,
		RoleSystemAdmin,
		RoleDeveloper,
		RoleMember,
		RoleAdmin,
		RoleApplicant,
	}
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}
