package authz

// Role is the closed set of platform roles. Roles are never free-form
// strings: every access decision routes through the capability matrix below
// so call sites cannot drift into ad hoc role-list checks.
type Role string

const (
	RoleSystemAdmin     Role = "system-admin"
	RoleGroupAdmin      Role = "group-admin"
	RoleCompanyAdmin    Role = "company-admin"
	RoleContractManager Role = "contract-manager"
	RoleLegalReviewer   Role = "legal-reviewer"
	RoleViewer          Role = "viewer"
)

// Known reports whether r is one of the defined roles.
func (r Role) Known() bool {
	switch r {
	case RoleSystemAdmin, RoleGroupAdmin, RoleCompanyAdmin, RoleContractManager, RoleLegalReviewer, RoleViewer:
		return true
	}
	return false
}

// AdminTier reports whether r receives broadened default rights
// (system, group and company admins).
func (r Role) AdminTier() bool {
	switch r {
	case RoleSystemAdmin, RoleGroupAdmin, RoleCompanyAdmin:
		return true
	}
	return false
}

// Capability is an atomic permission checked against the role matrix.
type Capability string

const (
	CapViewContract       Capability = "view-contract"
	CapEditContract       Capability = "edit-contract"
	CapDeleteContract     Capability = "delete-contract"
	CapApproveContract    Capability = "approve-contract"
	CapManageUsers        Capability = "manage-users"
	CapManageCompanies    Capability = "manage-companies"
	CapManageWorkspaces   Capability = "manage-workspaces"
	CapViewCompliance     Capability = "view-compliance"
	CapManageIntegrations Capability = "manage-integrations"
	CapExportContract     Capability = "export-contract"
	CapImportContract     Capability = "import-contract"
)

// roleCapabilities is the static role to capability matrix. An unknown role
// maps to no entry and therefore to the empty capability set.
var roleCapabilities = map[Role][]Capability{
	RoleSystemAdmin: {
		CapViewContract, CapEditContract, CapDeleteContract, CapApproveContract,
		CapManageUsers, CapManageCompanies, CapManageWorkspaces,
		CapViewCompliance, CapManageIntegrations, CapExportContract, CapImportContract,
	},
	RoleGroupAdmin: {
		CapViewContract, CapEditContract, CapDeleteContract, CapApproveContract,
		CapManageUsers, CapManageCompanies, CapManageWorkspaces,
		CapViewCompliance, CapExportContract, CapImportContract,
	},
	RoleCompanyAdmin: {
		CapViewContract, CapEditContract, CapDeleteContract, CapApproveContract,
		CapManageUsers, CapManageWorkspaces,
		CapViewCompliance, CapExportContract, CapImportContract,
	},
	RoleContractManager: {
		CapViewContract, CapEditContract,
		CapExportContract, CapImportContract,
	},
	RoleLegalReviewer: {
		CapViewContract, CapEditContract, CapApproveContract,
		CapViewCompliance, CapExportContract,
	},
	RoleViewer: {
		CapViewContract,
	},
}

// HasCapability reports whether the actor's role grants the capability.
// An unrecognized role yields the empty capability set and denies everything.
func HasCapability(actor Actor, cap Capability) bool {
	for _, c := range roleCapabilities[actor.Role] {
		if c == cap {
			return true
		}
	}
	return false
}
