package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCapabilityMatrix(t *testing.T) {
	cases := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RoleSystemAdmin, CapManageIntegrations, true},
		{RoleSystemAdmin, CapDeleteContract, true},
		{RoleGroupAdmin, CapManageCompanies, true},
		{RoleGroupAdmin, CapManageIntegrations, false},
		{RoleCompanyAdmin, CapManageCompanies, false},
		{RoleCompanyAdmin, CapApproveContract, true},
		{RoleContractManager, CapViewContract, true},
		{RoleContractManager, CapEditContract, true},
		{RoleContractManager, CapApproveContract, false},
		{RoleContractManager, CapDeleteContract, false},
		{RoleLegalReviewer, CapApproveContract, true},
		{RoleLegalReviewer, CapDeleteContract, false},
		{RoleViewer, CapViewContract, true},
		{RoleViewer, CapEditContract, false},
	}
	for _, tc := range cases {
		got := HasCapability(Actor{Role: tc.role}, tc.cap)
		assert.Equal(t, tc.want, got, "%s / %s", tc.role, tc.cap)
	}
}

func TestHasCapabilityUnknownRoleDeniesEverything(t *testing.T) {
	actor := Actor{Role: Role("superuser")}
	caps := []Capability{
		CapViewContract, CapEditContract, CapDeleteContract, CapApproveContract,
		CapManageUsers, CapManageCompanies, CapManageWorkspaces,
		CapViewCompliance, CapManageIntegrations, CapExportContract, CapImportContract,
	}
	for _, c := range caps {
		assert.False(t, HasCapability(actor, c), "capability %s", c)
	}
}

func TestRoleAdminTier(t *testing.T) {
	assert.True(t, RoleSystemAdmin.AdminTier())
	assert.True(t, RoleGroupAdmin.AdminTier())
	assert.True(t, RoleCompanyAdmin.AdminTier())
	assert.False(t, RoleContractManager.AdminTier())
	assert.False(t, RoleLegalReviewer.AdminTier())
	assert.False(t, RoleViewer.AdminTier())
	assert.False(t, Role("superuser").AdminTier())
}

func TestRoleKnown(t *testing.T) {
	assert.True(t, RoleViewer.Known())
	assert.False(t, Role("").Known())
	assert.False(t, Role("root").Known())
}
