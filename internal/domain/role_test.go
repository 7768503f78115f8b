package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoleSet(t *testing.T) {
	set, err := NewRoleSet([]string{"live_support", " Taxation_Support ", "taxation_support"})
	require.NoError(t, err)
	assert.Equal(t, RoleSet{RoleTaxation, RoleLiveSupport}, set)
}

func TestNewRoleSetRejectsUnknownTag(t *testing.T) {
	_, err := NewRoleSet([]string{"taxation_support", "billing_support"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "billing_support")
}

func TestNewRoleSetRejectsEmpty(t *testing.T) {
	_, err := NewRoleSet(nil)
	assert.ErrorIs(t, err, ErrEmptyRoleSet)
}

func TestRoleSetServiceRoles(t *testing.T) {
	set := RoleSet{RoleAdvisory, RoleLiveSupport}
	assert.Equal(t, RoleSet{RoleAdvisory}, set.ServiceRoles())
	assert.True(t, set.Has(RoleLiveSupport))
	assert.False(t, set.Has(RoleTaxation))
}

func TestRoleSetFromLegacy(t *testing.T) {
	assert.Equal(t, RoleSet{RoleROCReturns}, RoleSetFromLegacy("roc_returns_support"))
	assert.Equal(t, RoleSet{RoleLiveSupport}, RoleSetFromLegacy("support"))
	assert.Equal(t, RoleSet{RoleLiveSupport}, RoleSetFromLegacy(""))
}
