package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/support-desk/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		label string
		want  domain.RoleTag
	}{
		{"GST Filing for FY24", domain.RoleTaxation},
		{"Income Tax Return", domain.RoleTaxation},
		{"TDS query", domain.RoleTaxation},
		{"Taxation", domain.RoleTaxation},
		{"Company Formation", domain.RoleCompanyInformation},
		{"company information update", domain.RoleCompanyInformation},
		{"ROC Annual Return", domain.RoleROCReturns},
		{"roc returns", domain.RoleROCReturns},
		{"Trademark Registration", domain.RoleOtherRegistration},
		{"ISO Certification", domain.RoleOtherRegistration},
		{"Partnership deed", domain.RoleOtherRegistration},
		{"MSME", domain.RoleOtherRegistration},
		{"Advisory Consultation", domain.RoleAdvisory},
		{"Monthly reports", domain.RoleReports},
		{"Live Support", domain.RoleLiveSupport},
		{"Where is my invoice?", domain.RoleLiveSupport},
		{"", domain.RoleLiveSupport},
		{"   ", domain.RoleLiveSupport},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.label))
		})
	}
}

func TestClassifyFirstGroupWins(t *testing.T) {
	assert.Equal(t, domain.RoleCompanyInformation, Classify("company tax filing"))
	assert.Equal(t, domain.RoleCompanyInformation, Classify("tax for my company"))
	assert.Equal(t, domain.RoleROCReturns, Classify("ROC filing with GST"))
}

func TestClassifyAlwaysReturnsKnownTag(t *testing.T) {
	for _, label := range []string{"x", "TAX", "reports and roc", "company", "\t"} {
		assert.True(t, Classify(label).Valid(), label)
	}
}

func TestAllows(t *testing.T) {
	live := domain.RoleSet{domain.RoleLiveSupport}
	assert.True(t, Allows(live, domain.RoleLiveSupport))
	assert.False(t, Allows(live, domain.RoleTaxation))

	tax := domain.RoleSet{domain.RoleTaxation, domain.RoleAdvisory}
	assert.True(t, Allows(tax, domain.RoleAdvisory))
	assert.False(t, Allows(tax, domain.RoleLiveSupport))
	assert.False(t, Allows(nil, domain.RoleLiveSupport))
}
