// Package routing maps free-text service and subject labels to support roles
// and decides which staff members may see or act on contacts and chats.
package routing

import (
	"strings"

	"github.com/spec-kit/support-desk/internal/domain"
)

type keywordGroup struct {
	role     domain.RoleTag
	keywords []string
}

// Order matters: the first group with a matching keyword wins, so a label
// mentioning both "company" and "tax" routes to company information.
var keywordGroups = []keywordGroup{
	{domain.RoleCompanyInformation, []string{"company information", "company formation", "company"}},
	{domain.RoleROCReturns, []string{"roc returns", "roc return", "roc"}},
	{domain.RoleTaxation, []string{"taxation", "income tax", "tax", "gst", "tds"}},
	{domain.RoleOtherRegistration, []string{"other registration", "registration", "trademark", "iso certification", "partnership", "msme"}},
	{domain.RoleAdvisory, []string{"advisory", "consultation"}},
	{domain.RoleReports, []string{"reports", "report"}},
	{domain.RoleLiveSupport, []string{"live support", "live chat"}},
}

// Classify returns the role tag responsible for label. Empty or unmatched
// labels go to live_support.
func Classify(label string) domain.RoleTag {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if normalized == "" {
		return domain.RoleLiveSupport
	}
	for _, group := range keywordGroups {
		for _, kw := range group.keywords {
			if strings.Contains(normalized, kw) {
				return group.role
			}
		}
	}
	return domain.RoleLiveSupport
}
