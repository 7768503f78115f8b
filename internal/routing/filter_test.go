package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/support-desk/internal/domain"
)

func staffWith(id string, roles ...domain.RoleTag) *domain.StaffMember {
	return &domain.StaffMember{ID: id, Roles: roles, Active: true}
}

func chatIDs(chats []domain.ChatSession) []string {
	ids := make([]string, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.ID)
	}
	return ids
}

var sampleChats = []domain.ChatSession{
	{ID: "c1", Subject: "GST Filing", AssignedTo: "s-live"},
	{ID: "c2", Subject: "ROC Annual Return", AssignedTo: "s-roc"},
	{ID: "c3", Subject: "Advisory Consultation", AssignedTo: "s-other"},
	{ID: "c4", Subject: "hello", AssignedTo: "s-live"},
	{ID: "c5", Subject: "", AssignedTo: "s-roc"},
}

var sampleContacts = []domain.ContactMessage{
	{ID: "m1", Service: "Tax filing"},
	{ID: "m2", Service: "ROC returns"},
	{ID: "m3", Service: ""},
	{ID: "m4", Service: "Live chat"},
}

func TestFilterChatsLiveSupportIsOwnershipBased(t *testing.T) {
	live := staffWith("s-live", domain.RoleLiveSupport)
	assert.Equal(t, []string{"c1", "c4"}, chatIDs(FilterChats(live, sampleChats)))

	mixed := staffWith("s-roc", domain.RoleROCReturns, domain.RoleLiveSupport)
	assert.Equal(t, []string{"c2", "c5"}, chatIDs(FilterChats(mixed, sampleChats)))
}

func TestFilterChatsServiceRolesUseClassification(t *testing.T) {
	roc := staffWith("s-any", domain.RoleROCReturns)
	assert.Equal(t, []string{"c2"}, chatIDs(FilterChats(roc, sampleChats)))

	multi := staffWith("s-any", domain.RoleTaxation, domain.RoleAdvisory)
	assert.Equal(t, []string{"c1", "c3"}, chatIDs(FilterChats(multi, sampleChats)))
}

func TestFilterChatsNilStaffSeesNothing(t *testing.T) {
	assert.Empty(t, FilterChats(nil, sampleChats))
}

func TestCanAccessChatDepartmentMismatch(t *testing.T) {
	roc := staffWith("s-roc", domain.RoleROCReturns)
	advisory := &domain.ChatSession{ID: "c3", Subject: "Advisory Consultation", AssignedTo: "s-roc"}
	assert.False(t, CanAccessChat(roc, advisory))
}

func TestFilterContacts(t *testing.T) {
	live := staffWith("s-live", domain.RoleLiveSupport)
	assert.Empty(t, FilterContacts(live, sampleContacts))

	tax := staffWith("s-tax", domain.RoleTaxation)
	visible := FilterContacts(tax, sampleContacts)
	if assert.Len(t, visible, 1) {
		assert.Equal(t, "m1", visible[0].ID)
	}

	mixed := staffWith("s-mixed", domain.RoleROCReturns, domain.RoleLiveSupport)
	visible = FilterContacts(mixed, sampleContacts)
	if assert.Len(t, visible, 1) {
		assert.Equal(t, "m2", visible[0].ID)
	}
}

func TestChatScopeFor(t *testing.T) {
	scope := ChatScopeFor(staffWith("s1", domain.RoleLiveSupport, domain.RoleTaxation))
	if assert.NotNil(t, scope.AssignedTo) {
		assert.Equal(t, "s1", *scope.AssignedTo)
	}
	scope = ChatScopeFor(staffWith("s2", domain.RoleTaxation))
	assert.Nil(t, scope.AssignedTo)
	assert.Equal(t, domain.RoleSet{domain.RoleTaxation}, scope.Roles)
}
