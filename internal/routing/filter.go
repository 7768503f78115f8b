package routing

import "github.com/spec-kit/support-desk/internal/domain"

// ChatScope describes which chats a staff member may see.
// When AssignedTo is set, visibility is ownership-based and Roles is ignored.
type ChatScope struct {
	AssignedTo *string
	Roles      domain.RoleSet
}

// ChatScopeFor derives the chat visibility scope for a staff member.
func ChatScopeFor(staff *domain.StaffMember) ChatScope {
	if staff == nil {
		return ChatScope{}
	}
	if staff.Roles.Has(domain.RoleLiveSupport) {
		id := staff.ID
		return ChatScope{AssignedTo: &id}
	}
	return ChatScope{Roles: staff.Roles}
}

// Permits applies the scope to a single chat.
func (s ChatScope) Permits(chat *domain.ChatSession) bool {
	if chat == nil {
		return false
	}
	if s.AssignedTo != nil {
		return chat.AssignedTo == *s.AssignedTo
	}
	return Allows(s.Roles, Classify(chat.Subject))
}

// CanAccessChat is the per-operation check run before reading or mutating a chat.
func CanAccessChat(staff *domain.StaffMember, chat *domain.ChatSession) bool {
	if staff == nil {
		return false
	}
	return ChatScopeFor(staff).Permits(chat)
}

// CanAccessContact reports whether staff may read or reply to contact.
// Contacts carry no assignment, so live_support never reaches them.
func CanAccessContact(staff *domain.StaffMember, contact *domain.ContactMessage) bool {
	if staff == nil || contact == nil {
		return false
	}
	return Allows(staff.Roles.ServiceRoles(), Classify(contact.Service))
}

// FilterChats keeps the chats visible to staff, preserving order.
func FilterChats(staff *domain.StaffMember, chats []domain.ChatSession) []domain.ChatSession {
	scope := ChatScopeFor(staff)
	visible := make([]domain.ChatSession, 0, len(chats))
	for i := range chats {
		if staff != nil && scope.Permits(&chats[i]) {
			visible = append(visible, chats[i])
		}
	}
	return visible
}

// FilterContacts keeps the contacts visible to staff, preserving order.
func FilterContacts(staff *domain.StaffMember, contacts []domain.ContactMessage) []domain.ContactMessage {
	visible := make([]domain.ContactMessage, 0, len(contacts))
	for i := range contacts {
		if CanAccessContact(staff, &contacts[i]) {
			visible = append(visible, contacts[i])
		}
	}
	return visible
}
