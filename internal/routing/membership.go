package routing

import "github.com/spec-kit/support-desk/internal/domain"

// Allows reports whether a member holding roles may access a resource classified as tag.
// live_support is an ordinary tag here: holding it grants live_support resources only.
func Allows(roles domain.RoleSet, tag domain.RoleTag) bool {
	return roles.Has(tag)
}
