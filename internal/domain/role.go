package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// RoleTag identifies a support specialization.
type RoleTag string

const (
	RoleCompanyInformation RoleTag = "company_information_support"
	RoleTaxation           RoleTag = "taxation_support"
	RoleROCReturns         RoleTag = "roc_returns_support"
	RoleOtherRegistration  RoleTag = "other_registration_support"
	RoleAdvisory           RoleTag = "advisory_support"
	RoleReports            RoleTag = "reports_support"
	RoleLiveSupport        RoleTag = "live_support"
)

// AllRoleTags lists every known tag in display order.
var AllRoleTags = []RoleTag{
	RoleCompanyInformation,
	RoleTaxation,
	RoleROCReturns,
	RoleOtherRegistration,
	RoleAdvisory,
	RoleReports,
	RoleLiveSupport,
}

// Valid reports whether the tag belongs to the fixed enumeration.
func (t RoleTag) Valid() bool {
	for _, known := range AllRoleTags {
		if t == known {
			return true
		}
	}
	return false
}

// ParseRoleTag normalizes and validates a raw tag.
func ParseRoleTag(raw string) (RoleTag, error) {
	tag := RoleTag(strings.ToLower(strings.TrimSpace(raw)))
	if !tag.Valid() {
		return "", fmt.Errorf("unknown role tag %q", raw)
	}
	return tag, nil
}

// RoleSet is the non-empty set of tags held by a staff member.
// Elements are unique and kept in AllRoleTags order.
type RoleSet []RoleTag

// ErrEmptyRoleSet is returned when a staff member would hold no roles.
var ErrEmptyRoleSet = errors.New("role set must not be empty")

// NewRoleSet validates raw tags, removing duplicates.
func NewRoleSet(raw []string) (RoleSet, error) {
	seen := make(map[RoleTag]struct{}, len(raw))
	set := make(RoleSet, 0, len(raw))
	for _, r := range raw {
		tag, err := ParseRoleTag(r)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		set = append(set, tag)
	}
	if len(set) == 0 {
		return nil, ErrEmptyRoleSet
	}
	set.sort()
	return set, nil
}

// Has reports direct membership of tag.
func (s RoleSet) Has(tag RoleTag) bool {
	for _, held := range s {
		if held == tag {
			return true
		}
	}
	return false
}

// ServiceRoles returns the set without live_support.
func (s RoleSet) ServiceRoles() RoleSet {
	out := make(RoleSet, 0, len(s))
	for _, tag := range s {
		if tag != RoleLiveSupport {
			out = append(out, tag)
		}
	}
	return out
}

// Strings converts the set for storage.
func (s RoleSet) Strings() []string {
	out := make([]string, len(s))
	for i, tag := range s {
		out[i] = string(tag)
	}
	return out
}

func (s RoleSet) sort() {
	rank := make(map[RoleTag]int, len(AllRoleTags))
	for i, tag := range AllRoleTags {
		rank[tag] = i
	}
	sort.Slice(s, func(i, j int) bool { return rank[s[i]] < rank[s[j]] })
}

// RoleSetFromLegacy converts a legacy scalar role column into a set.
// Unknown legacy values fall back to live_support so the member keeps a valid set.
func RoleSetFromLegacy(legacy string) RoleSet {
	tag, err := ParseRoleTag(legacy)
	if err != nil {
		return RoleSet{RoleLiveSupport}
	}
	return RoleSet{tag}
}
