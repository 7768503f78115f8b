package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// StaffService manages support staff accounts.
type StaffService struct {
	staff      repository.StaffRepository
	bcryptCost int
}

// StaffDependencies encapsulates repositories required for staff management.
type StaffDependencies struct {
	StaffRepo repository.StaffRepository
}

// StaffListFilters define listing parameters.
type StaffListFilters struct {
	Role   *domain.RoleTag
	Active *bool
	Limit  int
	Offset int
}

// StaffCreateInput describes a new staff account.
type StaffCreateInput struct {
	Name     string
	Email    string
	Password string
	Roles    []string
}

// StaffUpdateInput describes an admin edit. Nil fields are left unchanged.
type StaffUpdateInput struct {
	Name   *string
	Email  *string
	Roles  []string
	Active *bool
}

// NewStaffService constructs the service.
func NewStaffService(cfg config.Config, deps StaffDependencies) *StaffService {
	return &StaffService{
		staff:      deps.StaffRepo,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

func requireAdmin(actor *domain.Admin) error {
	if actor == nil {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// CreateStaffMember adds a new staff account.
func (s *StaffService) CreateStaffMember(ctx context.Context, actor *domain.Admin, input StaffCreateInput) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	roles, err := parseRoles(input.Roles)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(input.Email)
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	staff := &domain.StaffMember{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Roles:        roles,
		Active:       true,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

// ListStaffMembers lists staff with filters.
func (s *StaffService) ListStaffMembers(ctx context.Context, actor *domain.Admin, filters StaffListFilters) ([]domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	staff, err := s.staff.List(ctx, repository.StaffFilter{
		Role:   filters.Role,
		Active: filters.Active,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if staff == nil {
		staff = []domain.StaffMember{}
	}
	return staff, nil
}

// GetStaffMemberByID fetches staff.
func (s *StaffService) GetStaffMemberByID(ctx context.Context, actor *domain.Admin, id string) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	staff, err := s.staff.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "staff", id)
	}
	return staff, nil
}

// UpdateStaffMember updates staff details, roles and active flag.
func (s *StaffService) UpdateStaffMember(ctx context.Context, actor *domain.Admin, staffID string, input StaffUpdateInput) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return nil, notFoundOr(err, "staff", staffID)
	}
	if input.Roles != nil {
		roles, err := parseRoles(input.Roles)
		if err != nil {
			return nil, err
		}
		staff.Roles = roles
	}
	if input.Name != nil {
		staff.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if !strings.EqualFold(email, staff.Email) {
			if err := s.ensureEmailFree(ctx, email, staff.ID); err != nil {
				return nil, err
			}
		}
		staff.Email = email
	}
	if input.Active != nil {
		staff.Active = *input.Active
	}

	if err := s.staff.Update(ctx, staff); err != nil {
		return nil, notFoundOr(err, "staff", staffID)
	}
	return staff, nil
}

// DeactivateStaffMember soft-disables an account. Staff rows are never deleted.
func (s *StaffService) DeactivateStaffMember(ctx context.Context, actor *domain.Admin, staffID string) (*domain.StaffMember, error) {
	inactive := false
	return s.UpdateStaffMember(ctx, actor, staffID, StaffUpdateInput{Active: &inactive})
}

// UpdateProfile lets a staff member edit their own name and email. Roles and
// the active flag stay admin-controlled.
func (s *StaffService) UpdateProfile(ctx context.Context, staff *domain.StaffMember, name, email string) (*domain.StaffMember, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	current, err := s.staff.GetByID(ctx, staff.ID)
	if err != nil {
		return nil, notFoundOr(err, "staff", staff.ID)
	}
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		current.Name = trimmed
	}
	if trimmed := strings.TrimSpace(email); trimmed != "" && !strings.EqualFold(trimmed, current.Email) {
		if err := s.ensureEmailFree(ctx, trimmed, current.ID); err != nil {
			return nil, err
		}
		current.Email = trimmed
	}
	if err := s.staff.Update(ctx, current); err != nil {
		return nil, apperrors.MapError(err)
	}
	return current, nil
}

// MigrateLegacyRoles converts legacy scalar roles into role sets.
func (s *StaffService) MigrateLegacyRoles(ctx context.Context) (int, error) {
	migrated, err := s.staff.MigrateLegacyRoles(ctx)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return migrated, nil
}

func (s *StaffService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.staff.GetByEmail(ctx, email)
	if err == nil && existing != nil && existing.ID != selfID {
		return apperrors.NewConflict("staff email already exists", map[string]any{"email": email})
	}
	if err != nil && !apperrors.IsNoRows(err) {
		return apperrors.MapError(err)
	}
	return nil
}

func parseRoles(raw []string) (domain.RoleSet, error) {
	roles, err := domain.NewRoleSet(raw)
	if err != nil {
		details := map[string]any{"field": "roles"}
		if !errors.Is(err, domain.ErrEmptyRoleSet) {
			details["allowed"] = domain.RoleSet(domain.AllRoleTags).Strings()
		}
		return nil, apperrors.NewValidationError(err.Error(), details)
	}
	return roles, nil
}
