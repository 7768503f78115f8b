package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// AssignmentService picks the staff member a new user chat is routed to.
type AssignmentService struct {
	staff  repository.StaffRepository
	logger *zap.Logger
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	StaffRepo repository.StaffRepository
	Logger    *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{staff: deps.StaffRepo, logger: logger}
}

// PickAssignee selects an active member holding tag, falling back to an active
// live_support member and then to any active member. key spreads load
// deterministically across equally eligible members.
func (s *AssignmentService) PickAssignee(ctx context.Context, key string, tag domain.RoleTag) (*domain.StaffMember, error) {
	tiers := []*domain.RoleTag{&tag}
	if tag != domain.RoleLiveSupport {
		live := domain.RoleLiveSupport
		tiers = append(tiers, &live)
	}
	tiers = append(tiers, nil)

	for _, role := range tiers {
		candidates, err := s.staff.List(ctx, repository.StaffFilter{
			Role:   role,
			Active: ptrBool(true),
			Limit:  1000,
		})
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if len(candidates) == 0 {
			continue
		}
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		})
		assignee := candidates[selectIndex(key, len(candidates))]
		if role == nil || *role != tag {
			s.logger.Info("no active staff for role; using fallback",
				zap.String("role", string(tag)),
				zap.String("assignee_id", assignee.ID))
		}
		return &assignee, nil
	}
	return nil, apperrors.NewConflict("no active support staff available", map[string]any{"role": tag})
}

func selectIndex(key string, length int) int {
	if length == 0 {
		return 0
	}
	sum := 0
	for _, ch := range key {
		sum += int(ch)
	}
	return sum % length
}

func ptrBool(v bool) *bool {
	return &v
}
