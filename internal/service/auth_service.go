package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/notify"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// AuthSubject identifies the caller when changing password.
type AuthSubject struct {
	Type domain.SubjectType
	ID   string
}

// IssuedToken is a signed access token with its expiry.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// RegisterUserInput describes an end-user sign-up.
type RegisterUserInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	staff      repository.StaffRepository
	admins     repository.AdminRepository
	resets     repository.PasswordResetRepository
	mailer     notify.Mailer
	metrics    *observability.Metrics
	logger     *zap.Logger
	tokenMgr   *auth.TokenManager
	bcryptCost int
	resetTTL   time.Duration
	baseURL    string
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	StaffRepo         repository.StaffRepository
	AdminRepo         repository.AdminRepository
	PasswordResetRepo repository.PasswordResetRepository
	Mailer            notify.Mailer
	Metrics           *observability.Metrics
	Logger            *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		staff:      deps.StaffRepo,
		admins:     deps.AdminRepo,
		resets:     deps.PasswordResetRepo,
		mailer:     deps.Mailer,
		metrics:    deps.Metrics,
		logger:     logger,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
		baseURL:    strings.TrimRight(cfg.SMTP.BaseURL, "/"),
	}
}

// RegisterUser creates a new end-user account.
func (s *AuthService) RegisterUser(ctx context.Context, input RegisterUserInput) (*domain.User, IssuedToken, error) {
	email := strings.TrimSpace(input.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, IssuedToken{}, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !apperrors.IsNoRows(err) {
		return nil, IssuedToken{}, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, IssuedToken{}, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		Phone:        strings.TrimSpace(input.Phone),
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, IssuedToken{}, apperrors.MapError(err)
	}

	token, err := s.issue(user.ID, domain.SubjectTypeUser)
	if err != nil {
		return nil, IssuedToken{}, err
	}
	return user, token, nil
}

// LoginUser authenticates an end-user.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, IssuedToken, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, IssuedToken{}, invalidCredentials(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, IssuedToken{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if user.Status != domain.UserStatusActive {
		return nil, IssuedToken{}, apperrors.NewForbidden("user account is suspended")
	}
	token, err := s.issue(user.ID, domain.SubjectTypeUser)
	if err != nil {
		return nil, IssuedToken{}, err
	}
	return user, token, nil
}

// LoginStaff authenticates a support staff member.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*domain.StaffMember, IssuedToken, error) {
	staff, err := s.staff.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, IssuedToken{}, invalidCredentials(err)
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, IssuedToken{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !staff.Active {
		return nil, IssuedToken{}, apperrors.NewForbidden("staff account is disabled")
	}
	token, err := s.issue(staff.ID, domain.SubjectTypeSupport)
	if err != nil {
		return nil, IssuedToken{}, err
	}
	return staff, token, nil
}

// LoginAdmin authenticates an administrator.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (*domain.Admin, IssuedToken, error) {
	admin, err := s.admins.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, IssuedToken{}, invalidCredentials(err)
	}
	if err := auth.ComparePassword(admin.PasswordHash, password); err != nil {
		return nil, IssuedToken{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, err := s.issue(admin.ID, domain.SubjectTypeAdmin)
	if err != nil {
		return nil, IssuedToken{}, err
	}
	return admin, token, nil
}

// CreateAdmin bootstraps an administrator account.
func (s *AuthService) CreateAdmin(ctx context.Context, name, email, password string) (*domain.Admin, error) {
	email = strings.TrimSpace(email)
	if _, err := s.admins.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("admin email already exists", map[string]any{"email": email})
	} else if !apperrors.IsNoRows(err) {
		return nil, apperrors.MapError(err)
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	admin := &domain.Admin{Name: strings.TrimSpace(name), Email: email, PasswordHash: hash}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, apperrors.MapError(err)
	}
	return admin, nil
}

// ResetTicket describes an issued password reset. Token is the raw value sent
// by email; only its digest is stored.
type ResetTicket struct {
	Token       string
	SubjectType domain.SubjectType
	SubjectID   string
	ExpiresAt   time.Time
}

// RequestPasswordReset issues a single-use token for a user or staff email and mails it.
// Unknown emails return a nil ticket and no error.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*ResetTicket, error) {
	email = strings.TrimSpace(email)
	subjectType := domain.SubjectTypeUser
	subjectID := ""

	if user, err := s.users.GetByEmail(ctx, email); err == nil {
		subjectID = user.ID
	} else if apperrors.IsNoRows(err) {
		staff, staffErr := s.staff.GetByEmail(ctx, email)
		if staffErr != nil {
			if apperrors.IsNoRows(staffErr) {
				s.logger.Info("password reset requested for unknown email")
				return nil, nil
			}
			return nil, apperrors.MapError(staffErr)
		}
		subjectType = domain.SubjectTypeSupport
		subjectID = staff.ID
	} else {
		return nil, apperrors.MapError(err)
	}

	token, digest := auth.NewResetToken()
	reset := &domain.PasswordReset{
		SubjectType: subjectType,
		SubjectID:   subjectID,
		TokenDigest: digest,
		ExpiresAt:   time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, reset); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.mailer != nil {
		link := fmt.Sprintf("%s/auth/reset-password?token=%s", s.baseURL, token)
		err := s.mailer.Send(ctx, notify.Email{
			To:      email,
			Subject: "Reset Your Password",
			Body: fmt.Sprintf("We received a request to reset your password.\n\nVisit the following URL to reset it:\n%s\n\nThis link will expire in %d minutes.",
				link, int(s.resetTTL.Minutes())),
		})
		s.metrics.RecordEmail("password_reset", err)
		if err != nil {
			s.logger.Error("password reset email failed", zap.String("subject_id", subjectID), zap.Error(err))
		}
	}
	return &ResetTicket{Token: token, SubjectType: subjectType, SubjectID: subjectID, ExpiresAt: reset.ExpiresAt}, nil
}

// ConfirmPasswordReset redeems a reset token and sets the new password.
// The token is consumed before the password changes, so concurrent confirms
// cannot both succeed.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	reset, err := s.resets.GetByDigest(ctx, auth.ResetTokenDigest(token))
	if err != nil {
		if apperrors.IsNoRows(err) {
			return apperrors.NewValidationError("invalid reset token", nil)
		}
		return apperrors.MapError(err)
	}
	if !reset.Usable(time.Now()) {
		return apperrors.NewValidationError("reset token expired or used", nil)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	if err := s.resets.Consume(ctx, reset.ID); err != nil {
		if apperrors.IsNoRows(err) {
			return apperrors.NewValidationError("reset token expired or used", nil)
		}
		return apperrors.MapError(err)
	}

	switch reset.SubjectType {
	case domain.SubjectTypeUser:
		user, err := s.users.GetByID(ctx, reset.SubjectID)
		if err != nil {
			return notFoundOr(err, "user", reset.SubjectID)
		}
		user.PasswordHash = hash
		return apperrors.MapError(s.users.Update(ctx, user))
	case domain.SubjectTypeSupport:
		staff, err := s.staff.GetByID(ctx, reset.SubjectID)
		if err != nil {
			return notFoundOr(err, "staff", reset.SubjectID)
		}
		staff.PasswordHash = hash
		return apperrors.MapError(s.staff.Update(ctx, staff))
	default:
		return apperrors.NewValidationError("unknown subject type", nil)
	}
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, subject AuthSubject, currentPassword, newPassword string) error {
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	switch subject.Type {
	case domain.SubjectTypeUser:
		user, err := s.users.GetByID(ctx, subject.ID)
		if err != nil {
			return notFoundOr(err, "user", subject.ID)
		}
		if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		user.PasswordHash = hash
		return apperrors.MapError(s.users.Update(ctx, user))
	case domain.SubjectTypeSupport:
		staff, err := s.staff.GetByID(ctx, subject.ID)
		if err != nil {
			return notFoundOr(err, "staff", subject.ID)
		}
		if err := auth.ComparePassword(staff.PasswordHash, currentPassword); err != nil {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		staff.PasswordHash = hash
		return apperrors.MapError(s.staff.Update(ctx, staff))
	case domain.SubjectTypeAdmin:
		admin, err := s.admins.GetByID(ctx, subject.ID)
		if err != nil {
			return notFoundOr(err, "admin", subject.ID)
		}
		if err := auth.ComparePassword(admin.PasswordHash, currentPassword); err != nil {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		admin.PasswordHash = hash
		return apperrors.MapError(s.admins.Update(ctx, admin))
	default:
		return apperrors.NewUnauthorized("unknown subject")
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(subjectID string, subjectType domain.SubjectType) (IssuedToken, error) {
	meta, signed, err := s.tokenMgr.GenerateToken(subjectID, subjectType)
	if err != nil {
		return IssuedToken{}, apperrors.NewInternalError(err)
	}
	return IssuedToken{Value: signed, ExpiresAt: meta.ExpiresAt}, nil
}

func invalidCredentials(err error) error {
	if apperrors.IsNoRows(err) {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	return apperrors.MapError(err)
}
