package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/repository"
)

const minPasswordLength = 8

// UserInput is the body of a create or update staff user request
type UserInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// UserService handles staff account management
type UserService struct {
	repo        repository.UserRepository
	refreshRepo repository.RefreshTokenRepository
	auditSvc    *AuditService
}

func NewUserService(repo repository.UserRepository, refreshRepo repository.RefreshTokenRepository, auditSvc *AuditService) *UserService {
	return &UserService{
		repo:        repo,
		refreshRepo: refreshRepo,
		auditSvc:    auditSvc,
	}
}

func (s *UserService) FindByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	return user, translateErr("user", err)
}

func (s *UserService) List(ctx context.Context, query *repository.ListQuery) ([]models.User, int64, error) {
	return s.repo.List(ctx, query)
}

func validateRole(role string) error {
	if role != models.RoleAdmin && role != models.RoleStaff {
		return invalid("role", "user.role_invalid", "role must be admin or staff")
	}
	return nil
}

func (s *UserService) Create(ctx context.Context, actor Actor, in UserInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, invalid("email", "user.email_invalid", "a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, invalid("password", "user.password_too_short", fmt.Sprintf("password must have at least %d characters", minPasswordLength))
	}
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = models.RoleStaff
	}
	if err := validateRole(role); err != nil {
		return nil, err
	}

	hashedPassword, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:             email,
		EncryptedPassword: hashedPassword,
		FullName:          strings.TrimSpace(in.FullName),
		Phone:             strings.TrimSpace(in.Phone),
		Role:              role,
		Status:            models.StatusActive,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, translateErr("user", err)
	}

	_ = s.auditSvc.Log(ctx, actor, models.AuditActionCreate, "user", user.ID,
		fmt.Sprintf("User %s (%s) role %s", user.FullName, user.Email, user.Role))
	return user, nil
}

// Update changes name, phone and role. Email and password have their own flows.
func (s *UserService) Update(ctx context.Context, actor Actor, id uint, in UserInput) (*models.User, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Role != "" {
		if err := validateRole(in.Role); err != nil {
			return nil, err
		}
		user.Role = in.Role
	}
	if name := strings.TrimSpace(in.FullName); name != "" {
		user.FullName = name
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		user.Phone = phone
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	_ = s.auditSvc.Log(ctx, actor, models.AuditActionUpdate, "user", user.ID, fmt.Sprintf("Updated user %s", user.Email))
	return user, nil
}

// ToggleStatus activates or deactivates an account. Deactivation ends every
// session of the user.
func (s *UserService) ToggleStatus(ctx context.Context, actor Actor, id uint) (*models.User, error) {
	if id == actor.UserID {
		return nil, invalid("id", "user.self_deactivate", "you cannot deactivate your own account")
	}
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Status == models.StatusActive {
		user.Status = models.StatusInactive
	} else {
		user.Status = models.StatusActive
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	if user.Status == models.StatusInactive && s.refreshRepo != nil {
		_ = s.refreshRepo.DeleteByUser(ctx, user.ID)
	}

	_ = s.auditSvc.Log(ctx, actor, models.AuditActionStatus, "user", id, "Status changed to "+user.Status)
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, actor Actor, currentPassword, newPassword string) error {
	user, err := s.FindByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if !VerifyPassword(currentPassword, user.EncryptedPassword) {
		return ErrInvalidPassword
	}
	return s.setPassword(ctx, actor, user, newPassword, "Password changed by the user")
}

func (s *UserService) ForceChangePassword(ctx context.Context, actor Actor, userID uint, newPassword string) error {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.setPassword(ctx, actor, user, newPassword, "Password reset by an administrator")
}

func (s *UserService) setPassword(ctx context.Context, actor Actor, user *models.User, password, details string) error {
	if len(password) < minPasswordLength {
		return invalid("password", "user.password_too_short", fmt.Sprintf("password must have at least %d characters", minPasswordLength))
	}
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	user.EncryptedPassword = hashedPassword
	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}
	if s.refreshRepo != nil {
		_ = s.refreshRepo.DeleteByUser(ctx, user.ID)
	}
	return s.auditSvc.Log(ctx, actor, models.AuditActionUpdate, "user", user.ID, details)
}
