package service

import (
	"context"
	"strings"
	"time"

	"github.com/crm-next/internal/cache"
	"github.com/crm-next/internal/constants"
	"github.com/crm-next/internal/models"
	"github.com/crm-next/internal/repository"
)

// AdminService 员工账号管理（仅超级管理员）
type AdminService struct {
	repo        repository.AdminRepository
	authService *AuthService
}

// NewAdminService 创建员工管理服务
func NewAdminService(repo repository.AdminRepository, authService *AuthService) *AdminService {
	return &AdminService{repo: repo, authService: authService}
}

// CreateAdminInput 创建员工输入
type CreateAdminInput struct {
	Username string
	Password string
	Name     string
	Email    string
	Role     string
	IsActive *bool
}

// UpdateAdminInput 更新员工输入，nil 表示不修改
type UpdateAdminInput struct {
	Name     *string
	Email    *string
	Role     *string
	IsActive *bool
	Password *string
}

// List 员工列表
func (s *AdminService) List(filter repository.AdminListFilter) ([]models.Admin, int64, error) {
	return s.repo.List(filter)
}

// Get 获取员工
func (s *AdminService) Get(id uint) (*models.Admin, error) {
	admin, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrAdminNotFound
	}
	return admin, nil
}

// Create 创建员工
func (s *AdminService) Create(input CreateAdminInput) (*models.Admin, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrAdminUsernameNeeded
	}
	role, ok := normalizeAdminRole(input.Role)
	if !ok {
		return nil, ErrAdminRoleInvalid
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, ErrWeakPassword
	}
	if err := s.authService.ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	count, err := s.repo.CountByUsername(username, 0)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrAdminUsernameTaken
	}
	email := strings.TrimSpace(input.Email)
	if email != "" {
		if email, err = normalizeEmail(email); err != nil {
			return nil, err
		}
	}
	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	admin := &models.Admin{
		Username:     username,
		PasswordHash: hash,
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		Role:         role,
		IsActive:     true,
	}
	if input.IsActive != nil {
		admin.IsActive = *input.IsActive
	}
	if err := s.repo.Create(admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// Update 更新员工，禁用、改角色或重置密码都会让旧 token 失效
func (s *AdminService) Update(operatorID, id uint, input UpdateAdminInput) (*models.Admin, error) {
	admin, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	revoke := false
	demoting := false
	if input.Name != nil {
		admin.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email != "" {
			if email, err = normalizeEmail(email); err != nil {
				return nil, err
			}
		}
		admin.Email = email
	}
	if input.Role != nil {
		role, ok := normalizeAdminRole(*input.Role)
		if !ok {
			return nil, ErrAdminRoleInvalid
		}
		if role != admin.Role {
			demoting = admin.Role == constants.RoleSuperAdmin
			admin.Role = role
			revoke = true
		}
	}
	if input.IsActive != nil && *input.IsActive != admin.IsActive {
		if !*input.IsActive && operatorID == admin.ID {
			return nil, ErrAdminSelfDelete
		}
		if !*input.IsActive && admin.Role == constants.RoleSuperAdmin {
			demoting = true
		}
		admin.IsActive = *input.IsActive
		revoke = true
	}
	if input.Password != nil {
		if strings.TrimSpace(*input.Password) == "" {
			return nil, ErrWeakPassword
		}
		if err := s.authService.ValidatePassword(*input.Password); err != nil {
			return nil, err
		}
		hash, err := HashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		admin.PasswordHash = hash
		revoke = true
	}

	if demoting {
		if err := s.ensureAnotherSuperAdmin(); err != nil {
			return nil, err
		}
	}
	if revoke {
		now := time.Now()
		admin.TokenVersion++
		admin.TokenInvalidBefore = &now
	}
	if err := s.repo.Update(admin); err != nil {
		return nil, err
	}
	_ = cache.SetAuthState(context.Background(), cache.BuildAdminAuthState(admin))
	return admin, nil
}

// Delete 删除员工
func (s *AdminService) Delete(operatorID, id uint) error {
	if operatorID == id {
		return ErrAdminSelfDelete
	}
	admin, err := s.Get(id)
	if err != nil {
		return err
	}
	if admin.Role == constants.RoleSuperAdmin && admin.IsActive {
		if err := s.ensureAnotherSuperAdmin(); err != nil {
			return err
		}
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	_ = cache.DelAuthState(context.Background(), cache.SubjectAdmin, id)
	return nil
}

func (s *AdminService) ensureAnotherSuperAdmin() error {
	count, err := s.repo.CountActiveByRole(constants.RoleSuperAdmin)
	if err != nil {
		return err
	}
	if count <= 1 {
		return ErrLastSuperAdmin
	}
	return nil
}

func normalizeAdminRole(role string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(role))
	switch normalized {
	case "":
		return constants.RoleAdmin, true
	case constants.RoleAdmin, constants.RoleSuperAdmin:
		return normalized, true
	default:
		return "", false
	}
}
