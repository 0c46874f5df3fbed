package models

import (
	"github.com/crm-next/internal/constants"
	"github.com/crm-next/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

// DefaultAdminPassword 未配置时使用的默认密码
const DefaultAdminPassword = "admin123"

// InitDefaultAdmin 初始化默认超级管理员账号
func InitDefaultAdmin(username, password string) error {
	var count int64
	if err := DB.Model(&Admin{}).Count(&count).Error; err != nil {
		return err
	}

	if username == "" {
		username = "admin"
	}

	// 已有员工账号时，确保默认账号仍为超级管理员，避免误降级后无人可管理员工
	if count > 0 {
		var superCount int64
		if err := DB.Model(&Admin{}).Where("role = ?", constants.RoleSuperAdmin).Count(&superCount).Error; err != nil {
			return err
		}
		if superCount == 0 {
			if err := DB.Model(&Admin{}).Where("username = ?", username).Update("role", constants.RoleSuperAdmin).Error; err != nil {
				logger.Warnw("ensure_default_super_admin_failed", "username", username, "error", err)
			}
		}
		return nil
	}

	if password == "" {
		password = DefaultAdminPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := Admin{
		Username:     username,
		PasswordHash: string(hash),
		Name:         "Super Admin",
		Role:         constants.RoleSuperAdmin,
		IsActive:     true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}

	if password == DefaultAdminPassword {
		logger.Warnw("default_admin_created_with_default_password", "username", username)
		logger.Warnw("default_admin_password_change_required", "username", username)
	} else {
		logger.Warnw("default_admin_created", "username", username, "password_hidden", true)
	}
	return nil
}
