package models

import (
	"time"

	"gorm.io/gorm"
)

// Admin 后台员工账号（admin / super_admin）
type Admin struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                      // 主键
	Username           string         `gorm:"uniqueIndex;not null" json:"username"`                      // 登录账号
	PasswordHash       string         `gorm:"not null" json:"-"`                                         // 密码哈希（不返回给前端）
	Name               string         `gorm:"default:''" json:"name"`                                    // 姓名
	Email              string         `gorm:"index;default:''" json:"email"`                             // 邮箱
	Role               string         `gorm:"type:varchar(20);not null;default:'admin';index" json:"role"` // 角色（admin/super_admin）
	IsActive           bool           `gorm:"not null;default:true" json:"isActive"`                     // 是否启用
	TokenVersion       uint64         `gorm:"not null;default:0" json:"-"`                               // Token 版本（用于全量失效）
	TokenInvalidBefore *time.Time     `gorm:"index" json:"-"`                                            // 该时间点前签发的 Token 失效
	LastLoginAt        *time.Time     `json:"lastLoginAt"`                                               // 最后登录时间
	CreatedAt          time.Time      `gorm:"index" json:"createdAt"`                                    // 创建时间
	UpdatedAt          time.Time      `json:"updatedAt"`                                                 // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间
}

// TableName 指定表名
func (Admin) TableName() string {
	return "admins"
}
