package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/crm-next/internal/constants"
	"github.com/crm-next/internal/models"
)

const authStateCacheTTL = 10 * time.Minute

// 鉴权主体类型
const (
	SubjectAdmin    = "admin"
	SubjectCustomer = "customer"
)

// AuthState 登录主体鉴权快照（员工或客户）
// token_invalid_before 为 Unix 秒时间戳，0 表示未设置
type AuthState struct {
	Subject            string `json:"subject"`
	ID                 uint   `json:"id"`
	Role               string `json:"role"`
	Active             bool   `json:"active"`
	TokenVersion       uint64 `json:"token_version"`
	TokenInvalidBefore int64  `json:"token_invalid_before"`
	UpdatedAt          int64  `json:"updated_at"`
}

func authStateKey(subject string, id uint) string {
	return fmt.Sprintf("auth:%s:%d", subject, id)
}

// BuildAdminAuthState 从员工模型构建鉴权快照
func BuildAdminAuthState(admin *models.Admin) *AuthState {
	if admin == nil {
		return nil
	}
	state := &AuthState{
		Subject:      SubjectAdmin,
		ID:           admin.ID,
		Role:         admin.Role,
		Active:       admin.IsActive,
		TokenVersion: admin.TokenVersion,
		UpdatedAt:    time.Now().Unix(),
	}
	if admin.TokenInvalidBefore != nil {
		state.TokenInvalidBefore = admin.TokenInvalidBefore.Unix()
	}
	return state
}

// BuildCustomerAuthState 从客户模型构建鉴权快照
func BuildCustomerAuthState(customer *models.Customer) *AuthState {
	if customer == nil {
		return nil
	}
	state := &AuthState{
		Subject:      SubjectCustomer,
		ID:           customer.ID,
		Role:         constants.RoleCustomer,
		Active:       customer.Status == constants.CustomerStatusActive && customer.CanLogin(),
		TokenVersion: customer.TokenVersion,
		UpdatedAt:    time.Now().Unix(),
	}
	if customer.TokenInvalidBefore != nil {
		state.TokenInvalidBefore = customer.TokenInvalidBefore.Unix()
	}
	return state
}

// GetAuthState 获取鉴权快照
func GetAuthState(ctx context.Context, subject string, id uint) (*AuthState, bool, error) {
	if id == 0 {
		return nil, false, nil
	}
	var state AuthState
	hit, err := GetJSON(ctx, authStateKey(subject, id), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetAuthState 写入鉴权快照
func SetAuthState(ctx context.Context, state *AuthState) error {
	if state == nil || state.ID == 0 {
		return nil
	}
	return SetJSON(ctx, authStateKey(state.Subject, state.ID), state, authStateCacheTTL)
}

// DelAuthState 删除鉴权快照（密码修改、禁用、删除后调用）
func DelAuthState(ctx context.Context, subject string, id uint) error {
	if id == 0 {
		return nil
	}
	return Del(ctx, authStateKey(subject, id))
}
