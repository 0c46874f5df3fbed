package authz

import (
	"fmt"

	"github.com/crm-next/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

func resource(path string) []Policy {
	return []Policy{
		{Object: path, Action: "*"},
		{Object: path + "/*", Action: "*"},
	}
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	staff := make([]Policy, 0, 20)
	for _, path := range []string{"/customers", "/products", "/promos", "/purchases", "/tasks", "/tickets", "/analytics"} {
		staff = append(staff, resource(path)...)
	}
	staff = append(staff, resource("/me/admin")...)

	return []RoleSeed{
		{
			Role:     constants.RoleAdmin,
			Policies: staff,
		},
		{
			Role:     constants.RoleSuperAdmin,
			Inherits: []string{constants.RoleAdmin},
			Policies: append(resource("/admins"), resource("/authz")...),
		},
		{
			Role: constants.RoleCustomer,
			Policies: []Policy{
				{Object: "/me", Action: "GET"},
				{Object: "/me", Action: "PUT"},
				{Object: "/me/password", Action: "PUT"},
				{Object: "/me/purchases", Action: "*"},
				{Object: "/me/purchases/*", Action: "GET"},
				{Object: "/me/promos", Action: "GET"},
				{Object: "/me/promos/validate", Action: "POST"},
				{Object: "/me/tickets", Action: "*"},
				{Object: "/me/tickets/*", Action: "*"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略（幂等）
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.ensureRole(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, err := s.ensureRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, policy := range seed.Policies {
			if _, err := s.GrantRolePolicy(role, policy.Object, policy.Action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
