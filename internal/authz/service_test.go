package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func TestEnforceRoleWithGrantedPolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if _, err := svc.GrantRolePolicy("ops", "/products/:id", "GET"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}

	allow, err := svc.EnforceRole("ops", "/api/v1/products/42", "get")
	if err != nil {
		t.Fatalf("enforce allow failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected allow=true")
	}

	allow, err = svc.EnforceRole("ops", "/api/v1/products/42", "POST")
	if err != nil {
		t.Fatalf("enforce deny failed: %v", err)
	}
	if allow {
		t.Fatalf("expected allow=false")
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/customers/:id", want: "/customers/:id"},
		{in: "/customers/:id", want: "/customers/:id"},
		{in: "customers", want: "/customers"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		got := NormalizeObject(item.in)
		if got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	// 重复执行保持幂等
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	wantRoles := map[string]bool{
		"role:admin":       true,
		"role:super_admin": true,
		"role:customer":    true,
	}
	for _, role := range roles {
		delete(wantRoles, role)
	}
	if len(wantRoles) != 0 {
		t.Fatalf("builtin roles missing: %v", wantRoles)
	}

	cases := []struct {
		role   string
		path   string
		method string
		want   bool
	}{
		{role: "admin", path: "/api/v1/customers", method: "GET", want: true},
		{role: "admin", path: "/api/v1/purchases/:id", method: "DELETE", want: true},
		{role: "admin", path: "/api/v1/promos/:id/assign", method: "POST", want: true},
		{role: "admin", path: "/api/v1/admins", method: "GET", want: false},
		{role: "super_admin", path: "/api/v1/admins/:id", method: "PUT", want: true},
		{role: "super_admin", path: "/api/v1/analytics/overview", method: "GET", want: true},
		{role: "customer", path: "/api/v1/me/purchases", method: "POST", want: true},
		{role: "customer", path: "/api/v1/me/tickets/:id/messages", method: "POST", want: true},
		{role: "customer", path: "/api/v1/customers", method: "GET", want: false},
		{role: "customer", path: "/api/v1/me", method: "DELETE", want: false},
	}
	for _, tc := range cases {
		allow, err := svc.EnforceRole(tc.role, tc.path, tc.method)
		if err != nil {
			t.Fatalf("enforce %s %s %s failed: %v", tc.role, tc.method, tc.path, err)
		}
		if allow != tc.want {
			t.Fatalf("enforce %s %s %s want %v got %v", tc.role, tc.method, tc.path, tc.want, allow)
		}
	}
}

func TestDescribeRoleIncludesInheritedPolicies(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	desc, err := svc.DescribeRole("super_admin")
	if err != nil {
		t.Fatalf("describe role failed: %v", err)
	}
	if len(desc.Inherits) != 1 || desc.Inherits[0] != "role:admin" {
		t.Fatalf("want inherits [role:admin] got %v", desc.Inherits)
	}
	found := false
	for _, p := range desc.Policies {
		if p.Object == "/customers" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected inherited /customers policy, got %v", desc.Policies)
	}
}
