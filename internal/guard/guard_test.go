package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"entrepreneursim/internal/domain"
)

func TestCheckWithoutUserRedirectsToLogin(t *testing.T) {
	for _, role := range []string{AnyRole, domain.RoleStudent, domain.RoleTeacher} {
		d := Check(nil, role)
		assert.False(t, d.Allow, role)
		assert.Equal(t, "/login", d.Redirect, role)
	}
}

func TestCheckRoleMatrix(t *testing.T) {
	tests := []struct {
		name     string
		userRole string
		required string
		want     Decision
	}{
		{"student on student page", domain.RoleStudent, domain.RoleStudent, Decision{Allow: true}},
		{"teacher on teacher page", domain.RoleTeacher, domain.RoleTeacher, Decision{Allow: true}},
		{"student on teacher page", domain.RoleStudent, domain.RoleTeacher, Decision{Redirect: "/dashboard"}},
		{"teacher on student page", domain.RoleTeacher, domain.RoleStudent, Decision{Redirect: "/admin"}},
		{"student on shared page", domain.RoleStudent, AnyRole, Decision{Allow: true}},
		{"teacher on shared page", domain.RoleTeacher, AnyRole, Decision{Allow: true}},
		{"unknown role on student page", "admin", domain.RoleStudent, Decision{Redirect: "/admin"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			user := &domain.User{ID: 1, Username: "u", Role: tc.userRole}
			assert.Equal(t, tc.want, Check(user, tc.required))
		})
	}
}

func TestMismatchNeverRedirectsToRequestedRoleHome(t *testing.T) {
	for _, r := range []string{domain.RoleStudent, domain.RoleTeacher} {
		for _, required := range []string{domain.RoleStudent, domain.RoleTeacher} {
			if r == required {
				continue
			}
			d := Check(&domain.User{Role: r}, required)
			assert.False(t, d.Allow)
			assert.Equal(t, domain.HomePath(r), d.Redirect)
			assert.NotEqual(t, domain.HomePath(required), d.Redirect)
		}
	}
}

func TestPublicOnly(t *testing.T) {
	assert.Equal(t, Decision{Allow: true}, PublicOnly(nil))
	assert.Equal(t, Decision{Redirect: "/dashboard"}, PublicOnly(&domain.User{Role: domain.RoleStudent}))
	assert.Equal(t, Decision{Redirect: "/admin"}, PublicOnly(&domain.User{Role: domain.RoleTeacher}))
}
