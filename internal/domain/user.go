package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// User represents an authenticated account as reported by the backend
type User struct {
	ID       int64           `json:"id"`
	Username string          `json:"username"`
	Email    string          `json:"email,omitempty"`
	Role     string          `json:"role"`
	Balance  decimal.Decimal `json:"balance"`
}

// UserRole constants
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

// Home paths per role
const (
	StudentHome = "/dashboard"
	TeacherHome = "/admin"
	LoginPath   = "/login"
)

// IsValidRole reports whether role is one the platform knows about
func IsValidRole(role string) bool {
	return role == RoleStudent || role == RoleTeacher
}

// HomePath returns the landing route for a role.
// Anything that is not a student lands on the teacher dashboard.
func HomePath(role string) string {
	if role == RoleStudent {
		return StudentHome
	}
	return TeacherHome
}

// IsStudent reports whether the user has the student role
func (u *User) IsStudent() bool {
	return u != nil && u.Role == RoleStudent
}

// IsTeacher reports whether the user has the teacher role
func (u *User) IsTeacher() bool {
	return u != nil && u.Role == RoleTeacher
}

// Initial returns the upper-cased first letter of the username
func (u *User) Initial() string {
	return initial(u.Username)
}

func initial(s string) string {
	for _, r := range s {
		return strings.ToUpper(string(r))
	}
	return "?"
}
