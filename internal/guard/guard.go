// Package guard decides whether a user may see a page.
package guard

import "entrepreneursim/internal/domain"

// AnyRole lets every authenticated user through
const AnyRole = ""

// Decision is the outcome of a guard check. Redirect is set when Allow is false.
type Decision struct {
	Allow    bool
	Redirect string
}

func allow() Decision {
	return Decision{Allow: true}
}

func redirect(path string) Decision {
	return Decision{Redirect: path}
}

// Check guards a protected page requiring requiredRole.
// No user goes to the login page; a role mismatch goes to the user's own home.
func Check(user *domain.User, requiredRole string) Decision {
	if user == nil {
		return redirect(domain.LoginPath)
	}
	if requiredRole != AnyRole && user.Role != requiredRole {
		return redirect(domain.HomePath(user.Role))
	}
	return allow()
}

// PublicOnly guards pages meant for visitors, sending a logged in user home
func PublicOnly(user *domain.User) Decision {
	if user != nil {
		return redirect(domain.HomePath(user.Role))
	}
	return allow()
}
