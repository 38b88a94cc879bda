package gate

import "vitrina/session"

// Chrome is the persistent role-gated UI state outside any single screen.
type Chrome struct {
	PublishVisible     bool
	DashboardVisible   bool
	LoginButtonVisible bool
}

// ChromeFor is the role-visibility policy: a pure function of the
// authentication state, role and profile completeness.
//
//	unauthenticated            -> publish hidden, dashboard hidden
//	client                     -> publish hidden, dashboard hidden
//	provider, incomplete       -> publish shown,  dashboard hidden
//	provider, complete         -> publish shown,  dashboard shown
func ChromeFor(authenticated bool, role session.Role, profileComplete bool) Chrome {
	if !authenticated {
		return Chrome{LoginButtonVisible: true}
	}
	if role != session.RoleProvider {
		return Chrome{}
	}
	return Chrome{
		PublishVisible:   true,
		DashboardVisible: profileComplete,
	}
}
