package domain

// DecisionKind classifies what a protected view should do with the
// current principal.
type DecisionKind int

const (
	// DecisionSuspend means a dependency is still loading: show a
	// placeholder and perform no navigation.
	DecisionSuspend DecisionKind = iota
	// DecisionRender means the principal may see the protected view.
	DecisionRender
	// DecisionRedirectToLogin means no principal is present.
	DecisionRedirectToLogin
	// DecisionRedirectToRoleHome means the principal is authenticated
	// but the view requires a different role.
	DecisionRedirectToRoleHome
)

// Decision is the outcome of an access guard evaluation
type Decision struct {
	Kind DecisionKind
	// Target is the navigation path for redirect decisions
	Target string
}

// Role home paths
const (
	PathLogin       = "/auth"
	PathPublicHome  = "/"
	PathStudentHome = "/student-dashboard"
	PathTeacherHome = "/teacher-dashboard"
	PathAdminHome   = "/admin-dashboard"
)

// RoleHome maps a role tag to its dashboard path. Unknown roles land on
// the public home.
func RoleHome(role string) string {
	switch role {
	case RoleStudent:
		return PathStudentHome
	case RoleTeacher:
		return PathTeacherHome
	case RoleAdmin:
		return PathAdminHome
	default:
		return PathPublicHome
	}
}

// GuardState is the (principal, role, loading) triple the guard evaluates
type GuardState struct {
	PrincipalID    string
	Role           string
	AuthLoading    bool
	ProfileLoading bool
}

// Authorize decides whether a view requiring one of allowedRoles may
// render for the given state. It never fails: an unresolved role is
// treated conservatively and the view stays suspended rather than
// rendering protected content.
func Authorize(state GuardState, allowedRoles []string) Decision {
	if state.AuthLoading || state.ProfileLoading {
		return Decision{Kind: DecisionSuspend}
	}
	if state.PrincipalID == "" {
		return Decision{Kind: DecisionRedirectToLogin, Target: PathLogin}
	}
	if len(allowedRoles) == 0 {
		return Decision{Kind: DecisionRender}
	}
	if state.Role == "" {
		// Principal present but role unconfirmed: do not render, do not
		// bounce the user to a home we cannot determine yet.
		return Decision{Kind: DecisionSuspend}
	}
	for _, allowed := range allowedRoles {
		if state.Role == allowed {
			return Decision{Kind: DecisionRender}
		}
	}
	return Decision{Kind: DecisionRedirectToRoleHome, Target: RoleHome(state.Role)}
}

// Guard wraps Authorize with redirect dedup so that repeated
// re-evaluation on unrelated state changes cannot cause navigation
// loops: the side effect fires at most once per settled state.
type Guard struct {
	allowedRoles []string
	lastState    GuardState
	lastSettled  bool
}

// NewGuard creates a guard for a view restricted to allowedRoles
func NewGuard(allowedRoles ...string) *Guard {
	return &Guard{allowedRoles: allowedRoles}
}

// Evaluate returns the decision for the state plus whether a redirect
// side effect should be performed now. A redirect is navigated only the
// first time a given settled state produces it.
func (g *Guard) Evaluate(state GuardState) (Decision, bool) {
	d := Authorize(state, g.allowedRoles)
	if d.Kind == DecisionSuspend {
		g.lastSettled = false
		return d, false
	}
	repeat := g.lastSettled && g.lastState == state
	g.lastState = state
	g.lastSettled = true
	navigate := !repeat && (d.Kind == DecisionRedirectToLogin || d.Kind == DecisionRedirectToRoleHome)
	return d, navigate
}
