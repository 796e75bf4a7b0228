package domain

import (
	"testing"
)

func TestAuthorize(t *testing.T) {
	studentOnly := []string{RoleStudent}
	teacherOnly := []string{RoleTeacher}

	tests := []struct {
		name       string
		state      GuardState
		allowed    []string
		wantKind   DecisionKind
		wantTarget string
	}{
		{
			name:     "auth still loading suspends",
			state:    GuardState{AuthLoading: true},
			allowed:  studentOnly,
			wantKind: DecisionSuspend,
		},
		{
			name:     "profile still loading suspends even with principal",
			state:    GuardState{PrincipalID: "u1", ProfileLoading: true},
			allowed:  studentOnly,
			wantKind: DecisionSuspend,
		},
		{
			name:       "settled without principal redirects to login",
			state:      GuardState{},
			allowed:    studentOnly,
			wantKind:   DecisionRedirectToLogin,
			wantTarget: PathLogin,
		},
		{
			name:     "matching role renders",
			state:    GuardState{PrincipalID: "u1", Role: RoleStudent},
			allowed:  studentOnly,
			wantKind: DecisionRender,
		},
		{
			name:       "student on a teacher view bounces to student home",
			state:      GuardState{PrincipalID: "u1", Role: RoleStudent},
			allowed:    teacherOnly,
			wantKind:   DecisionRedirectToRoleHome,
			wantTarget: PathStudentHome,
		},
		{
			name:       "unknown role bounces to public home",
			state:      GuardState{PrincipalID: "u1", Role: "superuser"},
			allowed:    teacherOnly,
			wantKind:   DecisionRedirectToRoleHome,
			wantTarget: PathPublicHome,
		},
		{
			name:     "unresolved role with requirements stays suspended",
			state:    GuardState{PrincipalID: "u1"},
			allowed:  teacherOnly,
			wantKind: DecisionSuspend,
		},
		{
			name:     "unresolved role without requirements renders",
			state:    GuardState{PrincipalID: "u1"},
			allowed:  nil,
			wantKind: DecisionRender,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Authorize(tt.state, tt.allowed)
			if d.Kind != tt.wantKind {
				t.Errorf("Authorize() kind = %v, want %v", d.Kind, tt.wantKind)
			}
			if tt.wantTarget != "" && d.Target != tt.wantTarget {
				t.Errorf("Authorize() target = %q, want %q", d.Target, tt.wantTarget)
			}
		})
	}
}

func TestGuardNavigatesOncePerSettledState(t *testing.T) {
	g := NewGuard(RoleTeacher)
	state := GuardState{PrincipalID: "u1", Role: RoleStudent}

	d, navigate := g.Evaluate(state)
	if d.Kind != DecisionRedirectToRoleHome || !navigate {
		t.Fatalf("first evaluation should navigate, got kind=%v navigate=%v", d.Kind, navigate)
	}

	// Re-evaluations on unrelated re-renders must not loop.
	for i := 0; i < 3; i++ {
		d, navigate = g.Evaluate(state)
		if d.Kind != DecisionRedirectToRoleHome || navigate {
			t.Fatalf("repeat evaluation should not navigate, got kind=%v navigate=%v", d.Kind, navigate)
		}
	}

	// A state change re-arms the side effect.
	d, navigate = g.Evaluate(GuardState{PrincipalID: "u2", Role: RoleStudent})
	if !navigate {
		t.Fatal("changed state should navigate again")
	}
}

func TestGuardSuspendNeverNavigates(t *testing.T) {
	g := NewGuard(RoleAdmin)
	_, navigate := g.Evaluate(GuardState{PrincipalID: "u1", Role: RoleStudent, ProfileLoading: true})
	if navigate {
		t.Fatal("loading state must not trigger navigation")
	}
}
