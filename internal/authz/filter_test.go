package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafah-clos/request-service/internal/domain"
	"github.com/rafah-clos/request-service/pkg/util"
)

func strptr(s string) *string { return &s }

func agentIdentity() *domain.Identity {
	return &domain.Identity{Username: "radh", Name: "راضي", Role: domain.RoleAgent}
}

func record(mutate func(*domain.Request)) *domain.Request {
	r := &domain.Request{
		ID:           "r-1",
		CustomerName: "أم محمد",
		Phone:        "0599000000",
		Status:       domain.StatusNew,
	}
	if mutate != nil {
		mutate(r)
	}
	return r
}

func TestParseView(t *testing.T) {
	view, err := ParseView("", domain.RoleAgent)
	require.NoError(t, err)
	assert.Equal(t, ViewAssigned, view)

	view, err = ParseView("", domain.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, ViewNew, view)

	view, err = ParseView("", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, ViewAll, view)

	view, err = ParseView(" Closed ", domain.RoleAgent)
	require.NoError(t, err)
	assert.Equal(t, ViewClosed, view)

	_, err = ParseView("everything", domain.RoleAdmin)
	require.Error(t, err)
	assert.Equal(t, "MALFORMED_REQUEST", util.ToDomainError(err).Code)
}

// An agent's scope must match exactly the records assigned to them, whatever
// combination of username/name columns the row carries.
func TestAgentScopeOwnership(t *testing.T) {
	scope, err := BuildReadScope(agentIdentity(), ViewAll, Options{})
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*domain.Request)
		want   bool
	}{
		{"unassigned", nil, false},
		{"assigned by username", func(r *domain.Request) {
			r.AgentUsername = strptr("radh")
		}, true},
		{"assigned by display name only", func(r *domain.Request) {
			r.AgentName = strptr("راضي")
		}, true},
		{"assigned to someone else", func(r *domain.Request) {
			r.AgentUsername = strptr("sami")
		}, false},
		{"blank username counts as absent", func(r *domain.Request) {
			r.AgentUsername = strptr("  ")
		}, false},
		{"foreign username with matching name", func(r *domain.Request) {
			r.AgentUsername = strptr("sami")
			r.AgentName = strptr("راضي")
		}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, scope.Matches(record(tc.mutate)))
		})
	}
}

func TestAgentScopeSkipsNameWhenSameAsUsername(t *testing.T) {
	identity := &domain.Identity{Username: "radh", Name: "radh", Role: domain.RoleAgent}
	scope, err := BuildReadScope(identity, ViewAll, Options{})
	require.NoError(t, err)

	require.Len(t, scope.Clauses, 1)
	assert.Len(t, scope.Clauses[0].Any, 1)
}

func TestAgentViewNarrowing(t *testing.T) {
	owned := func(status domain.RequestStatus) *domain.Request {
		return record(func(r *domain.Request) {
			r.AgentUsername = strptr("radh")
			r.Status = status
		})
	}

	assignedScope, err := BuildReadScope(agentIdentity(), ViewAssigned, Options{})
	require.NoError(t, err)
	assert.True(t, assignedScope.Matches(owned(domain.StatusNew)))
	assert.True(t, assignedScope.Matches(owned(domain.StatusAssigned)))
	assert.False(t, assignedScope.Matches(owned(domain.StatusCompleted)))
	assert.False(t, assignedScope.Matches(owned(domain.StatusCancelled)))

	closedScope, err := BuildReadScope(agentIdentity(), ViewClosed, Options{})
	require.NoError(t, err)
	assert.False(t, closedScope.Matches(owned(domain.StatusAssigned)))
	assert.True(t, closedScope.Matches(owned(domain.StatusCompleted)))

	// view narrowing never overrides ownership
	foreign := record(func(r *domain.Request) {
		r.AgentUsername = strptr("sami")
		r.Status = domain.StatusAssigned
	})
	assert.False(t, assignedScope.Matches(foreign))
}

func TestStaffViews(t *testing.T) {
	staff := &domain.Identity{Username: "sara", Role: domain.RoleStaff}

	newScope, err := BuildReadScope(staff, ViewNew, Options{})
	require.NoError(t, err)
	// intake queue is defined by not having an agent, not by status
	assert.True(t, newScope.Matches(record(nil)))
	assert.True(t, newScope.Matches(record(func(r *domain.Request) {
		r.Status = domain.StatusCancelled
	})))
	assert.False(t, newScope.Matches(record(func(r *domain.Request) {
		r.AgentUsername = strptr("radh")
	})))

	assignedScope, err := BuildReadScope(staff, ViewAssigned, Options{})
	require.NoError(t, err)
	assert.True(t, assignedScope.Matches(record(func(r *domain.Request) {
		r.AgentUsername = strptr("radh")
		r.Status = domain.StatusAssigned
	})))
	assert.False(t, assignedScope.Matches(record(nil)))
	assert.False(t, assignedScope.Matches(record(func(r *domain.Request) {
		r.AgentUsername = strptr("radh")
		r.Status = domain.StatusCompleted
	})))

	allScope, err := BuildReadScope(staff, ViewAll, Options{})
	require.NoError(t, err)
	assert.Empty(t, allScope.Clauses)
}

func TestStaffAreaScope(t *testing.T) {
	staff := &domain.Identity{Username: "sara", Role: domain.RoleStaff, AreaCode: "R2"}

	scope, err := BuildReadScope(staff, ViewAll, Options{StaffAreaScope: true})
	require.NoError(t, err)
	assert.True(t, scope.Matches(record(func(r *domain.Request) { r.AreaCode = strptr("R2") })))
	assert.False(t, scope.Matches(record(func(r *domain.Request) { r.AreaCode = strptr("R9") })))

	// option off: no narrowing
	scope, err = BuildReadScope(staff, ViewAll, Options{})
	require.NoError(t, err)
	assert.True(t, scope.Matches(record(func(r *domain.Request) { r.AreaCode = strptr("R9") })))

	// admins are never area-narrowed
	admin := &domain.Identity{Username: "boss", Role: domain.RoleAdmin, AreaCode: "R2"}
	scope, err = BuildReadScope(admin, ViewAll, Options{StaffAreaScope: true})
	require.NoError(t, err)
	assert.Empty(t, scope.Clauses)
}

func TestBuildReadScopeRejections(t *testing.T) {
	_, err := BuildReadScope(nil, ViewAll, Options{})
	require.Error(t, err)
	assert.Equal(t, "UNAUTHENTICATED", util.ToDomainError(err).Code)

	_, err = BuildReadScope(&domain.Identity{Username: "x", Role: "supervisor"}, ViewAll, Options{})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", util.ToDomainError(err).Code)
}

func TestAuthorizeMutation(t *testing.T) {
	owned := record(func(r *domain.Request) { r.AgentUsername = strptr("radh") })
	foreign := record(func(r *domain.Request) { r.AgentUsername = strptr("sami") })
	unassigned := record(nil)

	assert.NoError(t, AuthorizeMutation(agentIdentity(), owned))

	err := AuthorizeMutation(agentIdentity(), foreign)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", util.ToDomainError(err).Code)

	err = AuthorizeMutation(agentIdentity(), unassigned)
	require.Error(t, err)

	staff := &domain.Identity{Username: "sara", Role: domain.RoleStaff}
	admin := &domain.Identity{Username: "boss", Role: domain.RoleAdmin}
	assert.NoError(t, AuthorizeMutation(staff, foreign))
	assert.NoError(t, AuthorizeMutation(admin, foreign))

	err = AuthorizeMutation(nil, owned)
	require.Error(t, err)
	assert.Equal(t, "UNAUTHENTICATED", util.ToDomainError(err).Code)
}

func TestApplyStatusChange(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	completed := domain.StatusCompleted
	patch := domain.RequestPatch{Status: &completed}
	ApplyStatusChange(&patch, now)
	require.NotNil(t, patch.ClosedAt)
	assert.Equal(t, now, *patch.ClosedAt)
	assert.Nil(t, patch.CancelledAt)

	cancelled := domain.StatusCancelled
	patch = domain.RequestPatch{Status: &cancelled}
	ApplyStatusChange(&patch, now)
	require.NotNil(t, patch.CancelledAt)
	assert.Equal(t, now, *patch.CancelledAt)
	assert.Nil(t, patch.ClosedAt)

	assigned := domain.StatusAssigned
	patch = domain.RequestPatch{Status: &assigned}
	ApplyStatusChange(&patch, now)
	assert.Nil(t, patch.ClosedAt)
	assert.Nil(t, patch.CancelledAt)

	// caller-provided stamps win
	earlier := now.Add(-time.Hour)
	patch = domain.RequestPatch{Status: &completed, ClosedAt: &earlier}
	ApplyStatusChange(&patch, now)
	assert.Equal(t, earlier, *patch.ClosedAt)
}

func TestApplyAssignment(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	patch := domain.RequestPatch{AgentUsername: strptr("radh")}
	ApplyAssignment(&patch, record(nil), now)
	require.NotNil(t, patch.AssignedAt)
	assert.Equal(t, now, *patch.AssignedAt)
	require.NotNil(t, patch.Status)
	assert.Equal(t, domain.StatusAssigned, *patch.Status)

	// explicit status is not overridden
	completed := domain.StatusCompleted
	patch = domain.RequestPatch{AgentUsername: strptr("radh"), Status: &completed}
	ApplyAssignment(&patch, record(nil), now)
	assert.Equal(t, domain.StatusCompleted, *patch.Status)

	// reassignment of an in-flight request keeps its status
	current := record(func(r *domain.Request) {
		r.Status = domain.StatusAssigned
		r.AgentUsername = strptr("sami")
	})
	patch = domain.RequestPatch{AgentUsername: strptr("radh")}
	ApplyAssignment(&patch, current, now)
	assert.Nil(t, patch.Status)
	require.NotNil(t, patch.AssignedAt)

	// no agent in the patch: nothing stamped
	patch = domain.RequestPatch{Notes: strptr("call first")}
	ApplyAssignment(&patch, record(nil), now)
	assert.Nil(t, patch.AssignedAt)
	assert.Nil(t, patch.Status)
}
