package authz

import (
	"fmt"
	"strings"
	"time"

	"github.com/rafah-clos/request-service/internal/domain"
	"github.com/rafah-clos/request-service/pkg/util"
)

// View names a predicate over request status/ownership used to scope a
// listing.
type View string

const (
	ViewNew      View = "new"
	ViewAssigned View = "assigned"
	ViewClosed   View = "closed"
	ViewAll      View = "all"
)

// DefaultView returns the listing view applied when the client names none:
// agents land on their open work, staff on the intake queue, admins on
// everything.
func DefaultView(role domain.Role) View {
	switch role {
	case domain.RoleAgent:
		return ViewAssigned
	case domain.RoleStaff:
		return ViewNew
	default:
		return ViewAll
	}
}

// ParseView validates a raw view parameter, substituting the role default
// for the empty string.
func ParseView(raw string, role domain.Role) (View, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return DefaultView(role), nil
	}
	switch View(raw) {
	case ViewNew, ViewAssigned, ViewClosed, ViewAll:
		return View(raw), nil
	}
	return "", util.NewMalformedRequest(fmt.Sprintf("unknown view %q", raw), nil)
}

// Options tunes scope construction per deployment.
type Options struct {
	// StaffAreaScope narrows staff listings to the identity's area code when
	// the store schema carries an area column.
	StaffAreaScope bool
}

// BuildReadScope computes the access predicate restricting which request
// records the identity may see for the requested view. Callers translate the
// scope into the store's query language; unknown roles are rejected rather
// than silently unscoped.
func BuildReadScope(identity *domain.Identity, view View, opts Options) (Scope, error) {
	if identity == nil {
		return Scope{}, util.NewUnauthenticated("unauthorized")
	}

	var scope Scope
	switch identity.Role {
	case domain.RoleAgent:
		scope.Clauses = append(scope.Clauses, ownershipClause(identity))
		switch view {
		case ViewNew:
			scope.Clauses = append(scope.Clauses, Eq(FieldStatus, string(domain.StatusNew)))
		case ViewAssigned:
			scope.Clauses = append(scope.Clauses, NotIn(FieldStatus,
				string(domain.StatusCompleted), string(domain.StatusCancelled)))
		case ViewClosed:
			scope.Clauses = append(scope.Clauses, Eq(FieldStatus, string(domain.StatusCompleted)))
		}

	case domain.RoleStaff, domain.RoleAdmin:
		switch view {
		case ViewNew:
			scope.Clauses = append(scope.Clauses, IsNull(FieldAgentUsername))
		case ViewAssigned:
			scope.Clauses = append(scope.Clauses,
				NotNull(FieldAgentUsername),
				NotIn(FieldStatus, string(domain.StatusCompleted), string(domain.StatusCancelled)))
		case ViewClosed:
			scope.Clauses = append(scope.Clauses, Eq(FieldStatus, string(domain.StatusCompleted)))
		}
		if identity.Role == domain.RoleStaff && opts.StaffAreaScope && identity.AreaCode != "" {
			scope.Clauses = append(scope.Clauses, Eq(FieldAreaCode, identity.AreaCode))
		}

	default:
		return Scope{}, util.NewForbidden(fmt.Sprintf("unknown role %q", identity.Role))
	}

	return scope, nil
}

// ownershipClause matches records assigned to the agent by username or, for
// legacy rows that only carry the display name, by name.
func ownershipClause(identity *domain.Identity) Clause {
	conditions := []Condition{
		{Field: FieldAgentUsername, Op: OpEq, Values: []string{identity.Username}},
	}
	if identity.Name != "" && identity.Name != identity.Username {
		conditions = append(conditions, Condition{
			Field: FieldAgentName, Op: OpEq, Values: []string{identity.Name},
		})
	}
	return AnyOf(conditions...)
}

// AuthorizeMutation decides whether the identity may mutate the record. An
// agent may touch a record iff their unrestricted read scope matches it;
// staff and admin may mutate anything. Reads of a single record apply the
// same rule.
func AuthorizeMutation(identity *domain.Identity, record *domain.Request) error {
	if identity == nil {
		return util.NewUnauthenticated("unauthorized")
	}
	switch identity.Role {
	case domain.RoleStaff, domain.RoleAdmin:
		return nil
	case domain.RoleAgent:
		scope, err := BuildReadScope(identity, ViewAll, Options{})
		if err != nil {
			return err
		}
		if scope.Matches(record) {
			return nil
		}
		return util.NewForbidden("request is not assigned to you")
	default:
		return util.NewForbidden(fmt.Sprintf("unknown role %q", identity.Role))
	}
}

// ApplyStatusChange enforces the status-transition invariants on a patch
// before it is delegated to the store: completion stamps closed_at,
// cancellation stamps cancelled_at and accepts an optional reason.
func ApplyStatusChange(patch *domain.RequestPatch, now time.Time) {
	if patch == nil || patch.Status == nil {
		return
	}
	switch *patch.Status {
	case domain.StatusCompleted:
		if patch.ClosedAt == nil {
			patch.ClosedAt = &now
		}
	case domain.StatusCancelled:
		if patch.CancelledAt == nil {
			patch.CancelledAt = &now
		}
	}
}

// ApplyAssignment enforces the assignment invariants: setting an agent stamps
// assigned_at and promotes an unset or new status to assigned.
func ApplyAssignment(patch *domain.RequestPatch, current *domain.Request, now time.Time) {
	if patch == nil || patch.AgentUsername == nil || strings.TrimSpace(*patch.AgentUsername) == "" {
		return
	}
	if patch.AssignedAt == nil {
		patch.AssignedAt = &now
	}
	if patch.Status == nil && (current == nil || current.Status == "" || current.Status == domain.StatusNew) {
		assigned := domain.StatusAssigned
		patch.Status = &assigned
	}
}
