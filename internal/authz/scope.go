package authz

import (
	"strings"

	"github.com/rafah-clos/request-service/internal/domain"
)

// Field names the canonical request columns the filter can constrain. Store
// backends map these to their own column names.
type Field string

const (
	FieldAgentUsername Field = "agent_username"
	FieldAgentName     Field = "agent_name"
	FieldStatus        Field = "status"
	FieldAreaCode      Field = "area_code"
)

// Op is a condition operator.
type Op string

const (
	OpEq      Op = "eq"
	OpIn      Op = "in"
	OpNotIn   Op = "not_in"
	OpIsNull  Op = "is_null"
	OpNotNull Op = "not_null"
)

// Condition constrains one field.
type Condition struct {
	Field  Field
	Op     Op
	Values []string
}

// Clause is a disjunction of conditions: it matches when any condition does.
type Clause struct {
	Any []Condition
}

// Scope is a conjunction of clauses over request records. An empty scope
// matches everything.
type Scope struct {
	Clauses []Clause
}

// Eq builds a single-condition clause.
func Eq(field Field, value string) Clause {
	return Clause{Any: []Condition{{Field: field, Op: OpEq, Values: []string{value}}}}
}

// NotIn builds a clause excluding the given values.
func NotIn(field Field, values ...string) Clause {
	return Clause{Any: []Condition{{Field: field, Op: OpNotIn, Values: values}}}
}

// IsNull builds a null-check clause.
func IsNull(field Field) Clause {
	return Clause{Any: []Condition{{Field: field, Op: OpIsNull}}}
}

// NotNull builds a not-null clause.
func NotNull(field Field) Clause {
	return Clause{Any: []Condition{{Field: field, Op: OpNotNull}}}
}

// AnyOf builds a disjunctive clause from the given conditions.
func AnyOf(conditions ...Condition) Clause {
	return Clause{Any: conditions}
}

// Matches evaluates the scope against a record in memory. Store backends
// translate the same scope into their query language; this evaluation is the
// reference semantics and backs mutation-ownership checks.
func (s Scope) Matches(record *domain.Request) bool {
	if record == nil {
		return false
	}
	for _, clause := range s.Clauses {
		if !clause.matches(record) {
			return false
		}
	}
	return true
}

func (c Clause) matches(record *domain.Request) bool {
	for _, cond := range c.Any {
		if cond.matches(record) {
			return true
		}
	}
	return false
}

func (c Condition) matches(record *domain.Request) bool {
	value, present := fieldValue(record, c.Field)
	switch c.Op {
	case OpEq:
		return present && len(c.Values) == 1 && value == c.Values[0]
	case OpIn:
		return present && contains(c.Values, value)
	case OpNotIn:
		return !present || !contains(c.Values, value)
	case OpIsNull:
		return !present
	case OpNotNull:
		return present
	}
	return false
}

// fieldValue extracts the canonical field value. A nil or blank pointer field
// counts as absent, mirroring SQL NULL semantics.
func fieldValue(record *domain.Request, field Field) (string, bool) {
	switch field {
	case FieldAgentUsername:
		return optional(record.AgentUsername)
	case FieldAgentName:
		return optional(record.AgentName)
	case FieldAreaCode:
		return optional(record.AreaCode)
	case FieldStatus:
		if record.Status == "" {
			return "", false
		}
		return string(record.Status), true
	}
	return "", false
}

func optional(value *string) (string, bool) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return "", false
	}
	return *value, true
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
