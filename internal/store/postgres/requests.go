// Package postgres implements the store interfaces directly against a
// postgres database, for deployments that skip the hosted REST store.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafah-clos/request-service/internal/authz"
	"github.com/rafah-clos/request-service/internal/domain"
	"github.com/rafah-clos/request-service/internal/store"
)

const (
	defaultListLimit = 30
	maxListLimit     = 200
)

// columnFor maps canonical filter fields to table columns.
var columnFor = map[authz.Field]string{
	authz.FieldAgentUsername: "agent_username",
	authz.FieldAgentName:     "agent_name",
	authz.FieldStatus:        "status",
	authz.FieldAreaCode:      "area_code",
}

const requestColumns = `id, customer_name, phone, district, lat, lng, status,
       agent_username, agent_name, area_code, weight, source, notes,
       cancel_reason, created_at, assigned_at, closed_at, cancelled_at, updated_at`

// RequestStore implements store.RequestStore on a pgx pool.
type RequestStore struct {
	pool *pgxpool.Pool
}

// NewRequestStore builds the store.
func NewRequestStore(pool *pgxpool.Pool) *RequestStore {
	return &RequestStore{pool: pool}
}

// List applies the scope and listing options as SQL.
func (s *RequestStore) List(ctx context.Context, scope authz.Scope, opts store.ListOptions) ([]domain.Request, error) {
	clauses := []string{"1=1"}
	args := []any{}

	scopeSQL, scopeArgs, err := buildScopeSQL(scope, len(args))
	if err != nil {
		return nil, err
	}
	clauses = append(clauses, scopeSQL...)
	args = append(args, scopeArgs...)

	if opts.Status != nil {
		args = append(args, string(*opts.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if search := strings.TrimSpace(opts.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(customer_name) LIKE %s OR phone LIKE %s OR id::text LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM requests WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		requestColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

// Get fetches one record by id.
func (s *RequestStore) Get(ctx context.Context, id string) (*domain.Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE id = $1`, requestColumns)
	record, err := scanRequest(s.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Create inserts a record and backfills generated columns.
func (s *RequestStore) Create(ctx context.Context, request *domain.Request) error {
	const query = `
        INSERT INTO requests (customer_name, phone, district, lat, lng, status,
            area_code, weight, source, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return s.pool.QueryRow(ctx, query,
		request.CustomerName,
		request.Phone,
		request.District,
		request.Lat,
		request.Lng,
		string(request.Status),
		request.AreaCode,
		request.Weight,
		request.Source,
		request.Notes,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
}

// Update applies the patch and returns the stored row.
func (s *RequestStore) Update(ctx context.Context, id string, patch domain.RequestPatch) (*domain.Request, error) {
	sets := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.CustomerName != nil {
		add("customer_name", *patch.CustomerName)
	}
	if patch.Phone != nil {
		add("phone", *patch.Phone)
	}
	if patch.District != nil {
		add("district", *patch.District)
	}
	if patch.Lat != nil {
		add("lat", *patch.Lat)
	}
	if patch.Lng != nil {
		add("lng", *patch.Lng)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}
	if patch.Weight != nil {
		add("weight", *patch.Weight)
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.AgentUsername != nil {
		add("agent_username", *patch.AgentUsername)
	}
	if patch.AgentName != nil {
		add("agent_name", *patch.AgentName)
	}
	if patch.CancelReason != nil {
		add("cancel_reason", *patch.CancelReason)
	}
	if patch.AssignedAt != nil {
		add("assigned_at", *patch.AssignedAt)
	}
	if patch.ClosedAt != nil {
		add("closed_at", *patch.ClosedAt)
	}
	if patch.CancelledAt != nil {
		add("cancelled_at", *patch.CancelledAt)
	}
	if patch.UpdatedAt != nil {
		add("updated_at", *patch.UpdatedAt)
	} else {
		add("updated_at", time.Now())
	}

	if len(sets) == 0 {
		return s.Get(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE requests SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), requestColumns)

	record, err := scanRequest(s.pool.QueryRow(ctx, query, args...))
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// buildScopeSQL translates the authorization scope into WHERE clauses with
// numbered placeholders starting after argOffset.
func buildScopeSQL(scope authz.Scope, argOffset int) ([]string, []any, error) {
	clauses := []string{}
	args := []any{}

	for _, clause := range scope.Clauses {
		if len(clause.Any) == 0 {
			continue
		}
		parts := make([]string, 0, len(clause.Any))
		for _, cond := range clause.Any {
			column, ok := columnFor[cond.Field]
			if !ok {
				return nil, nil, fmt.Errorf("postgres: unmapped filter field %q", cond.Field)
			}
			sql, condArgs, err := conditionSQL(column, cond, argOffset+len(args))
			if err != nil {
				return nil, nil, err
			}
			parts = append(parts, sql)
			args = append(args, condArgs...)
		}
		if len(parts) == 1 {
			clauses = append(clauses, parts[0])
		} else {
			clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
		}
	}
	return clauses, args, nil
}

func conditionSQL(column string, cond authz.Condition, argOffset int) (string, []any, error) {
	switch cond.Op {
	case authz.OpEq:
		if len(cond.Values) != 1 {
			return "", nil, fmt.Errorf("postgres: eq filter requires one value")
		}
		return fmt.Sprintf("%s = $%d", column, argOffset+1), []any{cond.Values[0]}, nil
	case authz.OpIn:
		return fmt.Sprintf("%s = ANY($%d)", column, argOffset+1), []any{cond.Values}, nil
	case authz.OpNotIn:
		// absent values pass a not-in filter, matching the in-memory semantics
		return fmt.Sprintf("(%s IS NULL OR %s <> ALL($%d))", column, column, argOffset+1), []any{cond.Values}, nil
	case authz.OpIsNull:
		return fmt.Sprintf("(%s IS NULL OR %s = '')", column, column), nil, nil
	case authz.OpNotNull:
		return fmt.Sprintf("(%s IS NOT NULL AND %s <> '')", column, column), nil, nil
	}
	return "", nil, fmt.Errorf("postgres: unsupported filter op %q", cond.Op)
}

func scanRequests(rows pgx.Rows) ([]domain.Request, error) {
	var result []domain.Request
	for rows.Next() {
		record, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *record)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*domain.Request, error) {
	var (
		record domain.Request
		status string
	)
	if err := row.Scan(
		&record.ID,
		&record.CustomerName,
		&record.Phone,
		&record.District,
		&record.Lat,
		&record.Lng,
		&status,
		&record.AgentUsername,
		&record.AgentName,
		&record.AreaCode,
		&record.Weight,
		&record.Source,
		&record.Notes,
		&record.CancelReason,
		&record.CreatedAt,
		&record.AssignedAt,
		&record.ClosedAt,
		&record.CancelledAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if parsed, ok := domain.ParseStatus(status); ok {
		record.Status = parsed
	} else {
		record.Status = domain.RequestStatus(status)
	}
	return &record, nil
}
