package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rafah-clos/request-service/internal/authz"
	"github.com/rafah-clos/request-service/internal/domain"
	"github.com/rafah-clos/request-service/internal/store"
)

const (
	requestsTable = "requests"

	defaultListLimit = 30
	maxListLimit     = 200
)

// columnFor maps canonical filter fields to store columns.
var columnFor = map[authz.Field]string{
	authz.FieldAgentUsername: "agent_username",
	authz.FieldAgentName:     "agent_name",
	authz.FieldStatus:        "status",
	authz.FieldAreaCode:      "area_code",
}

var requestColumns = strings.Join([]string{
	"id", "customer_name", "phone", "district", "lat", "lng", "status",
	"agent_username", "agent_name", "area_code", "weight", "source", "notes",
	"cancel_reason", "created_at", "assigned_at", "closed_at", "cancelled_at",
	"updated_at",
}, ",")

// RequestStore implements store.RequestStore over PostgREST.
type RequestStore struct {
	client *Client
}

// NewRequestStore builds the adapter.
func NewRequestStore(client *Client) *RequestStore {
	return &RequestStore{client: client}
}

type requestRow struct {
	ID            string     `json:"id"`
	CustomerName  string     `json:"customer_name"`
	Phone         string     `json:"phone"`
	District      string     `json:"district"`
	Lat           *float64   `json:"lat"`
	Lng           *float64   `json:"lng"`
	Status        string     `json:"status"`
	AgentUsername *string    `json:"agent_username"`
	AgentName     *string    `json:"agent_name"`
	AreaCode      *string    `json:"area_code"`
	Weight        *int       `json:"weight"`
	Source        string     `json:"source"`
	Notes         string     `json:"notes"`
	CancelReason  *string    `json:"cancel_reason"`
	CreatedAt     time.Time  `json:"created_at"`
	AssignedAt    *time.Time `json:"assigned_at"`
	ClosedAt      *time.Time `json:"closed_at"`
	CancelledAt   *time.Time `json:"cancelled_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (r requestRow) toDomain() domain.Request {
	status, ok := domain.ParseStatus(r.Status)
	if !ok {
		status = domain.RequestStatus(r.Status)
	}
	return domain.Request{
		ID:            r.ID,
		CustomerName:  r.CustomerName,
		Phone:         r.Phone,
		District:      r.District,
		Lat:           r.Lat,
		Lng:           r.Lng,
		Status:        status,
		AgentUsername: r.AgentUsername,
		AgentName:     r.AgentName,
		AreaCode:      r.AreaCode,
		Weight:        r.Weight,
		Source:        r.Source,
		Notes:         r.Notes,
		CancelReason:  r.CancelReason,
		CreatedAt:     r.CreatedAt,
		AssignedAt:    r.AssignedAt,
		ClosedAt:      r.ClosedAt,
		CancelledAt:   r.CancelledAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// List translates the scope into PostgREST filters and fetches one page.
func (s *RequestStore) List(ctx context.Context, scope authz.Scope, opts store.ListOptions) ([]domain.Request, error) {
	query := url.Values{}
	query.Set("select", requestColumns)

	if err := encodeScope(query, scope); err != nil {
		return nil, err
	}
	if opts.Status != nil {
		query.Add("status", "eq."+opts.Status.ArabicLabel())
	}
	if search := sanitizeSearch(opts.Search); search != "" {
		query.Add("or", fmt.Sprintf("(customer_name.ilike.*%s*,phone.ilike.*%s*,id.ilike.*%s*)",
			search, search, search))
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
	query.Set("order", "created_at.desc")
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var rows []requestRow
	if err := s.client.do(ctx, http.MethodGet, requestsTable, query, "", nil, &rows); err != nil {
		return nil, err
	}
	result := make([]domain.Request, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

// Get fetches one record by id.
func (s *RequestStore) Get(ctx context.Context, id string) (*domain.Request, error) {
	query := url.Values{}
	query.Set("select", requestColumns)
	query.Set("id", "eq."+id)
	query.Set("limit", "1")

	var rows []requestRow
	if err := s.client.do(ctx, http.MethodGet, requestsTable, query, "", nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	record := rows[0].toDomain()
	return &record, nil
}

// Create inserts a record and backfills the stored representation.
func (s *RequestStore) Create(ctx context.Context, request *domain.Request) error {
	body := map[string]any{
		"customer_name": request.CustomerName,
		"phone":         request.Phone,
		"district":      request.District,
		"status":        request.Status.ArabicLabel(),
		"source":        request.Source,
		"notes":         request.Notes,
	}
	if request.Lat != nil {
		body["lat"] = *request.Lat
	}
	if request.Lng != nil {
		body["lng"] = *request.Lng
	}
	if request.Weight != nil {
		body["weight"] = *request.Weight
	}
	if request.AreaCode != nil {
		body["area_code"] = *request.AreaCode
	}

	var rows []requestRow
	if err := s.client.do(ctx, http.MethodPost, requestsTable, nil, "", body, &rows); err != nil {
		return err
	}
	if len(rows) > 0 {
		*request = rows[0].toDomain()
	}
	return nil
}

// Update patches a record by id and returns the stored representation.
func (s *RequestStore) Update(ctx context.Context, id string, patch domain.RequestPatch) (*domain.Request, error) {
	body := encodePatch(patch)
	if len(body) == 0 {
		return s.Get(ctx, id)
	}

	query := url.Values{}
	query.Set("id", "eq."+id)
	query.Set("select", requestColumns)

	var rows []requestRow
	if err := s.client.do(ctx, http.MethodPatch, requestsTable, query, "", body, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	record := rows[0].toDomain()
	return &record, nil
}

func encodePatch(patch domain.RequestPatch) map[string]any {
	body := map[string]any{}
	setString := func(column string, value *string) {
		if value != nil {
			body[column] = *value
		}
	}
	setString("customer_name", patch.CustomerName)
	setString("phone", patch.Phone)
	setString("district", patch.District)
	setString("notes", patch.Notes)
	setString("agent_username", patch.AgentUsername)
	setString("agent_name", patch.AgentName)
	if patch.Lat != nil {
		body["lat"] = *patch.Lat
	}
	if patch.Lng != nil {
		body["lng"] = *patch.Lng
	}
	if patch.Weight != nil {
		body["weight"] = *patch.Weight
	}
	if patch.Status != nil {
		body["status"] = patch.Status.ArabicLabel()
	}
	if patch.CancelReason != nil {
		body["cancel_reason"] = *patch.CancelReason
	}
	setTime := func(column string, value *time.Time) {
		if value != nil {
			body[column] = value.UTC().Format(time.RFC3339)
		}
	}
	setTime("assigned_at", patch.AssignedAt)
	setTime("closed_at", patch.ClosedAt)
	setTime("cancelled_at", patch.CancelledAt)
	setTime("updated_at", patch.UpdatedAt)
	return body
}

// encodeScope translates the authorization scope into PostgREST filter
// parameters. Single-condition clauses become column filters; disjunctions
// become or=(...) parameters.
func encodeScope(query url.Values, scope authz.Scope) error {
	for _, clause := range scope.Clauses {
		if len(clause.Any) == 0 {
			continue
		}
		if len(clause.Any) == 1 {
			cond := clause.Any[0]
			column, ok := columnFor[cond.Field]
			if !ok {
				return fmt.Errorf("supabase: unmapped filter field %q", cond.Field)
			}
			filter, err := conditionFilter(cond)
			if err != nil {
				return err
			}
			query.Add(column, filter)
			continue
		}

		fragments := make([]string, 0, len(clause.Any))
		for _, cond := range clause.Any {
			column, ok := columnFor[cond.Field]
			if !ok {
				return fmt.Errorf("supabase: unmapped filter field %q", cond.Field)
			}
			filter, err := conditionFilter(cond)
			if err != nil {
				return err
			}
			fragments = append(fragments, column+"."+filter)
		}
		query.Add("or", "("+strings.Join(fragments, ",")+")")
	}
	return nil
}

func conditionFilter(cond authz.Condition) (string, error) {
	switch cond.Op {
	case authz.OpEq:
		if len(cond.Values) != 1 {
			return "", fmt.Errorf("supabase: eq filter requires one value")
		}
		return "eq." + wireValue(cond.Field, cond.Values[0]), nil
	case authz.OpIn:
		return "in.(" + strings.Join(wireValues(cond.Field, cond.Values), ",") + ")", nil
	case authz.OpNotIn:
		return "not.in.(" + strings.Join(wireValues(cond.Field, cond.Values), ",") + ")", nil
	case authz.OpIsNull:
		return "is.null", nil
	case authz.OpNotNull:
		return "not.is.null", nil
	}
	return "", fmt.Errorf("supabase: unsupported filter op %q", cond.Op)
}

// wireValue converts canonical filter values to the store's encoding; status
// values are stored as Arabic labels.
func wireValue(field authz.Field, value string) string {
	if field == authz.FieldStatus {
		if status, ok := domain.ParseStatus(value); ok {
			return status.ArabicLabel()
		}
	}
	return value
}

func wireValues(field authz.Field, values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = wireValue(field, v)
	}
	return out
}

// sanitizeSearch strips characters that would break out of a PostgREST
// pattern expression.
func sanitizeSearch(search string) string {
	search = strings.TrimSpace(search)
	replacer := strings.NewReplacer("*", "", "(", "", ")", "", ",", "")
	return replacer.Replace(search)
}
