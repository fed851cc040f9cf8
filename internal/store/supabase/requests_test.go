package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rafah-clos/request-service/internal/authz"
	"github.com/rafah-clos/request-service/internal/domain"
	"github.com/rafah-clos/request-service/internal/store"
	"github.com/rafah-clos/request-service/pkg/util"
)

type capturedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Prefer string
	APIKey string
	Auth   string
	Body   map[string]any
}

// newFakePostgREST spins an httptest server answering with the given status
// and body, capturing what the adapter sent.
func newFakePostgREST(t *testing.T, status int, responseBody any) (*Client, *capturedRequest) {
	t.Helper()

	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Method = r.Method
		captured.Path = r.URL.Path
		captured.Query = r.URL.Query()
		captured.Prefer = r.Header.Get("Prefer")
		captured.APIKey = r.Header.Get("apikey")
		captured.Auth = r.Header.Get("Authorization")
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&captured.Body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if responseBody != nil {
			_ = json.NewEncoder(w).Encode(responseBody)
		}
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL, ServiceKey: "service-key"}, zap.NewNop())
	require.NoError(t, err)
	return client, captured
}

func sampleRow(id string) map[string]any {
	return map[string]any{
		"id":             id,
		"customer_name":  "أم محمد",
		"phone":          "0599000000",
		"district":       "الشجاعية",
		"status":         "مسند",
		"agent_username": "radh",
		"agent_name":     "راضي",
		"source":         "web",
		"notes":          "",
		"created_at":     time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		"updated_at":     time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestListTranslatesAgentScope(t *testing.T) {
	client, captured := newFakePostgREST(t, http.StatusOK, []map[string]any{sampleRow("r-1")})
	requests := NewRequestStore(client)

	identity := &domain.Identity{Username: "radh", Name: "راضي", Role: domain.RoleAgent}
	scope, err := authz.BuildReadScope(identity, authz.ViewAssigned, authz.Options{})
	require.NoError(t, err)

	result, err := requests.List(context.Background(), scope, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "r-1", result[0].ID)
	assert.Equal(t, domain.StatusAssigned, result[0].Status, "Arabic status resolves to canonical form")

	assert.Equal(t, "/rest/v1/requests", captured.Path)
	assert.Equal(t, "service-key", captured.APIKey)
	assert.Equal(t, "Bearer service-key", captured.Auth)

	// ownership disjunction
	assert.Contains(t, captured.Query["or"], "(agent_username.eq.radh,agent_name.eq.راضي)")
	// view narrowing with Arabic wire labels
	assert.Equal(t, "not.in.(مكتمل,ملغي)", captured.Query.Get("status"))
	assert.Equal(t, "created_at.desc", captured.Query.Get("order"))
	assert.Equal(t, "30", captured.Query.Get("limit"))
	assert.Equal(t, "0", captured.Query.Get("offset"))
}

func TestListTranslatesStaffNewView(t *testing.T) {
	client, captured := newFakePostgREST(t, http.StatusOK, []map[string]any{})
	requests := NewRequestStore(client)

	identity := &domain.Identity{Username: "sara", Role: domain.RoleStaff}
	scope, err := authz.BuildReadScope(identity, authz.ViewNew, authz.Options{})
	require.NoError(t, err)

	_, err = requests.List(context.Background(), scope, store.ListOptions{Limit: 500, Offset: 10})
	require.NoError(t, err)

	assert.Equal(t, "is.null", captured.Query.Get("agent_username"))
	assert.Equal(t, "200", captured.Query.Get("limit"), "limit is clamped")
	assert.Equal(t, "10", captured.Query.Get("offset"))
}

func TestListStatusOverrideAndSearch(t *testing.T) {
	client, captured := newFakePostgREST(t, http.StatusOK, []map[string]any{})
	requests := NewRequestStore(client)

	status := domain.StatusCompleted
	_, err := requests.List(context.Background(), authz.Scope{}, store.ListOptions{
		Status: &status,
		Search: "أم (محمد)*",
	})
	require.NoError(t, err)

	assert.Equal(t, "eq.مكتمل", captured.Query.Get("status"))
	assert.Contains(t, captured.Query.Get("or"), "customer_name.ilike.*أم محمد*",
		"search pattern is sanitized before embedding")
	assert.Contains(t, captured.Query.Get("or"), "phone.ilike.")
	assert.Contains(t, captured.Query.Get("or"), "id.ilike.")
}

func TestGetNotFound(t *testing.T) {
	client, _ := newFakePostgREST(t, http.StatusOK, []map[string]any{})
	requests := NewRequestStore(client)

	_, err := requests.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestUpdateSendsArabicStatusAndStamps(t *testing.T) {
	client, captured := newFakePostgREST(t, http.StatusOK, []map[string]any{sampleRow("r-1")})
	requests := NewRequestStore(client)

	completed := domain.StatusCompleted
	closedAt := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	_, err := requests.Update(context.Background(), "r-1", domain.RequestPatch{
		Status:   &completed,
		ClosedAt: &closedAt,
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, captured.Method)
	assert.Equal(t, "eq.r-1", captured.Query.Get("id"))
	assert.Equal(t, "return=representation", captured.Prefer)
	assert.Equal(t, "مكتمل", captured.Body["status"])
	assert.Equal(t, "2026-08-28T12:00:00Z", captured.Body["closed_at"])
}

func TestUpdateEmptyResultIsNotFound(t *testing.T) {
	client, _ := newFakePostgREST(t, http.StatusOK, []map[string]any{})
	requests := NewRequestStore(client)

	notes := "x"
	_, err := requests.Update(context.Background(), "missing", domain.RequestPatch{Notes: &notes})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestUpstreamErrorBecomesUpstreamFailure(t *testing.T) {
	client, _ := newFakePostgREST(t, http.StatusInternalServerError, map[string]any{"message": "boom"})
	requests := NewRequestStore(client)

	_, err := requests.List(context.Background(), authz.Scope{}, store.ListOptions{})
	require.Error(t, err)
	domainErr := util.ToDomainError(err)
	assert.Equal(t, "UPSTREAM_FAILURE", domainErr.Code)
	assert.Equal(t, http.StatusBadGateway, domainErr.HTTPStatus)
}

func TestCreateSendsCanonicalColumns(t *testing.T) {
	client, captured := newFakePostgREST(t, http.StatusCreated, []map[string]any{sampleRow("r-9")})
	requests := NewRequestStore(client)

	request := &domain.Request{
		CustomerName: "أم محمد",
		Phone:        "0599000000",
		Status:       domain.StatusNew,
		Source:       "web",
	}
	require.NoError(t, requests.Create(context.Background(), request))

	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "جديد", captured.Body["status"])
	assert.Equal(t, "r-9", request.ID, "create backfills the stored row")
}
