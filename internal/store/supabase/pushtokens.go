package supabase

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rafah-clos/request-service/internal/domain"
)

const pushTokensTable = "push_tokens"

// PushTokenStore implements store.PushTokenStore over PostgREST.
type PushTokenStore struct {
	client *Client
}

// NewPushTokenStore builds the adapter.
func NewPushTokenStore(client *Client) *PushTokenStore {
	return &PushTokenStore{client: client}
}

type pushTokenRow struct {
	FCMToken   string     `json:"fcm_token"`
	Username   string     `json:"username"`
	Role       string     `json:"role"`
	Platform   *string    `json:"platform"`
	DeviceID   *string    `json:"device_id"`
	UserAgent  *string    `json:"user_agent"`
	AppVersion *string    `json:"app_version"`
	Enabled    bool       `json:"enabled"`
	LastSeenAt *time.Time `json:"last_seen_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

func (r pushTokenRow) toDomain() domain.PushToken {
	role, ok := domain.ParseRole(r.Role)
	if !ok {
		role = domain.Role(r.Role)
	}
	token := domain.PushToken{
		FCMToken: r.FCMToken,
		Username: r.Username,
		Role:     role,
		Enabled:  r.Enabled,
	}
	if r.Platform != nil {
		token.Platform = *r.Platform
	}
	if r.DeviceID != nil {
		token.DeviceID = *r.DeviceID
	}
	if r.UserAgent != nil {
		token.UserAgent = *r.UserAgent
	}
	if r.AppVersion != nil {
		token.AppVersion = *r.AppVersion
	}
	if r.LastSeenAt != nil {
		token.LastSeenAt = *r.LastSeenAt
	}
	if r.UpdatedAt != nil {
		token.UpdatedAt = *r.UpdatedAt
	}
	return token
}

// Upsert registers a device token, merging on the token value.
func (s *PushTokenStore) Upsert(ctx context.Context, token *domain.PushToken) error {
	now := time.Now().UTC().Format(time.RFC3339)
	body := map[string]any{
		"fcm_token":    token.FCMToken,
		"username":     token.Username,
		"role":         token.Role.ArabicLabel(),
		"platform":     emptyToNil(token.Platform),
		"device_id":    emptyToNil(token.DeviceID),
		"user_agent":   emptyToNil(token.UserAgent),
		"app_version":  emptyToNil(token.AppVersion),
		"enabled":      true,
		"revoked_at":   nil,
		"last_seen_at": now,
		"updated_at":   now,
	}

	query := url.Values{}
	query.Set("on_conflict", "fcm_token")
	return s.client.do(ctx, http.MethodPost, pushTokensTable, query,
		"resolution=merge-duplicates,return=minimal", body, nil)
}

// ListByUsername returns enabled tokens for one operator.
func (s *PushTokenStore) ListByUsername(ctx context.Context, username string) ([]domain.PushToken, error) {
	query := url.Values{}
	query.Set("select", "fcm_token,username,role,platform,device_id,enabled,last_seen_at")
	query.Set("username", "eq."+username)
	query.Set("enabled", "eq.true")
	return s.list(ctx, query)
}

// ListByRole returns enabled tokens for every operator holding the role.
func (s *PushTokenStore) ListByRole(ctx context.Context, role domain.Role) ([]domain.PushToken, error) {
	query := url.Values{}
	query.Set("select", "fcm_token,username,role,platform,device_id,enabled,last_seen_at")
	query.Set("role", "eq."+role.ArabicLabel())
	query.Set("enabled", "eq.true")
	return s.list(ctx, query)
}

func (s *PushTokenStore) list(ctx context.Context, query url.Values) ([]domain.PushToken, error) {
	var rows []pushTokenRow
	if err := s.client.do(ctx, http.MethodGet, pushTokensTable, query, "", nil, &rows); err != nil {
		return nil, err
	}
	tokens := make([]domain.PushToken, 0, len(rows))
	for _, row := range rows {
		tokens = append(tokens, row.toDomain())
	}
	return tokens, nil
}

func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
