package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafah-clos/request-service/internal/domain"
)

// PushTokenStore implements store.PushTokenStore on a pgx pool.
type PushTokenStore struct {
	pool *pgxpool.Pool
}

// NewPushTokenStore builds the store.
func NewPushTokenStore(pool *pgxpool.Pool) *PushTokenStore {
	return &PushTokenStore{pool: pool}
}

// Upsert registers a device token, merging on the token value.
func (s *PushTokenStore) Upsert(ctx context.Context, token *domain.PushToken) error {
	const query = `
        INSERT INTO push_tokens (fcm_token, username, role, platform, device_id,
            user_agent, app_version, enabled, last_seen_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,TRUE,$8,$8)
        ON CONFLICT (fcm_token) DO UPDATE SET
            username = EXCLUDED.username,
            role = EXCLUDED.role,
            platform = EXCLUDED.platform,
            device_id = EXCLUDED.device_id,
            user_agent = EXCLUDED.user_agent,
            app_version = EXCLUDED.app_version,
            enabled = TRUE,
            revoked_at = NULL,
            last_seen_at = EXCLUDED.last_seen_at,
            updated_at = EXCLUDED.updated_at`
	_, err := s.pool.Exec(ctx, query,
		token.FCMToken,
		token.Username,
		string(token.Role),
		nilIfEmpty(token.Platform),
		nilIfEmpty(token.DeviceID),
		nilIfEmpty(token.UserAgent),
		nilIfEmpty(token.AppVersion),
		time.Now(),
	)
	return err
}

// ListByUsername returns enabled tokens for one operator.
func (s *PushTokenStore) ListByUsername(ctx context.Context, username string) ([]domain.PushToken, error) {
	const query = `
        SELECT fcm_token, username, role, COALESCE(platform, ''), COALESCE(device_id, ''),
               enabled, COALESCE(last_seen_at, 'epoch'::timestamptz)
        FROM push_tokens WHERE username = $1 AND enabled`
	rows, err := s.pool.Query(ctx, query, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPushTokens(rows)
}

// ListByRole returns enabled tokens for every operator holding the role.
func (s *PushTokenStore) ListByRole(ctx context.Context, role domain.Role) ([]domain.PushToken, error) {
	const query = `
        SELECT fcm_token, username, role, COALESCE(platform, ''), COALESCE(device_id, ''),
               enabled, COALESCE(last_seen_at, 'epoch'::timestamptz)
        FROM push_tokens WHERE role = $1 AND enabled`
	rows, err := s.pool.Query(ctx, query, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPushTokens(rows)
}

func scanPushTokens(rows pgx.Rows) ([]domain.PushToken, error) {
	var result []domain.PushToken
	for rows.Next() {
		var (
			token   domain.PushToken
			rawRole string
		)
		if err := rows.Scan(
			&token.FCMToken,
			&token.Username,
			&rawRole,
			&token.Platform,
			&token.DeviceID,
			&token.Enabled,
			&token.LastSeenAt,
		); err != nil {
			return nil, err
		}
		if role, ok := domain.ParseRole(rawRole); ok {
			token.Role = role
		} else {
			token.Role = domain.Role(rawRole)
		}
		result = append(result, token)
	}
	return result, rows.Err()
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
