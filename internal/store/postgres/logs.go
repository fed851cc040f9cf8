package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafah-clos/request-service/internal/domain"
)

// AuditLogStore implements store.AuditLogStore on a pgx pool.
type AuditLogStore struct {
	pool *pgxpool.Pool
}

// NewAuditLogStore builds the store.
func NewAuditLogStore(pool *pgxpool.Pool) *AuditLogStore {
	return &AuditLogStore{pool: pool}
}

// Insert appends one audit row.
func (s *AuditLogStore) Insert(ctx context.Context, entry *domain.AuditEntry) error {
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}

	before, err := marshalSnapshot(entry.Before)
	if err != nil {
		return err
	}
	after, err := marshalSnapshot(entry.After)
	if err != nil {
		return err
	}

	const query = `
        INSERT INTO logs (id, username, role, action, request_id, old_status,
            new_status, agent_name, source, details, before_json, after_json)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err = s.pool.Exec(ctx, query,
		id,
		entry.Username,
		string(entry.Role),
		string(entry.Action),
		entry.RequestID,
		statusOrNil(entry.OldStatus),
		statusOrNil(entry.NewStatus),
		entry.AgentName,
		entry.Source,
		entry.Details,
		before,
		after,
	)
	return err
}

func statusOrNil(status *domain.RequestStatus) any {
	if status == nil {
		return nil
	}
	return string(*status)
}

func marshalSnapshot(record *domain.Request) ([]byte, error) {
	if record == nil {
		return nil, nil
	}
	return json.Marshal(map[string]any{
		"id":             record.ID,
		"customer_name":  record.CustomerName,
		"phone":          record.Phone,
		"district":       record.District,
		"status":         string(record.Status),
		"agent_username": record.AgentUsername,
		"agent_name":     record.AgentName,
		"weight":         record.Weight,
		"notes":          record.Notes,
	})
}
