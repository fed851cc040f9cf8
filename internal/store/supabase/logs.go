package supabase

import (
	"context"
	"net/http"

	"github.com/rafah-clos/request-service/internal/domain"
)

const logsTable = "logs"

// AuditLogStore implements store.AuditLogStore over PostgREST.
type AuditLogStore struct {
	client *Client
}

// NewAuditLogStore builds the adapter.
func NewAuditLogStore(client *Client) *AuditLogStore {
	return &AuditLogStore{client: client}
}

// Insert appends one audit row.
func (s *AuditLogStore) Insert(ctx context.Context, entry *domain.AuditEntry) error {
	body := map[string]any{
		"username":   entry.Username,
		"role":       entry.Role.ArabicLabel(),
		"action":     string(entry.Action),
		"request_id": entry.RequestID,
		"source":     entry.Source,
	}
	if entry.OldStatus != nil {
		body["old_status"] = entry.OldStatus.ArabicLabel()
	}
	if entry.NewStatus != nil {
		body["new_status"] = entry.NewStatus.ArabicLabel()
	}
	if entry.AgentName != nil {
		body["agent_name"] = *entry.AgentName
	}
	if entry.Details != "" {
		body["details"] = entry.Details
	}
	if entry.Before != nil {
		body["before_json"] = snapshot(entry.Before)
	}
	if entry.After != nil {
		body["after_json"] = snapshot(entry.After)
	}
	return s.client.do(ctx, http.MethodPost, logsTable, nil, "return=minimal", body, nil)
}

// snapshot flattens a request into the audit JSON shape.
func snapshot(r *domain.Request) map[string]any {
	return map[string]any{
		"id":             r.ID,
		"customer_name":  r.CustomerName,
		"phone":          r.Phone,
		"district":       r.District,
		"status":         r.Status.ArabicLabel(),
		"agent_username": r.AgentUsername,
		"agent_name":     r.AgentName,
		"weight":         r.Weight,
		"notes":          r.Notes,
	}
}
