package domain

import "time"

// AuditAction enumerates logged mutation kinds.
type AuditAction string

const (
	AuditActionCreate       AuditAction = "CREATE"
	AuditActionUpdate       AuditAction = "UPDATE"
	AuditActionAssign       AuditAction = "ASSIGN"
	AuditActionStatusChange AuditAction = "STATUS_CHANGE"
)

// AuditEntry records a mutation against a request for the logs table.
// Insert failures must never fail the originating write.
type AuditEntry struct {
	ID        string
	Username  string
	Role      Role
	Action    AuditAction
	RequestID string
	OldStatus *RequestStatus
	NewStatus *RequestStatus
	AgentName *string
	Source    string
	Details   string
	Before    *Request
	After     *Request
	CreatedAt time.Time
}

// PushToken is a registered FCM device token, keyed on the token itself.
type PushToken struct {
	FCMToken   string
	Username   string
	Role       Role
	Platform   string
	DeviceID   string
	UserAgent  string
	AppVersion string
	Enabled    bool
	LastSeenAt time.Time
	UpdatedAt  time.Time
}
