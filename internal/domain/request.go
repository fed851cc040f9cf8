package domain

import (
	"strings"
	"time"
)

// RequestStatus enumerates lifecycle states for donation requests. Canonical
// values are English; the external spreadsheet-era data uses Arabic labels,
// handled through the alias table below.
type RequestStatus string

const (
	StatusNew       RequestStatus = "new"
	StatusAssigned  RequestStatus = "assigned"
	StatusCompleted RequestStatus = "completed"
	StatusCancelled RequestStatus = "cancelled"
)

var statusAliases = map[string]RequestStatus{
	"new":       StatusNew,
	"جديد":      StatusNew,
	"assigned":  StatusAssigned,
	"مسند":      StatusAssigned,
	"completed": StatusCompleted,
	"مكتمل":     StatusCompleted,
	// legacy data uses "مغلق" (closed) interchangeably with completed
	"مغلق":      StatusCompleted,
	"closed":    StatusCompleted,
	"cancelled": StatusCancelled,
	"ملغي":      StatusCancelled,
}

var statusArabicLabels = map[RequestStatus]string{
	StatusNew:       "جديد",
	StatusAssigned:  "مسند",
	StatusCompleted: "مكتمل",
	StatusCancelled: "ملغي",
}

// ParseStatus resolves a raw status string (English or Arabic) to the
// canonical RequestStatus.
func ParseStatus(raw string) (RequestStatus, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	status, ok := statusAliases[key]
	return status, ok
}

// ArabicLabel returns the Arabic label used by the legacy record store.
func (s RequestStatus) ArabicLabel() string {
	if label, ok := statusArabicLabels[s]; ok {
		return label
	}
	return string(s)
}

// Terminal reports whether the status ends the request lifecycle.
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Request is the protected resource: a donation pickup request owned by the
// external keyed-record store. Field names here are canonical; each store
// backend maps them to its own column names.
type Request struct {
	ID            string
	CustomerName  string
	Phone         string
	District      string
	Lat           *float64
	Lng           *float64
	Status        RequestStatus
	AgentUsername *string
	AgentName     *string
	AreaCode      *string
	Weight        *int
	Source        string
	Notes         string
	CancelReason  *string
	CreatedAt     time.Time
	AssignedAt    *time.Time
	ClosedAt      *time.Time
	CancelledAt   *time.Time
	UpdatedAt     time.Time
}

// Assigned reports whether the request carries a non-empty agent username.
func (r *Request) Assigned() bool {
	return r.AgentUsername != nil && strings.TrimSpace(*r.AgentUsername) != ""
}

// RequestPatch describes a partial update. Nil fields are left untouched by
// the store.
type RequestPatch struct {
	CustomerName  *string
	Phone         *string
	District      *string
	Lat           *float64
	Lng           *float64
	Notes         *string
	Weight        *int
	Status        *RequestStatus
	AgentUsername *string
	AgentName     *string
	CancelReason  *string
	AssignedAt    *time.Time
	ClosedAt      *time.Time
	CancelledAt   *time.Time
	UpdatedAt     *time.Time
}

// Empty reports whether the patch carries no changes.
func (p *RequestPatch) Empty() bool {
	return p.CustomerName == nil && p.Phone == nil && p.District == nil &&
		p.Lat == nil && p.Lng == nil && p.Notes == nil && p.Weight == nil &&
		p.Status == nil && p.AgentUsername == nil && p.AgentName == nil &&
		p.CancelReason == nil && p.AssignedAt == nil && p.ClosedAt == nil &&
		p.CancelledAt == nil
}
