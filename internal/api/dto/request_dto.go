package dto

import (
	"time"

	"github.com/rafah-clos/request-service/internal/domain"
)

// CreateRequestRequest payload.
type CreateRequestRequest struct {
	CustomerName string   `json:"customer_name"`
	Phone        string   `json:"phone"`
	District     string   `json:"district"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	Weight       *int     `json:"weight"`
	Notes        string   `json:"notes"`
	Source       string   `json:"source"`
	AreaCode     *string  `json:"area_code"`
}

// UpdateRequestRequest carries the whitelisted patch fields. Absent fields
// stay untouched.
type UpdateRequestRequest struct {
	CustomerName  *string  `json:"customer_name"`
	Phone         *string  `json:"phone"`
	District      *string  `json:"district"`
	Lat           *float64 `json:"lat"`
	Lng           *float64 `json:"lng"`
	Notes         *string  `json:"notes"`
	Weight        *int     `json:"weight"`
	Status        *string  `json:"status"`
	AgentUsername *string  `json:"agent_username"`
	AgentName     *string  `json:"agent_name"`
	CancelReason  *string  `json:"cancel_reason"`
}

// AssignRequestRequest payload.
type AssignRequestRequest struct {
	AgentUsername string `json:"agent_username"`
	AgentName     string `json:"agent_name"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// RequestResponse is the wire shape of a request record.
type RequestResponse struct {
	ID            string     `json:"id"`
	CustomerName  string     `json:"customer_name"`
	Phone         string     `json:"phone"`
	District      string     `json:"district,omitempty"`
	Lat           *float64   `json:"lat,omitempty"`
	Lng           *float64   `json:"lng,omitempty"`
	Status        string     `json:"status"`
	StatusLabel   string     `json:"status_label"`
	AgentUsername *string    `json:"agent_username,omitempty"`
	AgentName     *string    `json:"agent_name,omitempty"`
	AreaCode      *string    `json:"area_code,omitempty"`
	Weight        *int       `json:"weight,omitempty"`
	Source        string     `json:"source,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CancelReason  *string    `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	AssignedAt    *time.Time `json:"assigned_at,omitempty"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
}

// RequestListResponse wraps a page of requests.
type RequestListResponse struct {
	Data   []RequestResponse `json:"data"`
	View   string            `json:"view"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	Count  int               `json:"count"`
}

// NewRequestResponse maps a domain request to its wire shape.
func NewRequestResponse(r *domain.Request) RequestResponse {
	return RequestResponse{
		ID:            r.ID,
		CustomerName:  r.CustomerName,
		Phone:         r.Phone,
		District:      r.District,
		Lat:           r.Lat,
		Lng:           r.Lng,
		Status:        string(r.Status),
		StatusLabel:   r.Status.ArabicLabel(),
		AgentUsername: r.AgentUsername,
		AgentName:     r.AgentName,
		AreaCode:      r.AreaCode,
		Weight:        r.Weight,
		Source:        r.Source,
		Notes:         r.Notes,
		CancelReason:  r.CancelReason,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		AssignedAt:    r.AssignedAt,
		ClosedAt:      r.ClosedAt,
		CancelledAt:   r.CancelledAt,
	}
}
