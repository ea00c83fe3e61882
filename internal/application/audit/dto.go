package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/audit"
)

// ListFilter represents the audit list query parameters
type ListFilter struct {
	Action     string `form:"action"`
	EntityType string `form:"entity_type"`
	Identity   string `form:"identity"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// RecordResponse is the API view of an audit record
type RecordResponse struct {
	ID           uuid.UUID      `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	UserID       string         `json:"user_id,omitempty"`
	Identity     string         `json:"identity,omitempty"`
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id,omitempty"`
	Action       string         `json:"action"`
	PreviousData map[string]any `json:"previous_data,omitempty"`
	NewData      map[string]any `json:"new_data,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	Outcome      string         `json:"outcome"`
	Message      string         `json:"message"`
}

// ToRecordResponse converts a record to its API view
func ToRecordResponse(r *audit.Record) RecordResponse {
	return RecordResponse{
		ID:           r.ID,
		Timestamp:    r.Timestamp,
		UserID:       r.UserID,
		Identity:     r.Identity,
		EntityType:   r.EntityType,
		EntityID:     r.EntityID,
		Action:       string(r.Action),
		PreviousData: r.PreviousData,
		NewData:      r.NewData,
		IPAddress:    r.IPAddress,
		UserAgent:    r.UserAgent,
		Outcome:      string(r.Outcome),
		Message:      r.Message,
	}
}

// ToRecordResponses converts a slice of records
func ToRecordResponses(records []audit.Record) []RecordResponse {
	out := make([]RecordResponse, len(records))
	for i := range records {
		out[i] = ToRecordResponse(&records[i])
	}
	return out
}
