package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/audit"
)

// AuditRecordModel is the persistence model for an audit record.
// Records are append-only, so there is no UpdatedAt.
type AuditRecordModel struct {
	ID           uuid.UUID     `gorm:"type:uuid;primary_key"`
	Timestamp    time.Time     `gorm:"not null;index"`
	UserID       string        `gorm:"type:varchar(64);index"`
	Identity     string        `gorm:"type:varchar(100);index"`
	EntityType   string        `gorm:"type:varchar(50);not null;index:idx_audit_records_entity,priority:1"`
	EntityID     string        `gorm:"type:varchar(64);index:idx_audit_records_entity,priority:2"`
	Action       audit.Action  `gorm:"type:varchar(50);not null;index"`
	PreviousData *string       `gorm:"type:jsonb"`
	NewData      *string       `gorm:"type:jsonb"`
	IPAddress    string        `gorm:"column:ip_address;type:varchar(45)"`
	UserAgent    string        `gorm:"type:varchar(500)"`
	Outcome      audit.Outcome `gorm:"type:varchar(20);not null"`
	Message      string        `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (AuditRecordModel) TableName() string {
	return "audit_records"
}

// ToDomain converts the persistence model to a domain Record.
// Payloads that fail to decode are dropped.
func (m *AuditRecordModel) ToDomain() *audit.Record {
	return &audit.Record{
		ID:           m.ID,
		Timestamp:    m.Timestamp,
		UserID:       m.UserID,
		Identity:     m.Identity,
		EntityType:   m.EntityType,
		EntityID:     m.EntityID,
		Action:       m.Action,
		PreviousData: decodePayload(m.PreviousData),
		NewData:      decodePayload(m.NewData),
		IPAddress:    m.IPAddress,
		UserAgent:    m.UserAgent,
		Outcome:      m.Outcome,
		Message:      m.Message,
	}
}

// AuditRecordModelFromDomain creates a persistence model from a domain Record.
func AuditRecordModelFromDomain(r *audit.Record) (*AuditRecordModel, error) {
	previous, err := encodePayload(r.PreviousData)
	if err != nil {
		return nil, err
	}
	next, err := encodePayload(r.NewData)
	if err != nil {
		return nil, err
	}
	return &AuditRecordModel{
		ID:           r.ID,
		Timestamp:    r.Timestamp,
		UserID:       r.UserID,
		Identity:     r.Identity,
		EntityType:   r.EntityType,
		EntityID:     r.EntityID,
		Action:       r.Action,
		PreviousData: previous,
		NewData:      next,
		IPAddress:    r.IPAddress,
		UserAgent:    r.UserAgent,
		Outcome:      r.Outcome,
		Message:      r.Message,
	}, nil
}

// Nil payloads are stored as NULL
func encodePayload(data map[string]any) (*string, error) {
	if data == nil {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func decodePayload(raw *string) map[string]any {
	if raw == nil || *raw == "" {
		return nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(*raw), &data); err != nil {
		return nil
	}
	return data
}
