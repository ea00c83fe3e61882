package audit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/shared"
)

// Action names what happened
type Action string

const (
	ActionTemporaryBlock       Action = "TEMPORARY_BLOCK"
	ActionRateLimitExceeded    Action = "RATE_LIMIT_EXCEEDED"
	ActionUnblock              Action = "UNBLOCK"
	ActionLoginFailed          Action = "LOGIN_FAILED"
	ActionLoginSucceeded       Action = "LOGIN_SUCCEEDED"
	ActionOrderConfirmed       Action = "ORDER_CONFIRMED"
	ActionOrderConfirmRejected Action = "ORDER_CONFIRM_REJECTED"
	ActionOrderCancelled       Action = "ORDER_CANCELLED"
	ActionOrderShipped         Action = "ORDER_SHIPPED"
	ActionOrderDelivered       Action = "ORDER_DELIVERED"
	ActionLowStock             Action = "LOW_STOCK"
)

// Outcome is the result of the audited action
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
	OutcomeBlocked Outcome = "BLOCKED"
	OutcomeDenied  Outcome = "DENIED"
)

// Entity types used on records
const (
	EntitySecurity = "SECURITY"
	EntityOrder    = "ORDER"
	EntityProduct  = "PRODUCT"
	EntityUser     = "USER"
)

// RedactedValue replaces sensitive values in record payloads
const RedactedValue = "***REDACTED***"

var sensitiveKeys = []string{"password", "token", "secret", "api_key", "private_key"}

// Record is one immutable audit entry
type Record struct {
	ID           uuid.UUID
	Timestamp    time.Time
	UserID       string
	Identity     string
	EntityType   string
	EntityID     string
	Action       Action
	PreviousData map[string]any
	NewData      map[string]any
	IPAddress    string
	UserAgent    string
	Outcome      Outcome
	Message      string
}

// NewRecord creates a record stamped with a fresh ID and the current time
func NewRecord(entityType string, action Action, outcome Outcome, message string) *Record {
	return &Record{
		ID:         uuid.New(),
		Timestamp:  time.Now().UTC(),
		EntityType: entityType,
		Action:     action,
		Outcome:    outcome,
		Message:    message,
	}
}

// WithEntity sets the entity ID
func (r *Record) WithEntity(id string) *Record {
	r.EntityID = id
	return r
}

// WithIdentity sets the subject the record is about (user or hashed IP key)
func (r *Record) WithIdentity(identity string) *Record {
	r.Identity = identity
	return r
}

// WithUser sets the acting user
func (r *Record) WithUser(userID string) *Record {
	r.UserID = userID
	return r
}

// WithRequest sets the client address and user agent
func (r *Record) WithRequest(ip, userAgent string) *Record {
	r.IPAddress = ip
	r.UserAgent = userAgent
	return r
}

// WithData sets the before/after payloads, redacting sensitive keys
func (r *Record) WithData(previous, next map[string]any) *Record {
	r.PreviousData = Redact(previous)
	r.NewData = Redact(next)
	return r
}

// Redact returns a copy of data with sensitive keys replaced at any depth
func Redact(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		if isSensitive(k) {
			out[k] = RedactedValue
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return Redact(val)
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = redactValue(item)
		}
		return items
	default:
		return v
	}
}

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// Repository persists audit records
type Repository interface {
	Save(ctx context.Context, record *Record) error
	// FindAll lists records newest first. Supported filters: "action", "entity_type", "identity".
	FindAll(ctx context.Context, filter shared.Filter) ([]Record, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// Sink forwards audit records to an external stream
type Sink interface {
	Write(ctx context.Context, record *Record) error
	Close() error
}
