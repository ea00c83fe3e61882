package sales

import (
	"context"
	"time"

	"github.com/shopcore/backend/internal/domain/audit"
)

// Confirmation outcomes reported to Metrics
const (
	OutcomeConfirmed         = "confirmed"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeRejected          = "rejected"
	OutcomeNotFound          = "not_found"
	OutcomeError             = "error"
)

// AuditRecorder writes audit records. Implementations never fail the caller.
type AuditRecorder interface {
	Record(ctx context.Context, record *audit.Record)
}

// Metrics receives order workflow measurements
type Metrics interface {
	RecordConfirmation(ctx context.Context, outcome string, duration time.Duration)
	RecordStockReserved(ctx context.Context, units int)
}
