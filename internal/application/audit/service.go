package audit

import (
	"context"
	"time"

	"github.com/shopcore/backend/internal/domain/audit"
	"github.com/shopcore/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Service writes audit records. Record never returns an error: a failing
// repository or sink is logged and the business operation carries on.
type Service struct {
	repo   audit.Repository
	sink   audit.Sink
	logger *zap.Logger
}

// NewService creates a new audit Service
func NewService(repo audit.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		logger: logger.Named("audit"),
	}
}

// SetSink sets an optional external stream every record is copied to
func (s *Service) SetSink(sink audit.Sink) {
	s.sink = sink
}

// Record persists record, filling request fields from the actor in ctx
func (s *Service) Record(ctx context.Context, record *audit.Record) {
	if record == nil {
		return
	}
	audit.ActorFrom(ctx).Apply(record)

	fields := []zap.Field{
		zap.String("audit_id", record.ID.String()),
		zap.String("action", string(record.Action)),
		zap.String("outcome", string(record.Outcome)),
		zap.String("entity_type", record.EntityType),
		zap.String("entity_id", record.EntityID),
	}
	if record.Identity != "" {
		fields = append(fields, zap.String("identity", record.Identity))
	}
	s.logger.Info(record.Message, fields...)

	// The write must not be cut short by a request context that is about to end
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if s.repo != nil {
		if err := s.repo.Save(writeCtx, record); err != nil {
			s.logger.Error("failed to persist audit record", append(fields, zap.Error(err))...)
		}
	}
	if s.sink != nil {
		if err := s.sink.Write(writeCtx, record); err != nil {
			s.logger.Warn("failed to forward audit record", append(fields, zap.Error(err))...)
		}
	}
}

// List returns audit records newest first
func (s *Service) List(ctx context.Context, filter ListFilter) ([]RecordResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	domainFilter.OrderBy = "timestamp"

	if filter.Action != "" {
		domainFilter.Filters["action"] = filter.Action
	}
	if filter.EntityType != "" {
		domainFilter.Filters["entity_type"] = filter.EntityType
	}
	if filter.Identity != "" {
		domainFilter.Filters["identity"] = filter.Identity
	}

	records, err := s.repo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToRecordResponses(records), total, nil
}
