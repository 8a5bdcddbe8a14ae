package audit

import (
	"context"
	"errors"
	"time"

	"retell-pos-bridge/internal/functions"
	"retell-pos-bridge/pkg/logger"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
// It is append-only: there is no Update or Delete.
type Repository interface {
	Append(ctx context.Context, e Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Service records function-call traffic for operators.
//
// Callers should treat recording as best-effort.
type Service struct {
	repo         Repository
	clock        func() time.Time
	writeTimeout time.Duration
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now, writeTimeout: 2 * time.Second}
}

var (
	ErrInvalidEvent  = errors.New("audit: invalid event")
	ErrNotConfigured = errors.New("audit: repository not configured")
)

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return ErrNotConfigured
	}
	if e.FunctionName == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// RecordCall stores a dispatcher record. Failures are logged and dropped.
func (s *Service) RecordCall(ctx context.Context, rec functions.CallRecord) {
	// Detach from the request so a client hang-up does not drop the record.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	err := s.Append(wctx, Event{
		FunctionName:   rec.FunctionName,
		CallID:         rec.CallID,
		ConversationID: rec.ConversationID,
		Status:         rec.Status,
		OK:             rec.OK,
		ErrorCode:      rec.ErrorCode,
		BookingID:      rec.BookingID,
		DurationMS:     rec.Duration.Milliseconds(),
	})
	if err != nil {
		logger.From(ctx).Warn("audit record dropped", "err", err)
	}
}

// Recent lists the latest events, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Event, error) {
	if s.repo == nil {
		return nil, ErrNotConfigured
	}
	return s.repo.ListRecent(ctx, ClampLimit(limit))
}
