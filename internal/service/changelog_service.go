package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/curaflow/curaflow/internal/domain"
	"github.com/curaflow/curaflow/pkg/metrics"
)

type ChangeLogRepository interface {
	Create(ctx context.Context, entry *domain.ChangeLog) error
}

// ChangeEntry is the in-process shape of a change-trail record before it
// is serialized for the ops.change_log table.
type ChangeEntry struct {
	ActorID      uuid.UUID
	RequestID    string
	Action       domain.ChangeAction
	ResourceType string
	ResourceID   string
	ResourceRef  string
	Details      map[string]interface{}
}

// ChangeLogService persists change-trail entries off the request path
// through a bounded buffer. When the buffer is full the entry is dropped
// with a warning; the change trail is best-effort and must never block or
// fail a scheduling operation.
type ChangeLogService struct {
	repo    ChangeLogRepository
	log     *zap.Logger
	metrics *metrics.Collector
	entries chan *domain.ChangeLog
	done    chan struct{}
}

const changeLogBufferSize = 10_000

func NewChangeLogService(repo ChangeLogRepository, log *zap.Logger, m *metrics.Collector) *ChangeLogService {
	svc := &ChangeLogService{
		repo:    repo,
		log:     log,
		metrics: m,
		entries: make(chan *domain.ChangeLog, changeLogBufferSize),
		done:    make(chan struct{}),
	}
	go svc.worker()
	return svc
}

// Record enqueues a change entry for async persistence.
func (s *ChangeLogService) Record(ctx context.Context, entry ChangeEntry) {
	var details string
	if entry.Details != nil {
		if raw, err := json.Marshal(entry.Details); err == nil {
			details = string(raw)
		}
	}

	cl := &domain.ChangeLog{
		ActorID:      entry.ActorID,
		RequestID:    entry.RequestID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		ResourceRef:  entry.ResourceRef,
		Details:      details,
	}

	select {
	case s.entries <- cl:
	default:
		s.metrics.ChangeLogBufferDropped.Inc()
		s.log.Warn("change log buffer full, dropping entry",
			zap.String("action", string(entry.Action)),
			zap.String("resource", entry.ResourceType),
		)
	}
}

func (s *ChangeLogService) Shutdown() {
	close(s.entries)
	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
		s.log.Warn("change log shutdown timed out; some entries may be lost")
	}
}

func (s *ChangeLogService) worker() {
	defer close(s.done)
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Create(ctx, entry); err != nil {
			s.log.Error("failed to persist change log entry", zap.Error(err))
		} else {
			s.metrics.ChangeLogEntriesTotal.Inc()
		}
		cancel()
	}
}
