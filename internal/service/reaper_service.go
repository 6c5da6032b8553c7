package service

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/curaflow/curaflow/internal/domain"
	"github.com/curaflow/curaflow/internal/domain/appointment"
	"github.com/curaflow/curaflow/internal/domain/slot"
	"github.com/curaflow/curaflow/pkg/metrics"
)

// ReaperService runs the periodic sweeps: scheduled appointments whose
// start has passed are marked missed, and slots whose day is over are
// archived. Both sweeps are idempotent and tolerate concurrent writers.
type ReaperService struct {
	appointments appointment.Repository
	slots        slot.Repository
	changeLog    *ChangeLogService
	clock        domain.Clock
	metrics      *metrics.Collector
	log          *zap.Logger
}

func NewReaperService(
	appointments appointment.Repository,
	slots slot.Repository,
	changeLog *ChangeLogService,
	clock domain.Clock,
	m *metrics.Collector,
	log *zap.Logger,
) *ReaperService {
	return &ReaperService{
		appointments: appointments,
		slots:        slots,
		changeLog:    changeLog,
		clock:        clock,
		metrics:      m,
		log:          log,
	}
}

// SweepMissed marks overdue scheduled appointments missed and frees their
// slots. Rows that transition under us (a check-in racing the sweep) are
// skipped, not failed.
func (s *ReaperService) SweepMissed(ctx context.Context) (int, error) {
	now := s.clock.Now()
	timer := prometheus.NewTimer(s.metrics.SweepDuration.WithLabelValues("missed"))
	defer timer.ObserveDuration()

	overdue, err := s.appointments.FindOverdueScheduled(ctx, now)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, a := range overdue {
		prevState, prevStatus := a.State, a.Status
		a.State = appointment.StateMissed

		if err := s.appointments.TransitionFrom(ctx, a, prevState, prevStatus); err != nil {
			if errors.Is(err, appointment.ErrStale) {
				continue
			}
			return swept, err
		}
		swept++

		if a.SlotID != nil {
			if err := s.slots.Release(ctx, *a.SlotID); err != nil {
				s.log.Error("failed to release slot for missed appointment",
					zap.Error(err), zap.String("appointment", a.AppointmentNumber))
			}
		}

		s.changeLog.Record(ctx, ChangeEntry{
			Action:       domain.ActionSweep,
			ResourceType: "appointment",
			ResourceID:   a.ID.String(),
			ResourceRef:  a.AppointmentNumber,
			Details:      map[string]interface{}{"state": "missed"},
		})
	}

	if swept > 0 {
		s.metrics.MissedSweptTotal.Add(float64(swept))
		s.metrics.TransitionsTotal.WithLabelValues(string(appointment.StateMissed)).Add(float64(swept))
		s.log.Info("missed appointments swept", zap.Int("count", swept))
	}
	return swept, nil
}

// SweepExpiredSlots archives active slots whose window ended before the
// start of today.
func (s *ReaperService) SweepExpiredSlots(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	timer := prometheus.NewTimer(s.metrics.SweepDuration.WithLabelValues("expired_slots"))
	defer timer.ObserveDuration()

	archived, err := s.slots.ArchiveExpired(ctx, domain.StartOfDay(now))
	if err != nil {
		return 0, err
	}

	if archived > 0 {
		s.metrics.SlotsArchivedTotal.Add(float64(archived))
		s.changeLog.Record(ctx, ChangeEntry{
			Action:       domain.ActionArchive,
			ResourceType: "slot",
			Details:      map[string]interface{}{"archived": archived},
		})
		s.log.Info("expired slots archived", zap.Int64("count", archived))
	}
	return archived, nil
}
