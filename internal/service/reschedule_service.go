package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/curaflow/curaflow/internal/domain"
	"github.com/curaflow/curaflow/internal/domain/appointment"
	"github.com/curaflow/curaflow/internal/domain/slot"
	"github.com/curaflow/curaflow/pkg/metrics"
)

// RescheduleService moves a booking to a new slot or to manually supplied
// target fields. The new slot is claimed before the old one is released,
// so a failed reschedule leaves the original booking intact.
type RescheduleService struct {
	appointments appointment.Repository
	slots        slot.Repository
	changeLog    *ChangeLogService
	clock        domain.Clock
	metrics      *metrics.Collector
	log          *zap.Logger
}

func NewRescheduleService(
	appointments appointment.Repository,
	slots slot.Repository,
	changeLog *ChangeLogService,
	clock domain.Clock,
	m *metrics.Collector,
	log *zap.Logger,
) *RescheduleService {
	return &RescheduleService{
		appointments: appointments,
		slots:        slots,
		changeLog:    changeLog,
		clock:        clock,
		metrics:      m,
		log:          log,
	}
}

func (s *RescheduleService) ConfirmReschedule(ctx context.Context, cmd *appointment.RescheduleCommand) (*appointment.Appointment, error) {
	if cmd.AppointmentID == uuid.Nil {
		return nil, appointment.ErrAppointmentRequired
	}
	if cmd.NewSlotID == nil && cmd.Manual == nil {
		return nil, &ValidationError{Fields: []string{"either a new slot or manual target fields are required"}}
	}

	a, err := s.appointments.GetByID(ctx, cmd.AppointmentID)
	if err != nil {
		if errors.Is(err, appointment.ErrAppointmentNotFound) {
			return nil, appointment.ErrAppointmentRequired
		}
		return nil, err
	}
	if a.IsTerminal() {
		return nil, appointment.ErrTerminalState
	}

	oldSlotID := a.SlotID
	prevState, prevStatus := a.State, a.Status

	var claimed *slot.Slot
	if cmd.NewSlotID != nil {
		claimed, err = s.slots.Claim(ctx, *cmd.NewSlotID)
		if err != nil {
			if errors.Is(err, slot.ErrSlotUnavailable) {
				s.metrics.BookingContentionTotal.Inc()
				return nil, appointment.ErrSlotAlreadyBooked
			}
			return nil, err
		}

		a.SlotID = &claimed.ID
		a.ProviderID = &claimed.ProviderID
		a.LocationID = &claimed.LocationID
		a.ServiceID = &claimed.ServiceID
		a.StartTime = &claimed.StartTime
		a.DurationMins = claimed.DurationMins
	} else {
		m := cmd.Manual
		a.SlotID = nil
		a.ProviderID = &m.ProviderID
		a.LocationID = &m.LocationID
		a.ServiceID = &m.ServiceID
		startCopy := m.StartTime
		a.StartTime = &startCopy
	}

	now := s.clock.Now()
	a.State = appointment.StateRequested
	a.Status = appointment.StatusConfirmed
	a.ConfirmedAt = &now
	a.ScheduledAt = nil
	a.CheckedInAt = nil

	if err := s.appointments.TransitionFrom(ctx, a, prevState, prevStatus); err != nil {
		// Back out the claim so the candidate slot does not leak.
		if claimed != nil {
			if relErr := s.slots.Release(ctx, claimed.ID); relErr != nil {
				s.log.Error("failed to release slot after stale reschedule", zap.Error(relErr))
			}
		}
		return nil, err
	}

	if oldSlotID != nil {
		if err := s.slots.Release(ctx, *oldSlotID); err != nil {
			s.log.Error("failed to release old slot on reschedule", zap.Error(err),
				zap.String("slot_id", oldSlotID.String()))
		}
	}

	details := map[string]interface{}{"manual": claimed == nil}
	if claimed != nil {
		details["slot"] = claimed.SlotNumber
	}
	s.changeLog.Record(ctx, ChangeEntry{
		ActorID:      cmd.ActorID,
		Action:       domain.ActionUpdate,
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
		ResourceRef:  a.AppointmentNumber,
		Details:      details,
	})

	s.log.Info("appointment rescheduled",
		zap.String("appointment", a.AppointmentNumber),
		zap.Bool("manual", claimed == nil),
	)
	return a, nil
}
