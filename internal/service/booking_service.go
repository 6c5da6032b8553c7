package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/curaflow/curaflow/internal/domain"
	"github.com/curaflow/curaflow/internal/domain/appointment"
	"github.com/curaflow/curaflow/internal/domain/directory"
	"github.com/curaflow/curaflow/internal/domain/slot"
	"github.com/curaflow/curaflow/internal/domain/visit"
	"github.com/curaflow/curaflow/pkg/locker"
	"github.com/curaflow/curaflow/pkg/metrics"
	"github.com/curaflow/curaflow/pkg/sequence"
)

const (
	msgSlotUnavailable = "Slot not available"
	msgBooked          = "Appointment booked successfully"
)

// BookingService drives the appointment lifecycle from slot claim through
// check-out. Double booking is prevented by the slot claim CAS; concurrent
// transitions on one appointment are serialized by the repository's
// compare-and-set on (state, status).
type BookingService struct {
	appointments appointment.Repository
	slots        slot.Repository
	patients     directory.PatientDirectory
	providers    directory.ProviderDirectory
	visitSvc     *VisitService
	changeLog    *ChangeLogService
	locks        locker.Locker
	seq          sequence.Generator
	clock        domain.Clock
	metrics      *metrics.Collector
	log          *zap.Logger
}

func NewBookingService(
	appointments appointment.Repository,
	slots slot.Repository,
	patients directory.PatientDirectory,
	providers directory.ProviderDirectory,
	visitSvc *VisitService,
	changeLog *ChangeLogService,
	locks locker.Locker,
	seq sequence.Generator,
	clock domain.Clock,
	m *metrics.Collector,
	log *zap.Logger,
) *BookingService {
	return &BookingService{
		appointments: appointments,
		slots:        slots,
		patients:     patients,
		providers:    providers,
		visitSvc:     visitSvc,
		changeLog:    changeLog,
		locks:        locks,
		seq:          seq,
		clock:        clock,
		metrics:      m,
		log:          log,
	}
}

// Book claims the slot and creates a confirmed appointment around it.
// Losing the claim race is a routine outcome returned as a structured
// result so the caller can offer another slot.
func (s *BookingService) Book(ctx context.Context, cmd *appointment.BookCommand) (*appointment.BookingResult, error) {
	exists, err := s.patients.PatientExists(ctx, cmd.PatientID)
	if err != nil {
		return nil, fmt.Errorf("verifying patient: %w", err)
	}
	if !exists {
		return nil, directory.ErrPatientNotFound
	}

	claimed, err := s.slots.Claim(ctx, cmd.SlotID)
	if err != nil {
		if errors.Is(err, slot.ErrSlotUnavailable) {
			s.metrics.BookingsTotal.WithLabelValues("contended").Inc()
			s.metrics.BookingContentionTotal.Inc()
			return &appointment.BookingResult{Success: false, Message: msgSlotUnavailable}, nil
		}
		s.metrics.BookingsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	a := &appointment.Appointment{
		SlotID:       &claimed.ID,
		PatientID:    &cmd.PatientID,
		ProviderID:   &claimed.ProviderID,
		LocationID:   &claimed.LocationID,
		ServiceID:    &claimed.ServiceID,
		StartTime:    &claimed.StartTime,
		DurationMins: claimed.DurationMins,
		State:        appointment.StateRequested,
		Status:       appointment.StatusDraft,
		Note:         cmd.Note,
		Active:       true,
		CreatedBy:    cmd.ActorID,
	}
	a.AppointmentNumber, err = s.seq.Next(ctx, sequence.CodeAppointment)
	if err != nil {
		s.release(ctx, claimed.ID)
		return nil, fmt.Errorf("issuing appointment number: %w", err)
	}

	if err := s.appointments.Create(ctx, a); err != nil {
		// The claimed slot must not leak.
		s.release(ctx, claimed.ID)
		s.metrics.BookingsTotal.WithLabelValues("rejected").Inc()
		s.log.Error("failed to create appointment", zap.Error(err))
		return nil, err
	}

	if _, err := s.Confirm(ctx, a.ID, cmd.ActorID); err != nil {
		s.release(ctx, claimed.ID)
		s.metrics.BookingsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	if err := s.refreshAvailability(ctx, claimed.ProviderID); err != nil {
		s.log.Warn("failed to refresh provider availability", zap.Error(err))
	}

	s.metrics.BookingsTotal.WithLabelValues("booked").Inc()
	s.changeLog.Record(ctx, ChangeEntry{
		ActorID:      cmd.ActorID,
		Action:       domain.ActionCreate,
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
		ResourceRef:  a.AppointmentNumber,
		Details:      map[string]interface{}{"slot": claimed.SlotNumber},
	})

	s.log.Info("appointment booked",
		zap.String("appointment", a.AppointmentNumber),
		zap.String("slot", claimed.SlotNumber),
	)
	return &appointment.BookingResult{
		Success:       true,
		AppointmentID: &a.ID,
		ScheduledTime: claimed.StartTime.Format(domain.DisplayTimeFormat),
		Message:       msgBooked,
	}, nil
}

// Confirm flips a draft booking to confirmed.
func (s *BookingService) Confirm(ctx context.Context, id, actorID uuid.UUID) (*appointment.Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != appointment.StatusDraft {
		return nil, appointment.ErrNotDraft
	}

	prevState, prevStatus := a.State, a.Status
	now := s.clock.Now()
	a.Status = appointment.StatusConfirmed
	a.ConfirmedAt = &now

	if err := s.appointments.TransitionFrom(ctx, a, prevState, prevStatus); err != nil {
		return nil, err
	}
	return a, nil
}

// Schedule moves a requested appointment onto the calendar.
func (s *BookingService) Schedule(ctx context.Context, id, actorID uuid.UUID) (*appointment.Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.ProviderID == nil {
		return nil, appointment.ErrMissingProvider
	}

	now := s.clock.Now()
	return s.transition(ctx, a, appointment.StateScheduled, actorID, func(a *appointment.Appointment) {
		a.ScheduledAt = &now
	})
}

// CheckIn marks arrival: the appointment moves to checked_in and a visit
// opens. The per-patient lock serializes the active-visit check against
// concurrent check-ins for the same patient.
func (s *BookingService) CheckIn(ctx context.Context, id uuid.UUID, visitType visit.VisitType, actorID uuid.UUID) (*appointment.Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.State != appointment.StateScheduled {
		if a.IsTerminal() {
			return nil, appointment.ErrTerminalState
		}
		return nil, appointment.ErrInvalidTransition
	}
	if a.PatientID == nil {
		return nil, directory.ErrPatientNotFound
	}

	err = s.locks.WithLock(ctx, "visits:patient:"+a.PatientID.String(), func(ctx context.Context) error {
		active, err := s.patients.HasActiveVisit(ctx, *a.PatientID)
		if err != nil {
			return fmt.Errorf("checking active visit: %w", err)
		}
		if active {
			return appointment.ErrActiveVisitConflict
		}

		now := s.clock.Now()
		punct := visit.Classify(a.StartTime, now)

		var locID uuid.UUID
		if a.LocationID != nil {
			locID = *a.LocationID
		}
		v, err := s.visitSvc.StartVisit(ctx, &StartVisitCommand{
			AppointmentID: &a.ID,
			PatientID:     *a.PatientID,
			LocationID:    locID,
			VisitType:     visitType,
			Punctuality:   punct,
			ActorID:       actorID,
		})
		if err != nil {
			return err
		}

		a, err = s.transition(ctx, a, appointment.StateCheckedIn, actorID, func(a *appointment.Appointment) {
			a.CheckedInAt = &now
		})
		if err != nil {
			// A concurrent transition won; the visit we just opened must
			// not stay behind and block the patient's next check-in.
			if delErr := s.visitSvc.DeleteVisit(ctx, v.ID, actorID); delErr != nil {
				s.log.Error("failed to remove visit after lost check-in race",
					zap.Error(delErr), zap.String("visit", v.VisitNumber))
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, visit.ErrActiveVisitExists) {
			return nil, appointment.ErrActiveVisitConflict
		}
		return nil, err
	}
	return a, nil
}

// CheckOut completes the appointment and ends its visit.
func (s *BookingService) CheckOut(ctx context.Context, id, actorID uuid.UUID) (*appointment.Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.State != appointment.StateCheckedIn {
		if a.IsTerminal() {
			return nil, appointment.ErrTerminalState
		}
		return nil, appointment.ErrInvalidTransition
	}

	now := s.clock.Now()
	a, err = s.transition(ctx, a, appointment.StateCompleted, actorID, func(a *appointment.Appointment) {
		a.CompletedAt = &now
	})
	if err != nil {
		return nil, err
	}

	if err := s.visitSvc.EndVisitForAppointment(ctx, a.ID, actorID); err != nil {
		s.log.Error("failed to end visit at check-out", zap.Error(err),
			zap.String("appointment", a.AppointmentNumber))
	}
	return a, nil
}

// Cancel withdraws the booking and frees its slot.
func (s *BookingService) Cancel(ctx context.Context, id, actorID uuid.UUID) (*appointment.Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.State == appointment.StateCompleted {
		return nil, appointment.ErrTerminalState
	}

	now := s.clock.Now()
	a, err = s.transition(ctx, a, appointment.StateCancelled, actorID, func(a *appointment.Appointment) {
		a.CancelledAt = &now
	})
	if err != nil {
		return nil, err
	}

	if a.SlotID != nil {
		if err := s.slots.Release(ctx, *a.SlotID); err != nil {
			s.log.Error("failed to release slot on cancel", zap.Error(err))
		} else if a.ProviderID != nil {
			if err := s.refreshAvailability(ctx, *a.ProviderID); err != nil {
				s.log.Warn("failed to refresh provider availability", zap.Error(err))
			}
		}
	}
	return a, nil
}

func (s *BookingService) GetAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// ListPatientAppointments returns the patient's confirmed appointments as
// display rows.
func (s *BookingService) ListPatientAppointments(ctx context.Context, patientID uuid.UUID) ([]appointment.Summary, error) {
	appts, err := s.appointments.ListConfirmedByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	names := make(map[uuid.UUID]string)
	out := make([]appointment.Summary, 0, len(appts))
	for _, a := range appts {
		row := appointment.Summary{
			ID:          a.ID,
			IsCancelled: a.State == appointment.StateCancelled,
			IsCompleted: a.State == appointment.StateCompleted,
		}
		if a.StartTime != nil {
			row.DateTime = a.StartTime.Format(domain.DisplayTimeFormat)
		}
		if a.ProviderID != nil {
			name, ok := names[*a.ProviderID]
			if !ok {
				p, err := s.providers.GetByID(ctx, *a.ProviderID)
				if err == nil {
					name = p.Name
				}
				names[*a.ProviderID] = name
			}
			row.ProviderName = name
		}
		out = append(out, row)
	}
	return out, nil
}

// ProviderAvailability is the discovery payload for one provider and
// service: open slots grouped by day.
type ProviderAvailability struct {
	ProviderName string                 `json:"doctor_name"`
	About        string                 `json:"about"`
	Availability []slot.AvailabilityDay `json:"availability"`
}

// GetAvailability lists the provider's unbooked future slots for a
// service, grouped by calendar date.
func (s *BookingService) GetAvailability(ctx context.Context, providerID uuid.UUID, serviceSlug string) (*ProviderAvailability, error) {
	p, err := s.providers.GetByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	svc, err := s.providers.ServiceBySlug(ctx, serviceSlug)
	if err != nil {
		return nil, err
	}

	slots, err := s.slots.ListAvailable(ctx, providerID, svc.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	resp := &ProviderAvailability{
		ProviderName: p.Name,
		About:        p.About,
		Availability: []slot.AvailabilityDay{},
	}
	var day *slot.AvailabilityDay
	for _, sl := range slots {
		if !sl.StartTime.After(now) {
			continue
		}
		date := sl.StartTime.Format("2006-01-02")
		if day == nil || day.Date != date {
			resp.Availability = append(resp.Availability, slot.AvailabilityDay{Date: date})
			day = &resp.Availability[len(resp.Availability)-1]
		}
		day.Slots = append(day.Slots, slot.AvailabilityItem{
			ID:   sl.ID,
			Time: sl.StartTime.Format("03:04 PM"),
		})
	}
	return resp, nil
}

// transition applies a guarded state change: the allowed-transition map
// gates it, mutate sets the stamps, and the repository CAS makes it stick
// exactly once.
func (s *BookingService) transition(ctx context.Context, a *appointment.Appointment, next appointment.State, actorID uuid.UUID, mutate func(*appointment.Appointment)) (*appointment.Appointment, error) {
	if !a.CanTransitionTo(next) {
		if a.IsTerminal() {
			return nil, appointment.ErrTerminalState
		}
		return nil, appointment.ErrInvalidTransition
	}

	prevState, prevStatus := a.State, a.Status
	a.State = next
	mutate(a)

	if err := s.appointments.TransitionFrom(ctx, a, prevState, prevStatus); err != nil {
		return nil, err
	}

	s.metrics.TransitionsTotal.WithLabelValues(string(next)).Inc()
	s.changeLog.Record(ctx, ChangeEntry{
		ActorID:      actorID,
		Action:       domain.ActionTransition,
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
		ResourceRef:  a.AppointmentNumber,
		Details:      map[string]interface{}{"from": string(prevState), "to": string(next)},
	})
	return a, nil
}

func (s *BookingService) release(ctx context.Context, slotID uuid.UUID) {
	if err := s.slots.Release(ctx, slotID); err != nil {
		s.log.Error("failed to release claimed slot", zap.Error(err),
			zap.String("slot_id", slotID.String()))
	}
}

func (s *BookingService) refreshAvailability(ctx context.Context, providerID uuid.UUID) error {
	has, err := s.slots.HasAvailable(ctx, providerID)
	if err != nil {
		return err
	}
	return s.providers.SetAvailability(ctx, providerID, has)
}
