package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/curaflow/curaflow/internal/domain"
	"github.com/curaflow/curaflow/internal/domain/visit"
	"github.com/curaflow/curaflow/pkg/sequence"
)

// VisitService tracks clinical sessions: opened at check-in, closed at
// check-out, with encounter rows linking clinical records created while
// the session was active.
type VisitService struct {
	visits    visit.Repository
	registry  *visit.Registry
	changeLog *ChangeLogService
	seq       sequence.Generator
	clock     domain.Clock
	log       *zap.Logger
}

func NewVisitService(
	visits visit.Repository,
	registry *visit.Registry,
	changeLog *ChangeLogService,
	seq sequence.Generator,
	clock domain.Clock,
	log *zap.Logger,
) *VisitService {
	return &VisitService{
		visits:    visits,
		registry:  registry,
		changeLog: changeLog,
		seq:       seq,
		clock:     clock,
		log:       log,
	}
}

type StartVisitCommand struct {
	AppointmentID *uuid.UUID
	PatientID     uuid.UUID
	LocationID    uuid.UUID
	VisitType     visit.VisitType
	Punctuality   visit.Punctuality
	ActorID       uuid.UUID
}

// StartVisit opens an active visit for the patient. Callers that can race
// (check-in) must hold the per-patient lock; the partial unique index on
// active visits backs this up at the store level.
func (s *VisitService) StartVisit(ctx context.Context, cmd *StartVisitCommand) (*visit.Visit, error) {
	if !cmd.VisitType.IsValid() {
		return nil, visit.ErrInvalidVisitType
	}

	active, err := s.visits.HasActiveByPatient(ctx, cmd.PatientID)
	if err != nil {
		return nil, fmt.Errorf("checking active visit: %w", err)
	}
	if active {
		return nil, visit.ErrActiveVisitExists
	}

	now := s.clock.Now()
	v := &visit.Visit{
		AppointmentID: cmd.AppointmentID,
		PatientID:     cmd.PatientID,
		LocationID:    cmd.LocationID,
		VisitType:     cmd.VisitType,
		Punctuality:   cmd.Punctuality,
		StartedAt:     &now,
		State:         visit.StateActive,
		Active:        true,
	}
	v.VisitNumber, err = s.seq.Next(ctx, sequence.CodeVisit)
	if err != nil {
		return nil, fmt.Errorf("issuing visit number: %w", err)
	}

	if err := s.visits.Create(ctx, v); err != nil {
		s.log.Error("failed to create visit", zap.Error(err))
		return nil, err
	}

	s.changeLog.Record(ctx, ChangeEntry{
		ActorID:      cmd.ActorID,
		Action:       domain.ActionCreate,
		ResourceType: "visit",
		ResourceID:   v.ID.String(),
		ResourceRef:  v.VisitNumber,
		Details:      map[string]interface{}{"punctuality": string(cmd.Punctuality)},
	})
	return v, nil
}

// EndVisit closes the visit opened for the appointment.
func (s *VisitService) EndVisit(ctx context.Context, visitID, actorID uuid.UUID) (*visit.Visit, error) {
	v, err := s.visits.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if v.State != visit.StateActive {
		return nil, visit.ErrVisitNotActive
	}

	now := s.clock.Now()
	v.State = visit.StateEnded
	v.EndedAt = &now
	if err := s.visits.Update(ctx, v); err != nil {
		return nil, err
	}

	s.changeLog.Record(ctx, ChangeEntry{
		ActorID:      actorID,
		Action:       domain.ActionTransition,
		ResourceType: "visit",
		ResourceID:   v.ID.String(),
		ResourceRef:  v.VisitNumber,
		Details:      map[string]interface{}{"state": "ended"},
	})
	return v, nil
}

// EndVisitForAppointment closes the appointment's visit if one is open.
// Used by check-out, where a missing visit is not an error.
func (s *VisitService) EndVisitForAppointment(ctx context.Context, appointmentID, actorID uuid.UUID) error {
	v, err := s.visits.GetByAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, visit.ErrVisitNotFound) {
			return nil
		}
		return err
	}
	if v.State != visit.StateActive {
		return nil
	}
	_, err = s.EndVisit(ctx, v.ID, actorID)
	return err
}

// DeleteVisit rejects deletion while any encounter references the visit.
func (s *VisitService) DeleteVisit(ctx context.Context, visitID, actorID uuid.UUID) error {
	v, err := s.visits.GetByID(ctx, visitID)
	if err != nil {
		return err
	}

	count, err := s.visits.CountEncounters(ctx, visitID)
	if err != nil {
		return fmt.Errorf("counting encounters: %w", err)
	}
	if count > 0 {
		return visit.ErrVisitHasEncounters
	}

	if err := s.visits.Delete(ctx, visitID); err != nil {
		return err
	}

	s.changeLog.Record(ctx, ChangeEntry{
		ActorID:      actorID,
		Action:       domain.ActionDelete,
		ResourceType: "visit",
		ResourceID:   v.ID.String(),
		ResourceRef:  v.VisitNumber,
	})
	return nil
}

func (s *VisitService) GetVisit(ctx context.Context, visitID uuid.UUID) (*visit.Visit, error) {
	return s.visits.GetByID(ctx, visitID)
}

type RecordNoteCommand struct {
	PatientID uuid.UUID
	Note      string
	Diagnoses []string
	ActorID   uuid.UUID
}

// RecordNote creates a visit note for the patient's active visit and links
// it through an encounter. No active visit is a hard error: clinical
// records must not be written outside a session.
func (s *VisitService) RecordNote(ctx context.Context, cmd *RecordNoteCommand) (*visit.VisitNote, error) {
	if cmd.Note == "" {
		return nil, &ValidationError{Fields: []string{"note is required"}}
	}

	v, err := s.visits.GetActiveByPatient(ctx, cmd.PatientID)
	if err != nil {
		if errors.Is(err, visit.ErrVisitNotFound) {
			return nil, visit.ErrNoActiveVisit
		}
		return nil, err
	}

	n := &visit.VisitNote{
		VisitID:    v.ID,
		PatientID:  cmd.PatientID,
		Note:       cmd.Note,
		Diagnoses:  cmd.Diagnoses,
		RecordedBy: cmd.ActorID,
		Active:     true,
	}
	if err := s.visits.CreateNote(ctx, n); err != nil {
		return nil, err
	}

	if err := s.linkEncounter(ctx, v, visit.RecordTypeVisitNote, n.ID, cmd.ActorID); err != nil {
		return nil, err
	}

	s.changeLog.Record(ctx, ChangeEntry{
		ActorID:      cmd.ActorID,
		Action:       domain.ActionCreate,
		ResourceType: "visit_note",
		ResourceID:   n.ID.String(),
		ResourceRef:  v.VisitNumber,
	})
	return n, nil
}

func (s *VisitService) linkEncounter(ctx context.Context, v *visit.Visit, recordType string, recordID uuid.UUID, actorID uuid.UUID) error {
	cfg, ok := s.registry.Lookup(recordType)
	if !ok {
		return fmt.Errorf("record type %q is not registered for encounters", recordType)
	}

	e := &visit.Encounter{
		VisitID:       v.ID,
		RecordType:    recordType,
		RecordID:      recordID,
		EncounterType: cfg.EncounterType,
		FormType:      cfg.FormType,
		StartedAt:     s.clock.Now(),
		RecordedBy:    actorID,
	}
	if err := s.visits.CreateEncounter(ctx, e); err != nil {
		return fmt.Errorf("creating encounter: %w", err)
	}
	return nil
}

func (s *VisitService) ListEncounters(ctx context.Context, visitID uuid.UUID) ([]*visit.Encounter, error) {
	if _, err := s.visits.GetByID(ctx, visitID); err != nil {
		return nil, err
	}
	return s.visits.ListEncounters(ctx, visitID)
}

// VisitDiagnoses aggregates the distinct diagnoses recorded across the
// visit's notes, in first-seen order.
func (s *VisitService) VisitDiagnoses(ctx context.Context, visitID uuid.UUID) ([]string, error) {
	notes, err := s.visits.ListNotes(ctx, visitID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []string
	for _, n := range notes {
		for _, d := range n.Diagnoses {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out, nil
}
