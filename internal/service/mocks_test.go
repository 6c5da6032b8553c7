package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/curaflow/curaflow/internal/domain"
	"github.com/curaflow/curaflow/internal/domain/appointment"
	"github.com/curaflow/curaflow/internal/domain/directory"
	"github.com/curaflow/curaflow/internal/domain/slot"
	"github.com/curaflow/curaflow/internal/domain/slotblock"
	"github.com/curaflow/curaflow/internal/domain/visit"
	"github.com/curaflow/curaflow/pkg/metrics"
	"github.com/curaflow/curaflow/pkg/sequence"
)

// One collector for the whole test package; prometheus registration is
// global and re-registering the same metrics panics.
var (
	testMetricsOnce sync.Once
	testMetrics     *metrics.Collector
)

func testCollector() *metrics.Collector {
	testMetricsOnce.Do(func() {
		testMetrics = metrics.NewCollector("test")
	})
	return testMetrics
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type memSequence struct {
	mu   sync.Mutex
	next map[string]int64
}

func newMemSequence() *memSequence {
	return &memSequence{next: make(map[string]int64)}
}

var seqPrefixes = map[string]string{
	sequence.CodeBlock:       "BLK",
	sequence.CodeSlot:        "SLT",
	sequence.CodeAppointment: "APT",
	sequence.CodeVisit:       "VIS",
	sequence.CodePatient:     "PAT",
}

func (s *memSequence) Next(_ context.Context, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next[code]++
	return sequence.Format(seqPrefixes[code], 5, s.next[code]), nil
}

// hookLocker runs a callback before entering the critical section, so
// tests can interleave a competing write deterministically.
type hookLocker struct {
	inner  *memLocker
	before func()
}

func (l *hookLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if l.before != nil {
		l.before()
	}
	return l.inner.WithLock(ctx, key, fn)
}

// staleAppointments refuses every guarded update with ErrStale.
type staleAppointments struct {
	*memAppointments
}

func (r *staleAppointments) TransitionFrom(context.Context, *appointment.Appointment, appointment.State, appointment.Status) error {
	return appointment.ErrStale
}

// memLocker serializes critical sections per key with plain mutexes.
type memLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMemLocker() *memLocker {
	return &memLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *memLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

type memBlocks struct {
	mu     sync.Mutex
	blocks map[uuid.UUID]*slotblock.SlotBlock
}

func newMemBlocks() *memBlocks {
	return &memBlocks{blocks: make(map[uuid.UUID]*slotblock.SlotBlock)}
}

func (r *memBlocks) Create(_ context.Context, b *slotblock.SlotBlock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	cp := *b
	r.blocks[b.ID] = &cp
	return nil
}

func (r *memBlocks) GetByID(_ context.Context, id uuid.UUID) (*slotblock.SlotBlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.blocks[id]
	if !ok || b.DeletedAt != nil {
		return nil, slotblock.ErrBlockNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memBlocks) UpdateStatus(_ context.Context, b *slotblock.SlotBlock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.blocks[b.ID]
	if !ok || stored.DeletedAt != nil {
		return slotblock.ErrBlockNotFound
	}
	stored.Status = b.Status
	return nil
}

func (r *memBlocks) HasOverlap(_ context.Context, providerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.blocks {
		if b.ProviderID != providerID || b.Status == slotblock.StatusDraft || !b.Active || b.DeletedAt != nil {
			continue
		}
		if excludeID != nil && b.ID == *excludeID {
			continue
		}
		if slotblock.Overlaps(start, end, b.StartAt(), b.EndAt()) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memBlocks) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.blocks[id]
	if !ok || b.DeletedAt != nil {
		return slotblock.ErrBlockNotFound
	}
	now := time.Now()
	b.DeletedAt = &now
	b.Active = false
	return nil
}

type memSlots struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*slot.Slot
}

func newMemSlots() *memSlots {
	return &memSlots{slots: make(map[uuid.UUID]*slot.Slot)}
}

func (r *memSlots) Create(_ context.Context, s *slot.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	r.slots[s.ID] = &cp
	return nil
}

func (r *memSlots) GetByID(_ context.Context, id uuid.UUID) (*slot.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return nil, slot.ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSlots) Claim(_ context.Context, id uuid.UUID) (*slot.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return nil, slot.ErrSlotNotFound
	}
	if s.IsBooked || !s.Active {
		return nil, slot.ErrSlotUnavailable
	}
	s.IsBooked = true
	cp := *s
	return &cp, nil
}

func (r *memSlots) Release(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.slots[id]; ok {
		s.IsBooked = false
	}
	return nil
}

func (r *memSlots) ListByBlock(_ context.Context, blockID uuid.UUID) ([]*slot.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*slot.Slot
	for _, s := range r.slots {
		if s.BlockID == blockID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sortSlots(out)
	return out, nil
}

func (r *memSlots) HasOverlapInBlock(_ context.Context, blockID uuid.UUID, start, end time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.slots {
		if s.BlockID != blockID {
			continue
		}
		if s.StartTime.Before(end) && s.EndTime.After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memSlots) AnyBooked(_ context.Context, blockID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.slots {
		if s.BlockID == blockID && s.IsBooked {
			return true, nil
		}
	}
	return false, nil
}

func (r *memSlots) DeleteUnbooked(_ context.Context, blockID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.slots {
		if s.BlockID == blockID && !s.IsBooked {
			delete(r.slots, id)
		}
	}
	return nil
}

func (r *memSlots) ListAvailable(_ context.Context, providerID, serviceID uuid.UUID) ([]*slot.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*slot.Slot
	for _, s := range r.slots {
		if s.ProviderID == providerID && s.ServiceID == serviceID && !s.IsBooked && s.Active {
			cp := *s
			out = append(out, &cp)
		}
	}
	sortSlots(out)
	return out, nil
}

func (r *memSlots) HasAvailable(_ context.Context, providerID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.slots {
		if s.ProviderID == providerID && !s.IsBooked && s.Active {
			return true, nil
		}
	}
	return false, nil
}

func (r *memSlots) ArchiveExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.slots {
		if s.Active && s.EndTime.Before(cutoff) {
			s.Active = false
			n++
		}
	}
	return n, nil
}

func sortSlots(slots []*slot.Slot) {
	for i := 1; i < len(slots); i++ {
		for j := i; j > 0 && slots[j].StartTime.Before(slots[j-1].StartTime); j-- {
			slots[j], slots[j-1] = slots[j-1], slots[j]
		}
	}
}

type memAppointments struct {
	mu    sync.Mutex
	appts map[uuid.UUID]*appointment.Appointment
	slots *memSlots
}

func newMemAppointments(slots *memSlots) *memAppointments {
	return &memAppointments{appts: make(map[uuid.UUID]*appointment.Appointment), slots: slots}
}

func (r *memAppointments) Create(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	r.appts[a.ID] = &cp
	return nil
}

func (r *memAppointments) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok || a.DeletedAt != nil {
		return nil, appointment.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAppointments) Update(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appts[a.ID]; !ok {
		return appointment.ErrAppointmentNotFound
	}
	cp := *a
	r.appts[a.ID] = &cp
	return nil
}

func (r *memAppointments) TransitionFrom(_ context.Context, a *appointment.Appointment, prevState appointment.State, prevStatus appointment.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.appts[a.ID]
	if !ok || stored.DeletedAt != nil {
		return appointment.ErrAppointmentNotFound
	}
	if stored.State != prevState || stored.Status != prevStatus {
		return appointment.ErrStale
	}
	cp := *a
	r.appts[a.ID] = &cp
	return nil
}

func (r *memAppointments) ListConfirmedByPatient(_ context.Context, patientID uuid.UUID) ([]*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*appointment.Appointment
	for _, a := range r.appts {
		if a.PatientID != nil && *a.PatientID == patientID && a.Status == appointment.StatusConfirmed && a.DeletedAt == nil {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memAppointments) AnyForBlock(_ context.Context, blockID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.appts {
		if a.SlotID == nil || a.DeletedAt != nil {
			continue
		}
		r.slots.mu.Lock()
		s, ok := r.slots.slots[*a.SlotID]
		r.slots.mu.Unlock()
		if ok && s.BlockID == blockID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memAppointments) FindOverdueScheduled(_ context.Context, now time.Time) ([]*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*appointment.Appointment
	for _, a := range r.appts {
		if a.State == appointment.StateScheduled && a.StartTime != nil && a.StartTime.Before(now) && a.DeletedAt == nil {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memVisits struct {
	mu         sync.Mutex
	visits     map[uuid.UUID]*visit.Visit
	encounters []*visit.Encounter
	notes      []*visit.VisitNote
}

func newMemVisits() *memVisits {
	return &memVisits{visits: make(map[uuid.UUID]*visit.Visit)}
}

func (r *memVisits) Create(_ context.Context, v *visit.Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.State == visit.StateActive {
		for _, existing := range r.visits {
			if existing.PatientID == v.PatientID && existing.State == visit.StateActive && existing.DeletedAt == nil {
				return visit.ErrActiveVisitExists
			}
		}
	}
	cp := *v
	r.visits[v.ID] = &cp
	return nil
}

func (r *memVisits) GetByID(_ context.Context, id uuid.UUID) (*visit.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visits[id]
	if !ok || v.DeletedAt != nil {
		return nil, visit.ErrVisitNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *memVisits) Update(_ context.Context, v *visit.Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.visits[v.ID]; !ok {
		return visit.ErrVisitNotFound
	}
	cp := *v
	r.visits[v.ID] = &cp
	return nil
}

func (r *memVisits) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visits[id]
	if !ok || v.DeletedAt != nil {
		return visit.ErrVisitNotFound
	}
	now := time.Now()
	v.DeletedAt = &now
	v.Active = false
	return nil
}

func (r *memVisits) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*visit.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *visit.Visit
	for _, v := range r.visits {
		if v.AppointmentID == nil || *v.AppointmentID != appointmentID || v.DeletedAt != nil {
			continue
		}
		if latest == nil || v.CreatedAt.After(latest.CreatedAt) {
			latest = v
		}
	}
	if latest == nil {
		return nil, visit.ErrVisitNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *memVisits) GetActiveByPatient(_ context.Context, patientID uuid.UUID) (*visit.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.visits {
		if v.PatientID == patientID && v.State == visit.StateActive && v.DeletedAt == nil {
			cp := *v
			return &cp, nil
		}
	}
	return nil, visit.ErrVisitNotFound
}

func (r *memVisits) HasActiveByPatient(ctx context.Context, patientID uuid.UUID) (bool, error) {
	_, err := r.GetActiveByPatient(ctx, patientID)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *memVisits) CountEncounters(_ context.Context, visitID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.encounters {
		if e.VisitID == visitID {
			n++
		}
	}
	return n, nil
}

func (r *memVisits) CreateEncounter(_ context.Context, e *visit.Encounter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	cp := *e
	r.encounters = append(r.encounters, &cp)
	return nil
}

func (r *memVisits) ListEncounters(_ context.Context, visitID uuid.UUID) ([]*visit.Encounter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*visit.Encounter
	for _, e := range r.encounters {
		if e.VisitID == visitID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memVisits) CreateNote(_ context.Context, n *visit.VisitNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	cp := *n
	r.notes = append(r.notes, &cp)
	return nil
}

func (r *memVisits) ListNotes(_ context.Context, visitID uuid.UUID) ([]*visit.VisitNote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*visit.VisitNote
	for _, n := range r.notes {
		if n.VisitID == visitID && n.Active {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memPatients struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*directory.Patient
	visits   *memVisits
}

func newMemPatients(visits *memVisits) *memPatients {
	return &memPatients{patients: make(map[uuid.UUID]*directory.Patient), visits: visits}
}

func (r *memPatients) add(p *directory.Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.patients[p.ID] = p
}

func (r *memPatients) GetByID(_ context.Context, id uuid.UUID) (*directory.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, directory.ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPatients) PatientExists(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	return ok && p.IsActive, nil
}

func (r *memPatients) HasActiveVisit(ctx context.Context, patientID uuid.UUID) (bool, error) {
	return r.visits.HasActiveByPatient(ctx, patientID)
}

type memProviders struct {
	mu        sync.Mutex
	providers map[uuid.UUID]*directory.Provider
	services  map[uuid.UUID]*directory.MedicalService
	offers    map[uuid.UUID]map[uuid.UUID]bool
}

func newMemProviders() *memProviders {
	return &memProviders{
		providers: make(map[uuid.UUID]*directory.Provider),
		services:  make(map[uuid.UUID]*directory.MedicalService),
		offers:    make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (r *memProviders) add(p *directory.Provider, services ...*directory.MedicalService) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.providers[p.ID] = p
	for _, svc := range services {
		if svc.ID == uuid.Nil {
			svc.ID = uuid.New()
		}
		r.services[svc.ID] = svc
		if r.offers[p.ID] == nil {
			r.offers[p.ID] = make(map[uuid.UUID]bool)
		}
		r.offers[p.ID][svc.ID] = true
	}
}

func (r *memProviders) GetByID(_ context.Context, id uuid.UUID) (*directory.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, directory.ErrProviderNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProviders) OffersService(_ context.Context, providerID, serviceID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.offers[providerID][serviceID], nil
}

func (r *memProviders) ServiceByID(_ context.Context, id uuid.UUID) (*directory.MedicalService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.services[id]
	if !ok {
		return nil, directory.ErrServiceNotFound
	}
	cp := *svc
	return &cp, nil
}

func (r *memProviders) ServiceBySlug(_ context.Context, slug string) (*directory.MedicalService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, svc := range r.services {
		if svc.Slug == slug {
			cp := *svc
			return &cp, nil
		}
	}
	return nil, directory.ErrServiceNotFound
}

func (r *memProviders) SetAvailability(_ context.Context, providerID uuid.UUID, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[providerID]
	if !ok {
		return directory.ErrProviderNotFound
	}
	p.IsAvailable = available
	return nil
}

func (r *memProviders) ListDoctors(_ context.Context) ([]directory.DoctorCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []directory.DoctorCard
	for _, p := range r.providers {
		out = append(out, directory.DoctorCard{
			ID:          p.ID,
			Name:        p.Name,
			Specialty:   p.Specialty,
			About:       p.About,
			IsAvailable: p.IsAvailable,
		})
	}
	return out, nil
}

type memChangeLog struct {
	mu      sync.Mutex
	entries []*domain.ChangeLog
}

func (r *memChangeLog) Create(_ context.Context, entry *domain.ChangeLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

// fixture wires every service against the in-memory stores.
type fixture struct {
	clock     *fakeClock
	blocks    *memBlocks
	slots     *memSlots
	appts     *memAppointments
	visits    *memVisits
	patients  *memPatients
	providers *memProviders

	blockSvc      *BlockService
	bookingSvc    *BookingService
	rescheduleSvc *RescheduleService
	reaperSvc     *ReaperService
	visitSvc      *VisitService
	changeLog     *ChangeLogService
}

func newFixture(now time.Time) *fixture {
	f := &fixture{
		clock:     newFakeClock(now),
		blocks:    newMemBlocks(),
		slots:     newMemSlots(),
		visits:    newMemVisits(),
		providers: newMemProviders(),
	}
	f.appts = newMemAppointments(f.slots)
	f.patients = newMemPatients(f.visits)

	log := zap.NewNop()
	m := testCollector()
	seq := newMemSequence()

	f.changeLog = NewChangeLogService(&memChangeLog{}, log, m)
	f.visitSvc = NewVisitService(f.visits, visit.DefaultRegistry(), f.changeLog, seq, f.clock, log)
	f.blockSvc = NewBlockService(f.blocks, f.slots, f.providers, f.appts, f.changeLog, seq, f.clock, m, log)
	f.bookingSvc = NewBookingService(f.appts, f.slots, f.patients, f.providers, f.visitSvc, f.changeLog, newMemLocker(), seq, f.clock, m, log)
	f.rescheduleSvc = NewRescheduleService(f.appts, f.slots, f.changeLog, f.clock, m, log)
	f.reaperSvc = NewReaperService(f.appts, f.slots, f.changeLog, f.clock, m, log)
	return f
}
