package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/curaflow/curaflow/internal/domain"
	"github.com/curaflow/curaflow/internal/domain/directory"
	"github.com/curaflow/curaflow/internal/domain/slot"
	"github.com/curaflow/curaflow/internal/domain/slotblock"
	"github.com/curaflow/curaflow/pkg/metrics"
	"github.com/curaflow/curaflow/pkg/sequence"
)

// AppointmentIndex is the slice of the appointment store the block
// lifecycle needs: whether any appointment references a block's slots.
type AppointmentIndex interface {
	AnyForBlock(ctx context.Context, blockID uuid.UUID) (bool, error)
}

// BlockService owns the slot-block lifecycle: planning a provider's
// working window, expanding it into bookable slots on confirmation, and
// tearing it down again.
type BlockService struct {
	blocks      slotblock.Repository
	slots       slot.Repository
	providers   directory.ProviderDirectory
	linkedAppts AppointmentIndex
	changeLog   *ChangeLogService
	seq         sequence.Generator
	clock       domain.Clock
	metrics     *metrics.Collector
	log         *zap.Logger
}

func NewBlockService(
	blocks slotblock.Repository,
	slots slot.Repository,
	providers directory.ProviderDirectory,
	linkedAppts AppointmentIndex,
	changeLog *ChangeLogService,
	seq sequence.Generator,
	clock domain.Clock,
	m *metrics.Collector,
	log *zap.Logger,
) *BlockService {
	return &BlockService{
		blocks:      blocks,
		slots:       slots,
		providers:   providers,
		linkedAppts: linkedAppts,
		changeLog:   changeLog,
		seq:         seq,
		clock:       clock,
		metrics:     m,
		log:         log,
	}
}

const minutesPerDay = 24 * 60

func (s *BlockService) CreateBlock(ctx context.Context, cmd *slotblock.CreateBlockCommand) (*slotblock.SlotBlock, error) {
	if cmd.StartMinute < 0 || cmd.EndMinute > minutesPerDay || cmd.EndMinute <= cmd.StartMinute {
		return nil, slotblock.ErrInvalidInterval
	}
	if cmd.SlotDurationMins < 5 || cmd.SlotDurationMins > 240 {
		return nil, slotblock.ErrInvalidDuration
	}

	today := domain.StartOfDay(s.clock.Now())
	if domain.StartOfDay(cmd.Date).Before(today) {
		return nil, slotblock.ErrPastDate
	}

	offers, err := s.providers.OffersService(ctx, cmd.ProviderID, cmd.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("verifying provider service: %w", err)
	}
	if !offers {
		return nil, slotblock.ErrServiceNotOffered
	}

	b := &slotblock.SlotBlock{
		ProviderID:       cmd.ProviderID,
		LocationID:       cmd.LocationID,
		ServiceID:        cmd.ServiceID,
		Date:             domain.StartOfDay(cmd.Date),
		StartMinute:      cmd.StartMinute,
		EndMinute:        cmd.EndMinute,
		SlotDurationMins: cmd.SlotDurationMins,
		Status:           slotblock.StatusDraft,
		Active:           true,
		CreatedBy:        cmd.CreatedBy,
	}

	overlap, err := s.blocks.HasOverlap(ctx, cmd.ProviderID, b.StartAt(), b.EndAt(), nil)
	if err != nil {
		return nil, fmt.Errorf("checking block overlap: %w", err)
	}
	if overlap {
		return nil, slotblock.ErrBlockOverlap
	}

	b.BlockNumber, err = s.seq.Next(ctx, sequence.CodeBlock)
	if err != nil {
		return nil, fmt.Errorf("issuing block number: %w", err)
	}

	if err := s.blocks.Create(ctx, b); err != nil {
		s.log.Error("failed to create slot block", zap.Error(err))
		return nil, err
	}

	s.changeLog.Record(ctx, ChangeEntry{
		ActorID:      cmd.CreatedBy,
		Action:       domain.ActionCreate,
		ResourceType: "slot_block",
		ResourceID:   b.ID.String(),
		ResourceRef:  b.BlockNumber,
		Details: map[string]interface{}{
			"provider_id": cmd.ProviderID,
			"date":        b.Date.Format("2006-01-02"),
		},
	})

	s.log.Info("slot block created",
		zap.String("block", b.BlockNumber),
		zap.String("provider_id", cmd.ProviderID.String()),
	)
	return b, nil
}

// ConfirmBlock moves the block to confirmed and tiles its window into
// fixed-duration slots. Expansion is a gap-filling cursor walk: already
// generated children are kept, missing intervals get new slots, and a
// trailing remainder shorter than the duration is dropped. Re-confirming
// is safe.
func (s *BlockService) ConfirmBlock(ctx context.Context, blockID, actorID uuid.UUID) (*slotblock.SlotBlock, int, error) {
	b, err := s.blocks.GetByID(ctx, blockID)
	if err != nil {
		return nil, 0, err
	}

	if b.Status != slotblock.StatusConfirmed {
		// Creation only checks against non-draft blocks, so two identical
		// drafts can coexist; the first one to confirm wins the window.
		overlap, err := s.blocks.HasOverlap(ctx, b.ProviderID, b.StartAt(), b.EndAt(), &b.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("checking block overlap: %w", err)
		}
		if overlap {
			return nil, 0, slotblock.ErrBlockOverlap
		}

		b.Status = slotblock.StatusConfirmed
		if err := s.blocks.UpdateStatus(ctx, b); err != nil {
			return nil, 0, err
		}
	}

	created, err := s.expand(ctx, b)
	if err != nil {
		return nil, 0, err
	}

	if err := s.refreshAvailability(ctx, b.ProviderID); err != nil {
		s.log.Warn("failed to refresh provider availability", zap.Error(err))
	}

	s.changeLog.Record(ctx, ChangeEntry{
		ActorID:      actorID,
		Action:       domain.ActionTransition,
		ResourceType: "slot_block",
		ResourceID:   b.ID.String(),
		ResourceRef:  b.BlockNumber,
		Details:      map[string]interface{}{"status": "confirmed", "slots_created": created},
	})

	s.log.Info("slot block confirmed",
		zap.String("block", b.BlockNumber),
		zap.Int("slots_created", created),
	)
	return b, created, nil
}

func (s *BlockService) expand(ctx context.Context, b *slotblock.SlotBlock) (int, error) {
	d := time.Duration(b.SlotDurationMins) * time.Minute
	end := b.EndAt()
	created := 0

	for cursor := b.StartAt(); !cursor.Add(d).After(end); cursor = cursor.Add(d) {
		slotEnd := cursor.Add(d)

		taken, err := s.slots.HasOverlapInBlock(ctx, b.ID, cursor, slotEnd)
		if err != nil {
			return created, fmt.Errorf("checking slot overlap: %w", err)
		}
		if taken {
			continue
		}

		number, err := s.seq.Next(ctx, sequence.CodeSlot)
		if err != nil {
			return created, fmt.Errorf("issuing slot number: %w", err)
		}

		child := &slot.Slot{
			SlotNumber:   number,
			BlockID:      b.ID,
			StartTime:    cursor,
			EndTime:      slotEnd,
			DurationMins: b.SlotDurationMins,
			ProviderID:   b.ProviderID,
			LocationID:   b.LocationID,
			ServiceID:    b.ServiceID,
			Active:       true,
		}
		if err := s.slots.Create(ctx, child); err != nil {
			return created, fmt.Errorf("creating slot: %w", err)
		}
		created++
	}

	if created > 0 {
		s.metrics.SlotsGeneratedTotal.Add(float64(created))
	}
	return created, nil
}

// PostBlock marks the block posted and discards its unbooked children.
// Rejected while any appointment still references a child slot.
func (s *BlockService) PostBlock(ctx context.Context, blockID, actorID uuid.UUID) (*slotblock.SlotBlock, error) {
	return s.teardown(ctx, blockID, actorID, slotblock.StatusPosted)
}

// ResetBlock returns the block to draft, discarding unbooked children.
func (s *BlockService) ResetBlock(ctx context.Context, blockID, actorID uuid.UUID) (*slotblock.SlotBlock, error) {
	return s.teardown(ctx, blockID, actorID, slotblock.StatusDraft)
}

func (s *BlockService) teardown(ctx context.Context, blockID, actorID uuid.UUID, target slotblock.BlockStatus) (*slotblock.SlotBlock, error) {
	b, err := s.blocks.GetByID(ctx, blockID)
	if err != nil {
		return nil, err
	}
	if b.Status == target {
		return b, nil
	}

	linked, err := s.linkedAppts.AnyForBlock(ctx, blockID)
	if err != nil {
		return nil, fmt.Errorf("checking linked appointments: %w", err)
	}
	if linked {
		return nil, slotblock.ErrLinkedAppointments
	}

	if err := s.slots.DeleteUnbooked(ctx, blockID); err != nil {
		return nil, err
	}

	b.Status = target
	if err := s.blocks.UpdateStatus(ctx, b); err != nil {
		return nil, err
	}

	if err := s.refreshAvailability(ctx, b.ProviderID); err != nil {
		s.log.Warn("failed to refresh provider availability", zap.Error(err))
	}

	s.changeLog.Record(ctx, ChangeEntry{
		ActorID:      actorID,
		Action:       domain.ActionTransition,
		ResourceType: "slot_block",
		ResourceID:   b.ID.String(),
		ResourceRef:  b.BlockNumber,
		Details:      map[string]interface{}{"status": string(target)},
	})
	return b, nil
}

// DeleteBlock soft-deletes the block and its unbooked children. Rejected
// while any child slot is booked.
func (s *BlockService) DeleteBlock(ctx context.Context, blockID, actorID uuid.UUID) error {
	b, err := s.blocks.GetByID(ctx, blockID)
	if err != nil {
		return err
	}

	booked, err := s.slots.AnyBooked(ctx, blockID)
	if err != nil {
		return fmt.Errorf("checking booked slots: %w", err)
	}
	if booked {
		return slotblock.ErrBookedChildren
	}

	if err := s.slots.DeleteUnbooked(ctx, blockID); err != nil {
		return err
	}
	if err := s.blocks.Delete(ctx, blockID); err != nil {
		return err
	}

	if err := s.refreshAvailability(ctx, b.ProviderID); err != nil {
		s.log.Warn("failed to refresh provider availability", zap.Error(err))
	}

	s.changeLog.Record(ctx, ChangeEntry{
		ActorID:      actorID,
		Action:       domain.ActionDelete,
		ResourceType: "slot_block",
		ResourceID:   b.ID.String(),
		ResourceRef:  b.BlockNumber,
	})
	return nil
}

func (s *BlockService) GetBlock(ctx context.Context, blockID uuid.UUID) (*slotblock.SlotBlock, error) {
	return s.blocks.GetByID(ctx, blockID)
}

func (s *BlockService) refreshAvailability(ctx context.Context, providerID uuid.UUID) error {
	has, err := s.slots.HasAvailable(ctx, providerID)
	if err != nil {
		return err
	}
	return s.providers.SetAvailability(ctx, providerID, has)
}
