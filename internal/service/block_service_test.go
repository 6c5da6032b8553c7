package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curaflow/curaflow/internal/domain/directory"
	"github.com/curaflow/curaflow/internal/domain/slotblock"
)

var testNow = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

func seedProvider(f *fixture) (*directory.Provider, *directory.MedicalService) {
	svc := &directory.MedicalService{Name: "Cardiology", Slug: "cardiology", IsActive: true}
	p := &directory.Provider{Name: "Dr. Reyes", About: "Cardiologist", IsActive: true}
	f.providers.add(p, svc)
	return p, svc
}

func blockCommand(p *directory.Provider, svc *directory.MedicalService) *slotblock.CreateBlockCommand {
	return &slotblock.CreateBlockCommand{
		ProviderID:       p.ID,
		LocationID:       uuid.New(),
		ServiceID:        svc.ID,
		Date:             testNow.AddDate(0, 0, 1),
		StartMinute:      9 * 60,
		EndMinute:        10 * 60,
		SlotDurationMins: 20,
		CreatedBy:        uuid.New(),
	}
}

func TestCreateBlockValidation(t *testing.T) {
	f := newFixture(testNow)
	p, svc := seedProvider(f)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(cmd *slotblock.CreateBlockCommand)
		wantErr error
	}{
		{
			name:    "past date",
			mutate:  func(cmd *slotblock.CreateBlockCommand) { cmd.Date = testNow.AddDate(0, 0, -1) },
			wantErr: slotblock.ErrPastDate,
		},
		{
			name:    "end before start",
			mutate:  func(cmd *slotblock.CreateBlockCommand) { cmd.StartMinute, cmd.EndMinute = 600, 540 },
			wantErr: slotblock.ErrInvalidInterval,
		},
		{
			name:    "zero-length interval",
			mutate:  func(cmd *slotblock.CreateBlockCommand) { cmd.EndMinute = cmd.StartMinute },
			wantErr: slotblock.ErrInvalidInterval,
		},
		{
			name:    "duration too short",
			mutate:  func(cmd *slotblock.CreateBlockCommand) { cmd.SlotDurationMins = 2 },
			wantErr: slotblock.ErrInvalidDuration,
		},
		{
			name:    "service not offered",
			mutate:  func(cmd *slotblock.CreateBlockCommand) { cmd.ServiceID = uuid.New() },
			wantErr: slotblock.ErrServiceNotOffered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := blockCommand(p, svc)
			tt.mutate(cmd)
			_, err := f.blockSvc.CreateBlock(ctx, cmd)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateBlockSameDayAllowed(t *testing.T) {
	f := newFixture(testNow)
	p, svc := seedProvider(f)

	cmd := blockCommand(p, svc)
	cmd.Date = testNow

	b, err := f.blockSvc.CreateBlock(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, slotblock.StatusDraft, b.Status)
	assert.Equal(t, "BLK00001", b.BlockNumber)
}

func TestCreateBlockOverlap(t *testing.T) {
	f := newFixture(testNow)
	p, svc := seedProvider(f)
	ctx := context.Background()

	first, err := f.blockSvc.CreateBlock(ctx, blockCommand(p, svc))
	require.NoError(t, err)

	// A draft block does not participate in overlap checks.
	_, err = f.blockSvc.CreateBlock(ctx, blockCommand(p, svc))
	require.NoError(t, err)

	_, _, err = f.blockSvc.ConfirmBlock(ctx, first.ID, uuid.New())
	require.NoError(t, err)

	_, err = f.blockSvc.CreateBlock(ctx, blockCommand(p, svc))
	assert.ErrorIs(t, err, slotblock.ErrBlockOverlap)

	// Back-to-back is not an overlap: intervals are half-open.
	adjacent := blockCommand(p, svc)
	adjacent.StartMinute, adjacent.EndMinute = 10*60, 11*60
	_, err = f.blockSvc.CreateBlock(ctx, adjacent)
	assert.NoError(t, err)
}

func TestConfirmBlockTilesWindow(t *testing.T) {
	f := newFixture(testNow)
	p, svc := seedProvider(f)
	ctx := context.Background()

	b, err := f.blockSvc.CreateBlock(ctx, blockCommand(p, svc))
	require.NoError(t, err)

	confirmed, created, err := f.blockSvc.ConfirmBlock(ctx, b.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, slotblock.StatusConfirmed, confirmed.Status)
	assert.Equal(t, 3, created)

	slots, err := f.slots.ListByBlock(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, slots, 3)

	day := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	for i, s := range slots {
		assert.Equal(t, day.Add(time.Duration(9*60+i*20)*time.Minute), s.StartTime)
		assert.Equal(t, 20, s.DurationMins)
		assert.Equal(t, p.ID, s.ProviderID)
		assert.False(t, s.IsBooked)
		assert.True(t, s.Active)
	}

	got, err := f.providers.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAvailable)
}

func TestConfirmBlockDropsPartialTrailingSlot(t *testing.T) {
	f := newFixture(testNow)
	p, svc := seedProvider(f)
	ctx := context.Background()

	cmd := blockCommand(p, svc)
	cmd.EndMinute = 9*60 + 50 // 09:00-09:50 with 20-minute slots

	b, err := f.blockSvc.CreateBlock(ctx, cmd)
	require.NoError(t, err)

	_, created, err := f.blockSvc.ConfirmBlock(ctx, b.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 2, created)
}

func TestConfirmBlockIdempotent(t *testing.T) {
	f := newFixture(testNow)
	p, svc := seedProvider(f)
	ctx := context.Background()

	b, err := f.blockSvc.CreateBlock(ctx, blockCommand(p, svc))
	require.NoError(t, err)

	_, created, err := f.blockSvc.ConfirmBlock(ctx, b.ID, uuid.New())
	require.NoError(t, err)
	require.Equal(t, 3, created)

	_, created, err = f.blockSvc.ConfirmBlock(ctx, b.ID, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, created)

	slots, err := f.slots.ListByBlock(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, slots, 3)
}

func TestPostBlockRejectedWhileLinked(t *testing.T) {
	f := newFixture(testNow)
	p, svc := seedProvider(f)
	ctx := context.Background()

	patient := &directory.Patient{PatientNumber: "PAT00001", FirstName: "Ana", LastName: "Cruz", IsActive: true}
	f.patients.add(patient)

	b, err := f.blockSvc.CreateBlock(ctx, blockCommand(p, svc))
	require.NoError(t, err)
	_, _, err = f.blockSvc.ConfirmBlock(ctx, b.ID, uuid.New())
	require.NoError(t, err)

	slots, err := f.slots.ListByBlock(ctx, b.ID)
	require.NoError(t, err)

	result, err := f.bookingSvc.Book(ctx, bookCmd(slots[0].ID, patient.ID))
	require.NoError(t, err)
	require.True(t, result.Success)

	_, err = f.blockSvc.PostBlock(ctx, b.ID, uuid.New())
	assert.ErrorIs(t, err, slotblock.ErrLinkedAppointments)

	_, err = f.blockSvc.ResetBlock(ctx, b.ID, uuid.New())
	assert.ErrorIs(t, err, slotblock.ErrLinkedAppointments)
}

func TestPostBlockDiscardsUnbookedChildren(t *testing.T) {
	f := newFixture(testNow)
	p, svc := seedProvider(f)
	ctx := context.Background()

	b, err := f.blockSvc.CreateBlock(ctx, blockCommand(p, svc))
	require.NoError(t, err)
	_, _, err = f.blockSvc.ConfirmBlock(ctx, b.ID, uuid.New())
	require.NoError(t, err)

	posted, err := f.blockSvc.PostBlock(ctx, b.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, slotblock.StatusPosted, posted.Status)

	slots, err := f.slots.ListByBlock(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestDeleteBlockRejectedWithBookedChildren(t *testing.T) {
	f := newFixture(testNow)
	p, svc := seedProvider(f)
	ctx := context.Background()

	patient := &directory.Patient{PatientNumber: "PAT00001", FirstName: "Ana", LastName: "Cruz", IsActive: true}
	f.patients.add(patient)

	b, err := f.blockSvc.CreateBlock(ctx, blockCommand(p, svc))
	require.NoError(t, err)
	_, _, err = f.blockSvc.ConfirmBlock(ctx, b.ID, uuid.New())
	require.NoError(t, err)

	slots, err := f.slots.ListByBlock(ctx, b.ID)
	require.NoError(t, err)

	result, err := f.bookingSvc.Book(ctx, bookCmd(slots[0].ID, patient.ID))
	require.NoError(t, err)
	require.True(t, result.Success)

	err = f.blockSvc.DeleteBlock(ctx, b.ID, uuid.New())
	assert.ErrorIs(t, err, slotblock.ErrBookedChildren)

	err = f.blockSvc.DeleteBlock(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, slotblock.ErrBlockNotFound)
}

func TestConfirmBlockRejectsOverlappingDraft(t *testing.T) {
	f := newFixture(testNow)
	p, svc := seedProvider(f)
	ctx := context.Background()

	first, err := f.blockSvc.CreateBlock(ctx, blockCommand(p, svc))
	require.NoError(t, err)
	// Creation only compares against non-draft blocks, so an identical
	// draft window is admitted.
	second, err := f.blockSvc.CreateBlock(ctx, blockCommand(p, svc))
	require.NoError(t, err)

	_, created, err := f.blockSvc.ConfirmBlock(ctx, first.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	// Confirming the loser must not double-tile the provider's window.
	_, _, err = f.blockSvc.ConfirmBlock(ctx, second.ID, uuid.New())
	require.ErrorIs(t, err, slotblock.ErrBlockOverlap)

	got, err := f.blockSvc.GetBlock(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, slotblock.StatusDraft, got.Status)

	slots, err := f.slots.ListByBlock(ctx, second.ID)
	require.NoError(t, err)
	assert.Empty(t, slots)
}
