package service

import (
	"context"
	"fmt"
	"testing"

	"marketplace-service/internal/models"
	"marketplace-service/internal/reservation"
	"marketplace-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminBoardRefresh(t *testing.T) {
	f := newServiceFixture()
	board := NewAdminBoard(f.svc)

	list, loadedAt := board.Snapshot()
	assert.Empty(t, list)
	assert.True(t, loadedAt.IsZero())

	f.create(t)
	f.create(t)
	require.NoError(t, board.Refresh(context.Background()))

	list, loadedAt = board.Snapshot()
	assert.Len(t, list, 2)
	assert.False(t, loadedAt.IsZero())
}

func TestAdminBoardRefreshFailureKeepsPreviousList(t *testing.T) {
	f := newServiceFixture()
	board := NewAdminBoard(f.svc)
	r := f.create(t)
	require.NoError(t, board.Refresh(context.Background()))
	_, firstLoad := board.Snapshot()

	f.create(t)
	f.store.listErr = fmt.Errorf("%w: list reservations: timeout", store.ErrPersistence)

	err := board.Refresh(context.Background())
	assert.ErrorIs(t, err, store.ErrPersistence)

	list, loadedAt := board.Snapshot()
	require.Len(t, list, 1)
	assert.Equal(t, r.ID, list[0].ID)
	assert.Equal(t, firstLoad, loadedAt)
}

func TestAdminBoardTransition(t *testing.T) {
	f := newServiceFixture()
	board := NewAdminBoard(f.svc)
	r := f.create(t)
	other := f.create(t)
	require.NoError(t, board.Refresh(context.Background()))

	updated, err := board.Transition(context.Background(), &TransitionRequest{ID: r.ID, To: models.ReservationStatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusConfirmed, updated.Status)

	confirmed, _ := board.Filtered(models.ReservationStatusConfirmed)
	require.Len(t, confirmed, 1)
	assert.Equal(t, r.ID, confirmed[0].ID)

	reserved, _ := board.Filtered(models.ReservationStatusReserved)
	require.Len(t, reserved, 1)
	assert.Equal(t, other.ID, reserved[0].ID)
}

func TestAdminBoardFailedTransitionLeavesSnapshot(t *testing.T) {
	f := newServiceFixture()
	board := NewAdminBoard(f.svc)
	r := f.create(t)
	require.NoError(t, board.Refresh(context.Background()))
	before, _ := board.Snapshot()

	f.store.updateErr = fmt.Errorf("%w: update: timeout", store.ErrPersistence)
	_, err := board.Transition(context.Background(), &TransitionRequest{ID: r.ID, To: models.ReservationStatusCancelled})
	assert.ErrorIs(t, err, store.ErrPersistence)

	f.store.updateErr = nil
	_, err = board.Transition(context.Background(), &TransitionRequest{ID: r.ID, To: models.ReservationStatusReserved})
	assert.ErrorIs(t, err, reservation.ErrInvalidTransition)

	after, _ := board.Snapshot()
	assert.Equal(t, before, after)
}

func TestAdminBoardSnapshotIsACopy(t *testing.T) {
	f := newServiceFixture()
	board := NewAdminBoard(f.svc)
	f.create(t)
	require.NoError(t, board.Refresh(context.Background()))

	list, _ := board.Snapshot()
	list[0].Status = models.ReservationStatusCancelled

	again, _ := board.Snapshot()
	assert.Equal(t, models.ReservationStatusReserved, again[0].Status)
}

func TestAdminBoardTransitionKeepsEntryWhenReloadFails(t *testing.T) {
	f := newServiceFixture()
	board := NewAdminBoard(f.svc)
	r := f.create(t)
	require.NoError(t, board.Refresh(context.Background()))

	f.store.getErr = fmt.Errorf("%w: get reservation: timeout", store.ErrPersistence)
	_, err := board.Transition(context.Background(), &TransitionRequest{ID: r.ID, To: models.ReservationStatusCancelled})
	require.NoError(t, err)

	list, _ := board.Snapshot()
	require.Len(t, list, 1)
	assert.Equal(t, models.ReservationStatusCancelled, list[0].Status)
	assert.Equal(t, lamp, list[0].Snapshot())
	assert.Equal(t, "user-1", list[0].UserID)
}
