package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmarins/boat-tour-reservation/internal/model"
	"github.com/jmarins/boat-tour-reservation/internal/repository"
)

func TestValidateSubPool(t *testing.T) {
	assert.NoError(t, validateSubPool(model.BoatEscuna, model.SubPoolWithLanding))
	assert.NoError(t, validateSubPool(model.BoatEscuna, model.SubPoolWithoutLanding))
	assert.NoError(t, validateSubPool(model.BoatLancha, model.SubPoolNone))

	assert.ErrorIs(t, validateSubPool(model.BoatEscuna, model.SubPoolNone), ErrInvalidSubPool)
	assert.ErrorIs(t, validateSubPool(model.BoatLancha, model.SubPoolWithLanding), ErrInvalidSubPool)
}

func TestPriceFor(t *testing.T) {
	price, err := priceFor(15000, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), price)

	price, err = priceFor(15000, 2500)
	require.NoError(t, err)
	assert.Equal(t, int64(12500), price)

	// A full discount is a free seat, still valid.
	price, err = priceFor(15000, 15000)
	require.NoError(t, err)
	assert.Zero(t, price)

	_, err = priceFor(15000, -1)
	assert.ErrorIs(t, err, repository.ErrInvalidAmount)
	_, err = priceFor(15000, 15001)
	assert.ErrorIs(t, err, repository.ErrInvalidAmount)
}

func TestValidatePayment(t *testing.T) {
	// paid 40, due 60, total 100.
	assert.NoError(t, validatePayment(60, 40, 60, 100))
	assert.NoError(t, validatePayment(1, 40, 60, 100))

	assert.ErrorIs(t, validatePayment(61, 40, 60, 100), repository.ErrAmountExceedsDue)
	// Stored split drifted from the total: reject, never clamp.
	assert.ErrorIs(t, validatePayment(10, 50, 60, 100), ErrLedgerInconsistent)
}

func TestAllocateSeats(t *testing.T) {
	// Boat of 4 with seat 2 held: a party of 3 fits on the lowest free seats.
	seats, err := allocateSeats(4, []uint32{2}, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 3, 4}, seats)

	// A lone passenger finding the boat full lost a race against a
	// concurrent hold.
	seats, err = allocateSeats(2, []uint32{1, 2}, 1)
	assert.ErrorIs(t, err, repository.ErrSeatTaken)
	assert.Nil(t, seats)

	// A party of three against two free seats is a capacity shortfall, and
	// no seats are handed out at all.
	seats, err = allocateSeats(5, []uint32{1, 2, 3}, 3)
	assert.ErrorIs(t, err, repository.ErrInsufficientCapacity)
	assert.Nil(t, seats)

	// Nothing held yet but the boat is simply too small.
	_, err = allocateSeats(2, nil, 3)
	assert.ErrorIs(t, err, repository.ErrInsufficientCapacity)
}

func TestPoolHasRoom(t *testing.T) {
	assert.True(t, poolHasRoom(0, 3, 3))
	assert.True(t, poolHasRoom(2, 1, 3))

	assert.False(t, poolHasRoom(2, 2, 3))
	assert.False(t, poolHasRoom(3, 1, 3))
}

func TestBookSeatsRejectsEmptyParty(t *testing.T) {
	var s AllocationService
	_, err := s.BookSeats(context.Background(), BookingRequest{BoatID: 1})
	assert.ErrorIs(t, err, ErrNoPassengers)
}

func TestPickSeatsLowestFirst(t *testing.T) {
	free := []uint32{1, 3, 6, 7, 9}
	assert.Equal(t, []uint32{1, 3, 6}, pickSeats(free, 3))
	// The source slice stays intact for the remaining picks.
	assert.Equal(t, []uint32{1, 3, 6, 7, 9}, free)
}

func TestSailDatePassed(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	assert.True(t, sailDatePassed(time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), now))
	// Same calendar day is not past, regardless of the hour.
	assert.False(t, sailDatePassed(time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), now))
	assert.False(t, sailDatePassed(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), now))
}

func TestPartialPropagationError(t *testing.T) {
	cause := errors.New("connection reset")
	err := &PartialPropagationError{Updated: 2, Expected: 5, Err: cause}

	assert.Contains(t, err.Error(), "2/5")
	assert.ErrorIs(t, err, cause)

	var pErr *PartialPropagationError
	require.ErrorAs(t, error(err), &pErr)
	assert.Equal(t, 2, pErr.Updated)
	assert.Equal(t, 5, pErr.Expected)
}
