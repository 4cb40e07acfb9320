package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReservationStatus(t *testing.T) {
	got, err := ParseReservationStatus("  Approved ")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got)

	_, err = ParseReservationStatus("refunded")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestCanTransition(t *testing.T) {
	all := []ReservationStatus{StatusPending, StatusApproved, StatusCancelled, StatusPreReserved, StatusNoShow}

	allowed := map[[2]ReservationStatus]bool{
		{StatusPending, StatusApproved}:      true,
		{StatusPending, StatusCancelled}:     true,
		{StatusPreReserved, StatusApproved}:  true,
		{StatusPreReserved, StatusCancelled}: true,
		{StatusApproved, StatusCancelled}:    true,
		{StatusApproved, StatusNoShow}:       true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]ReservationStatus{from, to}]
			assert.Equalf(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatesHaveNoExit(t *testing.T) {
	all := []ReservationStatus{StatusPending, StatusApproved, StatusCancelled, StatusPreReserved, StatusNoShow}
	for _, from := range []ReservationStatus{StatusCancelled, StatusNoShow} {
		require.True(t, from.Terminal())
		for _, to := range all {
			assert.Falsef(t, CanTransition(from, to), "%s must not leave terminal state", to)
		}
	}
}

func TestHoldsSeat(t *testing.T) {
	assert.True(t, StatusPending.HoldsSeat())
	assert.True(t, StatusPreReserved.HoldsSeat())
	assert.True(t, StatusApproved.HoldsSeat())
	assert.False(t, StatusCancelled.HoldsSeat())
	assert.False(t, StatusNoShow.HoldsSeat())
}

func TestParseSubPool(t *testing.T) {
	got, err := ParseSubPool("With_Landing")
	require.NoError(t, err)
	assert.Equal(t, SubPoolWithLanding, got)

	got, err = ParseSubPool("")
	require.NoError(t, err)
	assert.Equal(t, SubPoolNone, got)

	_, err = ParseSubPool("half_landing")
	assert.Error(t, err)
}

func TestPoolCapacity(t *testing.T) {
	b := Boat{
		SeatsTotal: 60, SeatsTaken: 10,
		SeatsWithLanding: 40, SeatsWithLandingTaken: 7,
		SeatsWithoutLanding: 20, SeatsWithoutLandingTaken: 3,
	}
	total, taken := b.PoolCapacity(SubPoolWithLanding)
	assert.Equal(t, uint32(40), total)
	assert.Equal(t, uint32(7), taken)

	total, taken = b.PoolCapacity(SubPoolNone)
	assert.Equal(t, uint32(60), total)
	assert.Equal(t, uint32(10), taken)
}
