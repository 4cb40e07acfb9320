package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmarins/boat-tour-reservation/internal/model"
)

func TestNewReservationEvent(t *testing.T) {
	group := "8e2c1f34-0d1a-4b0e-9a77-2f4f9a1c2d3e"
	r := &model.Reservation{
		ID:               42,
		BoatID:           7,
		SeatNumber:       12,
		GroupID:          &group,
		CustomerName:     "Maria Souza",
		Status:           model.StatusPending,
		Channel:          "public",
		TotalAmountCents: 15000,
	}

	ev := NewReservationEvent(TypeReservationCreated, r)
	assert.Equal(t, TypeReservationCreated, ev.Type)
	assert.Equal(t, uint64(42), ev.ReservationID)
	assert.Equal(t, uint64(7), ev.BoatID)
	assert.Equal(t, uint32(12), ev.SeatNumber)
	require.NotNil(t, ev.GroupID)
	assert.Equal(t, group, *ev.GroupID)
	assert.Equal(t, "pending", ev.Status)
	assert.Equal(t, int64(15000), ev.TotalAmountCents)
	assert.NotEmpty(t, ev.OccurredAt)
}

func TestFormatLogLine(t *testing.T) {
	ev := ReservationEvent{
		Type:             TypePaymentReceived,
		ReservationID:    42,
		BoatID:           7,
		SeatNumber:       12,
		CustomerName:     "Maria Souza",
		Status:           "approved",
		Channel:          "vendor",
		TotalAmountCents: 15000,
		AmountCents:      5000,
		OccurredAt:       "2026-08-31T10:00:00Z",
	}

	line := FormatLogLine(ev)
	assert.Contains(t, line, "payment.received")
	assert.Contains(t, line, "reservation_id=42")
	assert.Contains(t, line, "group=-")
	assert.Contains(t, line, "amount=5000 cents")
	assert.NotContains(t, line, "reason=")
}

func TestFormatLogLineCancellation(t *testing.T) {
	ev := ReservationEvent{
		Type:          TypeReservationCancelled,
		ReservationID: 43,
		Reason:        "weather",
		OccurredAt:    "2026-08-31T10:00:00Z",
	}

	line := FormatLogLine(ev)
	assert.Contains(t, line, "reservation.cancelled")
	assert.Contains(t, line, `reason="weather"`)
}
