// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

import (
	"time"

	"github.com/jmarins/boat-tour-reservation/internal/model"
)

// QueueName is the durable queue all reservation lifecycle events share.
// Consumers switch on the event Type field.
const QueueName = "reservation.events"

// Event types carried on the reservation.events queue.
const (
	TypeReservationCreated   = "reservation.created"
	TypeReservationCancelled = "reservation.cancelled"
	TypePaymentReceived      = "payment.received"
)

// ReservationEvent is the envelope for every message on the queue.  It
// carries enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary database.
type ReservationEvent struct {
	Type             string  `json:"type"`
	ReservationID    uint64  `json:"reservation_id"`
	BoatID           uint64  `json:"boat_id"`
	SeatNumber       uint32  `json:"seat_number"`
	GroupID          *string `json:"group_id,omitempty"`
	CustomerName     string  `json:"customer_name"`
	Status           string  `json:"status"`
	Channel          string  `json:"channel"`
	TotalAmountCents int64   `json:"total_amount_cents"`
	AmountCents      int64   `json:"amount_cents,omitempty"` // payment events only
	Reason           string  `json:"reason,omitempty"`       // cancellation events only
	OccurredAt       string  `json:"occurred_at"`
}

// NewReservationEvent builds the common envelope fields from a reservation.
func NewReservationEvent(typ string, r *model.Reservation) ReservationEvent {
	return ReservationEvent{
		Type:             typ,
		ReservationID:    r.ID,
		BoatID:           r.BoatID,
		SeatNumber:       r.SeatNumber,
		GroupID:          r.GroupID,
		CustomerName:     r.CustomerName,
		Status:           string(r.Status),
		Channel:          r.Channel,
		TotalAmountCents: r.TotalAmountCents,
		OccurredAt:       time.Now().UTC().Format(time.RFC3339),
	}
}
