package model

import "time"

// Payment is one immutable money-received event.  Rows are appended once
// and never updated or deleted; the sum of amounts per reservation must
// equal that reservation's AmountPaidCents.
type Payment struct {
	ID            uint64    // payments.id
	ReservationID uint64    // payments.reservation_id
	AmountCents   int64     // payments.amount_cents
	Method        string    // payments.method (pix, cash, card, ...)
	Source        string    // payments.source (who/what channel recorded it)
	CreatedBy     uint64    // payments.created_by
	CreatedAt     time.Time // payments.created_at
}
