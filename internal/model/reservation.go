package model

import "time"

// Reservation records one seat held by one person on one sailing.
// Reservations created together for several people share a GroupID; the
// group leader is the primary contact whose actions (terms acceptance,
// whole-party cancellation) fan out to the siblings.  Rows are never
// deleted, only status-transitioned.
//
// Fields:
//  ID                  – primary key identifier.
//  BoatID              – sailing being reserved.
//  SeatNumber          – seat within 1..SeatsTotal, unique per boat among
//                        seat-holding reservations.
//  Status              – see ReservationStatus.
//  CustomerName        – passenger name.
//  Phone               – contact phone.
//  Address             – contact address.
//  Document            – identity document (optional).
//  BirthDate           – date of birth (optional).
//  Email               – contact e-mail (optional).
//  GroupID             – shared id across a multi-seat booking (nil when solo).
//  IsGroupLeader       – marks the booking's primary contact.
//  EscunaType          – sub-pool debited for escuna sailings.
//  PaymentMethod       – declared payment method (pix, cash, card, ...).
//  TotalAmountCents    – price after discount.
//  AmountPaidCents     – cumulative payments received.
//  AmountDueCents      – remaining balance; paid + due == total always.
//  DiscountAmountCents – admin-set discount applied at creation time.
//  DiscountReason      – why the discount was granted.
//  AcceptedTerms       – customer accepted the tour terms.
//  AcceptedImageRights – customer consented to image use.
//  TermsAcceptedAt     – when the terms flags were last written.
//  TermsIP             – client IP captured with the acceptance (optional).
//  TermsUserAgent      – client user agent captured with the acceptance (optional).
//  Channel             – booking origin: public, vendor or admin.
//  CreatedBy           – user id of the creating vendor/admin; zero for public.
//  CancelledAt         – when the reservation was cancelled.
//  CancelledReason     – free-text cancellation reason.
//  CreatedAt           – creation timestamp.
//  UpdatedAt           – last update timestamp.
type Reservation struct {
	ID                  uint64            // reservations.id
	BoatID              uint64            // reservations.boat_id
	SeatNumber          uint32            // reservations.seat_number
	Status              ReservationStatus // reservations.status
	CustomerName        string            // reservations.customer_name
	Phone               string            // reservations.phone
	Address             string            // reservations.address
	Document            *string           // reservations.document (nullable)
	BirthDate           *time.Time        // reservations.birth_date (nullable)
	Email               *string           // reservations.email (nullable)
	GroupID             *string           // reservations.group_id (nullable)
	IsGroupLeader       bool              // reservations.is_group_leader
	EscunaType          SubPool           // reservations.escuna_type ('' when not applicable)
	PaymentMethod       string            // reservations.payment_method
	TotalAmountCents    int64             // reservations.total_amount_cents
	AmountPaidCents     int64             // reservations.amount_paid_cents
	AmountDueCents      int64             // reservations.amount_due_cents
	DiscountAmountCents int64             // reservations.discount_amount_cents
	DiscountReason      *string           // reservations.discount_reason (nullable)
	AcceptedTerms       bool              // reservations.accepted_terms
	AcceptedImageRights bool              // reservations.accepted_image_rights
	TermsAcceptedAt     *time.Time        // reservations.terms_accepted_at (nullable)
	TermsIP             *string           // reservations.terms_ip (nullable)
	TermsUserAgent      *string           // reservations.terms_user_agent (nullable)
	Channel             string            // reservations.channel
	CreatedBy           uint64            // reservations.created_by
	CancelledAt         *time.Time        // reservations.cancelled_at (nullable)
	CancelledReason     *string           // reservations.cancelled_reason (nullable)
	CreatedAt           time.Time         // reservations.created_at
	UpdatedAt           time.Time         // reservations.updated_at
}

// PersonData carries the passenger fields supplied at booking time.  IP
// lookup and similar enrichment is the caller's business; absent optional
// fields are valid.
type PersonData struct {
	CustomerName string     `json:"customer_name"`
	Phone        string     `json:"phone"`
	Address      string     `json:"address"`
	Document     *string    `json:"document,omitempty"`
	BirthDate    *time.Time `json:"birth_date,omitempty"`
	Email        *string    `json:"email,omitempty"`
}

// AuditInfo captures who performed a consent action and from where.  Both
// fields are optional enrichment supplied by the HTTP layer.
type AuditInfo struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}
