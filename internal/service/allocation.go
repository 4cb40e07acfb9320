package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmarins/boat-tour-reservation/internal/model"
	"github.com/jmarins/boat-tour-reservation/internal/repository"
)

// Booking channels.  Vendor and admin bookings are trusted and go straight
// to approved; public bookings start pending and wait for operator review.
const (
	ChannelPublic = "public"
	ChannelVendor = "vendor"
	ChannelAdmin  = "admin"
)

// EventSink receives best-effort notifications after a state change has
// committed.  Implementations must never block the request path for long;
// publish failures are logged, not returned.
type EventSink interface {
	ReservationsCreated(ctx context.Context, rs []model.Reservation)
	ReservationCancelled(ctx context.Context, r *model.Reservation, reason string)
	PaymentReceived(ctx context.Context, r *model.Reservation, amountCents int64)
}

// BookingRequest carries everything needed to place one booking for one or
// more passengers on a single sailing.
type BookingRequest struct {
	BoatID              uint64
	SubPool             model.SubPool
	People              []model.PersonData
	PaymentMethod       string
	Channel             string
	CreatedBy           uint64
	DiscountAmountCents int64
	DiscountReason      *string
}

// AvailabilityReport is the advisory read served to browsers.  The numbers
// can be stale the moment they are computed; the booking path re-validates
// under the boat lock before committing.
type AvailabilityReport struct {
	BoatID        uint64   `json:"boat_id"`
	SeatsTotal    uint32   `json:"seats_total"`
	SeatsTaken    uint32   `json:"seats_taken"`
	PoolTotal     uint32   `json:"pool_total"`
	PoolTaken     uint32   `json:"pool_taken"`
	FreeSeats     []uint32 `json:"free_seats"`
	SeatsFreeHeld uint32   `json:"seats_free"`
}

// AllocationService is the write-side orchestrator.  Every mutation follows
// the same shape: begin a transaction, lock the boat row first, re-validate
// against the authoritative reservation rows, write, commit.  Counter
// updates ride in the same transaction as the status change that justifies
// them, so capacity invariants hold at every commit point.
type AllocationService struct {
	db       *sql.DB
	boats    *repository.BoatRepo
	resv     *repository.ReservationRepo
	payments *repository.PaymentRepo
	groups   *GroupCoordinator
	events   EventSink // may be nil
}

// NewAllocationService constructs the service.  events may be nil when no
// queue is configured.
func NewAllocationService(db *sql.DB, boats *repository.BoatRepo, resv *repository.ReservationRepo, payments *repository.PaymentRepo, groups *GroupCoordinator, events EventSink) *AllocationService {
	if db == nil || boats == nil || resv == nil || payments == nil || groups == nil {
		panic("nil dependency passed to NewAllocationService")
	}
	return &AllocationService{db: db, boats: boats, resv: resv, payments: payments, groups: groups, events: events}
}

// BookSeats places one reservation per passenger in a single transaction.
// All rows succeed or none do; a party of four never ends up with three
// seats.  Seats are assigned lowest-number-first from the free set computed
// under the boat lock, which makes concurrent bookings serialize and pick
// disjoint seats.
func (s *AllocationService) BookSeats(ctx context.Context, req BookingRequest) ([]model.Reservation, error) {
	n := len(req.People)
	if n == 0 {
		return nil, ErrNoPassengers
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, repository.WrapRetryable(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	boat, err := s.boats.GetForUpdateTx(ctx, tx, req.BoatID)
	if err != nil {
		return nil, repository.WrapRetryable(err)
	}
	if boat.Status != model.BoatActive {
		return nil, ErrBoatNotBookable
	}
	if err := validateSubPool(boat.BoatType, req.SubPool); err != nil {
		return nil, err
	}
	price, err := priceFor(boat.TicketPriceCents, req.DiscountAmountCents)
	if err != nil {
		return nil, err
	}

	held, err := s.boats.HeldSeatNumbersTx(ctx, tx, req.BoatID)
	if err != nil {
		return nil, repository.WrapRetryable(err)
	}
	seats, err := allocateSeats(boat.SeatsTotal, held, n)
	if err != nil {
		return nil, err
	}
	if req.SubPool != model.SubPoolNone {
		heldInPool, err := s.boats.CountHeldInPoolTx(ctx, tx, req.BoatID, req.SubPool)
		if err != nil {
			return nil, repository.WrapRetryable(err)
		}
		poolTotal, _ := boat.PoolCapacity(req.SubPool)
		if !poolHasRoom(heldInPool, n, poolTotal) {
			return nil, repository.ErrInsufficientCapacity
		}
	}

	status := model.StatusPending
	if req.Channel == ChannelVendor || req.Channel == ChannelAdmin {
		status = model.StatusApproved
	}
	var groupID *string
	if n > 1 {
		id := NewGroupID()
		groupID = &id
	}

	created := make([]model.Reservation, 0, n)
	for i, p := range req.People {
		res := model.Reservation{
			BoatID:              req.BoatID,
			SeatNumber:          seats[i],
			Status:              status,
			CustomerName:        p.CustomerName,
			Phone:               p.Phone,
			Address:             p.Address,
			Document:            p.Document,
			BirthDate:           p.BirthDate,
			Email:               p.Email,
			GroupID:             groupID,
			IsGroupLeader:       groupID != nil && i == 0,
			EscunaType:          req.SubPool,
			PaymentMethod:       req.PaymentMethod,
			TotalAmountCents:    price,
			AmountDueCents:      price,
			DiscountAmountCents: req.DiscountAmountCents,
			DiscountReason:      req.DiscountReason,
			Channel:             req.Channel,
			CreatedBy:           req.CreatedBy,
		}
		if err := s.resv.CreateTx(ctx, tx, &res); err != nil {
			return nil, repository.WrapRetryable(err)
		}
		if status == model.StatusApproved {
			if err := s.boats.IncrementTakenTx(ctx, tx, req.BoatID, req.SubPool); err != nil {
				return nil, repository.WrapRetryable(err)
			}
		}
		created = append(created, res)
	}

	if err := tx.Commit(); err != nil {
		return nil, repository.WrapRetryable(err)
	}
	committed = true

	if s.events != nil {
		s.events.ReservationsCreated(ctx, created)
	}
	return created, nil
}

// Approve moves a pending or pre-reserved reservation to approved and
// debits the seat counters in the same transaction.
func (s *AllocationService) Approve(ctx context.Context, id uint64) (*model.Reservation, error) {
	var approved *model.Reservation
	err := s.withBoatLock(ctx, id, func(tx *sql.Tx, res *model.Reservation) error {
		if !model.CanTransition(res.Status, model.StatusApproved) {
			return repository.ErrInvalidTransition
		}
		if err := s.resv.TransitionStatusTx(ctx, tx, res.ID, res.Status, model.StatusApproved, nil); err != nil {
			return err
		}
		if err := s.boats.IncrementTakenTx(ctx, tx, res.BoatID, res.EscunaType); err != nil {
			return err
		}
		res.Status = model.StatusApproved
		approved = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Cancel transitions the reservation to cancelled, releasing its seat
// counters when it was approved.  With wholeGroup set the cancellation fans
// out to the rest of the group after the anchor has committed; a fan-out
// failure is reported as *PartialPropagationError while the anchor stays
// cancelled.  Returns the cancelled anchor and the number of siblings
// cancelled.
func (s *AllocationService) Cancel(ctx context.Context, id uint64, reason string, wholeGroup bool) (*model.Reservation, int, error) {
	var anchor *model.Reservation
	err := s.withBoatLock(ctx, id, func(tx *sql.Tx, res *model.Reservation) error {
		if !model.CanTransition(res.Status, model.StatusCancelled) {
			return repository.ErrInvalidTransition
		}
		wasApproved := res.Status == model.StatusApproved
		if err := s.resv.TransitionStatusTx(ctx, tx, res.ID, res.Status, model.StatusCancelled, &reason); err != nil {
			return err
		}
		if wasApproved {
			if err := s.boats.DecrementTakenTx(ctx, tx, res.BoatID, res.EscunaType); err != nil {
				return err
			}
		}
		res.Status = model.StatusCancelled
		anchor = res
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	if s.events != nil {
		s.events.ReservationCancelled(ctx, anchor, reason)
	}

	if !wholeGroup || anchor.GroupID == nil {
		return anchor, 0, nil
	}
	siblings, err := s.groups.Propagate(ctx, anchor, repository.GroupUpdate{
		Cancelled:    true,
		CancelReason: &reason,
	})
	if err != nil {
		// The anchor is already cancelled; surface the partial result.
		return anchor, siblings, err
	}
	return anchor, siblings, nil
}

// RecordPayment appends one immutable payment row and moves the paid/due
// split by the same amount, atomically.  It validates against the stored
// balance, rejects rows whose split no longer sums to the total, and never
// changes the reservation's status.
func (s *AllocationService) RecordPayment(ctx context.Context, id uint64, amountCents int64, method, source string, by uint64) (*model.Reservation, error) {
	if amountCents <= 0 {
		return nil, repository.ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, repository.WrapRetryable(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := s.resv.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, repository.WrapRetryable(err)
	}
	if err := validatePayment(amountCents, res.AmountPaidCents, res.AmountDueCents, res.TotalAmountCents); err != nil {
		return nil, err
	}

	if err := s.payments.InsertTx(ctx, tx, &model.Payment{
		ReservationID: res.ID,
		AmountCents:   amountCents,
		Method:        method,
		Source:        source,
		CreatedBy:     by,
	}); err != nil {
		return nil, repository.WrapRetryable(err)
	}
	res.AmountPaidCents += amountCents
	res.AmountDueCents -= amountCents
	if err := s.resv.UpdatePaymentTx(ctx, tx, res.ID, res.AmountPaidCents, res.AmountDueCents); err != nil {
		return nil, repository.WrapRetryable(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, repository.WrapRetryable(err)
	}
	committed = true

	if s.events != nil {
		s.events.PaymentReceived(ctx, res, amountCents)
	}
	return res, nil
}

// AcceptTerms records the terms and image-rights flags on the reservation
// together with the caller's audit trail, then propagates the same flags to
// the rest of the group.  The anchor write commits on its own; sibling
// propagation failing afterwards yields *PartialPropagationError without
// undoing the acceptance.  Returns the number of siblings updated.
func (s *AllocationService) AcceptTerms(ctx context.Context, id uint64, terms, imageRights bool, audit model.AuditInfo) (*model.Reservation, int, error) {
	now := time.Now().UTC()
	var anchor *model.Reservation
	err := s.withBoatLock(ctx, id, func(tx *sql.Tx, res *model.Reservation) error {
		if res.Status.Terminal() {
			return repository.ErrInvalidTransition
		}
		if err := s.resv.RecordTermsTx(ctx, tx, res.ID, terms, imageRights, audit, now); err != nil {
			return err
		}
		res.AcceptedTerms = terms
		res.AcceptedImageRights = imageRights
		res.TermsAcceptedAt = &now
		anchor = res
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	if anchor.GroupID == nil {
		return anchor, 0, nil
	}
	update := repository.GroupUpdate{
		AcceptedTerms:       &terms,
		AcceptedImageRights: &imageRights,
		TermsAcceptedAt:     &now,
	}
	if audit.IP != "" {
		update.TermsIP = &audit.IP
	}
	if audit.UserAgent != "" {
		update.TermsUserAgent = &audit.UserAgent
	}
	siblings, err := s.groups.Propagate(ctx, anchor, update)
	if err != nil {
		return anchor, siblings, err
	}
	return anchor, siblings, nil
}

// MarkNoShow records that an approved passenger did not board.  Allowed
// only after the sailing date has passed.  Seat counters are left alone;
// the sailing is over and the history should show the seat as sold.
func (s *AllocationService) MarkNoShow(ctx context.Context, id uint64) (*model.Reservation, error) {
	var marked *model.Reservation
	err := s.withBoatLock(ctx, id, func(tx *sql.Tx, res *model.Reservation) error {
		boat, err := s.boats.GetForUpdateTx(ctx, tx, res.BoatID)
		if err != nil {
			return err
		}
		if !sailDatePassed(boat.SailDate, time.Now().UTC()) {
			return ErrNotPastSailing
		}
		if !model.CanTransition(res.Status, model.StatusNoShow) {
			return repository.ErrInvalidTransition
		}
		if err := s.resv.TransitionStatusTx(ctx, tx, res.ID, res.Status, model.StatusNoShow, nil); err != nil {
			return err
		}
		res.Status = model.StatusNoShow
		marked = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return marked, nil
}

// Availability is the lock-free advisory read behind the public browse
// endpoints.
func (s *AllocationService) Availability(ctx context.Context, boatID uint64, pool model.SubPool) (*AvailabilityReport, error) {
	boat, err := s.boats.GetByID(ctx, boatID)
	if err != nil {
		return nil, err
	}
	// An empty pool here means "whole boat view", valid for any boat type.
	if pool != model.SubPoolNone {
		if err := validateSubPool(boat.BoatType, pool); err != nil {
			return nil, err
		}
	}
	held, err := s.boats.HeldSeatNumbers(ctx, boatID)
	if err != nil {
		return nil, err
	}
	free := repository.FreeSeatNumbers(boat.SeatsTotal, held)
	poolTotal, poolTaken := boat.PoolCapacity(pool)
	return &AvailabilityReport{
		BoatID:        boat.ID,
		SeatsTotal:    boat.SeatsTotal,
		SeatsTaken:    boat.SeatsTaken,
		PoolTotal:     poolTotal,
		PoolTaken:     poolTaken,
		FreeSeats:     free,
		SeatsFreeHeld: uint32(len(free)),
	}, nil
}

// Reconcile recomputes a boat's counters from the reservation rows and
// repairs drift.  Exposed to admins only.
func (s *AllocationService) Reconcile(ctx context.Context, boatID uint64) (*repository.ReconcileReport, error) {
	return s.boats.Reconcile(ctx, boatID)
}

// withBoatLock runs fn inside a transaction holding the reservation's boat
// row lock.  The reservation is read once without a lock to learn its boat,
// then re-read under FOR UPDATE after the boat lock is held, so every
// writer acquires locks in the same boat-first order.
func (s *AllocationService) withBoatLock(ctx context.Context, reservationID uint64, fn func(tx *sql.Tx, res *model.Reservation) error) error {
	peek, err := s.resv.GetByID(ctx, reservationID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return repository.WrapRetryable(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := s.boats.GetForUpdateTx(ctx, tx, peek.BoatID); err != nil {
		return repository.WrapRetryable(err)
	}
	res, err := s.resv.GetForUpdateTx(ctx, tx, reservationID)
	if err != nil {
		return repository.WrapRetryable(err)
	}
	if err := fn(tx, res); err != nil {
		return repository.WrapRetryable(err)
	}
	if err := tx.Commit(); err != nil {
		return repository.WrapRetryable(err)
	}
	committed = true
	return nil
}

// validateSubPool enforces the boat-type/sub-pool pairing: escuna sailings
// require a landing selection, other boat types refuse one.
func validateSubPool(bt model.BoatType, pool model.SubPool) error {
	if bt == model.BoatEscuna {
		if pool == model.SubPoolNone {
			return ErrInvalidSubPool
		}
		return nil
	}
	if pool != model.SubPoolNone {
		return ErrInvalidSubPool
	}
	return nil
}

// priceFor computes the per-seat charge after discount.  Discounts are
// bounded by the ticket price so a reservation's total never goes negative.
func priceFor(ticketCents, discountCents int64) (int64, error) {
	if discountCents < 0 || discountCents > ticketCents {
		return 0, repository.ErrInvalidAmount
	}
	return ticketCents - discountCents, nil
}

// validatePayment checks one incoming payment against the stored balance.
func validatePayment(amountCents, paidCents, dueCents, totalCents int64) error {
	if paidCents+dueCents != totalCents {
		return ErrLedgerInconsistent
	}
	if amountCents > dueCents {
		return repository.ErrAmountExceedsDue
	}
	return nil
}

// allocateSeats classifies the free set against the party size and picks
// seats when the boat can fit everyone.  A lone passenger squeezed out by a
// concurrent hold lost a seat race; a party larger than the free set is a
// capacity shortfall.
func allocateSeats(seatsTotal uint32, held []uint32, n int) ([]uint32, error) {
	free := repository.FreeSeatNumbers(seatsTotal, held)
	if len(free) < n {
		if n == 1 && len(held) > 0 {
			return nil, repository.ErrSeatTaken
		}
		return nil, repository.ErrInsufficientCapacity
	}
	return pickSeats(free, n), nil
}

// poolHasRoom checks sub-pool headroom for a party of n against the held
// count read under the boat lock.
func poolHasRoom(heldInPool uint32, n int, poolTotal uint32) bool {
	return heldInPool+uint32(n) <= poolTotal
}

// pickSeats takes the n lowest seat numbers from the free set.  free is
// already sorted ascending.
func pickSeats(free []uint32, n int) []uint32 {
	out := make([]uint32, n)
	copy(out, free[:n])
	return out
}

// sailDatePassed reports whether the sailing's calendar date is strictly
// before now's calendar date, both in UTC.
func sailDatePassed(sailDate, now time.Time) bool {
	sy, sm, sd := sailDate.UTC().Date()
	ny, nm, nd := now.UTC().Date()
	sail := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return sail.Before(today)
}
