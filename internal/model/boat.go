package model

import "time"

// Boat represents one scheduled sailing.  Seat capacity is tracked with
// denormalized taken counters updated only inside the same transaction as
// the authoritative reservation write; escuna boats additionally split
// capacity into with-landing and without-landing sub-pools.
//
// Fields:
//  ID                       – primary key identifier.
//  SailDate                 – calendar date of the sailing (no time component).
//  BoatType                 – escuna or lancha.
//  Status                   – active, inactive or completed.
//  SeatsTotal               – total purchasable seats, numbered 1..SeatsTotal.
//  SeatsTaken               – approved reservations counted against capacity.
//  SeatsWithLanding         – sub-pool capacity (escuna only; zero otherwise).
//  SeatsWithLandingTaken    – approved reservations in the with-landing pool.
//  SeatsWithoutLanding      – sub-pool capacity (escuna only; zero otherwise).
//  SeatsWithoutLandingTaken – approved reservations in the without-landing pool.
//  TicketPriceCents         – base adult price in cents.
//  CreatedAt                – timestamp when the boat was created.
//  UpdatedAt                – timestamp of last update.
type Boat struct {
	ID                       uint64     // boats.id
	SailDate                 time.Time  // boats.sail_date
	BoatType                 BoatType   // boats.boat_type
	Status                   BoatStatus // boats.status
	SeatsTotal               uint32     // boats.seats_total
	SeatsTaken               uint32     // boats.seats_taken
	SeatsWithLanding         uint32     // boats.seats_with_landing
	SeatsWithLandingTaken    uint32     // boats.seats_with_landing_taken
	SeatsWithoutLanding      uint32     // boats.seats_without_landing
	SeatsWithoutLandingTaken uint32     // boats.seats_without_landing_taken
	TicketPriceCents         int64      // boats.ticket_price_cents
	CreatedAt                time.Time  // boats.created_at
	UpdatedAt                time.Time  // boats.updated_at
}

// PoolCapacity returns total and taken for the given sub-pool, falling back
// to the whole boat when no sub-pool is selected.
func (b *Boat) PoolCapacity(pool SubPool) (total, taken uint32) {
	switch pool {
	case SubPoolWithLanding:
		return b.SeatsWithLanding, b.SeatsWithLandingTaken
	case SubPoolWithoutLanding:
		return b.SeatsWithoutLanding, b.SeatsWithoutLandingTaken
	}
	return b.SeatsTotal, b.SeatsTaken
}
