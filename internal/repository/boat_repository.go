package repository // repository holds data access logic for domain entities

import (
	"context"      // context is used to manage deadlines and cancellation
	"database/sql" // sql provides DB primitives
	"errors"
	"log"
	"sort"
	"time"

	"github.com/jmarins/boat-tour-reservation/internal/model"
)

// BoatRepo owns seat-capacity bookkeeping for sailings.  The taken counters
// on the boats row are denormalized caches: they are only ever mutated in
// the same transaction as the authoritative reservation write, and the
// booking path never trusts them alone: seat freedom is re-validated from
// the reservations table under a row lock before commit.
type BoatRepo struct {
	db *sql.DB
}

// NewBoatRepo constructs a BoatRepo with the given DB handle.
func NewBoatRepo(db *sql.DB) *BoatRepo { return &BoatRepo{db: db} }

// DB exposes the underlying sql.DB so callers can begin transactions
// spanning multiple repositories.
func (r *BoatRepo) DB() *sql.DB { return r.db }

const boatColumns = `id, sail_date, boat_type, status, seats_total, seats_taken,
		seats_with_landing, seats_with_landing_taken,
		seats_without_landing, seats_without_landing_taken,
		ticket_price_cents, created_at, updated_at`

func scanBoat(row *sql.Row) (*model.Boat, error) {
	var b model.Boat
	err := row.Scan(
		&b.ID, &b.SailDate, &b.BoatType, &b.Status, &b.SeatsTotal, &b.SeatsTaken,
		&b.SeatsWithLanding, &b.SeatsWithLandingTaken,
		&b.SeatsWithoutLanding, &b.SeatsWithoutLandingTaken,
		&b.TicketPriceCents, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBoatNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Create inserts a new boat.  On success the generated ID and DB defaults
// (status, timestamps) are populated on the given struct.
func (r *BoatRepo) Create(ctx context.Context, b *model.Boat) error {
	const q = `INSERT INTO boats (sail_date, boat_type, seats_total,
				   seats_with_landing, seats_without_landing, ticket_price_cents)
			   VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		b.SailDate.Format("2006-01-02"), b.BoatType, b.SeatsTotal,
		b.SeatsWithLanding, b.SeatsWithoutLanding, b.TicketPriceCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	const sel = `SELECT ` + boatColumns + ` FROM boats WHERE id = ?`
	got, err := scanBoat(r.db.QueryRowContext(ctx, sel, b.ID))
	if err != nil {
		return err
	}
	*b = *got
	return nil
}

// GetByID retrieves a boat by its ID.  Returns ErrBoatNotFound when missing.
func (r *BoatRepo) GetByID(ctx context.Context, id uint64) (*model.Boat, error) {
	const q = `SELECT ` + boatColumns + ` FROM boats WHERE id = ?`
	return scanBoat(r.db.QueryRowContext(ctx, q, id))
}

// GetForUpdateTx loads a boat row under an exclusive lock.  Every booking,
// approval and cancellation for a boat serializes on this lock so the
// read-check-write sequence cannot interleave with a concurrent writer.
func (r *BoatRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Boat, error) {
	const q = `SELECT ` + boatColumns + ` FROM boats WHERE id = ? FOR UPDATE`
	return scanBoat(tx.QueryRowContext(ctx, q, id))
}

// ListActive returns active boats sailing on or after the given date,
// ordered by sail date.  Used by the public browse endpoints.
func (r *BoatRepo) ListActive(ctx context.Context, from time.Time) ([]model.Boat, error) {
	const q = `SELECT ` + boatColumns + `
			   FROM boats
			   WHERE status = 'active' AND sail_date >= ?
			   ORDER BY sail_date, id`
	rows, err := r.db.QueryContext(ctx, q, from.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	boats := make([]model.Boat, 0)
	for rows.Next() {
		var b model.Boat
		if err := rows.Scan(
			&b.ID, &b.SailDate, &b.BoatType, &b.Status, &b.SeatsTotal, &b.SeatsTaken,
			&b.SeatsWithLanding, &b.SeatsWithLandingTaken,
			&b.SeatsWithoutLanding, &b.SeatsWithoutLandingTaken,
			&b.TicketPriceCents, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		boats = append(boats, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return boats, nil
}

// UpdateStatus sets a boat's lifecycle status (active/inactive/completed).
// Returns ErrBoatNotFound when the boat does not exist.
func (r *BoatRepo) UpdateStatus(ctx context.Context, id uint64, status model.BoatStatus) error {
	const q = `UPDATE boats SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBoatNotFound
	}
	return nil
}

// HeldSeatNumbersTx returns the seat numbers currently held on a boat
// (status pending, pre_reserved or approved), locking the matching rows.
// Called inside the booking transaction so that commit-time seat freedom is
// validated against a consistent snapshot.
func (r *BoatRepo) HeldSeatNumbersTx(ctx context.Context, tx *sql.Tx, boatID uint64) ([]uint32, error) {
	const q = `SELECT seat_number FROM reservations
			   WHERE boat_id = ? AND status IN ('pending','pre_reserved','approved')
			   ORDER BY seat_number
			   FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, boatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var held []uint32
	for rows.Next() {
		var n uint32
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		held = append(held, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return held, nil
}

// HeldSeatNumbers is the advisory (lock-free) variant of HeldSeatNumbersTx,
// used by availability reads.  It does not prevent races; the booking path
// re-validates under the boat lock.
func (r *BoatRepo) HeldSeatNumbers(ctx context.Context, boatID uint64) ([]uint32, error) {
	const q = `SELECT seat_number FROM reservations
			   WHERE boat_id = ? AND status IN ('pending','pre_reserved','approved')
			   ORDER BY seat_number`
	rows, err := r.db.QueryContext(ctx, q, boatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var held []uint32
	for rows.Next() {
		var n uint32
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		held = append(held, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return held, nil
}

// CountHeldInPoolTx counts seat-holding reservations debiting the given
// sub-pool, within the booking transaction.
func (r *BoatRepo) CountHeldInPoolTx(ctx context.Context, tx *sql.Tx, boatID uint64, pool model.SubPool) (uint32, error) {
	const q = `SELECT COUNT(*) FROM reservations
			   WHERE boat_id = ? AND escuna_type = ?
				 AND status IN ('pending','pre_reserved','approved')`
	var n uint32
	if err := tx.QueryRowContext(ctx, q, boatID, string(pool)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// FreeSeatNumbers computes the free seats on a boat as the complement of the
// held seat numbers against 1..seatsTotal, ascending.  O(seatsTotal), which
// is fine for boats with capacity in the tens.
func FreeSeatNumbers(seatsTotal uint32, held []uint32) []uint32 {
	taken := make(map[uint32]struct{}, len(held))
	for _, n := range held {
		taken[n] = struct{}{}
	}
	free := make([]uint32, 0, int(seatsTotal)-len(taken))
	for n := uint32(1); n <= seatsTotal; n++ {
		if _, ok := taken[n]; !ok {
			free = append(free, n)
		}
	}
	sort.Slice(free, func(i, j int) bool { return free[i] < free[j] })
	return free
}

// subPoolTakenColumn maps a sub-pool to its taken-counter column.  Empty for
// bookings without a sub-pool selection.
func subPoolTakenColumn(pool model.SubPool) string {
	switch pool {
	case model.SubPoolWithLanding:
		return "seats_with_landing_taken"
	case model.SubPoolWithoutLanding:
		return "seats_without_landing_taken"
	}
	return ""
}

// subPoolTotalColumn maps a sub-pool to its capacity column.
func subPoolTotalColumn(pool model.SubPool) string {
	switch pool {
	case model.SubPoolWithLanding:
		return "seats_with_landing"
	case model.SubPoolWithoutLanding:
		return "seats_without_landing"
	}
	return ""
}

// IncrementTakenTx bumps the taken counters for one newly approved seat.
// The UPDATE is guarded by the capacity columns so that a counter can never
// pass its total; zero rows affected means the approval would overshoot and
// the caller must abort with ErrInsufficientCapacity.
func (r *BoatRepo) IncrementTakenTx(ctx context.Context, tx *sql.Tx, boatID uint64, pool model.SubPool) error {
	q := `UPDATE boats SET seats_taken = seats_taken + 1`
	if col := subPoolTakenColumn(pool); col != "" {
		q += `, ` + col + ` = ` + col + ` + 1`
	}
	q += `, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND seats_taken < seats_total`
	if col, tot := subPoolTakenColumn(pool), subPoolTotalColumn(pool); col != "" {
		q += ` AND ` + col + ` < ` + tot
	}
	res, err := tx.ExecContext(ctx, q, boatID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInsufficientCapacity
	}
	return nil
}

// DecrementTakenTx releases one previously approved seat.  Counters are
// clamped at zero: a decrement that would go negative is skipped and logged
// as an inventory inconsistency rather than corrupting the counter.
func (r *BoatRepo) DecrementTakenTx(ctx context.Context, tx *sql.Tx, boatID uint64, pool model.SubPool) error {
	q := `UPDATE boats SET seats_taken = seats_taken - 1`
	if col := subPoolTakenColumn(pool); col != "" {
		q += `, ` + col + ` = ` + col + ` - 1`
	}
	q += `, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND seats_taken > 0`
	if col := subPoolTakenColumn(pool); col != "" {
		q += ` AND ` + col + ` > 0`
	}
	res, err := tx.ExecContext(ctx, q, boatID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		log.Printf("inventory inconsistency: release on boat %d (pool %q) would drop a counter below zero; clamped", boatID, pool)
	}
	return nil
}

// ReconcileReport describes counter drift found by Reconcile.
type ReconcileReport struct {
	BoatID                 uint64 `json:"boat_id"`
	SeatsTaken             uint32 `json:"seats_taken"`
	ComputedTaken          uint32 `json:"computed_taken"`
	WithLandingTaken       uint32 `json:"with_landing_taken"`
	ComputedWithLanding    uint32 `json:"computed_with_landing"`
	WithoutLandingTaken    uint32 `json:"without_landing_taken"`
	ComputedWithoutLanding uint32 `json:"computed_without_landing"`
	Adjusted               bool   `json:"adjusted"`
}

// Reconcile recomputes the taken counters from approved reservations and
// rewrites them when they drifted.  The reservation rows are the source of
// truth; this is the out-of-band consistency check for the denormalized
// counters and is safe to run at any time.
func (r *BoatRepo) Reconcile(ctx context.Context, boatID uint64) (*ReconcileReport, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, WrapRetryable(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := r.GetForUpdateTx(ctx, tx, boatID)
	if err != nil {
		return nil, err
	}
	const q = `SELECT
				   COUNT(*),
				   COALESCE(SUM(escuna_type = 'with_landing'), 0),
				   COALESCE(SUM(escuna_type = 'without_landing'), 0)
			   FROM reservations
			   WHERE boat_id = ? AND status = 'approved'`
	var total, withLanding, withoutLanding uint32
	if err := tx.QueryRowContext(ctx, q, boatID).Scan(&total, &withLanding, &withoutLanding); err != nil {
		return nil, err
	}

	rep := &ReconcileReport{
		BoatID:                 boatID,
		SeatsTaken:             b.SeatsTaken,
		ComputedTaken:          total,
		WithLandingTaken:       b.SeatsWithLandingTaken,
		ComputedWithLanding:    withLanding,
		WithoutLandingTaken:    b.SeatsWithoutLandingTaken,
		ComputedWithoutLanding: withoutLanding,
	}
	if b.SeatsTaken != total || b.SeatsWithLandingTaken != withLanding || b.SeatsWithoutLandingTaken != withoutLanding {
		const up = `UPDATE boats
					SET seats_taken = ?, seats_with_landing_taken = ?, seats_without_landing_taken = ?,
						updated_at = CURRENT_TIMESTAMP
					WHERE id = ?`
		if _, err := tx.ExecContext(ctx, up, total, withLanding, withoutLanding, boatID); err != nil {
			return nil, err
		}
		rep.Adjusted = true
		log.Printf("reconcile: boat %d counters adjusted (taken %d->%d, with_landing %d->%d, without_landing %d->%d)",
			boatID, b.SeatsTaken, total, b.SeatsWithLandingTaken, withLanding, b.SeatsWithoutLandingTaken, withoutLanding)
	}
	if err := tx.Commit(); err != nil {
		return nil, WrapRetryable(err)
	}
	committed = true
	return rep, nil
}
