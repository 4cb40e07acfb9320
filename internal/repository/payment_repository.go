package repository

import (
	"context"
	"database/sql"

	"github.com/jmarins/boat-tour-reservation/internal/model"
)

// PaymentRepo persists the append-only payment ledger.  There are
// deliberately no UPDATE or DELETE statements in this file: a payment row is
// written once and corrections happen through the reservation's discount
// fields at creation time, never by editing history.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo constructs a PaymentRepo with the given DB handle.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// InsertTx appends one payment row within the caller's transaction and
// populates the generated ID and creation timestamp.
func (r *PaymentRepo) InsertTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	const q = `INSERT INTO payments (reservation_id, amount_cents, method, source, created_by)
			   VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, p.ReservationID, p.AmountCents, p.Method, p.Source, p.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	const sel = `SELECT created_at FROM payments WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, p.ID).Scan(&p.CreatedAt)
}

// ListByReservation returns a reservation's payment history, oldest first.
func (r *PaymentRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.Payment, error) {
	const q = `SELECT id, reservation_id, amount_cents, method, source, created_by, created_at
			   FROM payments
			   WHERE reservation_id = ?
			   ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Payment, 0)
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.ReservationID, &p.AmountCents, &p.Method, &p.Source, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SumByReservation totals the appended amounts for one reservation.  Used by
// the consistency check: the sum must equal the reservation's amount_paid.
func (r *PaymentRepo) SumByReservation(ctx context.Context, reservationID uint64) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE reservation_id = ?`
	var sum int64
	if err := r.db.QueryRowContext(ctx, q, reservationID).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}
