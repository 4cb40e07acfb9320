package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmarins/boat-tour-reservation/internal/model"
)

// ReservationRepo provides persistence for reservation rows and enforces the
// status state machine at the SQL level: every transition UPDATE is guarded
// by the expected current status, so a row that moved concurrently fails the
// transition instead of being silently overwritten.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying sql.DB for transactions spanning repositories.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = `id, boat_id, seat_number, status,
		customer_name, phone, address, document, birth_date, email,
		group_id, is_group_leader, escuna_type, payment_method,
		total_amount_cents, amount_paid_cents, amount_due_cents,
		discount_amount_cents, discount_reason,
		accepted_terms, accepted_image_rights, terms_accepted_at, terms_ip, terms_user_agent,
		channel, created_by, cancelled_at, cancelled_reason, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var (
		res        model.Reservation
		document   sql.NullString
		birthDate  sql.NullTime
		email      sql.NullString
		groupID    sql.NullString
		escunaType sql.NullString
		discReason sql.NullString
		termsAt    sql.NullTime
		termsIP    sql.NullString
		termsUA    sql.NullString
		cancAt     sql.NullTime
		cancReason sql.NullString
		status     string
	)
	err := row.Scan(
		&res.ID, &res.BoatID, &res.SeatNumber, &status,
		&res.CustomerName, &res.Phone, &res.Address, &document, &birthDate, &email,
		&groupID, &res.IsGroupLeader, &escunaType, &res.PaymentMethod,
		&res.TotalAmountCents, &res.AmountPaidCents, &res.AmountDueCents,
		&res.DiscountAmountCents, &discReason,
		&res.AcceptedTerms, &res.AcceptedImageRights, &termsAt, &termsIP, &termsUA,
		&res.Channel, &res.CreatedBy, &cancAt, &cancReason, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	parsed, err := model.ParseReservationStatus(status)
	if err != nil {
		return nil, err
	}
	res.Status = parsed
	if document.Valid {
		res.Document = &document.String
	}
	if birthDate.Valid {
		res.BirthDate = &birthDate.Time
	}
	if email.Valid {
		res.Email = &email.String
	}
	if groupID.Valid {
		res.GroupID = &groupID.String
	}
	if escunaType.Valid && escunaType.String != "" {
		res.EscunaType = model.SubPool(escunaType.String)
	}
	if discReason.Valid {
		res.DiscountReason = &discReason.String
	}
	if termsAt.Valid {
		res.TermsAcceptedAt = &termsAt.Time
	}
	if termsIP.Valid {
		res.TermsIP = &termsIP.String
	}
	if termsUA.Valid {
		res.TermsUserAgent = &termsUA.String
	}
	if cancAt.Valid {
		res.CancelledAt = &cancAt.Time
	}
	if cancReason.Valid {
		res.CancelledReason = &cancReason.String
	}
	return &res, nil
}

// CreateTx inserts a single reservation within the caller's transaction and
// populates the generated ID.  The row is written exactly as given; seat
// assignment and pricing are the allocation service's business.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (boat_id, seat_number, status,
				   customer_name, phone, address, document, birth_date, email,
				   group_id, is_group_leader, escuna_type, payment_method,
				   total_amount_cents, amount_paid_cents, amount_due_cents,
				   discount_amount_cents, discount_reason, channel, created_by)
			   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var escuna any
	if res.EscunaType != model.SubPoolNone {
		escuna = string(res.EscunaType)
	}
	var birth any
	if res.BirthDate != nil {
		birth = res.BirthDate.UTC().Format("2006-01-02")
	}
	result, err := tx.ExecContext(ctx, q,
		res.BoatID, res.SeatNumber, string(res.Status),
		res.CustomerName, res.Phone, res.Address, res.Document, birth, res.Email,
		res.GroupID, res.IsGroupLeader, escuna, res.PaymentMethod,
		res.TotalAmountCents, res.AmountPaidCents, res.AmountDueCents,
		res.DiscountAmountCents, res.DiscountReason, res.Channel, res.CreatedBy,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	// Query back the full row to populate timestamps and defaults.
	const sel = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	got, err := scanReservation(tx.QueryRowContext(ctx, sel, res.ID))
	if err != nil {
		return err
	}
	*res = *got
	return nil
}

// GetByID loads one reservation.  Returns ErrReservationNotFound when missing.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return res, nil
}

// GetForUpdateTx loads a reservation under an exclusive lock inside the
// caller's transaction.
func (r *ReservationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ? FOR UPDATE`
	res, err := scanReservation(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return res, nil
}

// ListByGroup returns all reservations sharing a group id.  Group membership
// is determined solely by equality of group_id; the column is indexed so the
// lookup does not scan the whole ledger.
func (r *ReservationRepo) ListByGroup(ctx context.Context, groupID string) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE group_id = ? ORDER BY id`
	return r.list(ctx, q, groupID)
}

// ListByGroupForUpdateTx is ListByGroup under row locks, for fan-out writes.
func (r *ReservationRepo) ListByGroupForUpdateTx(ctx context.Context, tx *sql.Tx, groupID string) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE group_id = ? ORDER BY id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, groupID)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

// ListByBoat returns all reservations for a boat, newest first.  Used by the
// admin listing and by voucher rendering.
func (r *ReservationRepo) ListByBoat(ctx context.Context, boatID uint64) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE boat_id = ? ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, boatID)
}

func (r *ReservationRepo) list(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func collectReservations(rows *sql.Rows) ([]model.Reservation, error) {
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// TransitionStatusTx moves a reservation from one status to another inside
// the caller's transaction.  The UPDATE is conditioned on the expected
// current status: zero rows affected means the row changed underneath the
// caller and the transition is rejected with ErrInvalidTransition.  The
// legality of the from->to pair itself must be checked by the caller with
// model.CanTransition before calling.
func (r *ReservationRepo) TransitionStatusTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.ReservationStatus, reason *string) error {
	var (
		q    string
		args []any
	)
	if to == model.StatusCancelled {
		q = `UPDATE reservations
			 SET status = ?, cancelled_at = UTC_TIMESTAMP(), cancelled_reason = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND status = ?`
		args = []any{string(to), reason, id, string(from)}
	} else {
		q = `UPDATE reservations
			 SET status = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND status = ?`
		args = []any{string(to), id, string(from)}
	}
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// RecordTermsTx writes the consent flags and audit columns on one row.
func (r *ReservationRepo) RecordTermsTx(ctx context.Context, tx *sql.Tx, id uint64, terms, imageRights bool, audit model.AuditInfo, at time.Time) error {
	const q = `UPDATE reservations
			   SET accepted_terms = ?, accepted_image_rights = ?,
				   terms_accepted_at = ?, terms_ip = ?, terms_user_agent = ?,
				   updated_at = CURRENT_TIMESTAMP
			   WHERE id = ?`
	var ip, ua any
	if audit.IP != "" {
		ip = audit.IP
	}
	if audit.UserAgent != "" {
		ua = audit.UserAgent
	}
	res, err := tx.ExecContext(ctx, q, terms, imageRights, at.UTC().Format("2006-01-02 15:04:05"), ip, ua, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// UpdatePaymentTx rewrites the paid/due split after a payment is appended.
// Always called in the same transaction as the payments INSERT.
func (r *ReservationRepo) UpdatePaymentTx(ctx context.Context, tx *sql.Tx, id uint64, paidCents, dueCents int64) error {
	const q = `UPDATE reservations
			   SET amount_paid_cents = ?, amount_due_cents = ?, updated_at = CURRENT_TIMESTAMP
			   WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, paidCents, dueCents, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// GroupUpdate names the fields a group fan-out may write to sibling rows.
// Nil fields are left untouched on the siblings.
type GroupUpdate struct {
	AcceptedTerms       *bool
	AcceptedImageRights *bool
	TermsAcceptedAt     *time.Time
	TermsIP             *string
	TermsUserAgent      *string
	Cancelled           bool
	CancelReason        *string
}

// Empty reports whether the update would write nothing.
func (u GroupUpdate) Empty() bool {
	return u.AcceptedTerms == nil && u.AcceptedImageRights == nil &&
		u.TermsAcceptedAt == nil && u.TermsIP == nil && u.TermsUserAgent == nil &&
		!u.Cancelled
}

// UpdateSiblingsTx applies a GroupUpdate to every member of a group except
// the anchor, in one statement inside the caller's transaction.  The anchor
// is excluded because the caller has already written it; writing it twice
// would clobber the anchor's own timestamps.  Returns the number of sibling
// rows written.  Cancellation only touches rows that can still be cancelled.
func (r *ReservationRepo) UpdateSiblingsTx(ctx context.Context, tx *sql.Tx, groupID string, anchorID uint64, u GroupUpdate) (int, error) {
	if u.Empty() {
		return 0, nil
	}
	sets := make([]string, 0, 6)
	args := make([]any, 0, 8)
	if u.AcceptedTerms != nil {
		sets = append(sets, "accepted_terms = ?")
		args = append(args, *u.AcceptedTerms)
	}
	if u.AcceptedImageRights != nil {
		sets = append(sets, "accepted_image_rights = ?")
		args = append(args, *u.AcceptedImageRights)
	}
	if u.TermsAcceptedAt != nil {
		sets = append(sets, "terms_accepted_at = ?")
		args = append(args, u.TermsAcceptedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	if u.TermsIP != nil {
		sets = append(sets, "terms_ip = ?")
		args = append(args, *u.TermsIP)
	}
	if u.TermsUserAgent != nil {
		sets = append(sets, "terms_user_agent = ?")
		args = append(args, *u.TermsUserAgent)
	}
	q := `UPDATE reservations SET ` + strings.Join(sets, ", ")
	if u.Cancelled {
		if len(sets) > 0 {
			q += `, `
		} else {
			q = `UPDATE reservations SET `
		}
		q += `status = 'cancelled', cancelled_at = UTC_TIMESTAMP(), cancelled_reason = ?`
		args = append(args, u.CancelReason)
	}
	q += `, updated_at = CURRENT_TIMESTAMP WHERE group_id = ? AND id <> ?`
	args = append(args, groupID, anchorID)
	if u.Cancelled {
		// Only non-terminal rows can be cancelled by fan-out.
		q += ` AND status IN ('pending','pre_reserved','approved')`
	}
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
