// Package handler contains the HTTP handlers for the reservation API.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jmarins/boat-tour-reservation/internal/middleware"
	"github.com/jmarins/boat-tour-reservation/internal/model"
	"github.com/jmarins/boat-tour-reservation/internal/repository"
	"github.com/jmarins/boat-tour-reservation/internal/service"
)

// Account roles as stored in users.role.
const (
	RoleAdmin    = "ADMIN"
	RoleVendor   = "VENDOR"
	RoleCustomer = "CUSTOMER"
)

const dbTimeout = 5 * time.Second

// getUserID extracts the authenticated user id placed in context by the JWT
// middleware.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get(middleware.CtxUserID).(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// currentRole returns the caller's role claim, empty when unauthenticated.
func currentRole(c echo.Context) string {
	if r, ok := c.Get(middleware.CtxRole).(string); ok {
		return r
	}
	return ""
}

// parseID reads a numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// writeError maps domain errors onto HTTP status codes: not-found to 404,
// capacity conflicts to 409, broken invariants to 422 and transient storage
// failures to 503 with a retry hint.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrBoatNotFound),
		errors.Is(err, repository.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrSeatTaken),
		errors.Is(err, repository.ErrInsufficientCapacity),
		errors.Is(err, service.ErrBoatNotBookable):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrInvalidTransition),
		errors.Is(err, repository.ErrAmountExceedsDue),
		errors.Is(err, repository.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidSubPool),
		errors.Is(err, service.ErrLedgerInconsistent),
		errors.Is(err, service.ErrNotPastSailing),
		errors.Is(err, service.ErrNoGroup),
		errors.Is(err, service.ErrNoPassengers):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrRetryable):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporary storage contention, retry"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// ----- shared response DTOs -----

type boatResp struct {
	ID                       uint64 `json:"id"`
	SailDate                 string `json:"sail_date"`
	BoatType                 string `json:"boat_type"`
	Status                   string `json:"status"`
	SeatsTotal               uint32 `json:"seats_total"`
	SeatsTaken               uint32 `json:"seats_taken"`
	SeatsWithLanding         uint32 `json:"seats_with_landing,omitempty"`
	SeatsWithLandingTaken    uint32 `json:"seats_with_landing_taken,omitempty"`
	SeatsWithoutLanding      uint32 `json:"seats_without_landing,omitempty"`
	SeatsWithoutLandingTaken uint32 `json:"seats_without_landing_taken,omitempty"`
	TicketPriceCents         int64  `json:"ticket_price_cents"`
}

func toBoatResp(b *model.Boat) boatResp {
	return boatResp{
		ID:                       b.ID,
		SailDate:                 b.SailDate.UTC().Format("2006-01-02"),
		BoatType:                 string(b.BoatType),
		Status:                   string(b.Status),
		SeatsTotal:               b.SeatsTotal,
		SeatsTaken:               b.SeatsTaken,
		SeatsWithLanding:         b.SeatsWithLanding,
		SeatsWithLandingTaken:    b.SeatsWithLandingTaken,
		SeatsWithoutLanding:      b.SeatsWithoutLanding,
		SeatsWithoutLandingTaken: b.SeatsWithoutLandingTaken,
		TicketPriceCents:         b.TicketPriceCents,
	}
}

type reservationResp struct {
	ID                  uint64     `json:"id"`
	BoatID              uint64     `json:"boat_id"`
	SeatNumber          uint32     `json:"seat_number"`
	Status              string     `json:"status"`
	CustomerName        string     `json:"customer_name"`
	Phone               string     `json:"phone"`
	Address             string     `json:"address"`
	Document            *string    `json:"document,omitempty"`
	Email               *string    `json:"email,omitempty"`
	GroupID             *string    `json:"group_id,omitempty"`
	IsGroupLeader       bool       `json:"is_group_leader"`
	EscunaType          string     `json:"escuna_type,omitempty"`
	PaymentMethod       string     `json:"payment_method"`
	TotalAmountCents    int64      `json:"total_amount_cents"`
	AmountPaidCents     int64      `json:"amount_paid_cents"`
	AmountDueCents      int64      `json:"amount_due_cents"`
	DiscountAmountCents int64      `json:"discount_amount_cents,omitempty"`
	AcceptedTerms       bool       `json:"accepted_terms"`
	AcceptedImageRights bool       `json:"accepted_image_rights"`
	TermsAcceptedAt     *time.Time `json:"terms_accepted_at,omitempty"`
	Channel             string     `json:"channel"`
	CancelledAt         *time.Time `json:"cancelled_at,omitempty"`
	CancelledReason     *string    `json:"cancelled_reason,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

func toReservationResp(r *model.Reservation) reservationResp {
	return reservationResp{
		ID:                  r.ID,
		BoatID:              r.BoatID,
		SeatNumber:          r.SeatNumber,
		Status:              string(r.Status),
		CustomerName:        r.CustomerName,
		Phone:               r.Phone,
		Address:             r.Address,
		Document:            r.Document,
		Email:               r.Email,
		GroupID:             r.GroupID,
		IsGroupLeader:       r.IsGroupLeader,
		EscunaType:          string(r.EscunaType),
		PaymentMethod:       r.PaymentMethod,
		TotalAmountCents:    r.TotalAmountCents,
		AmountPaidCents:     r.AmountPaidCents,
		AmountDueCents:      r.AmountDueCents,
		DiscountAmountCents: r.DiscountAmountCents,
		AcceptedTerms:       r.AcceptedTerms,
		AcceptedImageRights: r.AcceptedImageRights,
		TermsAcceptedAt:     r.TermsAcceptedAt,
		Channel:             r.Channel,
		CancelledAt:         r.CancelledAt,
		CancelledReason:     r.CancelledReason,
		CreatedAt:           r.CreatedAt,
	}
}

func toReservationList(rs []model.Reservation) []reservationResp {
	out := make([]reservationResp, len(rs))
	for i := range rs {
		out[i] = toReservationResp(&rs[i])
	}
	return out
}

// propagationPart reports a group fan-out result alongside the anchor
// response.  Error is set when propagation failed after the anchor commit.
type propagationPart struct {
	SiblingsUpdated  int    `json:"siblings_updated"`
	SiblingsExpected int    `json:"siblings_expected,omitempty"`
	Error            string `json:"error,omitempty"`
}

// propagationResult converts a propagation outcome for the response body.
// A *service.PartialPropagationError is reported, not treated as a request
// failure: the anchor write already committed.
func propagationResult(siblings int, err error) propagationPart {
	part := propagationPart{SiblingsUpdated: siblings}
	var pErr *service.PartialPropagationError
	if errors.As(err, &pErr) {
		part.SiblingsUpdated = pErr.Updated
		part.SiblingsExpected = pErr.Expected
		part.Error = "propagation incomplete, retry the operation"
	}
	return part
}
