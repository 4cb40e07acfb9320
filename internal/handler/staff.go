package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jmarins/boat-tour-reservation/internal/model"
	"github.com/jmarins/boat-tour-reservation/internal/repository"
	"github.com/jmarins/boat-tour-reservation/internal/service"
)

// StaffHandler serves the vendor and admin surface: boat management,
// trusted bookings, approval, cancellation, payments and reconciliation.
type StaffHandler struct {
	Boats    *repository.BoatRepo
	Resv     *repository.ReservationRepo
	Payments *repository.PaymentRepo
	Alloc    *service.AllocationService
}

func NewStaffHandler(boats *repository.BoatRepo, resv *repository.ReservationRepo, payments *repository.PaymentRepo, alloc *service.AllocationService) *StaffHandler {
	if boats == nil || resv == nil || payments == nil || alloc == nil {
		panic("nil dependency passed to NewStaffHandler")
	}
	return &StaffHandler{Boats: boats, Resv: resv, Payments: payments, Alloc: alloc}
}

// ----- boats -----

type createBoatReq struct {
	SailDate            string `json:"sail_date"` // YYYY-MM-DD
	BoatType            string `json:"boat_type"` // escuna | lancha
	SeatsTotal          uint32 `json:"seats_total"`
	SeatsWithLanding    uint32 `json:"seats_with_landing"`
	SeatsWithoutLanding uint32 `json:"seats_without_landing"`
	TicketPriceCents    int64  `json:"ticket_price_cents"`
}

// CreateBoat registers a new sailing.  Escuna boats must split their
// capacity into the two landing sub-pools; the split must sum to the total.
func (h *StaffHandler) CreateBoat(c echo.Context) error {
	var req createBoatReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	sail, err := time.Parse("2006-01-02", req.SailDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sail_date, want YYYY-MM-DD"})
	}
	bt := model.BoatType(strings.ToLower(strings.TrimSpace(req.BoatType)))
	if bt != model.BoatEscuna && bt != model.BoatLancha {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "boat_type must be escuna or lancha"})
	}
	if req.SeatsTotal == 0 || req.TicketPriceCents <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats_total and ticket_price_cents must be positive"})
	}
	if bt == model.BoatEscuna {
		if req.SeatsWithLanding+req.SeatsWithoutLanding != req.SeatsTotal {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "sub-pool seats must sum to seats_total"})
		}
	} else if req.SeatsWithLanding != 0 || req.SeatsWithoutLanding != 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "only escuna boats have sub-pools"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b := model.Boat{
		SailDate:            sail,
		BoatType:            bt,
		SeatsTotal:          req.SeatsTotal,
		SeatsWithLanding:    req.SeatsWithLanding,
		SeatsWithoutLanding: req.SeatsWithoutLanding,
		TicketPriceCents:    req.TicketPriceCents,
	}
	if err := h.Boats.Create(ctx, &b); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toBoatResp(&b))
}

type boatStatusReq struct {
	Status string `json:"status"`
}

// UpdateBoatStatus moves a boat between active/inactive/completed.
func (h *StaffHandler) UpdateBoatStatus(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid boat id"})
	}
	var req boatStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	status, err := model.ParseBoatStatus(req.Status)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Boats.UpdateStatus(ctx, id, status); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": string(status)})
}

// ListBoatReservations returns every reservation of a sailing, with payment
// state, for the operator's manifest view.
func (h *StaffHandler) ListBoatReservations(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid boat id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, err := h.Boats.GetByID(ctx, id); err != nil {
		return writeError(c, err)
	}
	rs, err := h.Resv.ListByBoat(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": toReservationList(rs)})
}

// Reconcile recomputes a boat's seat counters from the reservation rows.
func (h *StaffHandler) Reconcile(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid boat id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	report, err := h.Alloc.Reconcile(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// ----- bookings -----

type staffBookReq struct {
	bookReq
	DiscountAmountCents int64   `json:"discount_amount_cents"`
	DiscountReason      *string `json:"discount_reason"`
}

// Book places a trusted booking on behalf of a walk-in customer.  The
// reservations are created directly in approved and the seat counters are
// debited in the same transaction.  Discounts are admin-only.
func (h *StaffHandler) Book(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role := currentRole(c)

	var req staffBookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.BoatID == 0 || len(req.People) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "boat_id and people required"})
	}
	pool, err := model.ParseSubPool(req.SubPool)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sub_pool"})
	}
	if req.DiscountAmountCents != 0 && role != RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only admins may grant discounts"})
	}

	channel := service.ChannelVendor
	if role == RoleAdmin {
		channel = service.ChannelAdmin
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	created, err := h.Alloc.BookSeats(ctx, service.BookingRequest{
		BoatID:              req.BoatID,
		SubPool:             pool,
		People:              req.People,
		PaymentMethod:       strings.TrimSpace(req.PaymentMethod),
		Channel:             channel,
		CreatedBy:           uid,
		DiscountAmountCents: req.DiscountAmountCents,
		DiscountReason:      req.DiscountReason,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"reservations": toReservationList(created)})
}

// Approve confirms a pending reservation and debits the seat counters.
func (h *StaffHandler) Approve(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Alloc.Approve(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(res))
}

type cancelReq struct {
	Reason     string `json:"reason"`
	WholeGroup bool   `json:"whole_group"`
}

// Cancel cancels a reservation, optionally fanning out to the whole group.
// A fan-out failure is reported in the body; the anchor stays cancelled.
func (h *StaffHandler) Cancel(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req cancelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Reason) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reason required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	anchor, siblings, err := h.Alloc.Cancel(ctx, id, req.Reason, req.WholeGroup)
	if err != nil && anchor == nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation": toReservationResp(anchor),
		"propagation": propagationResult(siblings, err),
	})
}

// NoShow marks an approved reservation whose sailing date has passed.
func (h *StaffHandler) NoShow(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Alloc.MarkNoShow(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(res))
}

type paymentReq struct {
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
	Source      string `json:"source"`
}

// RecordPayment appends a payment against a reservation's balance.  It
// never changes the reservation's status; approval stays a separate,
// deliberate step.
func (h *StaffHandler) RecordPayment(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Method) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "method required"})
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = strings.ToLower(currentRole(c))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Alloc.RecordPayment(ctx, id, req.AmountCents, strings.TrimSpace(req.Method), source, uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(res))
}
