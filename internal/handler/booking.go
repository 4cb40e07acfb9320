package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jmarins/boat-tour-reservation/internal/middleware"
	"github.com/jmarins/boat-tour-reservation/internal/model"
	"github.com/jmarins/boat-tour-reservation/internal/repository"
	"github.com/jmarins/boat-tour-reservation/internal/service"
)

// BookingHandler serves the public booking flow: placing a booking, reading
// a reservation back (voucher input) and accepting the tour terms.
type BookingHandler struct {
	Alloc    *service.AllocationService
	Resv     *repository.ReservationRepo
	Payments *repository.PaymentRepo
}

func NewBookingHandler(alloc *service.AllocationService, resv *repository.ReservationRepo, payments *repository.PaymentRepo) *BookingHandler {
	if alloc == nil || resv == nil || payments == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Alloc: alloc, Resv: resv, Payments: payments}
}

type bookReq struct {
	BoatID        uint64             `json:"boat_id"`
	SubPool       string             `json:"sub_pool"`
	PaymentMethod string             `json:"payment_method"`
	People        []model.PersonData `json:"people"`
}

// Book places a public booking.  All passengers succeed together or the
// whole request fails; the created reservations start in pending and wait
// for operator approval.
func (h *BookingHandler) Book(c echo.Context) error {
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.BoatID == 0 || len(req.People) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "boat_id and people required"})
	}
	for i := range req.People {
		if strings.TrimSpace(req.People[i].CustomerName) == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "customer_name required for every passenger"})
		}
	}
	pool, err := model.ParseSubPool(req.SubPool)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sub_pool"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	created, err := h.Alloc.BookSeats(ctx, service.BookingRequest{
		BoatID:        req.BoatID,
		SubPool:       pool,
		People:        req.People,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		Channel:       service.ChannelPublic,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"reservations": toReservationList(created)})
}

// Get returns one reservation with its payment history.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Resv.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	payments, err := h.Payments.ListByReservation(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation": toReservationResp(res),
		"payments":    payments,
	})
}

type termsReq struct {
	AcceptedTerms       bool `json:"accepted_terms"`
	AcceptedImageRights bool `json:"accepted_image_rights"`
}

// AcceptTerms records the terms and image-rights consent with the caller's
// IP and user agent, then propagates the flags to the rest of the group.
// A propagation failure is reported in the body while the anchor's
// acceptance stands.
func (h *BookingHandler) AcceptTerms(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req termsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	anchor, siblings, err := h.Alloc.AcceptTerms(ctx, id, req.AcceptedTerms, req.AcceptedImageRights, middleware.AuditFrom(c))
	if err != nil && anchor == nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation": toReservationResp(anchor),
		"propagation": propagationResult(siblings, err),
	})
}
