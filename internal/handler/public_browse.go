package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jmarins/boat-tour-reservation/internal/model"
	"github.com/jmarins/boat-tour-reservation/internal/repository"
	"github.com/jmarins/boat-tour-reservation/internal/service"
)

// PublicHandler serves the unauthenticated browse endpoints.  These sit
// behind the Redis response cache; a few seconds of staleness is fine
// because booking re-validates under the boat lock.
type PublicHandler struct {
	Boats *repository.BoatRepo
	Alloc *service.AllocationService
}

func NewPublicHandler(boats *repository.BoatRepo, alloc *service.AllocationService) *PublicHandler {
	if boats == nil || alloc == nil {
		panic("nil dependency passed to NewPublicHandler")
	}
	return &PublicHandler{Boats: boats, Alloc: alloc}
}

// ListBoats returns active sailings from a given date onward.
// Query: from=YYYY-MM-DD (default today, UTC).
func (h *PublicHandler) ListBoats(c echo.Context) error {
	from := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := c.QueryParam("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from date, want YYYY-MM-DD"})
		}
		from = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	boats, err := h.Boats.ListActive(ctx, from)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]boatResp, len(boats))
	for i := range boats {
		out[i] = toBoatResp(&boats[i])
	}
	return c.JSON(http.StatusOK, echo.Map{"boats": out})
}

// GetBoat returns one sailing by id.
func (h *PublicHandler) GetBoat(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid boat id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b, err := h.Boats.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toBoatResp(b))
}

// Availability returns seat availability for one sailing.  The numbers are
// advisory; the response says so via the cache header, and the booking path
// is the authority.  Query: pool=with_landing|without_landing (optional).
func (h *PublicHandler) Availability(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid boat id"})
	}
	pool, err := model.ParseSubPool(c.QueryParam("pool"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pool"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	report, err := h.Alloc.Availability(ctx, id, pool)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}
