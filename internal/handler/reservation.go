package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hollowhill/haunt-ticketing/internal/booking"
	"github.com/hollowhill/haunt-ticketing/internal/monitoring"
)

// Booker is the slice of the booking service the purchase endpoint
// needs; tests substitute a stub.
type Booker interface {
	Book(ctx context.Context, req booking.Request) (*booking.Confirmation, error)
}

// ReservationHandler owns the public purchase endpoint.
type ReservationHandler struct {
	Svc Booker
}

func NewReservationHandler(svc Booker) *ReservationHandler {
	return &ReservationHandler{Svc: svc}
}

// ----- DTOs -----

type createReservationReq struct {
	Day        string `json:"day"` // YYYY-MM-DD
	Quantity   int    `json:"quantity"`
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
}

// Create handles POST /v1/reservations.  Every rejection kind maps to
// a distinct status and machine-readable reason so the storefront can
// render a precise message without parsing error text.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Day == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "day required"})
	}
	if _, err := time.Parse("2006-01-02", req.Day); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "day must be YYYY-MM-DD"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	start := time.Now()
	conf, err := h.Svc.Book(ctx, booking.Request{
		Day:            req.Day,
		Quantity:       req.Quantity,
		GuestName:      req.GuestName,
		GuestEmail:     req.GuestEmail,
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
	})
	monitoring.ReservationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		return h.writeBookError(c, err)
	}

	monitoring.ReservationsTotal.WithLabelValues(outcomeFor(conf)).Inc()
	if conf.Replayed {
		return c.JSON(http.StatusOK, conf)
	}
	return c.JSON(http.StatusCreated, conf)
}

func outcomeFor(conf *booking.Confirmation) string {
	if conf.Replayed {
		return "replayed"
	}
	return "confirmed"
}

func (h *ReservationHandler) writeBookError(c echo.Context, err error) error {
	var insufficient *booking.InsufficientCapacityError
	var perLimit *booking.PerReservationLimitError
	var storage *booking.StorageError

	switch {
	case errors.Is(err, booking.ErrInvalidRequest):
		monitoring.ReservationsTotal.WithLabelValues("invalid").Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation request", "reason": "invalid"})
	case errors.Is(err, booking.ErrDateNotFound):
		monitoring.ReservationsTotal.WithLabelValues("not_found").Inc()
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown event date", "reason": "date_not_found"})
	case errors.Is(err, booking.ErrDateUnavailable):
		monitoring.ReservationsTotal.WithLabelValues("unavailable").Inc()
		return c.JSON(http.StatusConflict, echo.Map{"error": "event date not open for sale", "reason": "date_unavailable"})
	case errors.Is(err, booking.ErrDuplicateReservation):
		monitoring.ReservationsTotal.WithLabelValues("duplicate").Inc()
		return c.JSON(http.StatusConflict, echo.Map{"error": "a confirmed reservation already exists for this email on this date", "reason": "duplicate"})
	case errors.Is(err, booking.ErrSoldOut):
		monitoring.ReservationsTotal.WithLabelValues("sold_out").Inc()
		return c.JSON(http.StatusConflict, echo.Map{"error": "this date is sold out", "reason": "sold_out", "remaining": 0})
	case errors.As(err, &insufficient):
		monitoring.ReservationsTotal.WithLabelValues("insufficient_capacity").Inc()
		return c.JSON(http.StatusConflict, echo.Map{"error": "not enough tickets remain", "reason": "insufficient_capacity", "remaining": insufficient.Remaining})
	case errors.As(err, &perLimit):
		monitoring.ReservationsTotal.WithLabelValues("per_reservation_limit").Inc()
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "quantity exceeds the per-reservation limit", "reason": "per_reservation_limit", "limit": perLimit.Limit})
	case errors.As(err, &storage):
		monitoring.ReservationsTotal.WithLabelValues("error").Inc()
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "reservation system unavailable, please retry", "reason": "storage"})
	default:
		monitoring.ReservationsTotal.WithLabelValues("error").Inc()
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation failed"})
	}
}
