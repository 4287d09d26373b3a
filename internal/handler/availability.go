package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hollowhill/haunt-ticketing/internal/booking"
	"github.com/hollowhill/haunt-ticketing/internal/model"
	"github.com/hollowhill/haunt-ticketing/internal/monitoring"
	"github.com/hollowhill/haunt-ticketing/internal/repository"
)

// CapacityReader is the slice of the booking service the availability
// endpoint needs.
type CapacityReader interface {
	RemainingCapacity(ctx context.Context, day string) (int, error)
}

// AvailabilityHandler serves the public browse endpoints.  The numbers
// it returns are advisory: only the booking transaction decides whether
// a purchase fits.
type AvailabilityHandler struct {
	Dates *repository.EventDateRepo
	Svc   CapacityReader
}

func NewAvailabilityHandler(dates *repository.EventDateRepo, svc CapacityReader) *AvailabilityHandler {
	return &AvailabilityHandler{Dates: dates, Svc: svc}
}

// ----- DTOs -----

type dateResp struct {
	Day               string  `json:"day"`
	StartsAt          *string `json:"starts_at,omitempty"`
	EndsAt            *string `json:"ends_at,omitempty"`
	Capacity          int     `json:"capacity"`
	MaxPerReservation int     `json:"max_per_reservation"`
	Notes             string  `json:"notes,omitempty"`
}

func toDateResp(d model.EventDate) dateResp {
	return dateResp{
		Day:               d.Day,
		StartsAt:          d.StartsAt,
		EndsAt:            d.EndsAt,
		Capacity:          d.Capacity,
		MaxPerReservation: d.MaxPerReservation,
		Notes:             d.Notes,
	}
}

// ListDates handles GET /v1/dates and returns the dates currently open
// for sale.
func (h *AvailabilityHandler) ListDates(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	dates, err := h.Dates.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]dateResp, 0, len(dates))
	for _, d := range dates {
		if d.IsAvailable {
			out = append(out, toDateResp(d))
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"dates": out})
}

// Availability handles GET /v1/dates/:day/availability.  The remaining
// count may be served from a short-lived cache and can be stale by a
// few seconds.
func (h *AvailabilityHandler) Availability(c echo.Context) error {
	day := c.Param("day")
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "day must be YYYY-MM-DD"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	remaining, err := h.Svc.RemainingCapacity(ctx, day)
	if err != nil {
		if errors.Is(err, booking.ErrDateNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown event date"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	monitoring.RemainingCapacity.WithLabelValues(day).Set(float64(remaining))
	return c.JSON(http.StatusOK, echo.Map{
		"day":       day,
		"remaining": remaining,
		"advisory":  true,
	})
}
