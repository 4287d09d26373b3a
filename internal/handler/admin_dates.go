package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hollowhill/haunt-ticketing/internal/booking"
	"github.com/hollowhill/haunt-ticketing/internal/model"
	"github.com/hollowhill/haunt-ticketing/internal/repository"
)

// Canceller voids a confirmed reservation and refreshes the advisory
// capacity read for its night.
type Canceller interface {
	Cancel(ctx context.Context, reservationID string) error
}

// AdminHandler owns the back-office endpoints for managing event dates
// and reservations.  All routes are mounted behind the ADMIN role.
type AdminHandler struct {
	Dates        *repository.EventDateRepo
	Reservations *repository.ReservationRepo
	Svc          Canceller
}

func NewAdminHandler(d *repository.EventDateRepo, r *repository.ReservationRepo, svc Canceller) *AdminHandler {
	return &AdminHandler{Dates: d, Reservations: r, Svc: svc}
}

// ----- DTOs -----

type upsertDateReq struct {
	Day               string  `json:"day"` // YYYY-MM-DD
	StartsAt          *string `json:"starts_at"`
	EndsAt            *string `json:"ends_at"`
	Capacity          int     `json:"capacity"`
	MaxPerReservation int     `json:"max_per_reservation"`
	IsAvailable       *bool   `json:"is_available"`
	Notes             string  `json:"notes"`
}

func (r *upsertDateReq) validate() string {
	if r.Day != "" {
		if _, err := time.Parse("2006-01-02", r.Day); err != nil {
			return "day must be YYYY-MM-DD"
		}
	}
	if r.Capacity < 0 {
		return "capacity must be >= 0"
	}
	if r.MaxPerReservation < 0 {
		return "max_per_reservation must be >= 0"
	}
	return ""
}

// CreateDate handles POST /v1/admin/dates.
func (h *AdminHandler) CreateDate(c echo.Context) error {
	var req upsertDateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Day == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "day required"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if req.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity required"})
	}
	if req.MaxPerReservation == 0 {
		req.MaxPerReservation = req.Capacity
	}

	d := &model.EventDate{
		Day:               req.Day,
		StartsAt:          req.StartsAt,
		EndsAt:            req.EndsAt,
		Capacity:          req.Capacity,
		MaxPerReservation: req.MaxPerReservation,
		IsAvailable:       req.IsAvailable == nil || *req.IsAvailable,
		Notes:             strings.TrimSpace(req.Notes),
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Dates.Create(ctx, d); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "date already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create date failed"})
	}
	return c.JSON(http.StatusCreated, toDateResp(*d))
}

// UpdateDate handles PUT /v1/admin/dates/:day.  Capacity may be raised
// or lowered at any time; reservations already confirmed always stand,
// even when the new capacity drops below the sold count.
func (h *AdminHandler) UpdateDate(c echo.Context) error {
	day := c.Param("day")
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "day must be YYYY-MM-DD"})
	}
	var req upsertDateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Day = ""
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Dates.GetByDay(ctx, day)
	if err != nil {
		if errors.Is(err, booking.ErrDateNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown event date"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if req.Capacity > 0 {
		d.Capacity = req.Capacity
	}
	if req.MaxPerReservation > 0 {
		d.MaxPerReservation = req.MaxPerReservation
	}
	if req.StartsAt != nil {
		d.StartsAt = req.StartsAt
	}
	if req.EndsAt != nil {
		d.EndsAt = req.EndsAt
	}
	if req.IsAvailable != nil {
		d.IsAvailable = *req.IsAvailable
	}
	if req.Notes != "" {
		d.Notes = strings.TrimSpace(req.Notes)
	}

	if err := h.Dates.Update(ctx, d); err != nil {
		if errors.Is(err, booking.ErrDateNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown event date"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update date failed"})
	}
	return c.JSON(http.StatusOK, toDateResp(*d))
}

// DeleteDate handles DELETE /v1/admin/dates/:day.  Dates with existing
// reservations cannot be deleted, only closed via is_available.
func (h *AdminHandler) DeleteDate(c echo.Context) error {
	day := c.Param("day")
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "day must be YYYY-MM-DD"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Dates.GetByDay(ctx, day)
	if err != nil {
		if errors.Is(err, booking.ErrDateNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown event date"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if err := h.Dates.Delete(ctx, d.ID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "date has reservations; close it instead"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete date failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListReservations handles GET /v1/admin/dates/:day/reservations.
func (h *AdminHandler) ListReservations(c echo.Context) error {
	day := c.Param("day")
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "day must be YYYY-MM-DD"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Reservations.ListByDay(ctx, day)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"day": day, "reservations": list})
}

// CancelReservation handles POST /v1/admin/reservations/:id/cancel.
// Cancelling frees the quantity for new purchases and drops the night's
// advisory cache entry.
func (h *AdminHandler) CancelReservation(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.Cancel(ctx, id); err != nil {
		if errors.Is(err, booking.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no confirmed reservation with that id"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": model.ReservationCancelled})
}
