package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hollowhill/haunt-ticketing/internal/booking"
	"github.com/hollowhill/haunt-ticketing/internal/monitoring"
)

// Redeemer is the slice of the booking service the scan endpoint needs.
type Redeemer interface {
	Redeem(ctx context.Context, token string) (*booking.Redemption, error)
}

// ScanHandler owns the door-staff token validation endpoint.
type ScanHandler struct {
	Svc Redeemer
}

func NewScanHandler(svc Redeemer) *ScanHandler {
	return &ScanHandler{Svc: svc}
}

type scanReq struct {
	Token string `json:"token"`
}

// Scan handles POST /v1/scan.  Exactly one scan of a token succeeds;
// every later scan reports the original redemption time so door staff
// can see when the ticket was first used.
func (h *ScanHandler) Scan(c echo.Context) error {
	var req scanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	red, err := h.Svc.Redeem(ctx, req.Token)
	if err != nil {
		return h.writeScanError(c, err)
	}

	monitoring.RedemptionsTotal.WithLabelValues("redeemed").Inc()
	return c.JSON(http.StatusOK, echo.Map{"valid": true, "redemption": red})
}

func (h *ScanHandler) writeScanError(c echo.Context, err error) error {
	var redeemed *booking.AlreadyRedeemedError

	switch {
	case errors.Is(err, booking.ErrTokenNotFound):
		monitoring.RedemptionsTotal.WithLabelValues("not_found").Inc()
		return c.JSON(http.StatusNotFound, echo.Map{"valid": false, "reason": "not_found"})
	case errors.Is(err, booking.ErrTokenExpired):
		monitoring.RedemptionsTotal.WithLabelValues("expired").Inc()
		return c.JSON(http.StatusGone, echo.Map{"valid": false, "reason": "expired"})
	case errors.As(err, &redeemed):
		monitoring.RedemptionsTotal.WithLabelValues("already_redeemed").Inc()
		return c.JSON(http.StatusConflict, echo.Map{
			"valid":       false,
			"reason":      "already_redeemed",
			"redeemed_at": redeemed.RedeemedAt,
		})
	default:
		monitoring.RedemptionsTotal.WithLabelValues("error").Inc()
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"valid": false, "reason": "error"})
	}
}
