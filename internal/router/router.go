// Package router registers the HTTP routes and their middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hollowhill/haunt-ticketing/internal/handler"
	"github.com/hollowhill/haunt-ticketing/internal/middleware"
	"github.com/hollowhill/haunt-ticketing/internal/model"
)

// RegisterRoutes registers the operational endpoints: liveness and the
// Prometheus scrape target.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterPublic registers the guest-facing endpoints.  The purchase
// endpoint carries the rate limiter; the browse endpoints carry the
// response cache.  Either middleware may be nil when its backing Redis
// is unavailable, in which case the route runs unwrapped.
func RegisterPublic(e *echo.Echo, res *handler.ReservationHandler, av *handler.AvailabilityHandler, limiter, cache echo.MiddlewareFunc) {
	purchase := []echo.MiddlewareFunc{}
	if limiter != nil {
		purchase = append(purchase, limiter)
	}
	e.POST("/v1/reservations", res.Create, purchase...)

	browse := []echo.MiddlewareFunc{}
	if cache != nil {
		browse = append(browse, cache)
	}
	e.GET("/v1/dates", av.ListDates, browse...)
	e.GET("/v1/dates/:day/availability", av.Availability, browse...)
}

// RegisterAuth registers the staff login endpoint.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	e.POST("/v1/auth/login", a.Login)
}

// RegisterStaff registers the JWT-protected endpoints.  Scanning is
// open to both roles; the back office requires ADMIN.
func RegisterStaff(e *echo.Echo, scan *handler.ScanHandler, admin *handler.AdminHandler, a *handler.AuthHandler, jwtSecret string) {
	sg := e.Group("/v1")
	sg.Use(middleware.JWTAuth(jwtSecret))
	sg.POST("/scan", scan.Scan, middleware.RequireRole(model.RoleScanner, model.RoleAdmin))

	ag := e.Group("/v1/admin")
	ag.Use(middleware.JWTAuth(jwtSecret))
	ag.Use(middleware.RequireRole(model.RoleAdmin))
	ag.POST("/dates", admin.CreateDate)
	ag.PUT("/dates/:day", admin.UpdateDate)
	ag.DELETE("/dates/:day", admin.DeleteDate)
	ag.GET("/dates/:day/reservations", admin.ListReservations)
	ag.POST("/reservations/:id/cancel", admin.CancelReservation)
	ag.POST("/staff", a.CreateStaff)
}
