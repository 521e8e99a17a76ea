// Package router registers the HTTP routes of the service.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/meeting-room-reservation/internal/handler"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Health       *handler.HealthHandler
	Rooms        *handler.RoomHandler
	Reservations *handler.ReservationHandler
	Ledger       *handler.LedgerHandler
}

// Middleware applied to route groups.  A nil value is skipped.
type Middleware struct {
	API         echo.MiddlewareFunc // every /api route, e.g. rate limiting
	LedgerReads echo.MiddlewareFunc // cacheable token reads
}

func use(mw ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mw))
	for _, m := range mw {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// RegisterRoutes registers the probes and the /api surface.  Static
// paths are registered next to their :id siblings; echo prefers the
// static match.
func RegisterRoutes(e *echo.Echo, h Handlers, mw Middleware) {
	e.GET("/healthz", h.Health.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api", use(mw.API)...)

	rooms := api.Group("/rooms")
	rooms.GET("", h.Rooms.List)
	rooms.GET("/available", h.Rooms.Available)
	rooms.GET("/by-capacity", h.Rooms.ByCapacity)
	rooms.GET("/by-location", h.Rooms.ByLocation)
	rooms.GET("/:id", h.Rooms.Get)
	rooms.POST("", h.Rooms.Create)
	rooms.PUT("/:id", h.Rooms.Update)
	rooms.PATCH("/:id/status", h.Rooms.UpdateStatus)
	rooms.DELETE("/:id", h.Rooms.Delete)

	res := api.Group("/reservations")
	res.GET("", h.Reservations.List)
	res.GET("/upcoming", h.Reservations.Upcoming)
	res.GET("/today", h.Reservations.Today)
	res.GET("/availability", h.Reservations.Availability)
	res.GET("/date/:date", h.Reservations.ByDate)
	res.GET("/room/:roomId", h.Reservations.ByRoom)
	res.GET("/:id", h.Reservations.Get)
	res.POST("", h.Reservations.Create)
	res.PUT("/:id", h.Reservations.Update)
	res.DELETE("/:id", h.Reservations.Delete)

	kjb := api.Group("/kjb")
	kjb.GET("/balance/:address", h.Ledger.Balance)
	kjb.GET("/grant-status/:address", h.Ledger.GrantStatus)
	kjb.GET("/contract-info", h.Ledger.ContractInfo, use(mw.LedgerReads)...)
	kjb.GET("/stats", h.Ledger.Stats, use(mw.LedgerReads)...)
	kjb.POST("/transfer", h.Ledger.Transfer)
	kjb.POST("/claim-grant", h.Ledger.ClaimGrant)
	kjb.POST("/burn", h.Ledger.Burn)
}
