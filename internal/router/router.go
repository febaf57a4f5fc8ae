package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/library-reservation/internal/handler" // import the handlers that implement business logic
)

// RegisterRoutes registers routes that do not require any middleware on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterReservations registers the reservation API under /v1.  The write
// endpoints validate against the user and book services before touching
// storage; the list endpoint enriches rows with names fetched through the
// gateway and degrades to empty names when those lookups fail.
//
// Only the enriched list is cached, it is the one read expensive enough to
// justify it.  The single-reservation read always goes to storage so a
// delete or return is visible immediately.  Every write runs the cache
// invalidator so the next list reflects the new state.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, limit, cache, invalidate echo.MiddlewareFunc) {
	g := e.Group("/v1", limit)
	// Create a reservation for a user/book pair.
	g.POST("/reservations", h.Reserve, invalidate)
	// List every reservation with user and book names resolved best-effort.
	g.GET("/reservations", h.GetAll, cache)
	// Fetch one reservation with its book reference.
	g.GET("/reservations/:id", h.Get)
	// Mark a reservation as returned.  Safe to repeat.
	g.POST("/reservations/:id/return", h.Return, invalidate)
	// Delete a reservation together with all of its book rows.
	g.DELETE("/reservations/:id", h.Delete, invalidate)
}
