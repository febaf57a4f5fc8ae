package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-reservation/internal/gateway"
	"github.com/iliyamo/library-reservation/internal/model"
	"github.com/iliyamo/library-reservation/internal/queue"
	"github.com/iliyamo/library-reservation/internal/repository"
	"github.com/iliyamo/library-reservation/internal/service"
)

// ReservationStore is the slice of the repository the handlers consume.
// *repository.ReservationRepo satisfies it; tests substitute fakes.
type ReservationStore interface {
	Reserve(ctx context.Context, userID, bookID uint64) (*model.Reservation, error)
	GetByID(ctx context.Context, id uint64) (*repository.ReservationWithBook, error)
	MarkReturned(ctx context.Context, id uint64) (*model.Reservation, error)
	Delete(ctx context.Context, id uint64) (*model.Reservation, error)
	ListAll(ctx context.Context) ([]repository.ReservationWithBook, error)
}

// ReservationValidator classifies a reservation request before anything is
// written.  Implemented by *service.Validator.
type ReservationValidator interface {
	Validate(ctx context.Context, userID, bookID int64) service.Verdict
}

// NameResolver resolves display names for a set of user or book IDs.
// Implemented by *gateway.Client.
type NameResolver interface {
	Names(ctx context.Context, kind gateway.Resource, ids []uint64) map[uint64]string
}

// EventPublisher publishes domain events after successful writes.  Failures
// must never affect the request outcome.
type EventPublisher interface {
	ReservationCreated(ctx context.Context, ev queue.ReservationCreatedEvent) error
	ReservationReturned(ctx context.Context, ev queue.ReservationReturnedEvent) error
}

// ReservationHandler owns the externally visible reservation API.  Writes
// run validation fully before the store transaction opens; reads apply a
// strict degrade-don't-fail policy when enriching rows with names.
type ReservationHandler struct {
	Store     ReservationStore
	Validator ReservationValidator
	Names     NameResolver
	Events    EventPublisher // optional; nil disables publishing
}

// NewReservationHandler constructs a ReservationHandler.  Store, validator
// and name resolver must be non-nil; events may be nil when no broker is
// configured.
func NewReservationHandler(store ReservationStore, validator ReservationValidator, names NameResolver, events EventPublisher) *ReservationHandler {
	if store == nil || validator == nil || names == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{Store: store, Validator: validator, Names: names, Events: events}
}

// Reserve handles POST /v1/reservations.  The request body must contain
// positive user_id and book_id values.  Both referenced entities are
// checked concurrently against the gateway; only when both exist is the
// reservation written, together with its book row, in one transaction.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	var body struct {
		UserID int64 `json:"user_id"`
		BookID int64 `json:"book_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()

	verdict := h.Validator.Validate(ctx, body.UserID, body.BookID)
	switch verdict.Code {
	case service.VerdictValid:
		// fall through to the write below
	case service.VerdictInvalidArgument:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verdict.Reason})
	case service.VerdictNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": verdict.Reason})
	case service.VerdictUnavailable:
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": verdict.Reason})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unexpected validation result"})
	}

	res, err := h.Store.Reserve(ctx, uint64(body.UserID), uint64(body.BookID))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if h.Events != nil {
		ev := queue.ReservationCreatedEvent{
			ReservationID: res.ID,
			UserID:        res.UserID,
			BookID:        uint64(body.BookID),
			CreatedAt:     res.CreatedAt.Format(time.RFC3339),
		}
		if err := h.Events.ReservationCreated(ctx, ev); err != nil {
			log.Printf("reservation: publish created event failed: %v", err)
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{"reservation_id": res.ID})
}

// Return handles POST /v1/reservations/:id/return.  Returning a
// reservation that was already returned is accepted and re-sets the
// timestamp.
func (h *ReservationHandler) Return(c echo.Context) error {
	id, err := reservationID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	ctx := c.Request().Context()
	res, err := h.Store.MarkReturned(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if h.Events != nil && res.ReturnedAt != nil {
		ev := queue.ReservationReturnedEvent{
			ReservationID: res.ID,
			UserID:        res.UserID,
			ReturnedAt:    res.ReturnedAt.Format(time.RFC3339),
		}
		if err := h.Events.ReservationReturned(ctx, ev); err != nil {
			log.Printf("reservation: publish returned event failed: %v", err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"reservation_id": res.ID})
}

// Delete handles DELETE /v1/reservations/:id.  The reservation and all of
// its book rows are removed atomically; a nonexistent ID performs no writes.
func (h *ReservationHandler) Delete(c echo.Context) error {
	id, err := reservationID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.Store.Delete(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation_id": res.ID})
}

// Get handles GET /v1/reservations/:id and returns the raw reservation row
// with its book reference; no gateway lookups are involved.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := reservationID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	row, err := h.Store.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	var returnedAt *string
	if row.ReturnedAt != nil {
		iso := row.ReturnedAt.UTC().Format(time.RFC3339)
		returnedAt = &iso
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id": row.ReservationID,
		"user_id":        row.UserID,
		"book_id":        row.BookID,
		"created_at":     row.CreatedAt.UTC().Format(time.RFC3339),
		"returned_at":    returnedAt,
	})
}

// enrichedRow is one element of the GetAll response.
type enrichedRow struct {
	ReservationID uint64 `json:"reservation_id"`
	UserID        uint64 `json:"user_id"`
	UserName      string `json:"user_name"`
	BookID        uint64 `json:"book_id"`
	BookName      string `json:"book_name"`
}

// GetAll handles GET /v1/reservations.  It lists every reservation row,
// fans out name lookups for the distinct user and book IDs (the two
// aggregator calls run concurrently with each other) and merges the names
// in.  Rows whose names could not be resolved are rendered with empty
// names, never omitted; only a store failure fails the call.
func (h *ReservationHandler) GetAll(c echo.Context) error {
	ctx := c.Request().Context()
	rows, err := h.Store.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	userIDs := make([]uint64, 0, len(rows))
	bookIDs := make([]uint64, 0, len(rows))
	for _, row := range rows {
		if row.UserID != 0 {
			userIDs = append(userIDs, row.UserID)
		}
		if row.BookID != 0 {
			bookIDs = append(bookIDs, row.BookID)
		}
	}

	var (
		userNames map[uint64]string
		bookNames map[uint64]string
		wg        sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		userNames = h.Names.Names(ctx, gateway.ResourceUser, userIDs)
	}()
	go func() {
		defer wg.Done()
		bookNames = h.Names.Names(ctx, gateway.ResourceBook, bookIDs)
	}()
	wg.Wait()

	out := make([]enrichedRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, enrichedRow{
			ReservationID: row.ReservationID,
			UserID:        row.UserID,
			UserName:      userNames[row.UserID],
			BookID:        row.BookID,
			BookName:      bookNames[row.BookID],
		})
	}
	return c.JSON(http.StatusOK, out)
}

// reservationID parses the :id path parameter as a positive integer.
func reservationID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid reservation id")
	}
	return id, nil
}
