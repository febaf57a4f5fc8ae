package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-reservation/internal/config"
	"github.com/iliyamo/library-reservation/internal/gateway"
	"github.com/iliyamo/library-reservation/internal/handler"
	"github.com/iliyamo/library-reservation/internal/middleware"
	"github.com/iliyamo/library-reservation/internal/model"
	"github.com/iliyamo/library-reservation/internal/repository"
	"github.com/iliyamo/library-reservation/internal/service"
)

// memStore is a minimal in-memory ReservationStore for routing tests.
type memStore struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*repository.ReservationWithBook
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, rows: make(map[uint64]*repository.ReservationWithBook)}
}

func (s *memStore) Reserve(_ context.Context, userID, bookID uint64) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	now := time.Now().UTC()
	s.rows[id] = &repository.ReservationWithBook{
		ReservationID: id,
		UserID:        userID,
		BookID:        bookID,
		CreatedAt:     now,
	}
	return &model.Reservation{ID: id, UserID: userID, CreatedAt: now}, nil
}

func (s *memStore) GetByID(_ context.Context, id uint64) (*repository.ReservationWithBook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *memStore) MarkReturned(_ context.Context, id uint64) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	now := time.Now().UTC()
	row.ReturnedAt = &now
	return &model.Reservation{ID: id, UserID: row.UserID, CreatedAt: row.CreatedAt, ReturnedAt: &now}, nil
}

func (s *memStore) Delete(_ context.Context, id uint64) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	delete(s.rows, id)
	return &model.Reservation{ID: id, UserID: row.UserID, CreatedAt: row.CreatedAt}, nil
}

func (s *memStore) ListAll(_ context.Context) ([]repository.ReservationWithBook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.ReservationWithBook, 0, len(s.rows))
	for id := uint64(1); id < s.nextID; id++ {
		if row, ok := s.rows[id]; ok {
			out = append(out, *row)
		}
	}
	return out, nil
}

type allowall struct{}

func (allowall) Validate(context.Context, int64, int64) service.Verdict {
	return service.Verdict{Code: service.VerdictValid}
}

type emptyNames struct{}

func (emptyNames) Names(_ context.Context, _ gateway.Resource, ids []uint64) map[uint64]string {
	out := make(map[uint64]string, len(ids))
	for _, id := range ids {
		out[id] = ""
	}
	return out
}

func noMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error { return next(c) }
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{"GET": true},
		TTL:          time.Minute,
		Prefix:       "reservations:cache",
		MaxBodyBytes: 1 << 20,
	}

	h := handler.NewReservationHandler(newMemStore(), allowall{}, emptyNames{}, nil)

	e := echo.New()
	RegisterRoutes(e)
	RegisterReservations(e, h,
		noMiddleware,
		middleware.NewResponseCache(cfg, rdb),
		middleware.NewWriteInvalidator(cfg, rdb),
	)
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestDeletedReservationReadReturnsNotFound(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodPost, "/v1/reservations", `{"user_id":7,"book_id":9}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Read the single reservation once, then delete it.  The single read
	// is never cached, so the follow-up read must see the deletion right
	// away instead of a stale body.
	got := do(e, http.MethodGet, "/v1/reservations/1", "")
	require.Equal(t, http.StatusOK, got.Code)

	del := do(e, http.MethodDelete, "/v1/reservations/1", "")
	require.Equal(t, http.StatusOK, del.Code)

	after := do(e, http.MethodGet, "/v1/reservations/1", "")
	assert.Equal(t, http.StatusNotFound, after.Code)
}

func TestReturnedReservationReadShowsTimestamp(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodPost, "/v1/reservations", `{"user_id":7,"book_id":9}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	before := do(e, http.MethodGet, "/v1/reservations/1", "")
	require.Equal(t, http.StatusOK, before.Code)
	require.Contains(t, before.Body.String(), `"returned_at":null`)

	ret := do(e, http.MethodPost, "/v1/reservations/1/return", "")
	require.Equal(t, http.StatusOK, ret.Code)

	after := do(e, http.MethodGet, "/v1/reservations/1", "")
	require.Equal(t, http.StatusOK, after.Code)
	assert.NotContains(t, after.Body.String(), `"returned_at":null`)
}

func TestListRefreshesAfterWriteThroughCache(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodPost, "/v1/reservations", `{"user_id":7,"book_id":9}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	list := do(e, http.MethodGet, "/v1/reservations", "")
	require.Equal(t, http.StatusOK, list.Code)
	require.Equal(t, "MISS", list.Header().Get("X-Cache"))
	require.Contains(t, list.Body.String(), `"reservation_id":1`)

	// Warm hit before the write.
	hit := do(e, http.MethodGet, "/v1/reservations", "")
	require.Equal(t, "HIT", hit.Header().Get("X-Cache"))

	del := do(e, http.MethodDelete, "/v1/reservations/1", "")
	require.Equal(t, http.StatusOK, del.Code)

	fresh := do(e, http.MethodGet, "/v1/reservations", "")
	require.Equal(t, http.StatusOK, fresh.Code)
	assert.Equal(t, "MISS", fresh.Header().Get("X-Cache"))
	assert.NotContains(t, fresh.Body.String(), `"reservation_id":1`)
}
