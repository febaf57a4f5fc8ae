package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_Lookup_FoundWithFlatName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/7", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name": "Alice"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	res := c.Lookup(context.Background(), ResourceUser, 7)

	assert.Equal(t, StatusFound, res.Status)
	assert.Equal(t, "Alice", res.Name)
}

func Test_Lookup_FoundWithNestedUserName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user": {"name": "Bob"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	res := c.Lookup(context.Background(), ResourceUser, 1)

	assert.Equal(t, StatusFound, res.Status)
	assert.Equal(t, "Bob", res.Name)
}

func Test_Lookup_BookExtractionOrder(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "nested_book_name_wins", body: `{"book": {"book_name": "Dune"}, "name": "ignored"}`, want: "Dune"},
		{name: "nested_name_fallback", body: `{"book": {"name": "Dune"}}`, want: "Dune"},
		{name: "flat_book_name", body: `{"book_name": "Dune"}`, want: "Dune"},
		{name: "flat_name_last", body: `{"name": "Dune"}`, want: "Dune"},
		{name: "no_name_field", body: `{"isbn": "123"}`, want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			res := NewClient(srv.URL, time.Second).Lookup(context.Background(), ResourceBook, 42)

			assert.Equal(t, StatusFound, res.Status)
			assert.Equal(t, tc.want, res.Name)
		})
	}
}

func Test_Lookup_MalformedBodyIsStillFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	res := NewClient(srv.URL, time.Second).Lookup(context.Background(), ResourceUser, 7)

	// The lookup succeeded at the transport level, only the name is missing.
	assert.Equal(t, StatusFound, res.Status)
	assert.Equal(t, "", res.Name)
}

func Test_Lookup_NotFoundOnClientAndServerErrors(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusBadRequest, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		res := NewClient(srv.URL, time.Second).Lookup(context.Background(), ResourceBook, 42)

		assert.Equal(t, StatusNotFound, res.Status, "status %d", status)
		srv.Close()
	}
}

func Test_Lookup_UnavailableOnConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	res := NewClient(srv.URL, time.Second).Lookup(context.Background(), ResourceUser, 7)

	assert.Equal(t, StatusUnavailable, res.Status)
}

func Test_Lookup_UnavailableOnTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	res := NewClient(srv.URL, 20*time.Millisecond).Lookup(context.Background(), ResourceUser, 7)

	assert.Equal(t, StatusUnavailable, res.Status)
}

func Test_Lookup_ZeroIDSkipsNetwork(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	res := NewClient(srv.URL, time.Second).Lookup(context.Background(), ResourceUser, 0)

	assert.Equal(t, StatusNotFound, res.Status)
	assert.Equal(t, 0, calls)
}
