// Package gateway implements the outbound HTTP client used to reach the
// user and book services through the shared API gateway.  The reservation
// service never talks to those services directly; every lookup goes through
// the gateway so routing and service discovery stay in one place.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Resource identifies which remote entity a lookup targets.  The gateway
// exposes one path per resource kind.
type Resource string

const (
	// ResourceUser targets GET {gateway}/users/{id}.
	ResourceUser Resource = "users"
	// ResourceBook targets GET {gateway}/books/{id}.
	ResourceBook Resource = "books"
)

// LookupStatus classifies the outcome of a single remote lookup.  The three
// states are deliberately distinct: a confirmed absence (NotFound) and a
// transport failure (Unavailable) lead to different caller decisions.
type LookupStatus int

const (
	// StatusFound means the gateway answered 2xx.  The display name may
	// still be empty when the body carried no recognizable name field.
	StatusFound LookupStatus = iota
	// StatusNotFound means the gateway answered with status >= 400.
	StatusNotFound
	// StatusUnavailable means the request never completed: timeout,
	// connection refused or any other transport-level failure.
	StatusUnavailable
)

// LookupResult is the typed outcome of one lookup call.  It is transient;
// results are consumed immediately and never cached across requests.
type LookupResult struct {
	Status LookupStatus
	Name   string
}

// DefaultTimeout bounds every lookup call when no explicit timeout is
// configured.  A lookup that exceeds it resolves to Unavailable.
const DefaultTimeout = 5 * time.Second

// Client issues bounded-timeout GET requests against the API gateway.  The
// zero value is not usable; construct with NewClient.  A single Client is
// safe for concurrent use by independent requests.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client bound to the given gateway base URL, e.g.
// "http://api-gateway:8080".  A non-positive timeout falls back to
// DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// nameRule is one step of the ordered display-name extraction policy.  Path
// addresses a field either at the top level ({"name": ...}) or one level
// down ({"user": {"name": ...}}).  Rules are tried in order and the first
// string hit wins, making the heuristic explicit and testable instead of
// being buried in parsing code.
type nameRule struct {
	path []string
}

// extraction order per resource kind, matching the response shapes the
// gateway is known to produce.
var nameRules = map[Resource][]nameRule{
	ResourceUser: {
		{path: []string{"name"}},
		{path: []string{"user_name"}},
		{path: []string{"user", "name"}},
	},
	ResourceBook: {
		{path: []string{"book", "book_name"}},
		{path: []string{"book", "name"}},
		{path: []string{"book_name"}},
		{path: []string{"name"}},
	},
}

// extractName walks the rule list for the resource kind and returns the
// first non-empty string found, or "" when nothing matches.
func extractName(kind Resource, data map[string]any) string {
	for _, rule := range nameRules[kind] {
		cur := any(data)
		ok := true
		for _, key := range rule.path {
			m, isMap := cur.(map[string]any)
			if !isMap {
				ok = false
				break
			}
			cur, ok = m[key]
			if !ok {
				break
			}
		}
		if !ok {
			continue
		}
		if s, isStr := cur.(string); isStr && s != "" {
			return s
		}
	}
	return ""
}

// Lookup fetches a single user or book from the gateway and classifies the
// outcome.  Exactly one attempt is made; there are no retries.  The id must
// be positive; a zero ID is reported as NotFound without a network call
// since the gateway has no route for it.
func (c *Client) Lookup(ctx context.Context, kind Resource, id uint64) LookupResult {
	if id == 0 {
		return LookupResult{Status: StatusNotFound}
	}
	url := fmt.Sprintf("%s/%s/%d", c.baseURL, kind, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return LookupResult{Status: StatusUnavailable}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts and connection failures are indistinguishable here:
		// the dependency could not be reached within its budget.
		return LookupResult{Status: StatusUnavailable}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return LookupResult{Status: StatusNotFound}
	}

	// The lookup succeeded at the transport level; a body we cannot parse
	// still counts as Found, only without a display name.
	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return LookupResult{Status: StatusFound}
	}
	return LookupResult{Status: StatusFound, Name: extractName(kind, data)}
}
