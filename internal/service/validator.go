// Package service contains the reservation validation logic and the
// best-effort queue publisher.  Validation sits between the HTTP handlers
// and the gateway client: it turns two raw lookup results into a single
// verdict the handler can map onto an HTTP status.
package service

import (
	"context"
	"sync"

	"github.com/iliyamo/library-reservation/internal/gateway"
)

// VerdictCode classifies the outcome of validating a reservation request.
type VerdictCode int

const (
	// VerdictValid means both the user and the book exist.
	VerdictValid VerdictCode = iota
	// VerdictInvalidArgument means the request was rejected locally,
	// before any network call.
	VerdictInvalidArgument
	// VerdictNotFound means a dependency confirmed the user or book is
	// absent.
	VerdictNotFound
	// VerdictUnavailable means a dependency could not be reached within
	// its timeout; the caller may retry.
	VerdictUnavailable
)

// Verdict is the classified outcome of a validation, with a human-readable
// reason naming the failing dependency or entity.
type Verdict struct {
	Code   VerdictCode
	Reason string
}

// Lookup is the slice of the gateway client the validator consumes.  It is
// satisfied by *gateway.Client and by fakes in tests.
type Lookup interface {
	Lookup(ctx context.Context, kind gateway.Resource, id uint64) gateway.LookupResult
}

// Validator checks that the user and book referenced by a reservation
// request exist before anything is written.
type Validator struct {
	lookup Lookup
}

// NewValidator returns a Validator backed by the given lookup client.
func NewValidator(lookup Lookup) *Validator {
	if lookup == nil {
		panic("nil lookup passed to NewValidator")
	}
	return &Validator{lookup: lookup}
}

// Validate issues exactly two concurrent lookups (one user, one book) and
// classifies the combined outcome.  Non-positive IDs are rejected up front
// without touching the network.
//
// Resolution policy: an Unavailable result dominates a NotFound result, so
// transport-level uncertainty is never reported as a confirmed absence.
// Within each tier the user is checked before the book, so when both are
// missing the verdict names the user.  This ordering is part of the wire
// contract and must not change.
func (v *Validator) Validate(ctx context.Context, userID, bookID int64) Verdict {
	if userID <= 0 || bookID <= 0 {
		return Verdict{Code: VerdictInvalidArgument, Reason: "user_id and book_id are required"}
	}

	var (
		userRes gateway.LookupResult
		bookRes gateway.LookupResult
		wg      sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		userRes = v.lookup.Lookup(ctx, gateway.ResourceUser, uint64(userID))
	}()
	go func() {
		defer wg.Done()
		bookRes = v.lookup.Lookup(ctx, gateway.ResourceBook, uint64(bookID))
	}()
	wg.Wait()

	if userRes.Status == gateway.StatusUnavailable {
		return Verdict{Code: VerdictUnavailable, Reason: "user-service (via API gateway) unavailable"}
	}
	if bookRes.Status == gateway.StatusUnavailable {
		return Verdict{Code: VerdictUnavailable, Reason: "book-service (via API gateway) unavailable"}
	}
	if userRes.Status == gateway.StatusNotFound {
		return Verdict{Code: VerdictNotFound, Reason: "user not found"}
	}
	if bookRes.Status == gateway.StatusNotFound {
		return Verdict{Code: VerdictNotFound, Reason: "book not found"}
	}
	return Verdict{Code: VerdictValid}
}
