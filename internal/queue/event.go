// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationCreatedEvent is published when a reservation is successfully
// created.  It contains enough information for downstream consumers to log,
// notify, or trigger analytics without querying the primary database.
type ReservationCreatedEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	UserID        uint64 `json:"user_id"`
	BookID        uint64 `json:"book_id"`
	CreatedAt     string `json:"created_at"`
}

// ReservationReturnedEvent is published when a reservation is marked as
// returned.
type ReservationReturnedEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	UserID        uint64 `json:"user_id"`
	ReturnedAt    string `json:"returned_at"`
}
