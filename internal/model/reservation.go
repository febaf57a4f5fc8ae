package model

import "time"

// Reservation records that a user has borrowed one or more books.
// The user is owned by the user service; only its numeric ID is
// stored here, deliberately without a foreign key, because the
// users table lives in another service's database.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – user who made the reservation (cross-service ID).
//  CreatedAt  – creation timestamp.
//  ReturnedAt – when the reservation was returned; nil while the
//               books are still out.  Once set it is never cleared.
type Reservation struct {
	ID         uint64     // reservations.id
	UserID     uint64     // reservations.user_id
	CreatedAt  time.Time  // reservations.created_at
	ReturnedAt *time.Time // reservations.returned_at (nullable)
}

// ReservationBook links a reservation to a single book.  Each record
// represents one book borrowed under the reservation.  The book ID
// is a cross-service reference owned by the book service and is
// stored as a plain integer for the same reason as Reservation.UserID.
//
// Fields:
//  ReservationID  – reference to the parent reservation.
//  BookID         – book borrowed under the reservation.
//  BookReturnedAt – per-book return timestamp, independent of the
//                   parent reservation's ReturnedAt.
type ReservationBook struct {
	ReservationID  uint64     // reservation_books.reservation_id
	BookID         uint64     // reservation_books.book_id
	BookReturnedAt *time.Time // reservation_books.book_returned_at (nullable)
}
